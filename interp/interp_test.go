package interp

import (
	"math"
	"testing"

	"github.com/lookbusy1344/rv64emu/decode"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

func minInt64AsUint64() uint64 {
	v := int64(math.MinInt64)
	return uint64(v)
}

func asUint64(v int64) uint64 {
	return uint64(v)
}

func newTestMem(t *testing.T, base uint64) *memory.Manager {
	t.Helper()
	m := memory.NewManager()
	if err := m.Reserve(base); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	return m
}

func TestExecAddi(t *testing.T) {
	s := machine.NewState()
	s.SetGPR(machine.A0, 5)
	insn := decode.Insn{Op: decode.OpAddi, Rd: int8(machine.A1), Rs1: int8(machine.A0), Imm: -3}
	if err := Exec(s, nil, insn); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if got := s.GetGPR(machine.A1); got != 2 {
		t.Fatalf("a1 = %d, want 2", got)
	}
}

func TestExecAddiToX0Discarded(t *testing.T) {
	s := machine.NewState()
	insn := decode.Insn{Op: decode.OpAddi, Rd: 0, Rs1: 0, Imm: 42}
	if err := Exec(s, nil, insn); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if s.GetGPR(machine.Zero) != 0 {
		t.Fatalf("x0 was written, want it to stay zero")
	}
}

func TestDivByZero(t *testing.T) {
	s := machine.NewState()
	s.SetGPR(machine.A0, 7)
	s.SetGPR(machine.A1, 0)
	insn := decode.Insn{Op: decode.OpDiv, Rd: int8(machine.A2), Rs1: int8(machine.A0), Rs2: int8(machine.A1)}
	if err := Exec(s, nil, insn); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if got := s.GetGPR(machine.A2); got != ^uint64(0) {
		t.Fatalf("div by zero = %#x, want all-ones", got)
	}
}

func TestRemByZeroReturnsDividend(t *testing.T) {
	s := machine.NewState()
	s.SetGPR(machine.A0, 7)
	insn := decode.Insn{Op: decode.OpRem, Rd: int8(machine.A2), Rs1: int8(machine.A0), Rs2: int8(machine.A1)}
	if err := Exec(s, nil, insn); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if got := s.GetGPR(machine.A2); got != 7 {
		t.Fatalf("rem by zero = %d, want 7 (dividend)", got)
	}
}

func TestDivOverflow(t *testing.T) {
	s := machine.NewState()
	s.SetGPR(machine.A0, minInt64AsUint64())
	s.SetGPR(machine.A1, asUint64(-1))
	insn := decode.Insn{Op: decode.OpDiv, Rd: int8(machine.A2), Rs1: int8(machine.A0), Rs2: int8(machine.A1)}
	if err := Exec(s, nil, insn); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if got := int64(s.GetGPR(machine.A2)); got != math.MinInt64 {
		t.Fatalf("INT64_MIN / -1 = %d, want INT64_MIN", got)
	}
}

func TestRemOverflowIsZero(t *testing.T) {
	s := machine.NewState()
	s.SetGPR(machine.A0, minInt64AsUint64())
	s.SetGPR(machine.A1, asUint64(-1))
	insn := decode.Insn{Op: decode.OpRem, Rd: int8(machine.A2), Rs1: int8(machine.A0), Rs2: int8(machine.A1)}
	if err := Exec(s, nil, insn); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if got := s.GetGPR(machine.A2); got != 0 {
		t.Fatalf("INT64_MIN %% -1 = %d, want 0", got)
	}
}

func TestJalrClearsLowBit(t *testing.T) {
	s := machine.NewState()
	s.PC = 0x1000
	s.SetGPR(machine.A0, 0x2005)
	insn := decode.Insn{Op: decode.OpJalr, Rd: int8(machine.RA), Rs1: int8(machine.A0), Imm: 1}
	if err := Exec(s, nil, insn); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if s.PC != 0x2006 {
		t.Fatalf("PC = %#x, want %#x (low bit cleared)", s.PC, 0x2006)
	}
	if s.GetGPR(machine.RA) != 0x1004 {
		t.Fatalf("ra = %#x, want link address 0x1004", s.GetGPR(machine.RA))
	}
	if s.ExitReason != machine.ExitIndirectBranch {
		t.Fatalf("ExitReason = %v, want indirect_branch", s.ExitReason)
	}
}

func TestBranchNotTakenStillExitsBlock(t *testing.T) {
	s := machine.NewState()
	s.PC = 0x1000
	s.SetGPR(machine.A0, 1) // a0 != a1, so the beq is not taken
	insn := decode.Insn{Op: decode.OpBeq, Rs1: int8(machine.A0), Rs2: int8(machine.A1), Imm: 0x100}
	if err := Exec(s, nil, insn); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if s.ExitReason != machine.ExitDirectBranch {
		t.Fatalf("ExitReason = %v, want direct_branch even when not taken", s.ExitReason)
	}
	if s.PC != 0x1004 {
		t.Fatalf("PC = %#x, want fall-through 0x1004", s.PC)
	}
}

func TestAuipcRelativeToSelf(t *testing.T) {
	s := machine.NewState()
	s.PC = 0x8000
	insn := decode.Insn{Op: decode.OpAuipc, Rd: int8(machine.A0), Imm: 0x2000}
	if err := Exec(s, nil, insn); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if got := s.GetGPR(machine.A0); got != 0xa000 {
		t.Fatalf("auipc result = %#x, want 0xa000", got)
	}
}

func TestFloatNaNBoxRoundTrip(t *testing.T) {
	s := machine.NewState()
	s.SetFloat32(machine.FA0, 3.5)
	raw := s.GetFReg64(machine.FA0)
	if raw>>32 != 0xFFFFFFFF {
		t.Fatalf("upper 32 bits = %#x, want all-ones NaN box", raw>>32)
	}
	if got := s.GetFloat32(machine.FA0); got != 3.5 {
		t.Fatalf("round-tripped float = %v, want 3.5", got)
	}
}

func TestFclassPositiveNormal(t *testing.T) {
	s := machine.NewState()
	s.SetFloat32(machine.FA0, 1.0)
	insn := decode.Insn{Op: decode.OpFclassS, Rd: int8(machine.A0), Rs1: int8(machine.FA0)}
	if err := Exec(s, nil, insn); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if got := s.GetGPR(machine.A0); got != fclassPosNormal {
		t.Fatalf("fclass = %#x, want fclassPosNormal", got)
	}
}

func TestCsrrwRoundTrip(t *testing.T) {
	s := machine.NewState()
	s.SetGPR(machine.A0, 0x1f)
	write := decode.Insn{Op: decode.OpCsrrw, Rd: int8(machine.Zero), Rs1: int8(machine.A0), CSR: machine.CSRFflags}
	if err := Exec(s, nil, write); err != nil {
		t.Fatalf("Exec write: %v", err)
	}
	read := decode.Insn{Op: decode.OpCsrrs, Rd: int8(machine.A1), Rs1: int8(machine.Zero), CSR: machine.CSRFflags}
	if err := Exec(s, nil, read); err != nil {
		t.Fatalf("Exec read: %v", err)
	}
	if got := s.GetGPR(machine.A1); got != 0x1f {
		t.Fatalf("fflags read back = %#x, want 0x1f", got)
	}
}

func TestCsrrsWithZeroSourceDoesNotWrite(t *testing.T) {
	s := machine.NewState()
	s.WriteCSR(machine.CSRFrm, 3)
	insn := decode.Insn{Op: decode.OpCsrrs, Rd: int8(machine.A0), Rs1: int8(machine.Zero), CSR: machine.CSRFrm}
	if err := Exec(s, nil, insn); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	v, _ := s.ReadCSR(machine.CSRFrm)
	if v != 3 {
		t.Fatalf("frm = %d, want unchanged 3", v)
	}
}

func TestExecUnknownOpcodeErrors(t *testing.T) {
	s := machine.NewState()
	if err := Exec(s, nil, decode.Insn{Op: decode.Op(9999)}); err == nil {
		t.Fatal("Exec with out-of-range Op should error, not panic")
	}
}

// encodeAddi builds `addi rd, rs1, imm` (I-type, opcode 0x13).
func encodeAddi(rd, rs1 uint32, imm int32) uint32 {
	return (uint32(imm) << 20) | (rs1 << 15) | (0 << 12) | (rd << 7) | 0x13
}

// encodeJal builds `jal rd, imm` (J-type, opcode 0x6f).
func encodeJal(rd uint32, imm int32) uint32 {
	u := uint32(imm)
	imm20 := (u >> 20) & 1
	imm10_1 := (u >> 1) & 0x3ff
	imm11 := (u >> 11) & 1
	imm19_12 := (u >> 12) & 0xff
	return (imm20 << 31) | (imm10_1 << 21) | (imm11 << 20) | (imm19_12 << 12) | (rd << 7) | 0x6f
}

func TestRunBlockStopsAtBranch(t *testing.T) {
	mem := newTestMem(t, 0x20000)
	base := mem.Base
	memory.WriteU32(base, encodeAddi(uint32(machine.A0), uint32(machine.Zero), 1))
	memory.WriteU32(base+4, encodeAddi(uint32(machine.A0), uint32(machine.A0), 1))
	memory.WriteU32(base+8, encodeJal(uint32(machine.Zero), 0))

	s := machine.NewState()
	s.PC = base
	if err := RunBlock(s, mem); err != nil {
		t.Fatalf("RunBlock: %v", err)
	}
	if got := s.GetGPR(machine.A0); got != 2 {
		t.Fatalf("a0 = %d, want 2 (two addi executed before the jal)", got)
	}
	if s.ExitReason != machine.ExitDirectBranch {
		t.Fatalf("ExitReason = %v, want direct_branch", s.ExitReason)
	}
	if s.PC != base+8 {
		t.Fatalf("PC = %#x, want the jal's own address %#x (self-jump)", s.PC, base+8)
	}
}

func TestRunBlockPropagatesIllegalInstruction(t *testing.T) {
	mem := newTestMem(t, 0x30000)
	memory.WriteU32(mem.Base, 0) // all-zero word is reserved

	s := machine.NewState()
	s.PC = mem.Base
	if err := RunBlock(s, mem); err == nil {
		t.Fatal("RunBlock should surface the decode error for an illegal instruction")
	}
}

func TestAddiwSignExtendsWordResult(t *testing.T) {
	s := machine.NewState()
	insn := decode.Insn{Op: decode.OpAddiw, Rd: int8(machine.T0), Rs1: int8(machine.Zero), Imm: -1}
	if err := Exec(s, nil, insn); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if got := s.GetGPR(machine.T0); got != 0xFFFF_FFFF_FFFF_FFFF {
		t.Fatalf("addiw t0, zero, -1 = %#x, want all-ones", got)
	}
}
