package engine

import (
	"testing"

	"github.com/lookbusy1344/rv64emu/cache"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

func newTestDispatcher(t *testing.T, base uint64) (*Dispatcher, *memory.Manager) {
	t.Helper()
	mem := memory.NewManager()
	if err := mem.Reserve(base); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	c, err := cache.New()
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return New(c, mem, nil), mem
}

// encodeAddi builds `addi rd, rs1, imm` (I-type, opcode 0x13).
func encodeAddi(rd, rs1 uint32, imm int32) uint32 {
	return (uint32(imm) << 20) | (rs1 << 15) | (rd << 7) | 0x13
}

// encodeEcall builds the ECALL instruction (all-zero I-type SYSTEM).
func encodeEcall() uint32 { return 0x73 }

// encodeJal builds `jal rd, imm` (J-type, opcode 0x6f).
func encodeJal(rd uint32, imm int32) uint32 {
	u := uint32(imm)
	imm20 := (u >> 20) & 1
	imm10_1 := (u >> 1) & 0x3ff
	imm11 := (u >> 11) & 1
	imm19_12 := (u >> 12) & 0xff
	return (imm20 << 31) | (imm10_1 << 21) | (imm11 << 20) | (imm19_12 << 12) | (rd << 7) | 0x6f
}

func TestStepStopsAtEcall(t *testing.T) {
	d, mem := newTestDispatcher(t, 0x40000)
	base := mem.Base
	memory.WriteU32(base, encodeAddi(uint32(machine.A0), uint32(machine.Zero), 9))
	memory.WriteU32(base+4, encodeEcall())

	s := machine.NewState()
	s.PC = base
	if err := d.Step(s); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if s.ExitReason != machine.ExitEcall {
		t.Fatalf("ExitReason = %v, want ecall", s.ExitReason)
	}
	if s.GetGPR(machine.A0) != 9 {
		t.Fatalf("a0 = %d, want 9", s.GetGPR(machine.A0))
	}
	if s.PC != base+8 {
		t.Fatalf("PC = %#x, want the instruction after ecall (%#x)", s.PC, base+8)
	}
}

func TestStepChainsDirectBranchAcrossBlocks(t *testing.T) {
	d, mem := newTestDispatcher(t, 0x50000)
	base := mem.Base
	// jal x0, +8 (skip the next instruction), then an addi, then ecall.
	memory.WriteU32(base, encodeJal(uint32(machine.Zero), 8))
	memory.WriteU32(base+4, encodeAddi(uint32(machine.A0), uint32(machine.Zero), 0xdead))
	memory.WriteU32(base+8, encodeAddi(uint32(machine.A0), uint32(machine.Zero), 7))
	memory.WriteU32(base+12, encodeEcall())

	s := machine.NewState()
	s.PC = base
	if err := d.Step(s); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if s.GetGPR(machine.A0) != 7 {
		t.Fatalf("a0 = %#x, want 7 (the skipped block must not run)", s.GetGPR(machine.A0))
	}
}

func TestStepResumesAfterEcallServiced(t *testing.T) {
	d, mem := newTestDispatcher(t, 0x60000)
	base := mem.Base
	memory.WriteU32(base, encodeEcall())
	memory.WriteU32(base+4, encodeAddi(uint32(machine.A0), uint32(machine.Zero), 1))
	memory.WriteU32(base+8, encodeEcall())

	s := machine.NewState()
	s.PC = base
	if err := d.Step(s); err != nil {
		t.Fatalf("Step (first): %v", err)
	}
	if s.PC != base+4 {
		t.Fatalf("PC after first ecall = %#x, want %#x", s.PC, base+4)
	}

	if err := d.Step(s); err != nil {
		t.Fatalf("Step (second): %v", err)
	}
	if s.GetGPR(machine.A0) != 1 {
		t.Fatalf("a0 = %d, want 1", s.GetGPR(machine.A0))
	}
	if s.PC != base+12 {
		t.Fatalf("PC after second ecall = %#x, want %#x", s.PC, base+12)
	}
}

func TestStepPromotesHotBlockAndCompiles(t *testing.T) {
	d, mem := newTestDispatcher(t, 0x70000)
	base := mem.Base
	memory.WriteU32(base, encodeAddi(uint32(machine.A0), uint32(machine.A0), 1))
	memory.WriteU32(base+4, encodeEcall())

	compiled := false
	d.Gen = func(_ *machine.State, pc uint64) ([]byte, uint64, error) {
		compiled = true
		if pc != base {
			t.Fatalf("code generator called with pc %#x, want %#x", pc, base)
		}
		return []byte{0x67, 0x80, 0x00, 0x00}, 4, nil
	}

	s := machine.NewState()
	for i := 0; i < cache.HotThreshold+2; i++ {
		s.PC = base
		if err := d.Step(s); err != nil {
			t.Fatalf("Step iter %d: %v", i, err)
		}
	}
	if !compiled {
		t.Fatal("the code generator was never invoked even though the block ran past HotThreshold iterations")
	}
	if _, ok, err := d.Cache.Lookup(base); err != nil || !ok {
		t.Fatalf("Lookup(base) after promotion = (%v,%v), want cached", ok, err)
	}
}

// encodeBne builds `bne rs1, rs2, imm` (B-type, opcode 0x63, funct3 1).
func encodeBne(rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	imm12 := (u >> 12) & 1
	imm10_5 := (u >> 5) & 0x3f
	imm4_1 := (u >> 1) & 0xf
	imm11 := (u >> 11) & 1
	return (imm12 << 31) | (imm10_5 << 25) | (rs2 << 20) | (rs1 << 15) |
		(1 << 12) | (imm4_1 << 8) | (imm11 << 7) | 0x63
}

func TestStepRunsBranchBackEdgeLoop(t *testing.T) {
	d, mem := newTestDispatcher(t, 0x80000)
	base := mem.Base
	// addi a0, zero, 3; L: addi a0, a0, -1; bne a0, zero, L; ecall
	memory.WriteU32(base, encodeAddi(uint32(machine.A0), uint32(machine.Zero), 3))
	memory.WriteU32(base+4, encodeAddi(uint32(machine.A0), uint32(machine.A0), -1))
	memory.WriteU32(base+8, encodeBne(uint32(machine.A0), uint32(machine.Zero), -4))
	memory.WriteU32(base+12, encodeEcall())

	s := machine.NewState()
	s.PC = base
	if err := d.Step(s); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if s.ExitReason != machine.ExitEcall {
		t.Fatalf("ExitReason = %v, want ecall", s.ExitReason)
	}
	if got := s.GetGPR(machine.A0); got != 0 {
		t.Fatalf("a0 = %d after the countdown loop, want 0", got)
	}
}
