package interp

import (
	"github.com/lookbusy1344/rv64emu/decode"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

func init() {
	register(decode.OpAddi, execAddi)
	register(decode.OpSlti, execSlti)
	register(decode.OpSltiu, execSltiu)
	register(decode.OpXori, execXori)
	register(decode.OpOri, execOri)
	register(decode.OpAndi, execAndi)
	register(decode.OpSlli, execSlli)
	register(decode.OpSrli, execSrli)
	register(decode.OpSrai, execSrai)

	register(decode.OpAdd, execAdd)
	register(decode.OpSub, execSub)
	register(decode.OpSll, execSll)
	register(decode.OpSlt, execSlt)
	register(decode.OpSltu, execSltu)
	register(decode.OpXor, execXor)
	register(decode.OpSrl, execSrl)
	register(decode.OpSra, execSra)
	register(decode.OpOr, execOr)
	register(decode.OpAnd, execAnd)

	register(decode.OpAddiw, execAddiw)
	register(decode.OpSlliw, execSlliw)
	register(decode.OpSrliw, execSrliw)
	register(decode.OpSraiw, execSraiw)

	register(decode.OpAddw, execAddw)
	register(decode.OpSubw, execSubw)
	register(decode.OpSllw, execSllw)
	register(decode.OpSrlw, execSrlw)
	register(decode.OpSraw, execSraw)

	register(decode.OpLui, execLui)
	register(decode.OpAuipc, execAuipc)
}

// Doubleword shifts mask the shift amount to 6 bits (0x3F); word-form
// shifts to 5 bits (0x1F).
const shamt64Mask = 0x3F
const shamt32Mask = 0x1F

func execAddi(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))+simm64(insn.Imm))
	return nil
}

func execSlti(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	v := uint64(0)
	if int64(s.GetGPR(reg(insn.Rs1))) < int64(insn.Imm) {
		v = 1
	}
	s.SetGPR(reg(insn.Rd), v)
	return nil
}

func execSltiu(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	v := uint64(0)
	if s.GetGPR(reg(insn.Rs1)) < simm64(insn.Imm) {
		v = 1
	}
	s.SetGPR(reg(insn.Rd), v)
	return nil
}

func execXori(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))^simm64(insn.Imm))
	return nil
}

func execOri(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))|simm64(insn.Imm))
	return nil
}

func execAndi(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))&simm64(insn.Imm))
	return nil
}

func execSlli(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	shamt := uint(insn.Imm) & shamt64Mask
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))<<shamt)
	return nil
}

func execSrli(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	shamt := uint(insn.Imm) & shamt64Mask
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))>>shamt)
	return nil
}

func execSrai(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	shamt := uint(insn.Imm) & shamt64Mask
	s.SetGPR(reg(insn.Rd), uint64(int64(s.GetGPR(reg(insn.Rs1)))>>shamt))
	return nil
}

func execAdd(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))+s.GetGPR(reg(insn.Rs2)))
	return nil
}

func execSub(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))-s.GetGPR(reg(insn.Rs2)))
	return nil
}

func execSll(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	shamt := uint(s.GetGPR(reg(insn.Rs2))) & shamt64Mask
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))<<shamt)
	return nil
}

func execSlt(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	v := uint64(0)
	if int64(s.GetGPR(reg(insn.Rs1))) < int64(s.GetGPR(reg(insn.Rs2))) {
		v = 1
	}
	s.SetGPR(reg(insn.Rd), v)
	return nil
}

func execSltu(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	v := uint64(0)
	if s.GetGPR(reg(insn.Rs1)) < s.GetGPR(reg(insn.Rs2)) {
		v = 1
	}
	s.SetGPR(reg(insn.Rd), v)
	return nil
}

func execXor(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))^s.GetGPR(reg(insn.Rs2)))
	return nil
}

func execSrl(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	shamt := uint(s.GetGPR(reg(insn.Rs2))) & shamt64Mask
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))>>shamt)
	return nil
}

func execSra(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	shamt := uint(s.GetGPR(reg(insn.Rs2))) & shamt64Mask
	s.SetGPR(reg(insn.Rd), uint64(int64(s.GetGPR(reg(insn.Rs1)))>>shamt))
	return nil
}

func execOr(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))|s.GetGPR(reg(insn.Rs2)))
	return nil
}

func execAnd(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))&s.GetGPR(reg(insn.Rs2)))
	return nil
}

// signExtend32 widens a 32-bit result to 64 bits per the *w instruction
// family's contract: compute on 32-bit inputs, sign-extend to 64.
func signExtend32(v int32) uint64 { return uint64(int64(v)) }

func execAddiw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	r := int32(s.GetGPR(reg(insn.Rs1))) + insn.Imm
	s.SetGPR(reg(insn.Rd), signExtend32(r))
	return nil
}

func execSlliw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	shamt := uint(insn.Imm) & shamt32Mask
	r := int32(s.GetGPR(reg(insn.Rs1))) << shamt
	s.SetGPR(reg(insn.Rd), signExtend32(r))
	return nil
}

func execSrliw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	shamt := uint(insn.Imm) & shamt32Mask
	r := int32(uint32(s.GetGPR(reg(insn.Rs1))) >> shamt)
	s.SetGPR(reg(insn.Rd), signExtend32(r))
	return nil
}

func execSraiw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	shamt := uint(insn.Imm) & shamt32Mask
	r := int32(s.GetGPR(reg(insn.Rs1))) >> shamt
	s.SetGPR(reg(insn.Rd), signExtend32(r))
	return nil
}

func execAddw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	r := int32(s.GetGPR(reg(insn.Rs1))) + int32(s.GetGPR(reg(insn.Rs2)))
	s.SetGPR(reg(insn.Rd), signExtend32(r))
	return nil
}

func execSubw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	r := int32(s.GetGPR(reg(insn.Rs1))) - int32(s.GetGPR(reg(insn.Rs2)))
	s.SetGPR(reg(insn.Rd), signExtend32(r))
	return nil
}

func execSllw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	shamt := uint(s.GetGPR(reg(insn.Rs2))) & shamt32Mask
	r := int32(s.GetGPR(reg(insn.Rs1))) << shamt
	s.SetGPR(reg(insn.Rd), signExtend32(r))
	return nil
}

func execSrlw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	shamt := uint(s.GetGPR(reg(insn.Rs2))) & shamt32Mask
	r := int32(uint32(s.GetGPR(reg(insn.Rs1))) >> shamt)
	s.SetGPR(reg(insn.Rd), signExtend32(r))
	return nil
}

func execSraw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	shamt := uint(s.GetGPR(reg(insn.Rs2))) & shamt32Mask
	r := int32(s.GetGPR(reg(insn.Rs1))) >> shamt
	s.SetGPR(reg(insn.Rd), signExtend32(r))
	return nil
}

func execLui(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), simm64(insn.Imm))
	return nil
}

// execAuipc adds the sign-extended 20-bit immediate to the PC of the
// AUIPC instruction itself, not of the next instruction -- RunBlock
// has not yet advanced s.PC when handlers run, so s.PC already is that.
func execAuipc(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), s.PC+simm64(insn.Imm))
	return nil
}
