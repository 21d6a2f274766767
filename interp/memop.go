package interp

import (
	"github.com/lookbusy1344/rv64emu/decode"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

func init() {
	register(decode.OpLb, execLb)
	register(decode.OpLh, execLh)
	register(decode.OpLw, execLw)
	register(decode.OpLd, execLd)
	register(decode.OpLbu, execLbu)
	register(decode.OpLhu, execLhu)
	register(decode.OpLwu, execLwu)
	register(decode.OpFlw, execFlw)
	register(decode.OpFld, execFld)

	register(decode.OpSb, execSb)
	register(decode.OpSh, execSh)
	register(decode.OpSw, execSw)
	register(decode.OpSd, execSd)
	register(decode.OpFsw, execFsw)
	register(decode.OpFsd, execFsd)
}

func loadAddr(s *machine.State, insn decode.Insn) uint64 {
	return s.GetGPR(reg(insn.Rs1)) + simm64(insn.Imm)
}

func execLb(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	v := int64(int8(memory.ReadU8(loadAddr(s, insn))))
	s.SetGPR(reg(insn.Rd), uint64(v))
	return nil
}

func execLh(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	v := int64(int16(memory.ReadU16(loadAddr(s, insn))))
	s.SetGPR(reg(insn.Rd), uint64(v))
	return nil
}

func execLw(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	v := int64(int32(memory.ReadU32(loadAddr(s, insn))))
	s.SetGPR(reg(insn.Rd), uint64(v))
	return nil
}

func execLd(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), memory.ReadU64(loadAddr(s, insn)))
	return nil
}

func execLbu(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), uint64(memory.ReadU8(loadAddr(s, insn))))
	return nil
}

func execLhu(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), uint64(memory.ReadU16(loadAddr(s, insn))))
	return nil
}

func execLwu(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), uint64(memory.ReadU32(loadAddr(s, insn))))
	return nil
}

func execFlw(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	s.SetFReg32(freg(insn.Rd), memory.ReadU32(loadAddr(s, insn)))
	return nil
}

func execFld(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	s.SetFReg64(freg(insn.Rd), memory.ReadU64(loadAddr(s, insn)))
	return nil
}

func execSb(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	memory.WriteU8(loadAddr(s, insn), uint8(s.GetGPR(reg(insn.Rs2))))
	return nil
}

func execSh(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	memory.WriteU16(loadAddr(s, insn), uint16(s.GetGPR(reg(insn.Rs2))))
	return nil
}

func execSw(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	memory.WriteU32(loadAddr(s, insn), uint32(s.GetGPR(reg(insn.Rs2))))
	return nil
}

func execSd(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	memory.WriteU64(loadAddr(s, insn), s.GetGPR(reg(insn.Rs2)))
	return nil
}

func execFsw(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	memory.WriteU32(loadAddr(s, insn), s.GetFReg32(freg(insn.Rs2)))
	return nil
}

func execFsd(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	memory.WriteU64(loadAddr(s, insn), s.GetFReg64(freg(insn.Rs2)))
	return nil
}
