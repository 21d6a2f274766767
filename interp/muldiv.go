package interp

import (
	"math"
	"math/bits"

	"github.com/lookbusy1344/rv64emu/decode"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

func init() {
	register(decode.OpMul, execMul)
	register(decode.OpMulh, execMulh)
	register(decode.OpMulhsu, execMulhsu)
	register(decode.OpMulhu, execMulhu)
	register(decode.OpDiv, execDiv)
	register(decode.OpDivu, execDivu)
	register(decode.OpRem, execRem)
	register(decode.OpRemu, execRemu)

	register(decode.OpMulw, execMulw)
	register(decode.OpDivw, execDivw)
	register(decode.OpDivuw, execDivuw)
	register(decode.OpRemw, execRemw)
	register(decode.OpRemuw, execRemuw)
}

func execMul(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), s.GetGPR(reg(insn.Rs1))*s.GetGPR(reg(insn.Rs2)))
	return nil
}

func execMulh(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	a := int64(s.GetGPR(reg(insn.Rs1)))
	b := int64(s.GetGPR(reg(insn.Rs2)))
	hi, _ := bits.Mul64(uint64(a), uint64(b))
	// Correct the unsigned 128-bit high half for signed operands: each
	// negative operand contributes one subtraction of the other operand.
	if a < 0 {
		hi -= uint64(b)
	}
	if b < 0 {
		hi -= uint64(a)
	}
	s.SetGPR(reg(insn.Rd), hi)
	return nil
}

func execMulhsu(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	a := int64(s.GetGPR(reg(insn.Rs1)))
	b := s.GetGPR(reg(insn.Rs2))
	hi, _ := bits.Mul64(uint64(a), b)
	if a < 0 {
		hi -= b
	}
	s.SetGPR(reg(insn.Rd), hi)
	return nil
}

func execMulhu(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	hi, _ := bits.Mul64(s.GetGPR(reg(insn.Rs1)), s.GetGPR(reg(insn.Rs2)))
	s.SetGPR(reg(insn.Rd), hi)
	return nil
}

// execDiv implements signed division with the ISA's two non-trapping
// edge cases: divide-by-zero yields an all-ones quotient (= -1), and
// INT64_MIN / -1 yields INT64_MIN rather than overflowing.
func execDiv(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	a := int64(s.GetGPR(reg(insn.Rs1)))
	b := int64(s.GetGPR(reg(insn.Rs2)))
	switch {
	case b == 0:
		s.SetGPR(reg(insn.Rd), ^uint64(0))
	case a == math.MinInt64 && b == -1:
		s.SetGPR(reg(insn.Rd), uint64(a))
	default:
		s.SetGPR(reg(insn.Rd), uint64(a/b))
	}
	return nil
}

func execDivu(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	a := s.GetGPR(reg(insn.Rs1))
	b := s.GetGPR(reg(insn.Rs2))
	if b == 0 {
		s.SetGPR(reg(insn.Rd), ^uint64(0))
		return nil
	}
	s.SetGPR(reg(insn.Rd), a/b)
	return nil
}

func execRem(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	a := int64(s.GetGPR(reg(insn.Rs1)))
	b := int64(s.GetGPR(reg(insn.Rs2)))
	switch {
	case b == 0:
		s.SetGPR(reg(insn.Rd), uint64(a))
	case a == math.MinInt64 && b == -1:
		s.SetGPR(reg(insn.Rd), 0)
	default:
		s.SetGPR(reg(insn.Rd), uint64(a%b))
	}
	return nil
}

func execRemu(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	a := s.GetGPR(reg(insn.Rs1))
	b := s.GetGPR(reg(insn.Rs2))
	if b == 0 {
		s.SetGPR(reg(insn.Rd), a)
		return nil
	}
	s.SetGPR(reg(insn.Rd), a%b)
	return nil
}

func execMulw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	r := int32(s.GetGPR(reg(insn.Rs1))) * int32(s.GetGPR(reg(insn.Rs2)))
	s.SetGPR(reg(insn.Rd), signExtend32(r))
	return nil
}

func execDivw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	a := int32(s.GetGPR(reg(insn.Rs1)))
	b := int32(s.GetGPR(reg(insn.Rs2)))
	switch {
	case b == 0:
		s.SetGPR(reg(insn.Rd), ^uint64(0))
	case a == math.MinInt32 && b == -1:
		s.SetGPR(reg(insn.Rd), signExtend32(a))
	default:
		s.SetGPR(reg(insn.Rd), signExtend32(a/b))
	}
	return nil
}

func execDivuw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	a := uint32(s.GetGPR(reg(insn.Rs1)))
	b := uint32(s.GetGPR(reg(insn.Rs2)))
	if b == 0 {
		s.SetGPR(reg(insn.Rd), ^uint64(0))
		return nil
	}
	s.SetGPR(reg(insn.Rd), signExtend32(int32(a/b)))
	return nil
}

func execRemw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	a := int32(s.GetGPR(reg(insn.Rs1)))
	b := int32(s.GetGPR(reg(insn.Rs2)))
	switch {
	case b == 0:
		s.SetGPR(reg(insn.Rd), signExtend32(a))
	case a == math.MinInt32 && b == -1:
		s.SetGPR(reg(insn.Rd), 0)
	default:
		s.SetGPR(reg(insn.Rd), signExtend32(a%b))
	}
	return nil
}

func execRemuw(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	a := uint32(s.GetGPR(reg(insn.Rs1)))
	b := uint32(s.GetGPR(reg(insn.Rs2)))
	if b == 0 {
		s.SetGPR(reg(insn.Rd), signExtend32(int32(a)))
		return nil
	}
	s.SetGPR(reg(insn.Rd), signExtend32(int32(a%b)))
	return nil
}
