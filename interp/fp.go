package interp

import (
	"math"

	"github.com/lookbusy1344/rv64emu/decode"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

func init() {
	register(decode.OpFaddS, f32bin(func(a, b float32) float32 { return a + b }))
	register(decode.OpFsubS, f32bin(func(a, b float32) float32 { return a - b }))
	register(decode.OpFmulS, f32bin(func(a, b float32) float32 { return a * b }))
	register(decode.OpFdivS, f32bin(func(a, b float32) float32 { return a / b }))
	register(decode.OpFsqrtS, execFsqrtS)

	register(decode.OpFaddD, f64bin(func(a, b float64) float64 { return a + b }))
	register(decode.OpFsubD, f64bin(func(a, b float64) float64 { return a - b }))
	register(decode.OpFmulD, f64bin(func(a, b float64) float64 { return a * b }))
	register(decode.OpFdivD, f64bin(func(a, b float64) float64 { return a / b }))
	register(decode.OpFsqrtD, execFsqrtD)

	register(decode.OpFmaddS, f32fma(1, 1))
	register(decode.OpFmsubS, f32fma(1, -1))
	register(decode.OpFnmsubS, f32fma(-1, 1))
	register(decode.OpFnmaddS, f32fma(-1, -1))
	register(decode.OpFmaddD, f64fma(1, 1))
	register(decode.OpFmsubD, f64fma(1, -1))
	register(decode.OpFnmsubD, f64fma(-1, 1))
	register(decode.OpFnmaddD, f64fma(-1, -1))

	register(decode.OpFsgnjS, fsgnj32(sgnjPlain))
	register(decode.OpFsgnjnS, fsgnj32(sgnjNeg))
	register(decode.OpFsgnjxS, fsgnj32(sgnjXor))
	register(decode.OpFsgnjD, fsgnj64(sgnjPlain))
	register(decode.OpFsgnjnD, fsgnj64(sgnjNeg))
	register(decode.OpFsgnjxD, fsgnj64(sgnjXor))

	register(decode.OpFminS, f32bin(func(a, b float32) float32 { return fminVal(a, b) }))
	register(decode.OpFmaxS, f32bin(func(a, b float32) float32 { return fmaxVal(a, b) }))
	register(decode.OpFminD, f64bin(func(a, b float64) float64 { return fminVal(a, b) }))
	register(decode.OpFmaxD, f64bin(func(a, b float64) float64 { return fmaxVal(a, b) }))

	register(decode.OpFeqS, f32cmp(func(a, b float32) bool { return a == b }))
	register(decode.OpFltS, f32cmp(func(a, b float32) bool { return a < b }))
	register(decode.OpFleS, f32cmp(func(a, b float32) bool { return a <= b }))
	register(decode.OpFeqD, f64cmp(func(a, b float64) bool { return a == b }))
	register(decode.OpFltD, f64cmp(func(a, b float64) bool { return a < b }))
	register(decode.OpFleD, f64cmp(func(a, b float64) bool { return a <= b }))

	register(decode.OpFclassS, execFclassS)
	register(decode.OpFclassD, execFclassD)

	register(decode.OpFcvtWS, cvtFloatToInt(getF32, 32, false))
	register(decode.OpFcvtWuS, cvtFloatToInt(getF32, 32, true))
	register(decode.OpFcvtLS, cvtFloatToInt(getF32, 64, false))
	register(decode.OpFcvtLuS, cvtFloatToInt(getF32, 64, true))
	register(decode.OpFcvtWD, cvtFloatToInt(getF64, 32, false))
	register(decode.OpFcvtWuD, cvtFloatToInt(getF64, 32, true))
	register(decode.OpFcvtLD, cvtFloatToInt(getF64, 64, false))
	register(decode.OpFcvtLuD, cvtFloatToInt(getF64, 64, true))

	register(decode.OpFcvtSW, cvtIntToFloat32(32, false))
	register(decode.OpFcvtSWu, cvtIntToFloat32(32, true))
	register(decode.OpFcvtSL, cvtIntToFloat32(64, false))
	register(decode.OpFcvtSLu, cvtIntToFloat32(64, true))
	register(decode.OpFcvtDW, cvtIntToFloat64(32, false))
	register(decode.OpFcvtDWu, cvtIntToFloat64(32, true))
	register(decode.OpFcvtDL, cvtIntToFloat64(64, false))
	register(decode.OpFcvtDLu, cvtIntToFloat64(64, true))

	register(decode.OpFcvtSD, execFcvtSD)
	register(decode.OpFcvtDS, execFcvtDS)

	register(decode.OpFmvXW, execFmvXW)
	register(decode.OpFmvWX, execFmvWX)
	register(decode.OpFmvXD, execFmvXD)
	register(decode.OpFmvDX, execFmvDX)
}

func getF32(s *machine.State, r int8) float64 { return float64(s.GetFloat32(freg(r))) }
func getF64(s *machine.State, r int8) float64 { return s.GetFloat64(freg(r)) }

func fminVal[T float32 | float64](a, b T) T {
	if math.IsNaN(float64(a)) {
		return b
	}
	if math.IsNaN(float64(b)) {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func fmaxVal[T float32 | float64](a, b T) T {
	if math.IsNaN(float64(a)) {
		return b
	}
	if math.IsNaN(float64(b)) {
		return a
	}
	if a > b {
		return a
	}
	return b
}

func f32bin(op func(a, b float32) float32) Handler {
	return func(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
		r := op(s.GetFloat32(freg(insn.Rs1)), s.GetFloat32(freg(insn.Rs2)))
		s.SetFloat32(freg(insn.Rd), r)
		return nil
	}
}

func f64bin(op func(a, b float64) float64) Handler {
	return func(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
		r := op(s.GetFloat64(freg(insn.Rs1)), s.GetFloat64(freg(insn.Rs2)))
		s.SetFloat64(freg(insn.Rd), r)
		return nil
	}
}

func execFsqrtS(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetFloat32(freg(insn.Rd), float32(math.Sqrt(float64(s.GetFloat32(freg(insn.Rs1))))))
	return nil
}

func execFsqrtD(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetFloat64(freg(insn.Rd), math.Sqrt(s.GetFloat64(freg(insn.Rs1))))
	return nil
}

// f32fma builds the four fused multiply-add variants: mulSign negates
// the rs1*rs2 product (FNMSUB/FNMADD), addSign negates rs3 (FMSUB/FNMADD).
func f32fma(mulSign, addSign float32) Handler {
	return func(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
		r := mulSign*s.GetFloat32(freg(insn.Rs1))*s.GetFloat32(freg(insn.Rs2)) + addSign*s.GetFloat32(freg(insn.Rs3))
		s.SetFloat32(freg(insn.Rd), r)
		return nil
	}
}

func f64fma(mulSign, addSign float64) Handler {
	return func(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
		r := mulSign*s.GetFloat64(freg(insn.Rs1))*s.GetFloat64(freg(insn.Rs2)) + addSign*s.GetFloat64(freg(insn.Rs3))
		s.SetFloat64(freg(insn.Rd), r)
		return nil
	}
}

func fsgnj32(mode sgnjMode) Handler {
	return func(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
		a := uint64(s.GetFReg32(freg(insn.Rs1)))
		b := uint64(s.GetFReg32(freg(insn.Rs2)))
		s.SetFReg32(freg(insn.Rd), uint32(sgnj(a, b, 31, mode)))
		return nil
	}
}

func fsgnj64(mode sgnjMode) Handler {
	return func(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
		a := s.GetFReg64(freg(insn.Rs1))
		b := s.GetFReg64(freg(insn.Rs2))
		s.SetFReg64(freg(insn.Rd), sgnj(a, b, 63, mode))
		return nil
	}
}

func f32cmp(cmp func(a, b float32) bool) Handler {
	return func(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
		v := uint64(0)
		if cmp(s.GetFloat32(freg(insn.Rs1)), s.GetFloat32(freg(insn.Rs2))) {
			v = 1
		}
		s.SetGPR(reg(insn.Rd), v)
		return nil
	}
}

func f64cmp(cmp func(a, b float64) bool) Handler {
	return func(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
		v := uint64(0)
		if cmp(s.GetFloat64(freg(insn.Rs1)), s.GetFloat64(freg(insn.Rs2))) {
			v = 1
		}
		s.SetGPR(reg(insn.Rd), v)
		return nil
	}
}

func execFclassS(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), classify(uint64(s.GetFReg32(freg(insn.Rs1))), singleExpBits, singleManBits))
	return nil
}

func execFclassD(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), classify(s.GetFReg64(freg(insn.Rs1)), doubleExpBits, doubleManBits))
	return nil
}

func cvtFloatToInt(get func(*machine.State, int8) float64, outBits int, unsigned bool) Handler {
	return func(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
		f := get(s, insn.Rs1)
		if unsigned {
			v := f2iUnsigned(f, outBits)
			if outBits == 32 {
				s.SetGPR(reg(insn.Rd), signExtend32(int32(uint32(v))))
			} else {
				s.SetGPR(reg(insn.Rd), v)
			}
		} else {
			v := f2iSigned(f, outBits)
			if outBits == 32 {
				s.SetGPR(reg(insn.Rd), signExtend32(int32(v)))
			} else {
				s.SetGPR(reg(insn.Rd), uint64(v))
			}
		}
		return nil
	}
}

func cvtIntToFloat32(inBits int, unsigned bool) Handler {
	return func(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
		raw := s.GetGPR(reg(insn.Rs1))
		s.SetFloat32(freg(insn.Rd), float32(intOperandToFloat(raw, inBits, unsigned)))
		return nil
	}
}

func cvtIntToFloat64(inBits int, unsigned bool) Handler {
	return func(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
		raw := s.GetGPR(reg(insn.Rs1))
		s.SetFloat64(freg(insn.Rd), intOperandToFloat(raw, inBits, unsigned))
		return nil
	}
}

func intOperandToFloat(raw uint64, bits int, unsigned bool) float64 {
	if unsigned {
		if bits == 32 {
			return float64(uint32(raw))
		}
		return float64(raw)
	}
	if bits == 32 {
		return float64(int32(raw))
	}
	return float64(int64(raw))
}

func execFcvtSD(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetFloat32(freg(insn.Rd), float32(s.GetFloat64(freg(insn.Rs1))))
	return nil
}

func execFcvtDS(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetFloat64(freg(insn.Rd), float64(s.GetFloat32(freg(insn.Rs1))))
	return nil
}

// execFmvXW/execFmvXD move the FP register's raw bit pattern into a GP
// register with no numeric conversion; the single-precision form
// sign-extends the 32-bit pattern per the ISA (it is not NaN-boxed on
// the integer side).
func execFmvXW(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), signExtend32(int32(s.GetFReg32(freg(insn.Rs1)))))
	return nil
}

func execFmvWX(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetFReg32(freg(insn.Rd), uint32(s.GetGPR(reg(insn.Rs1))))
	return nil
}

func execFmvXD(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), s.GetFReg64(freg(insn.Rs1)))
	return nil
}

func execFmvDX(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetFReg64(freg(insn.Rd), s.GetGPR(reg(insn.Rs1)))
	return nil
}
