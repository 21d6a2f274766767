// Package machine holds the emulated hart's register file, program
// counter and exit-reason bookkeeping that both the interpreter and the
// hot-block cache driver operate on.
package machine

// Reg names an RV64 general-purpose register by its ABI mnemonic.
type Reg int8

// General-purpose register indices, named per the RISC-V calling
// convention. Register 0 is hardwired to zero.
const (
	Zero Reg = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
	NumGPRegs
)

// FP0 is an alias some callers find clearer than S0 for the frame pointer.
const FP0 = S0

var gpRegNames = [NumGPRegs]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
	"s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
	"t3", "t4", "t5", "t6",
}

// String returns the ABI mnemonic for r, or "x?" if out of range.
func (r Reg) String() string {
	if r >= 0 && int(r) < len(gpRegNames) {
		return gpRegNames[r]
	}
	return "x?"
}

// FReg names an RV64 floating-point register by its ABI mnemonic.
type FReg int8

const (
	FT0 FReg = iota
	FT1
	FT2
	FT3
	FT4
	FT5
	FT6
	FT7
	FS0
	FS1
	FA0
	FA1
	FA2
	FA3
	FA4
	FA5
	FA6
	FA7
	FS2
	FS3
	FS4
	FS5
	FS6
	FS7
	FS8
	FS9
	FS10
	FS11
	FT8
	FT9
	FT10
	FT11
	NumFPRegs
)

var fpRegNames = [NumFPRegs]string{
	"ft0", "ft1", "ft2", "ft3", "ft4", "ft5", "ft6", "ft7",
	"fs0", "fs1", "fa0", "fa1", "fa2", "fa3", "fa4", "fa5", "fa6", "fa7",
	"fs2", "fs3", "fs4", "fs5", "fs6", "fs7", "fs8", "fs9", "fs10", "fs11",
	"ft8", "ft9", "ft10", "ft11",
}

// String returns the ABI mnemonic for r, or "f?" if out of range.
func (r FReg) String() string {
	if r >= 0 && int(r) < len(fpRegNames) {
		return fpRegNames[r]
	}
	return "f?"
}
