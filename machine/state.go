package machine

import "math"

// ExitReason tags why the interpreter or a cached artifact stopped
// running a basic block and returned control to the dispatcher.
type ExitReason int

const (
	// ExitNone means the block has not exited yet; the dispatcher
	// treats seeing this after a run as an invariant violation.
	ExitNone ExitReason = iota
	// ExitDirectBranch means a PC-relative branch or jump was taken.
	ExitDirectBranch
	// ExitIndirectBranch means a register-relative jump (JALR) was taken.
	ExitIndirectBranch
	// ExitInterp means a cached artifact asked to fall back to the
	// interpreter starting at ReentrePC.
	ExitInterp
	// ExitEcall means the guest executed ECALL; the driver must service
	// the syscall named by a7 and resume at ReentrePC.
	ExitEcall
)

func (r ExitReason) String() string {
	switch r {
	case ExitNone:
		return "none"
	case ExitDirectBranch:
		return "direct_branch"
	case ExitIndirectBranch:
		return "indirect_branch"
	case ExitInterp:
		return "interp"
	case ExitEcall:
		return "ecall"
	default:
		return "unknown"
	}
}

// Only the FP-related CSRs are recognized; everything else is fatal.
const (
	CSRFflags = 0x001
	CSRFrm    = 0x002
	CSRFcsr   = 0x003
)

// fSingleBoxed is the NaN-boxing pattern applied to the upper 32 bits
// of an FP register holding a single-precision value.
const fSingleBoxed = 0xFFFFFFFF00000000

// State is the complete architectural state of the single emulated
// hart: 32 general-purpose registers, 32 floating-point registers
// (NaN-boxed for single precision), the program counter, and the
// exit-reason/re-entry bookkeeping the dispatcher inspects after every
// block. It is allocated once at startup and persists for the
// program's lifetime.
type State struct {
	GPR [NumGPRegs]uint64
	FPR [NumFPRegs]uint64
	PC  uint64

	// CSR shadow storage. Only fflags/frm/fcsr are modeled; reads
	// return the stored value, writes store it, but nothing in the
	// interpreter ever consults it (the simplified FP model always
	// rounds nearest-ties-to-even). Kept only so CSR round-trips
	// (write then read back) behave sanely for guest code that probes it.
	fflags uint64
	frm    uint64

	ExitReason ExitReason
	ReentrePC  uint64
}

// NewState returns a zeroed machine state with PC at 0; callers set PC
// to the ELF entry point (and SP to the initialized stack) before
// first dispatch.
func NewState() *State {
	return &State{}
}

// GetGPR reads general-purpose register r. Reading x0 always yields 0.
func (s *State) GetGPR(r Reg) uint64 {
	if r == Zero {
		return 0
	}
	return s.GPR[r]
}

// SetGPR writes general-purpose register r. Writes to x0 are silently
// discarded; the dispatcher also re-zeroes x0 unconditionally after
// every instruction as a belt-and-braces invariant (see ZeroX0).
func (s *State) SetGPR(r Reg, v uint64) {
	if r == Zero {
		return
	}
	s.GPR[r] = v
}

// ZeroX0 re-establishes the x0-reads-as-zero invariant. Called by the
// dispatcher after every instruction regardless of what the handler did.
func (s *State) ZeroX0() {
	s.GPR[Zero] = 0
}

// GetFReg64 reads the full 64-bit bit pattern of FP register r.
func (s *State) GetFReg64(r FReg) uint64 {
	return s.FPR[r]
}

// SetFReg64 writes the full 64-bit bit pattern of FP register r
// (used for double-precision results and FMV.D.X / load doubleword).
func (s *State) SetFReg64(r FReg, v uint64) {
	s.FPR[r] = v
}

// GetFReg32 reads the low 32 bits of FP register r, interpreted as a
// NaN-boxed single-precision value. The upper 32 bits are ignored.
func (s *State) GetFReg32(r FReg) uint32 {
	return uint32(s.FPR[r])
}

// SetFReg32 writes a single-precision value into FP register r,
// NaN-boxing the upper 32 bits to all-ones per the ISA convention.
func (s *State) SetFReg32(r FReg, v uint32) {
	s.FPR[r] = fSingleBoxed | uint64(v)
}

// GetFloat32 is GetFReg32 reinterpreted as float32.
func (s *State) GetFloat32(r FReg) float32 {
	return math.Float32frombits(s.GetFReg32(r))
}

// SetFloat32 is SetFReg32 for a float32 value.
func (s *State) SetFloat32(r FReg, v float32) {
	s.SetFReg32(r, math.Float32bits(v))
}

// GetFloat64 is GetFReg64 reinterpreted as float64.
func (s *State) GetFloat64(r FReg) float64 {
	return math.Float64frombits(s.GetFReg64(r))
}

// SetFloat64 is SetFReg64 for a float64 value.
func (s *State) SetFloat64(r FReg, v float64) {
	s.SetFReg64(r, math.Float64bits(v))
}

// ReadCSR returns the current value of a recognized FP CSR, or
// (0, false) for anything else (the caller treats false as fatal).
func (s *State) ReadCSR(csr uint16) (uint64, bool) {
	switch csr {
	case CSRFflags:
		return s.fflags, true
	case CSRFrm:
		return s.frm, true
	case CSRFcsr:
		return (s.frm << 5) | s.fflags, true
	default:
		return 0, false
	}
}

// WriteCSR stores into a recognized FP CSR and reports whether csr was
// recognized. Per spec, writes to fflags/frm/fcsr are accepted but have
// no effect on FP instruction behavior (the simplified implementation
// always rounds nearest-ties-to-even).
func (s *State) WriteCSR(csr uint16, v uint64) bool {
	switch csr {
	case CSRFflags:
		s.fflags = v & 0x1f
		return true
	case CSRFrm:
		s.frm = v & 0x7
		return true
	case CSRFcsr:
		s.fflags = v & 0x1f
		s.frm = (v >> 5) & 0x7
		return true
	default:
		return false
	}
}
