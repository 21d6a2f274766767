package interp

import (
	"fmt"

	"github.com/lookbusy1344/rv64emu/decode"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

func init() {
	register(decode.OpCsrrw, makeCSR(csrW))
	register(decode.OpCsrrs, makeCSR(csrS))
	register(decode.OpCsrrc, makeCSR(csrC))
	register(decode.OpCsrrwi, makeCSR(csrW))
	register(decode.OpCsrrsi, makeCSR(csrS))
	register(decode.OpCsrrci, makeCSR(csrC))
}

// csrSource reads the handler's second operand: a register for
// CSRRW/CSRRS/CSRRC, or the 5-bit immediate decoded into Imm for the
// *I forms (decode marks Rs1 unused, -1, for those; see decode32's
// SYSTEM case).
func csrSource(s *machine.State, insn decode.Insn) uint64 {
	if insn.Rs1 == -1 {
		return uint64(insn.Imm)
	}
	return s.GetGPR(reg(insn.Rs1))
}

type csrOp func(old, src uint64) uint64

func csrW(_, src uint64) uint64 { return src }
func csrS(old, src uint64) uint64 { return old | src }
func csrC(old, src uint64) uint64 { return old &^ src }

// makeCSR builds a handler for one CSRRx/CSRRxI instruction. Only the
// FP-related CSRs are recognized (fflags/frm/fcsr); anything else is
// fatal. The new value is always computed and written even
// when rd is x0, matching the ISA's "CSRRW with rd=x0 must not read
// the CSR" exception for side-effect-free CSRs -- irrelevant here since
// none of the recognized CSRs have read side effects, but CSRRS/CSRRC
// with rs1=x0 (or a zero immediate) must not write, so skip the write
// in that case.
func makeCSR(apply csrOp) Handler {
	return func(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
		old, ok := s.ReadCSR(insn.CSR)
		if !ok {
			return fmt.Errorf("interp: unrecognized CSR %#x", insn.CSR)
		}
		s.SetGPR(reg(insn.Rd), old)

		src := csrSource(s, insn)
		writes := insn.Op == decode.OpCsrrw || insn.Op == decode.OpCsrrwi || src != 0
		if writes {
			if !s.WriteCSR(insn.CSR, apply(old, src)) {
				return fmt.Errorf("interp: unrecognized CSR %#x", insn.CSR)
			}
		}
		return nil
	}
}
