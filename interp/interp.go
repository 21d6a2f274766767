// Package interp is the instruction-by-instruction interpreter: a
// dense dispatch table of per-opcode semantic handlers, plus the
// basic-block loop that drives them for cold (uncached) guest code.
package interp

import (
	"fmt"

	"github.com/lookbusy1344/rv64emu/decode"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

// Handler applies the semantics of one decoded instruction to state s,
// with mem providing guest load/store access. It must leave the
// hardwired-zero register in whatever state it likes -- RunBlock
// re-zeroes it unconditionally after every handler call.
type Handler func(s *machine.State, mem *memory.Manager, insn decode.Insn) error

var table [decode.OpCount]Handler

func register(op decode.Op, h Handler) {
	table[op] = h
}

// Exec dispatches a single decoded instruction through the handler
// table. An Op outside the table or an unpopulated table slot (an
// enumerant with no handler, which should never happen for any Op
// decode.Decode can produce) is an invariant violation, reported as an
// error.
func Exec(s *machine.State, mem *memory.Manager, insn decode.Insn) error {
	if insn.Op < 0 || int(insn.Op) >= len(table) {
		return fmt.Errorf("interp: opcode %d out of range", int(insn.Op))
	}
	h := table[insn.Op]
	if h == nil {
		return fmt.Errorf("interp: no handler registered for opcode %v", insn.Op)
	}
	return h(s, mem, insn)
}

// fetch reads the 32-bit word at the guest PC. Compressed instructions
// only consume the low 16 bits of it; the fetch is unconditionally
// 32-bit wide so the decoder alone decides the encoding width.
func fetch(s *machine.State) uint32 {
	return memory.ReadU32(s.PC)
}

// RunBlock runs straight-line instructions starting at s.PC until a
// handler marks the decoded instruction Cont (a branch, jump, or
// ecall): the loop advances
// PC itself for fall-through instructions, while control-transfer
// handlers own PC and ReentrePC directly. On return, s.ExitReason is
// always something other than machine.ExitNone; the caller (the
// dispatcher) inspects it to decide what happens next.
func RunBlock(s *machine.State, mem *memory.Manager) error {
	for {
		w := fetch(s)
		insn, err := decode.Decode(w)
		if err != nil {
			return fmt.Errorf("interp: illegal instruction at pc %#x: %w", s.PC, err)
		}

		if err := Exec(s, mem, insn); err != nil {
			return fmt.Errorf("interp: at pc %#x: %w", s.PC, err)
		}
		s.ZeroX0()

		if insn.Cont {
			if s.ExitReason == machine.ExitNone {
				return fmt.Errorf("interp: handler for %v at pc %#x left ExitReason unset", insn.Op, s.PC)
			}
			return nil
		}

		if insn.RVC {
			s.PC += 2
		} else {
			s.PC += 4
		}
	}
}

// linkValue is the return address control-transfer handlers write to
// rd: the address of the instruction following the jump.
func linkValue(s *machine.State, insn decode.Insn) uint64 {
	if insn.RVC {
		return s.PC + 2
	}
	return s.PC + 4
}

func reg(r int8) machine.Reg   { return machine.Reg(r) }
func freg(r int8) machine.FReg { return machine.FReg(r) }

func simm64(imm int32) uint64 { return uint64(int64(imm)) }
