package interp

import (
	"github.com/lookbusy1344/rv64emu/decode"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

func init() {
	register(decode.OpJal, execJal)
	register(decode.OpJalr, execJalr)
	register(decode.OpBeq, makeBranch(func(a, b uint64) bool { return a == b }))
	register(decode.OpBne, makeBranch(func(a, b uint64) bool { return a != b }))
	register(decode.OpBlt, makeBranch(func(a, b uint64) bool { return int64(a) < int64(b) }))
	register(decode.OpBge, makeBranch(func(a, b uint64) bool { return int64(a) >= int64(b) }))
	register(decode.OpBltu, makeBranch(func(a, b uint64) bool { return a < b }))
	register(decode.OpBgeu, makeBranch(func(a, b uint64) bool { return a >= b }))

	register(decode.OpEcall, execEcall)
	register(decode.OpEbreak, execEbreak)
	register(decode.OpFence, execNop)
	register(decode.OpFenceI, execNop)
}

// execNop backs FENCE and FENCE.I: the emulator is single-threaded and
// the hot-block cache invalidates its own writes on insertion, so
// there is nothing for either instruction to do.
func execNop(_ *machine.State, _ *memory.Manager, _ decode.Insn) error { return nil }

// execJal and execJalr write the link register, the jump target, and
// the exit bookkeeping together -- RunBlock does not advance PC itself
// when insn.Cont is set, so the handler owns both PC and ReentrePC.
func execJal(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	s.SetGPR(reg(insn.Rd), linkValue(s, insn))
	target := s.PC + simm64(insn.Imm)
	s.PC = target
	s.ReentrePC = target
	s.ExitReason = machine.ExitDirectBranch
	return nil
}

func execJalr(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	link := linkValue(s, insn)
	target := (s.GetGPR(reg(insn.Rs1)) + simm64(insn.Imm)) &^ 1
	s.SetGPR(reg(insn.Rd), link)
	s.PC = target
	s.ReentrePC = target
	s.ExitReason = machine.ExitIndirectBranch
	return nil
}

// makeBranch builds a handler for one conditional-branch opcode. Every
// branch instruction ends the current basic block per the decoder's
// Cont flag, whether or not the condition holds at run time: the
// fall-through and taken paths are always two distinct blocks, so the
// handler always records an exit and lets the dispatcher decide which
// path to resume on next.
func makeBranch(taken func(a, b uint64) bool) Handler {
	return func(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
		fallthroughPC := s.PC + 4
		if insn.RVC {
			fallthroughPC = s.PC + 2
		}
		target := fallthroughPC
		if taken(s.GetGPR(reg(insn.Rs1)), s.GetGPR(reg(insn.Rs2))) {
			target = s.PC + simm64(insn.Imm)
		}
		s.PC = target
		s.ReentrePC = target
		s.ExitReason = machine.ExitDirectBranch
		return nil
	}
}

func execEcall(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	next := s.PC + 4
	if insn.RVC {
		next = s.PC + 2
	}
	s.PC = next
	s.ReentrePC = next
	s.ExitReason = machine.ExitEcall
	return nil
}

// execEbreak behaves like ECALL for dispatch purposes in this
// simplified core: there is no debugger trap channel separate from the
// environment-call boundary, so a breakpoint instruction surfaces the
// same way a syscall would and the driver can choose to special-case it.
func execEbreak(s *machine.State, _ *memory.Manager, insn decode.Insn) error {
	return execEcall(s, nil, insn)
}
