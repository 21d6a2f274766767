// Package ecall is the environment-call boundary: the numeric syscall
// dispatch table the driver consults whenever the dispatcher returns
// with machine.ExitEcall. It splits between the modern RV64 Linux ABI
// numbering and the legacy (>=1024) numbers musl/glibc-riscv64 still
// accept for a handful of calls.
package ecall

import (
	"fmt"

	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

// Modern RV64 Linux syscall numbers this emulator recognizes.
const (
	SysGetcwd         = 17
	SysDup            = 23
	SysFcntl          = 25
	SysIoctl          = 29
	SysUnlinkat       = 35
	SysMkdirat        = 34
	SysRenameat       = 38
	SysLinkat         = 37
	SysFaccessat      = 48
	SysChdir          = 49
	SysOpenat         = 56
	SysClose          = 57
	SysGetdents       = 61
	SysLseek          = 62
	SysRead           = 63
	SysWrite          = 64
	SysReadv          = 65
	SysWritev         = 66
	SysPread          = 67
	SysPwrite         = 68
	SysFstatat        = 79
	SysFstat          = 80
	SysExit           = 93
	SysExitGroup      = 94
	SysSetTidAddress  = 96
	SysClockGettime   = 113
	SysRtSigaction    = 134
	SysRtSigprocmask  = 135
	SysGetrlimit      = 163
	SysSetrlimit      = 164
	SysGetrusage      = 165
	SysGettimeofday   = 169
	SysGetuid         = 174
	SysGeteuid        = 175
	SysGetgid         = 176
	SysGetegid        = 177
	SysBrk            = 214
	SysMunmap         = 215
	SysMremap         = 216
	SysMmap           = 222
	SysMprotect       = 226
	SysPrlimit64      = 261
	SysGetrandom      = 278
	SysStatx          = 291
)

// Legacy (musl/glibc-riscv64 compat) syscall numbers: the traced
// original indexes a second table by (num - LegacyThreshold).
const LegacyThreshold = 1024

const (
	SysOpen   = 1024
	SysLink   = 1025
	SysUnlink = 1026
	SysMkdir  = 1030
	SysAccess = 1033
	SysStat   = 1038
	SysLstat  = 1039
	SysTime   = 1062
)

// Handler services one syscall number: it reads whatever a0..a5
// arguments it needs and returns the value to store in a0 (negative
// for a host errno, per the Linux syscall ABI). An error return is
// either an *ExitError (exit/exit_group ending the run) or a condition
// the guest could not possibly have caused -- an invariant violation in
// this emulator, not a guest-visible failure.
type Handler func(s *machine.State, mem *memory.Manager) (int64, error)

var table = map[uint64]Handler{}

func register(num uint64, h Handler) { table[num] = h }

// Dispatch services the syscall named by a7, writes its result to a0,
// and reports a fatal error for an unrecognized or emulator-internal
// failure; a guest exit comes back as a wrapped *ExitError. The caller (the driver loop) calls this once per
// machine.ExitEcall and then resumes the dispatcher.
func Dispatch(s *machine.State, mem *memory.Manager) error {
	num := s.GetGPR(machine.A7)
	h, ok := table[num]
	if !ok {
		return fmt.Errorf("ecall: unimplemented syscall number %d", num)
	}
	ret, err := h(s, mem)
	if err != nil {
		return fmt.Errorf("ecall: syscall %d: %w", num, err)
	}
	s.SetGPR(machine.A0, uint64(ret))
	return nil
}

// arg0..arg5 read the syscall's positional arguments from a0..a5.
func arg0(s *machine.State) uint64 { return s.GetGPR(machine.A0) }
func arg1(s *machine.State) uint64 { return s.GetGPR(machine.A1) }
func arg2(s *machine.State) uint64 { return s.GetGPR(machine.A2) }
func arg3(s *machine.State) uint64 { return s.GetGPR(machine.A3) }
func arg4(s *machine.State) uint64 { return s.GetGPR(machine.A4) }
func arg5(s *machine.State) uint64 { return s.GetGPR(machine.A5) }
