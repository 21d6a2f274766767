package ecall

import (
	"golang.org/x/sys/unix"

	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

// Process-identity and signal stubs: the emulated guest is always a
// single thread of the emulator's own process, so thread bookkeeping
// calls succeed trivially and signal setup is accepted and discarded
// (no guest signal delivery is modeled).
func init() {
	register(SysSetTidAddress, sysSetTidAddress)
	register(SysRtSigaction, sysReturnZero)
	register(SysRtSigprocmask, sysReturnZero)

	register(SysGetuid, func(*machine.State, *memory.Manager) (int64, error) { return int64(unix.Getuid()), nil })
	register(SysGeteuid, func(*machine.State, *memory.Manager) (int64, error) { return int64(unix.Geteuid()), nil })
	register(SysGetgid, func(*machine.State, *memory.Manager) (int64, error) { return int64(unix.Getgid()), nil })
	register(SysGetegid, func(*machine.State, *memory.Manager) (int64, error) { return int64(unix.Getegid()), nil })

	register(SysGetcwd, sysGetcwd)
	register(SysChdir, sysChdir)
	register(SysFcntl, sysFcntl)
	register(SysRenameat, sysRenameat)
	register(SysLinkat, sysLinkat)
	register(SysPread, sysPread)
	register(SysPwrite, sysPwrite)

	// Resource-limit introspection: glibc startup probes these; a
	// fixed "unlimited" answer keeps it on the fast path.
	register(SysGetrlimit, sysGetrlimit)
	register(SysSetrlimit, sysReturnZero)
	register(SysPrlimit64, sysPrlimit64)
	register(SysGetrusage, sysReturnZero)

	register(SysGetdents, sysGetdents)

	// ENOSYS answers make the guest libc fall back to the older calls
	// this table does implement (fstatat for statx, brk for mremap).
	register(SysStatx, sysNosys)
	register(SysMremap, sysNosys)
}

func sysNosys(_ *machine.State, _ *memory.Manager) (int64, error) {
	return -int64(unix.ENOSYS), nil
}

// sysGetdents passes straight through: the guest's linux_dirent64
// layout is the asm-generic one the host kernel produces.
func sysGetdents(s *machine.State, _ *memory.Manager) (int64, error) {
	buf := memory.GuestBytes(arg1(s), arg2(s))
	n, err := unix.Getdents(int(arg0(s)), buf)
	if err != nil {
		return errnoResult(err), nil
	}
	return int64(n), nil
}

func sysReturnZero(_ *machine.State, _ *memory.Manager) (int64, error) {
	return 0, nil
}

func sysSetTidAddress(_ *machine.State, _ *memory.Manager) (int64, error) {
	return int64(unix.Gettid()), nil
}

func sysGetcwd(s *machine.State, _ *memory.Manager) (int64, error) {
	wd, err := unix.Getwd()
	if err != nil {
		return errnoResult(err), nil
	}
	buf := memory.GuestBytes(arg0(s), arg1(s))
	if len(wd)+1 > len(buf) {
		return -int64(unix.ERANGE), nil
	}
	copy(buf, wd)
	buf[len(wd)] = 0
	return int64(len(wd) + 1), nil
}

func sysChdir(s *machine.State, _ *memory.Manager) (int64, error) {
	if err := unix.Chdir(guestCString(arg0(s))); err != nil {
		return errnoResult(err), nil
	}
	return 0, nil
}

func sysFcntl(s *machine.State, _ *memory.Manager) (int64, error) {
	ret, err := unix.FcntlInt(uintptr(arg0(s)), int(arg1(s)), int(arg2(s)))
	if err != nil {
		return errnoResult(err), nil
	}
	return int64(ret), nil
}

func sysRenameat(s *machine.State, _ *memory.Manager) (int64, error) {
	oldDirfd := int(int32(arg0(s)))
	oldPath := guestCString(arg1(s))
	newDirfd := int(int32(arg2(s)))
	newPath := guestCString(arg3(s))
	if err := unix.Renameat(oldDirfd, oldPath, newDirfd, newPath); err != nil {
		return errnoResult(err), nil
	}
	return 0, nil
}

func sysLinkat(s *machine.State, _ *memory.Manager) (int64, error) {
	oldDirfd := int(int32(arg0(s)))
	oldPath := guestCString(arg1(s))
	newDirfd := int(int32(arg2(s)))
	newPath := guestCString(arg3(s))
	if err := unix.Linkat(oldDirfd, oldPath, newDirfd, newPath, int(arg4(s))); err != nil {
		return errnoResult(err), nil
	}
	return 0, nil
}

func sysPread(s *machine.State, _ *memory.Manager) (int64, error) {
	buf := memory.GuestBytes(arg1(s), arg2(s))
	n, err := unix.Pread(int(arg0(s)), buf, int64(arg3(s)))
	if err != nil {
		return errnoResult(err), nil
	}
	return int64(n), nil
}

func sysPwrite(s *machine.State, _ *memory.Manager) (int64, error) {
	buf := memory.GuestBytes(arg1(s), arg2(s))
	n, err := unix.Pwrite(int(arg0(s)), buf, int64(arg3(s)))
	if err != nil {
		return errnoResult(err), nil
	}
	return int64(n), nil
}

// rlim_t is 64-bit on the guest; RLIM_INFINITY is all-ones.
func writeRlimit(addr uint64) {
	memory.WriteU64(addr, ^uint64(0))
	memory.WriteU64(addr+8, ^uint64(0))
}

func sysGetrlimit(s *machine.State, _ *memory.Manager) (int64, error) {
	writeRlimit(arg1(s))
	return 0, nil
}

func sysPrlimit64(s *machine.State, _ *memory.Manager) (int64, error) {
	if oldLimit := arg3(s); oldLimit != 0 {
		writeRlimit(oldLimit)
	}
	return 0, nil
}
