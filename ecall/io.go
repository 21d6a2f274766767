package ecall

import (
	"golang.org/x/sys/unix"

	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

func init() {
	register(SysRead, sysRead)
	register(SysWrite, sysWrite)
	register(SysOpenat, sysOpenat)
	register(SysClose, sysClose)
	register(SysLseek, sysLseek)
	register(SysWritev, sysWritev)
	register(SysReadv, sysReadv)
	register(SysIoctl, sysIoctl)
	register(SysDup, sysDup)
	register(SysFaccessat, sysFaccessat)
	register(SysUnlinkat, sysUnlinkat)
	register(SysMkdirat, sysMkdirat)

	register(SysOpen, sysOpenLegacy)
	register(SysLink, sysLinkLegacy)
	register(SysUnlink, sysUnlinkLegacy)
	register(SysMkdir, sysMkdirLegacy)
	register(SysAccess, sysAccessLegacy)
}

func errnoResult(err error) int64 {
	if errno, ok := err.(unix.Errno); ok {
		return -int64(errno)
	}
	return -int64(unix.EIO)
}

func sysRead(s *machine.State, _ *memory.Manager) (int64, error) {
	fd := int(arg0(s))
	buf := memory.GuestBytes(arg1(s), arg2(s))
	n, err := unix.Read(fd, buf)
	if err != nil {
		return errnoResult(err), nil
	}
	return int64(n), nil
}

func sysWrite(s *machine.State, _ *memory.Manager) (int64, error) {
	fd := int(arg0(s))
	buf := memory.GuestBytes(arg1(s), arg2(s))
	n, err := unix.Write(fd, buf)
	if err != nil {
		return errnoResult(err), nil
	}
	return int64(n), nil
}

func guestCString(addr uint64) string {
	n := uint64(0)
	for memory.ReadU8(addr+n) != 0 {
		n++
	}
	return string(memory.GuestBytes(addr, n))
}

func sysOpenat(s *machine.State, _ *memory.Manager) (int64, error) {
	dirfd := int(int32(arg0(s)))
	path := guestCString(arg1(s))
	flags := hostOpenFlags(arg2(s))
	mode := uint32(arg3(s))
	fd, err := unix.Openat(dirfd, path, flags, mode)
	if err != nil {
		return errnoResult(err), nil
	}
	return int64(fd), nil
}

func sysOpenLegacy(s *machine.State, _ *memory.Manager) (int64, error) {
	path := guestCString(arg0(s))
	flags := hostOpenFlags(arg1(s))
	mode := uint32(arg2(s))
	fd, err := unix.Open(path, flags, mode)
	if err != nil {
		return errnoResult(err), nil
	}
	return int64(fd), nil
}

func sysClose(s *machine.State, _ *memory.Manager) (int64, error) {
	fd := int(arg0(s))
	if fd <= 2 {
		// The guest's stdio fds are shared with the host process and
		// outlive any one guest closing them.
		return 0, nil
	}
	if err := unix.Close(fd); err != nil {
		return errnoResult(err), nil
	}
	return 0, nil
}

func sysLseek(s *machine.State, _ *memory.Manager) (int64, error) {
	fd := int(arg0(s))
	off := int64(arg1(s))
	whence := int(arg2(s))
	newOff, err := unix.Seek(fd, off, whence)
	if err != nil {
		return errnoResult(err), nil
	}
	return newOff, nil
}

func sysDup(s *machine.State, _ *memory.Manager) (int64, error) {
	fd, err := unix.Dup(int(arg0(s)))
	if err != nil {
		return errnoResult(err), nil
	}
	return int64(fd), nil
}

// sysIoctl is stubbed ENOTTY-safe: real terminal control is out of
// scope, but guest libc isatty() probes (which ioctl TCGETS to tell)
// must fail cleanly rather than crash the guest.
func sysIoctl(_ *machine.State, _ *memory.Manager) (int64, error) {
	return -int64(unix.ENOTTY), nil
}

// iovec mirrors the guest's struct iovec: { void *iov_base; size_t iov_len; }.
func readIovecs(base uint64, count uint64) [][]byte {
	const iovecSize = 16
	bufs := make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		entry := base + i*iovecSize
		addr := memory.ReadU64(entry)
		length := memory.ReadU64(entry + 8)
		bufs = append(bufs, memory.GuestBytes(addr, length))
	}
	return bufs
}

func sysWritev(s *machine.State, _ *memory.Manager) (int64, error) {
	fd := int(arg0(s))
	bufs := readIovecs(arg1(s), arg2(s))
	var total int64
	for _, b := range bufs {
		n, err := unix.Write(fd, b)
		if err != nil {
			return errnoResult(err), nil
		}
		total += int64(n)
	}
	return total, nil
}

func sysReadv(s *machine.State, _ *memory.Manager) (int64, error) {
	fd := int(arg0(s))
	bufs := readIovecs(arg1(s), arg2(s))
	var total int64
	for _, b := range bufs {
		n, err := unix.Read(fd, b)
		if err != nil {
			return errnoResult(err), nil
		}
		total += int64(n)
		if n < len(b) {
			break
		}
	}
	return total, nil
}

func sysFaccessat(s *machine.State, _ *memory.Manager) (int64, error) {
	dirfd := int(int32(arg0(s)))
	path := guestCString(arg1(s))
	mode := uint32(arg2(s))
	if err := unix.Faccessat(dirfd, path, mode, 0); err != nil {
		return errnoResult(err), nil
	}
	return 0, nil
}

func sysAccessLegacy(s *machine.State, _ *memory.Manager) (int64, error) {
	path := guestCString(arg0(s))
	mode := uint32(arg1(s))
	if err := unix.Access(path, mode); err != nil {
		return errnoResult(err), nil
	}
	return 0, nil
}

func sysUnlinkat(s *machine.State, _ *memory.Manager) (int64, error) {
	dirfd := int(int32(arg0(s)))
	path := guestCString(arg1(s))
	if err := unix.Unlinkat(dirfd, path, int(arg2(s))); err != nil {
		return errnoResult(err), nil
	}
	return 0, nil
}

func sysUnlinkLegacy(s *machine.State, _ *memory.Manager) (int64, error) {
	path := guestCString(arg0(s))
	if err := unix.Unlink(path); err != nil {
		return errnoResult(err), nil
	}
	return 0, nil
}

func sysLinkLegacy(s *machine.State, _ *memory.Manager) (int64, error) {
	old := guestCString(arg0(s))
	newp := guestCString(arg1(s))
	if err := unix.Link(old, newp); err != nil {
		return errnoResult(err), nil
	}
	return 0, nil
}

func sysMkdirat(s *machine.State, _ *memory.Manager) (int64, error) {
	dirfd := int(int32(arg0(s)))
	path := guestCString(arg1(s))
	if err := unix.Mkdirat(dirfd, path, uint32(arg2(s))); err != nil {
		return errnoResult(err), nil
	}
	return 0, nil
}

func sysMkdirLegacy(s *machine.State, _ *memory.Manager) (int64, error) {
	path := guestCString(arg0(s))
	if err := unix.Mkdir(path, uint32(arg1(s))); err != nil {
		return errnoResult(err), nil
	}
	return 0, nil
}
