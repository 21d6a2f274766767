package ecall

import (
	"golang.org/x/sys/unix"

	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

const protRead = 0x1
const protWrite = 0x2
const protExec = 0x4

func guestPermission(prot uint64) memory.Permission {
	var p memory.Permission
	if prot&protRead != 0 {
		p |= memory.PermRead
	}
	if prot&protWrite != 0 {
		p |= memory.PermWrite
	}
	if prot&protExec != 0 {
		p |= memory.PermExec
	}
	return p
}

func init() {
	register(SysBrk, sysBrk)
	register(SysMmap, sysMmap)
	register(SysMunmap, sysMunmap)
	register(SysMprotect, sysMprotect)
}

func sysBrk(s *machine.State, mem *memory.Manager) (int64, error) {
	addr, err := mem.Brk(arg0(s))
	if err != nil {
		return 0, err
	}
	return int64(addr), nil
}

const mapAnonymous = 0x20

func sysMmap(s *machine.State, mem *memory.Manager) (int64, error) {
	length := arg1(s)
	prot := arg2(s)
	flags := arg3(s)
	if flags&mapAnonymous == 0 {
		return -int64(unix.ENOSYS), nil
	}
	addr, err := mem.Mmap(length, guestPermission(prot))
	if err != nil {
		return -int64(unix.ENOMEM), nil
	}
	return int64(addr), nil
}

func sysMunmap(s *machine.State, mem *memory.Manager) (int64, error) {
	if err := mem.Munmap(arg0(s), arg1(s)); err != nil {
		return -int64(unix.EINVAL), nil
	}
	return 0, nil
}

func sysMprotect(s *machine.State, mem *memory.Manager) (int64, error) {
	if err := mem.Mprotect(arg0(s), arg1(s), guestPermission(arg2(s))); err != nil {
		return -int64(unix.EINVAL), nil
	}
	return 0, nil
}
