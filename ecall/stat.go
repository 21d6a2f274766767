package ecall

import (
	"golang.org/x/sys/unix"

	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

func init() {
	register(SysFstat, sysFstat)
	register(SysFstatat, sysFstatat)
	register(SysStat, sysStatLegacy)
	register(SysLstat, sysLstatLegacy)
}

// writeGuestStat marshals a host stat result into the guest's struct
// stat, which on riscv64 is the asm-generic layout: 128 bytes, 64-bit
// dev/ino/rdev/size/blocks, 32-bit mode/nlink/uid/gid, and three
// sec/nsec timestamp pairs.
func writeGuestStat(addr uint64, st *unix.Stat_t) {
	memory.WriteU64(addr+0, st.Dev)
	memory.WriteU64(addr+8, st.Ino)
	memory.WriteU32(addr+16, st.Mode)
	memory.WriteU32(addr+20, uint32(st.Nlink))
	memory.WriteU32(addr+24, st.Uid)
	memory.WriteU32(addr+28, st.Gid)
	memory.WriteU64(addr+32, st.Rdev)
	memory.WriteU64(addr+40, 0) // __pad1
	memory.WriteU64(addr+48, uint64(st.Size))
	memory.WriteU32(addr+56, uint32(st.Blksize))
	memory.WriteU32(addr+60, 0) // __pad2
	memory.WriteU64(addr+64, uint64(st.Blocks))
	memory.WriteU64(addr+72, uint64(st.Atim.Sec))
	memory.WriteU64(addr+80, uint64(st.Atim.Nsec))
	memory.WriteU64(addr+88, uint64(st.Mtim.Sec))
	memory.WriteU64(addr+96, uint64(st.Mtim.Nsec))
	memory.WriteU64(addr+104, uint64(st.Ctim.Sec))
	memory.WriteU64(addr+112, uint64(st.Ctim.Nsec))
	memory.WriteU64(addr+120, 0) // __unused
}

func sysFstat(s *machine.State, _ *memory.Manager) (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(arg0(s)), &st); err != nil {
		return errnoResult(err), nil
	}
	writeGuestStat(arg1(s), &st)
	return 0, nil
}

func sysFstatat(s *machine.State, _ *memory.Manager) (int64, error) {
	var st unix.Stat_t
	dirfd := int(int32(arg0(s)))
	path := guestCString(arg1(s))
	if err := unix.Fstatat(dirfd, path, &st, int(arg3(s))); err != nil {
		return errnoResult(err), nil
	}
	writeGuestStat(arg2(s), &st)
	return 0, nil
}

func sysStatLegacy(s *machine.State, _ *memory.Manager) (int64, error) {
	var st unix.Stat_t
	if err := unix.Stat(guestCString(arg0(s)), &st); err != nil {
		return errnoResult(err), nil
	}
	writeGuestStat(arg1(s), &st)
	return 0, nil
}

func sysLstatLegacy(s *machine.State, _ *memory.Manager) (int64, error) {
	var st unix.Stat_t
	if err := unix.Lstat(guestCString(arg0(s)), &st); err != nil {
		return errnoResult(err), nil
	}
	writeGuestStat(arg1(s), &st)
	return 0, nil
}
