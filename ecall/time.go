package ecall

import (
	"time"

	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

func init() {
	register(SysClockGettime, sysClockGettime)
	register(SysGettimeofday, sysGettimeofday)
	register(SysTime, sysTimeLegacy)
}

// writeTimespec lays out the guest's `struct timespec { long tv_sec;
// long tv_nsec; }` (16 bytes on RV64) at addr.
func writeTimespec(addr uint64, t time.Time) {
	memory.WriteU64(addr, uint64(t.Unix()))
	memory.WriteU64(addr+8, uint64(t.Nanosecond()))
}

// writeTimeval lays out `struct timeval { long tv_sec; long tv_usec; }`.
func writeTimeval(addr uint64, t time.Time) {
	memory.WriteU64(addr, uint64(t.Unix()))
	memory.WriteU64(addr+8, uint64(t.Nanosecond()/1000))
}

func sysClockGettime(s *machine.State, _ *memory.Manager) (int64, error) {
	addr := arg1(s)
	if addr != 0 {
		writeTimespec(addr, time.Now())
	}
	return 0, nil
}

func sysGettimeofday(s *machine.State, _ *memory.Manager) (int64, error) {
	tv := arg0(s)
	if tv != 0 {
		writeTimeval(tv, time.Now())
	}
	tz := arg1(s)
	if tz != 0 {
		memory.WriteU32(tz, 0)
		memory.WriteU32(tz+4, 0)
	}
	return 0, nil
}

func sysTimeLegacy(s *machine.State, _ *memory.Manager) (int64, error) {
	now := time.Now().Unix()
	if addr := arg0(s); addr != 0 {
		memory.WriteU64(addr, uint64(now))
	}
	return now, nil
}
