package ecall

import (
	"crypto/rand"

	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

func init() {
	register(SysUname, sysUname)
	register(SysGetrandom, sysGetrandom)
}

// SysUname is the modern RV64 Linux syscall number for uname(2).
const SysUname = 160

// utsFieldLen is sizeof(char[65]) for each struct utsname field.
const utsFieldLen = 65

func writeUtsField(addr uint64, s string) {
	b := memory.GuestBytes(addr, utsFieldLen)
	for i := range b {
		b[i] = 0
	}
	copy(b, s)
}

func sysUname(s *machine.State, _ *memory.Manager) (int64, error) {
	addr := arg0(s)
	writeUtsField(addr+0*utsFieldLen, "Linux")
	writeUtsField(addr+1*utsFieldLen, "rv64emu")
	writeUtsField(addr+2*utsFieldLen, "6.1.0")
	writeUtsField(addr+3*utsFieldLen, "#1")
	writeUtsField(addr+4*utsFieldLen, "riscv64")
	writeUtsField(addr+5*utsFieldLen, "(none)")
	return 0, nil
}

func sysGetrandom(s *machine.State, _ *memory.Manager) (int64, error) {
	buf := memory.GuestBytes(arg0(s), arg1(s))
	n, err := rand.Read(buf)
	if err != nil {
		return errnoResult(err), nil
	}
	return int64(n), nil
}
