package ecall

import "golang.org/x/sys/unix"

// Guest open(2) flag bits, per the RV64 Linux ABI (shared by musl and
// glibc-riscv64; these happen to share their numeric values with the
// x86/generic Linux ABI the host almost certainly runs, but are kept
// as named guest constants rather than passed through directly so the
// translation point is explicit and a future cross-ABI host does not
// silently do the wrong thing).
const (
	guestORdonly   = 0x0
	guestOWronly   = 0x1
	guestORdwr     = 0x2
	guestOCreat    = 0x40
	guestOExcl     = 0x80
	guestONoctty   = 0x100
	guestOTrunc    = 0x200
	guestOAppend   = 0x400
	guestONonblock = 0x800
	guestODirect   = 0x4000
	guestODirectory = 0x10000
	guestONofollow = 0x20000
	guestOCloexec  = 0x80000
	guestOSync     = 0x101000
)

// hostOpenFlags translates a guest open/openat flags word into the
// equivalent host unix.O_* bits.
func hostOpenFlags(guest uint64) int {
	var host int
	switch guest & 0x3 {
	case guestOWronly:
		host |= unix.O_WRONLY
	case guestORdwr:
		host |= unix.O_RDWR
	default:
		host |= unix.O_RDONLY
	}
	bits := []struct {
		guest uint64
		host  int
	}{
		{guestOCreat, unix.O_CREAT},
		{guestOExcl, unix.O_EXCL},
		{guestONoctty, unix.O_NOCTTY},
		{guestOTrunc, unix.O_TRUNC},
		{guestOAppend, unix.O_APPEND},
		{guestONonblock, unix.O_NONBLOCK},
		{guestODirectory, unix.O_DIRECTORY},
		{guestONofollow, unix.O_NOFOLLOW},
		{guestOCloexec, unix.O_CLOEXEC},
		{guestOSync, unix.O_SYNC},
	}
	for _, b := range bits {
		if guest&b.guest != 0 {
			host |= b.host
		}
	}
	return host
}
