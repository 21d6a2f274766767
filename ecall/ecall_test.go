package ecall

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

func TestDispatchUnknownSyscallIsFatal(t *testing.T) {
	s := machine.NewState()
	s.SetGPR(machine.A7, 99999)
	if err := Dispatch(s, memory.NewManager()); err == nil {
		t.Fatal("Dispatch should reject an unrecognized syscall number")
	}
}

func TestDispatchExitCarriesCode(t *testing.T) {
	s := machine.NewState()
	s.SetGPR(machine.A7, SysExit)
	s.SetGPR(machine.A0, 42)

	err := Dispatch(s, memory.NewManager())
	var exit *ExitError
	if !errors.As(err, &exit) {
		t.Fatalf("Dispatch exit = %v, want ExitError", err)
	}
	if exit.Code != 42 {
		t.Fatalf("exit code = %d, want 42", exit.Code)
	}
	if exit.Group {
		t.Fatal("plain exit should not be marked exit_group")
	}
}

func TestDispatchBrkWritesResultToA0(t *testing.T) {
	mem := memory.NewManager()
	if err := mem.Reserve(0xb0000); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	s := machine.NewState()
	s.SetGPR(machine.A7, SysBrk)
	s.SetGPR(machine.A0, 0)
	if err := Dispatch(s, mem); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got := s.GetGPR(machine.A0); got != mem.Alloc {
		t.Fatalf("brk(0) wrote %#x to a0, want current break %#x", got, mem.Alloc)
	}
}

func TestHostOpenFlagsRemapsAccessAndCreate(t *testing.T) {
	flags := hostOpenFlags(guestOWronly | guestOCreat | guestOTrunc)
	if flags&unix.O_WRONLY == 0 {
		t.Error("O_WRONLY not carried through")
	}
	if flags&unix.O_CREAT == 0 {
		t.Error("O_CREAT not carried through")
	}
	if flags&unix.O_TRUNC == 0 {
		t.Error("O_TRUNC not carried through")
	}
	if flags&unix.O_RDWR != 0 {
		t.Error("O_RDWR set without being requested")
	}
}

func TestLegacyTableCovered(t *testing.T) {
	for _, num := range []uint64{SysOpen, SysLink, SysUnlink, SysMkdir, SysAccess, SysStat, SysLstat, SysTime} {
		if num < LegacyThreshold {
			t.Errorf("legacy syscall %d below threshold %d", num, LegacyThreshold)
		}
		if _, ok := table[num]; !ok {
			t.Errorf("legacy syscall %d has no handler registered", num)
		}
	}
}
