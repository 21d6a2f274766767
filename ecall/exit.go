package ecall

import (
	"fmt"

	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

// ExitError is returned by Dispatch (wrapped) when the guest calls
// exit or exit_group. The driver loop should check for it with
// errors.As and terminate cleanly with Code rather than treating it as
// an emulator fault.
type ExitError struct {
	Code  int32
	Group bool
}

func (e *ExitError) Error() string {
	if e.Group {
		return fmt.Sprintf("guest called exit_group(%d)", e.Code)
	}
	return fmt.Sprintf("guest called exit(%d)", e.Code)
}

func init() {
	register(SysExit, sysExit)
	register(SysExitGroup, sysExitGroup)
}

func sysExit(s *machine.State, _ *memory.Manager) (int64, error) {
	return 0, &ExitError{Code: int32(arg0(s))}
}

func sysExitGroup(s *machine.State, _ *memory.Manager) (int64, error) {
	return 0, &ExitError{Code: int32(arg0(s)), Group: true}
}
