package debugger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lookbusy1344/rv64emu/decode"
	"github.com/lookbusy1344/rv64emu/ecall"
	"github.com/lookbusy1344/rv64emu/engine"
	"github.com/lookbusy1344/rv64emu/interp"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

// Debugger wraps a running guest (its architectural state, memory, and
// block dispatcher) with the interactive controls a session needs:
// breakpoints, watchpoints, single-instruction stepping, and command
// history/recall.
type Debugger struct {
	State *machine.State
	Mem   *memory.Manager
	Disp  *engine.Dispatcher

	Breakpoints *BreakpointManager
	Watchpoints *WatchpointManager
	History     *CommandHistory
	Eval        *Evaluator

	Running  bool
	Exited   bool
	ExitCode int32

	LastCommand string
	Output      strings.Builder
}

// NewDebugger wires a Debugger around an already-loaded guest.
func NewDebugger(s *machine.State, mem *memory.Manager, disp *engine.Dispatcher) *Debugger {
	return &Debugger{
		State:       s,
		Mem:         mem,
		Disp:        disp,
		Breakpoints: NewBreakpointManager(),
		Watchpoints: NewWatchpointManager(),
		History:     NewCommandHistory(1000),
		Eval:        NewEvaluator(s),
	}
}

// ExecuteCommand parses and runs one command line. An empty line
// repeats the last non-empty command, so step/continue can be leaned
// on with bare Enter.
func (d *Debugger) ExecuteCommand(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		line = d.LastCommand
	}
	if line != "" {
		d.History.Record(line)
		d.LastCommand = line
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	return d.dispatch(strings.ToLower(parts[0]), parts[1:])
}

func (d *Debugger) dispatch(cmd string, args []string) error {
	switch cmd {
	case "run", "r":
		return d.cmdRun(args)
	case "continue", "c":
		return d.cmdContinue(args)
	case "step", "s", "si":
		return d.cmdStep(args)
	case "break", "b":
		return d.cmdBreak(args)
	case "tbreak", "tb":
		return d.cmdTBreak(args)
	case "delete", "d":
		return d.cmdDelete(args)
	case "enable":
		return d.cmdEnable(args)
	case "disable":
		return d.cmdDisable(args)
	case "watch", "w":
		return d.cmdWatch(args)
	case "regs", "registers":
		return d.cmdRegs(args)
	case "mem", "x":
		return d.cmdMem(args)
	case "cache":
		return d.cmdCache(args)
	case "disasm", "disas":
		return d.cmdDisasm(args)
	case "print", "p":
		return d.cmdPrint(args)
	case "help", "h", "?":
		return d.cmdHelp(args)
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

// StepOne executes exactly one guest instruction via the interpreter,
// bypassing the hot-block cache entirely so a breakpoint or watchpoint
// can never be straddled by a compiled block. This trades away cache
// exercise during single-stepping for precise instruction granularity,
// which is what a debugger session needs.
func (d *Debugger) StepOne() error {
	if d.Exited {
		return fmt.Errorf("program has exited (code %d)", d.ExitCode)
	}

	w := memory.ReadU32(d.State.PC)
	insn, err := decode.Decode(w)
	if err != nil {
		return fmt.Errorf("illegal instruction at pc %#x: %w", d.State.PC, err)
	}

	d.State.ExitReason = machine.ExitNone
	if err := interp.Exec(d.State, d.Mem, insn); err != nil {
		return fmt.Errorf("at pc %#x: %w", d.State.PC, err)
	}
	d.State.ZeroX0()

	if insn.Cont {
		if d.State.ExitReason == machine.ExitEcall {
			if err := d.serviceEcall(); err != nil {
				return err
			}
		}
	} else if insn.RVC {
		d.State.PC += 2
	} else {
		d.State.PC += 4
	}
	return nil
}

func (d *Debugger) serviceEcall() error {
	if err := ecall.Dispatch(d.State, d.Mem); err != nil {
		var exit *ecall.ExitError
		if errors.As(err, &exit) {
			d.Exited = true
			d.ExitCode = exit.Code
			return nil
		}
		return err
	}
	d.State.PC = d.State.ReentrePC
	return nil
}

// RunUntilStop runs the guest, using the block dispatcher between ecall
// boundaries, until it hits a breakpoint, an armed watchpoint fires, or
// the program exits. It returns a human-readable reason for the stop.
func (d *Debugger) RunUntilStop(maxSteps uint64) (string, error) {
	d.Running = true
	defer func() { d.Running = false }()

	var steps uint64
	for {
		if d.Exited {
			return fmt.Sprintf("exited with code %d", d.ExitCode), nil
		}
		if maxSteps > 0 && steps >= maxSteps {
			return "stepped cycle limit reached", nil
		}

		if bp := d.Breakpoints.At(d.State.PC); bp != nil && bp.Enabled {
			if bp.Condition != "" {
				v, err := d.Eval.Eval(bp.Condition)
				if err != nil {
					return "", fmt.Errorf("breakpoint %d condition: %w", bp.ID, err)
				}
				if v == 0 {
					if err := d.runOneBlock(); err != nil {
						return "", err
					}
					steps++
					continue
				}
			}
			d.Breakpoints.Hit(d.State.PC)
			return fmt.Sprintf("breakpoint %d at %#x", bp.ID, bp.Address), nil
		}

		if err := d.runOneBlock(); err != nil {
			return "", err
		}
		steps++

		if wp, hit := d.Watchpoints.Poll(d.State); hit {
			return fmt.Sprintf("watchpoint %d: %s is now %#x", wp.ID, wp.Expression, wp.LastValue), nil
		}
	}
}

// runOneBlock advances through the dispatcher until the next ecall
// boundary (if any) and services it, or returns once a single block of
// straight-line/branch execution has run without crossing one.
func (d *Debugger) runOneBlock() error {
	before := d.State.PC
	if err := d.Disp.Step(d.State); err != nil {
		return err
	}
	if d.State.ExitReason == machine.ExitEcall {
		return d.serviceEcall()
	}
	if d.State.PC == before {
		return fmt.Errorf("dispatcher made no progress at pc %#x", before)
	}
	return nil
}

// parseAddr accepts a hex (0x-prefixed) or decimal address literal, or
// any expression the evaluator understands (registers, pc, arithmetic).
func (d *Debugger) parseAddr(tok string) (uint64, error) {
	if v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(tok), "0x"), 16, 64); err == nil && strings.HasPrefix(strings.ToLower(tok), "0x") {
		return v, nil
	}
	if v, err := strconv.ParseUint(tok, 10, 64); err == nil {
		return v, nil
	}
	return d.Eval.Eval(tok)
}

// Printf appends formatted text to the session's output buffer.
func (d *Debugger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&d.Output, format, args...)
}

// TakeOutput returns and clears the accumulated output buffer.
func (d *Debugger) TakeOutput() string {
	s := d.Output.String()
	d.Output.Reset()
	return s
}
