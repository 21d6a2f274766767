// Package engine is the outer execution dispatcher: the machine_step
// state machine that threads guest PC through the hot-block cache and
// the interpreter, promoting and compiling blocks once they run hot,
// chaining cached blocks across direct/indirect branches, and handing
// control back to the driver at every ecall boundary.
package engine

import (
	"fmt"

	"github.com/lookbusy1344/rv64emu/cache"
	"github.com/lookbusy1344/rv64emu/interp"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

// Runner executes a cached native artifact at addr, a host address
// cache.Cache.Lookup/Add returned. Instruction lowering is out of
// scope (see machine.CodeGenerator), so the only Runner this package
// ships is interpretedRunner, which re-enters the interpreter instead
// of actually jumping to addr -- the cache's bookkeeping is still
// fully exercised, it just never gets to skip interpretation for real.
// A real JIT backend would replace this with one that jumps to addr.
type Runner func(s *machine.State, mem *memory.Manager, addr uintptr) error

func interpretedRunner(s *machine.State, mem *memory.Manager, _ uintptr) error {
	return interp.RunBlock(s, mem)
}

// Dispatcher owns one guest's cache, memory, and (optional) code
// generator, and drives Step.
type Dispatcher struct {
	Cache *cache.Cache
	Mem   *memory.Manager
	Gen   machine.CodeGenerator // nil: pc is never promoted past interpretation
	Run   Runner
}

// New returns a Dispatcher with the default interpreted Runner. Gen
// may be left nil by the caller; it is only consulted once a pc
// crosses cache.HotThreshold.
func New(c *cache.Cache, mem *memory.Manager, gen machine.CodeGenerator) *Dispatcher {
	return &Dispatcher{Cache: c, Mem: mem, Gen: gen, Run: interpretedRunner}
}

// Step runs the guest starting at s.PC until an ECALL boundary (or a
// fatal error). On a clean return s.PC holds the instruction after the
// ECALL and the caller is expected to service the syscall named by a7
// and call Step again to resume.
func (d *Dispatcher) Step(s *machine.State) error {
	pc := s.PC
	for {
		addr, cached, err := d.Cache.Lookup(pc)
		if err != nil {
			return err
		}
		if !cached {
			hot, herr := d.Cache.Hot(pc)
			if herr != nil {
				return herr
			}
			if hot && d.Gen != nil {
				code, align, gerr := d.Gen(s, pc)
				if gerr != nil {
					return fmt.Errorf("engine: code generator at pc %#x: %w", pc, gerr)
				}
				a, aerr := d.Cache.Add(pc, code, align)
				if aerr != nil {
					return aerr
				}
				addr, cached = a, true
			}
		}

		for {
			s.PC = pc
			s.ExitReason = machine.ExitNone

			var rerr error
			if cached {
				rerr = d.Run(s, d.Mem, addr)
			} else {
				rerr = interp.RunBlock(s, d.Mem)
			}
			if rerr != nil {
				return rerr
			}
			if s.ExitReason == machine.ExitNone {
				return fmt.Errorf("engine: block at pc %#x exited without setting ExitReason", pc)
			}

			switch s.ExitReason {
			case machine.ExitDirectBranch, machine.ExitIndirectBranch:
				pc = s.ReentrePC
				nextAddr, nextCached, lerr := d.Cache.Lookup(pc)
				if lerr != nil {
					return lerr
				}
				if nextCached {
					addr, cached = nextAddr, true
					continue
				}
				cached = false
				// Break the inner loop: the outer loop re-checks hot
				// status and possibly compiles this pc before running it.
			case machine.ExitInterp:
				pc = s.ReentrePC
				cached = false
				continue
			case machine.ExitEcall:
				return nil
			default:
				return fmt.Errorf("engine: unrecognized exit reason %v at pc %#x", s.ExitReason, pc)
			}
			break
		}
	}
}
