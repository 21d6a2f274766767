// rv64emu runs a statically linked RV64 ELF executable in user mode,
// interpreting cold code and tracking per-block heat for a native-code
// cache. The first positional argument is the guest ELF; everything
// after it is forwarded to the guest as argv[1..].
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/lookbusy1344/rv64emu/cache"
	"github.com/lookbusy1344/rv64emu/config"
	"github.com/lookbusy1344/rv64emu/debugger"
	"github.com/lookbusy1344/rv64emu/ecall"
	"github.com/lookbusy1344/rv64emu/engine"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

const version = "0.3.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		debugMode   = flag.Bool("debug", false, "Start in debugger mode")
		tuiMode     = flag.Bool("tui", false, "Use TUI (Text User Interface) debugger")
		configPath  = flag.String("config", "", "Config file path (default: platform config dir)")
		maxCycles   = flag.Uint64("max-cycles", 0, "Maximum guest system calls before abort (0 = unbounded)")
		verboseMode = flag.Bool("verbose", false, "Verbose output")
	)
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("rv64emu %s\n", version)
		return
	}

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(2)
	}
	elfPath := flag.Arg(0)
	guestArgs := flag.Args() // argv[0] is the guest binary path itself

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	if *maxCycles != 0 {
		cfg.Execution.MaxCycles = *maxCycles
	}

	mem := memory.NewManager()
	if err := mem.LoadELF(elfPath); err != nil {
		fatal(err)
	}
	if *verboseMode {
		fmt.Fprintf(os.Stderr, "loaded %s: entry %#x, break base %#x\n", elfPath, mem.Entry, mem.Base)
	}

	state := machine.NewState()
	state.PC = mem.Entry

	sp, err := mem.InitStack(guestArgs, cfg.Execution.StackSize)
	if err != nil {
		fatal(fmt.Errorf("initializing guest stack: %w", err))
	}
	state.SetGPR(machine.SP, sp)

	blockCache, err := cache.New()
	if err != nil {
		fatal(err)
	}
	defer blockCache.Close()

	disp := engine.New(blockCache, mem, nil)

	if *debugMode || *tuiMode {
		dbg := debugger.NewDebugger(state, mem, disp)
		if *tuiMode {
			if err := debugger.NewTUI(dbg).Run(); err != nil {
				fatal(err)
			}
		} else {
			if err := debugger.RunCLI(dbg); err != nil {
				fatal(err)
			}
		}
		if dbg.Exited {
			os.Exit(int(dbg.ExitCode))
		}
		return
	}

	os.Exit(run(disp, state, mem, cfg.Execution.MaxCycles))
}

// run drives the dispatcher between ecall boundaries until the guest
// exits, returning the guest's exit status.
func run(disp *engine.Dispatcher, state *machine.State, mem *memory.Manager, maxBlocks uint64) int {
	var blocks uint64
	for {
		if err := disp.Step(state); err != nil {
			fatal(err)
		}

		if err := ecall.Dispatch(state, mem); err != nil {
			var exit *ecall.ExitError
			if errors.As(err, &exit) {
				return int(exit.Code)
			}
			fatal(err)
		}
		state.PC = state.ReentrePC

		blocks++
		if maxBlocks != 0 && blocks >= maxBlocks {
			fatal(fmt.Errorf("cycle guard: guest reached %d system calls", maxBlocks))
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "rv64emu: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `rv64emu %s - RISC-V 64-bit user-mode emulator

Usage: rv64emu [options] <elf-file> [guest args...]

Runs a statically linked RV64 little-endian ELF executable. Guest
system calls are translated to the host; the guest's exit status
becomes rv64emu's exit code.

Options:
`, version)
	flag.PrintDefaults()
}
