package debugger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// RunCLI runs the plain line-oriented debugger REPL on stdin/stdout.
// The richer tview front end lives in tui.go; this one exists for
// piped input, dumb terminals, and scripted sessions.
func RunCLI(dbg *Debugger) error {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Type 'help' for available commands.")
	dbg.printLocation()
	fmt.Print(dbg.TakeOutput())

	for {
		fmt.Print("(rv64-dbg) ")

		if !scanner.Scan() {
			break
		}
		cmdLine := strings.TrimSpace(scanner.Text())

		if cmdLine == "quit" || cmdLine == "q" || cmdLine == "exit" {
			break
		}

		if err := dbg.ExecuteCommand(cmdLine); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
		if out := dbg.TakeOutput(); out != "" {
			fmt.Print(out)
		}

		if dbg.Exited {
			break
		}
	}
	return scanner.Err()
}
