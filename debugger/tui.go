package debugger

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lookbusy1344/rv64emu/decode"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

// TUI is the tview text user interface wrapped around a Debugger: a
// disassembly panel tracking the guest PC, register/memory/stack
// panels, breakpoint and hot-block cache status, and a command input
// that accepts the same language as the plain CLI.
type TUI struct {
	Debugger *Debugger
	App      *tview.Application
	Pages    *tview.Pages

	MainLayout *tview.Flex
	LeftPanel  *tview.Flex
	RightPanel *tview.Flex

	DisassemblyView *tview.TextView
	RegisterView    *tview.TextView
	MemoryView      *tview.TextView
	StackView       *tview.TextView
	BreakpointsView *tview.TextView
	CacheView       *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField

	// MemoryAddress is the base of the memory panel; `mem <addr>`
	// retargets it.
	MemoryAddress uint64
}

// NewTUI creates the text user interface around an existing debugger
// session.
func NewTUI(debugger *Debugger) *TUI {
	tui := &TUI{
		Debugger: debugger,
		App:      tview.NewApplication(),
	}

	tui.initializeViews()
	tui.buildLayout()
	tui.setupKeyBindings()

	return tui
}

// initializeViews creates all the view panels
func (t *TUI) initializeViews() {
	t.DisassemblyView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.DisassemblyView.SetBorder(true).SetTitle(" Disassembly ")

	t.RegisterView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.MemoryView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.MemoryView.SetBorder(true).SetTitle(" Memory ")

	t.StackView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.StackView.SetBorder(true).SetTitle(" Stack ")

	t.BreakpointsView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.BreakpointsView.SetBorder(true).SetTitle(" Breakpoints/Watchpoints ")

	t.CacheView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	t.CacheView.SetBorder(true).SetTitle(" Hot Blocks ")

	t.OutputView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")

	t.CommandInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0)
	t.CommandInput.SetBorder(true).SetTitle(" Command ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
}

// buildLayout arranges the panels
func (t *TUI) buildLayout() {
	// Left panel: disassembly over memory
	t.LeftPanel = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.DisassemblyView, 0, 3, false).
		AddItem(t.MemoryView, 0, 2, false)

	// Right panel: registers, stack, breakpoints, cache
	t.RightPanel = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.RegisterView, 20, 0, false).
		AddItem(t.StackView, 0, 1, false).
		AddItem(t.BreakpointsView, 8, 0, false).
		AddItem(t.CacheView, 4, 0, false)

	mainContent := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(t.LeftPanel, 0, 2, false).
		AddItem(t.RightPanel, 0, 1, false)

	t.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(mainContent, 0, 4, false).
		AddItem(t.OutputView, 8, 0, false).
		AddItem(t.CommandInput, 3, 0, true)

	t.Pages = tview.NewPages().
		AddPage("main", t.MainLayout, true, true)
}

// setupKeyBindings sets up keyboard shortcuts
func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			t.executeCommand("help")
			return nil
		case tcell.KeyF5:
			t.executeCommand("continue")
			return nil
		case tcell.KeyF9:
			t.executeCommand("break pc")
			return nil
		case tcell.KeyF11:
			t.executeCommand("step")
			return nil
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		case tcell.KeyCtrlL:
			t.RefreshAll()
			return nil
		case tcell.KeyUp:
			if t.CommandInput.HasFocus() {
				if prev := t.Debugger.History.Recall(-1); prev != "" {
					t.CommandInput.SetText(prev)
				}
				return nil
			}
		case tcell.KeyDown:
			if t.CommandInput.HasFocus() {
				t.CommandInput.SetText(t.Debugger.History.Recall(1))
				return nil
			}
		}
		return event
	})
}

// handleCommand processes command input
func (t *TUI) handleCommand(key tcell.Key) {
	if key == tcell.KeyEnter {
		cmd := t.CommandInput.GetText()
		t.executeCommand(cmd)
		t.CommandInput.SetText("")
	}
}

// executeCommand runs one debugger command and refreshes every panel.
func (t *TUI) executeCommand(cmd string) {
	// `mem <addr>` also retargets the memory panel
	if fields := strings.Fields(cmd); len(fields) >= 2 && (fields[0] == "mem" || fields[0] == "x") {
		if addr, err := t.Debugger.parseAddr(fields[1]); err == nil {
			t.MemoryAddress = addr
		}
	}

	err := t.Debugger.ExecuteCommand(cmd)

	if err != nil {
		t.WriteOutput(fmt.Sprintf("[red]Error:[white] %v\n", err))
	}
	if output := t.Debugger.TakeOutput(); output != "" {
		t.WriteOutput(tview.Escape(output))
	}
	if t.Debugger.Exited {
		t.WriteOutput(fmt.Sprintf("[yellow]Program exited with code %d[white]\n", t.Debugger.ExitCode))
	}

	t.RefreshAll()
}

// WriteOutput writes to the output view
func (t *TUI) WriteOutput(text string) {
	_, _ = t.OutputView.Write([]byte(text))
	t.OutputView.ScrollToEnd()
}

// RefreshAll refreshes all view panels
func (t *TUI) RefreshAll() {
	t.UpdateDisassemblyView()
	t.UpdateRegisterView()
	t.UpdateMemoryView()
	t.UpdateStackView()
	t.UpdateBreakpointsView()
	t.UpdateCacheView()
	t.App.Draw()
}

// UpdateDisassemblyView decodes a window of instructions around the PC.
func (t *TUI) UpdateDisassemblyView() {
	t.DisassemblyView.Clear()

	if t.Debugger.Exited {
		fmt.Fprintf(t.DisassemblyView, "Program exited with code %d\n", t.Debugger.ExitCode)
		return
	}

	addr := t.Debugger.State.PC
	for i := 0; i < 24; i++ {
		w := memory.ReadU32(addr)
		insn, err := decode.Decode(w)
		if err != nil {
			fmt.Fprintf(t.DisassemblyView, "   %016x  %08x  <illegal>\n", addr, w)
			break
		}

		marker := "  "
		color := "[white]"
		if addr == t.Debugger.State.PC {
			marker = "=>"
			color = "[yellow]"
		}
		if bp := t.Debugger.Breakpoints.At(addr); bp != nil && bp.Enabled {
			color = "[red]"
		}

		text := tview.Escape(FormatInsn(addr, insn))
		if insn.RVC {
			fmt.Fprintf(t.DisassemblyView, "%s%s %016x  %04x      %s[white]\n", color, marker, addr, uint16(w), text)
			addr += 2
		} else {
			fmt.Fprintf(t.DisassemblyView, "%s%s %016x  %08x  %s[white]\n", color, marker, addr, w, text)
			addr += 4
		}
	}
}

// UpdateRegisterView dumps x0-x31 and pc, two registers a row.
func (t *TUI) UpdateRegisterView() {
	t.RegisterView.Clear()

	s := t.Debugger.State
	var lines []string
	for i := 0; i < int(machine.NumGPRegs); i += 2 {
		var cols []string
		for j := i; j < i+2; j++ {
			r := machine.Reg(j)
			cols = append(cols, fmt.Sprintf("%-4s %016x", r, s.GetGPR(r)))
		}
		lines = append(lines, strings.Join(cols, "  "))
	}
	lines = append(lines, fmt.Sprintf("[yellow]%-4s %016x[white]", "pc", s.PC))
	fmt.Fprint(t.RegisterView, strings.Join(lines, "\n"))
}

// UpdateMemoryView hex-dumps from the panel's base address.
func (t *TUI) UpdateMemoryView() {
	t.MemoryView.Clear()

	addr := t.MemoryAddress
	if addr == 0 {
		addr = t.Debugger.Mem.Base
	}
	fmt.Fprint(t.MemoryView, tview.Escape(hexDump(addr, 256)))
}

// UpdateStackView dumps doublewords upward from the stack pointer.
func (t *TUI) UpdateStackView() {
	t.StackView.Clear()

	sp := t.Debugger.State.GetGPR(machine.SP)
	if sp == 0 {
		fmt.Fprint(t.StackView, "sp not initialized")
		return
	}
	for i := uint64(0); i < 16; i++ {
		addr := sp + i*8
		marker := "  "
		if i == 0 {
			marker = "=>"
		}
		fmt.Fprintf(t.StackView, "%s %016x  %016x\n", marker, addr, memory.ReadU64(addr))
	}
}

// UpdateBreakpointsView lists breakpoints then watchpoints.
func (t *TUI) UpdateBreakpointsView() {
	t.BreakpointsView.Clear()

	for _, bp := range t.Debugger.Breakpoints.All() {
		state := "[green]on [white]"
		if !bp.Enabled {
			state = "[gray]off[white]"
		}
		fmt.Fprintf(t.BreakpointsView, "bp %d %s %016x hits %d\n", bp.ID, state, bp.Address, bp.HitCount)
	}
	for _, wp := range t.Debugger.Watchpoints.All() {
		fmt.Fprintf(t.BreakpointsView, "wp %d %s = %#x hits %d\n", wp.ID, tview.Escape(wp.Expression), wp.LastValue, wp.HitCount)
	}
	if t.Debugger.Breakpoints.Count() == 0 && t.Debugger.Watchpoints.Count() == 0 {
		fmt.Fprint(t.BreakpointsView, "none set (F9 breaks at pc)")
	}
}

// UpdateCacheView shows hot-block table and arena occupancy.
func (t *TUI) UpdateCacheView() {
	t.CacheView.Clear()

	if t.Debugger.Disp == nil || t.Debugger.Disp.Cache == nil {
		fmt.Fprint(t.CacheView, "no dispatcher")
		return
	}
	tracked, compiled := t.Debugger.Disp.Cache.Table.Stats()
	fmt.Fprintf(t.CacheView, "tracked %d  compiled %d\n", tracked, compiled)
	if a := t.Debugger.Disp.Cache.Arena; a != nil {
		fmt.Fprintf(t.CacheView, "arena %d/%d bytes", a.Tail(), a.Cap())
	}
}

// Run starts the TUI event loop.
func (t *TUI) Run() error {
	t.RefreshAll()
	t.App.SetRoot(t.Pages, true).SetFocus(t.CommandInput)
	return t.App.Run()
}

// Stop terminates the TUI.
func (t *TUI) Stop() {
	t.App.Stop()
}
