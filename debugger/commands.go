package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lookbusy1344/rv64emu/decode"
	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

// Command handler implementations. Each cmd* method writes its
// user-visible output through d.Printf; the CLI and TUI front ends
// drain it with TakeOutput after every command.

// cmdRun resumes execution from the current PC until a breakpoint,
// watchpoint, or guest exit.
func (d *Debugger) cmdRun(_ []string) error {
	reason, err := d.RunUntilStop(0)
	if err != nil {
		return err
	}
	d.Printf("Stopped: %s\n", reason)
	d.printLocation()
	return nil
}

// cmdContinue is cmdRun with an optional block bound: `continue [n]`
// gives up after n dispatcher blocks even if nothing fires.
func (d *Debugger) cmdContinue(args []string) error {
	var limit uint64
	if len(args) > 0 {
		n, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("continue: bad block limit %q", args[0])
		}
		limit = n
	}
	reason, err := d.RunUntilStop(limit)
	if err != nil {
		return err
	}
	d.Printf("Stopped: %s\n", reason)
	d.printLocation()
	return nil
}

// cmdStep executes one guest instruction (or n, for `step n`).
func (d *Debugger) cmdStep(args []string) error {
	count := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("step: bad count %q", args[0])
		}
		count = n
	}
	for i := 0; i < count; i++ {
		if err := d.StepOne(); err != nil {
			return err
		}
		if d.Exited {
			d.Printf("Program exited with code %d\n", d.ExitCode)
			return nil
		}
	}
	d.printLocation()
	return nil
}

func (d *Debugger) cmdBreak(args []string) error {
	return d.addBreak(args, false)
}

// cmdTBreak sets a temporary breakpoint, removed after its first hit.
func (d *Debugger) cmdTBreak(args []string) error {
	return d.addBreak(args, true)
}

func (d *Debugger) addBreak(args []string, temporary bool) error {
	if len(args) == 0 {
		for _, bp := range d.Breakpoints.All() {
			state := "enabled"
			if !bp.Enabled {
				state = "disabled"
			}
			d.Printf("breakpoint %d at %#x (%s, %d hits)", bp.ID, bp.Address, state, bp.HitCount)
			if bp.Condition != "" {
				d.Printf(" if %s", bp.Condition)
			}
			d.Printf("\n")
		}
		if d.Breakpoints.Count() == 0 {
			d.Printf("No breakpoints set\n")
		}
		return nil
	}

	// `break <addr> [if <cond>]`
	addrTok := args[0]
	condition := ""
	if len(args) >= 3 && args[1] == "if" {
		condition = strings.Join(args[2:], " ")
	}

	addr, err := d.parseAddr(addrTok)
	if err != nil {
		return fmt.Errorf("break: %w", err)
	}
	bp := d.Breakpoints.Add(addr, temporary, condition)
	kind := "Breakpoint"
	if temporary {
		kind = "Temporary breakpoint"
	}
	d.Printf("%s %d set at %#x\n", kind, bp.ID, bp.Address)
	return nil
}

func (d *Debugger) cmdDelete(args []string) error {
	if len(args) == 0 {
		d.Breakpoints.Clear()
		d.Watchpoints.Clear()
		d.Printf("All breakpoints and watchpoints deleted\n")
		return nil
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("delete: bad id %q", args[0])
	}
	if err := d.Breakpoints.Remove(id); err == nil {
		d.Printf("Breakpoint %d deleted\n", id)
		return nil
	}
	if err := d.Watchpoints.Remove(id); err == nil {
		d.Printf("Watchpoint %d deleted\n", id)
		return nil
	}
	return fmt.Errorf("no breakpoint or watchpoint with id %d", id)
}

func (d *Debugger) cmdEnable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("enable: breakpoint id required")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("enable: bad id %q", args[0])
	}
	if err := d.Breakpoints.Enable(id); err != nil {
		return err
	}
	d.Printf("Breakpoint %d enabled\n", id)
	return nil
}

func (d *Debugger) cmdDisable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("disable: breakpoint id required")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("disable: bad id %q", args[0])
	}
	if err := d.Breakpoints.Disable(id); err != nil {
		return err
	}
	d.Printf("Breakpoint %d disabled\n", id)
	return nil
}

// cmdWatch installs a watchpoint on a register (`watch a0`) or an
// 8-byte memory location (`watch [sp+16]` or `watch 0x11000`).
func (d *Debugger) cmdWatch(args []string) error {
	if len(args) == 0 {
		for _, wp := range d.Watchpoints.All() {
			d.Printf("watchpoint %d on %s (last %#x, %d hits)\n",
				wp.ID, wp.Expression, wp.LastValue, wp.HitCount)
		}
		if d.Watchpoints.Count() == 0 {
			d.Printf("No watchpoints set\n")
		}
		return nil
	}

	expr := strings.Join(args, " ")
	var wp *Watchpoint
	if r, ok := regByName[strings.ToLower(expr)]; ok {
		wp = d.Watchpoints.AddRegister(expr, r)
	} else {
		addr, err := d.Eval.Eval(expr)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		wp = d.Watchpoints.AddMemory(expr, addr)
	}
	if err := d.Watchpoints.Arm(wp.ID, d.State); err != nil {
		return err
	}
	d.Printf("Watchpoint %d set on %s\n", wp.ID, wp.Expression)
	return nil
}

// cmdRegs dumps the GPR file four to a row, then PC; `regs f` dumps
// the FP registers as raw bit patterns instead.
func (d *Debugger) cmdRegs(args []string) error {
	if len(args) > 0 && (args[0] == "f" || args[0] == "fp" || args[0] == "float") {
		for i := 0; i < int(machine.NumFPRegs); i++ {
			r := machine.FReg(i)
			d.Printf("%-5s %016x", r, d.State.GetFReg64(r))
			if i%4 == 3 {
				d.Printf("\n")
			} else {
				d.Printf("  ")
			}
		}
		return nil
	}

	for i := 0; i < int(machine.NumGPRegs); i++ {
		r := machine.Reg(i)
		d.Printf("%-5s %016x", r, d.State.GetGPR(r))
		if i%4 == 3 {
			d.Printf("\n")
		} else {
			d.Printf("  ")
		}
	}
	d.Printf("pc    %016x\n", d.State.PC)
	return nil
}

// cmdMem hex-dumps guest memory: `mem <addr> [len]`, 16 bytes a row
// with a printable-ASCII gutter.
func (d *Debugger) cmdMem(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("mem: address required")
	}
	addr, err := d.parseAddr(args[0])
	if err != nil {
		return fmt.Errorf("mem: %w", err)
	}
	length := uint64(64)
	if len(args) > 1 {
		n, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil || n == 0 {
			return fmt.Errorf("mem: bad length %q", args[1])
		}
		length = n
	}
	d.Printf("%s", hexDump(addr, length))
	return nil
}

// hexDump renders length bytes of guest memory starting at addr, 16 a
// row with an ASCII gutter. Shared by cmdMem and the TUI memory panel.
func hexDump(addr, length uint64) string {
	var out strings.Builder
	for row := uint64(0); row < length; row += 16 {
		n := length - row
		if n > 16 {
			n = 16
		}
		fmt.Fprintf(&out, "%016x  ", addr+row)
		var ascii strings.Builder
		for i := uint64(0); i < 16; i++ {
			if i == 8 {
				out.WriteByte(' ')
			}
			if i < n {
				b := memory.ReadU8(addr + row + i)
				fmt.Fprintf(&out, "%02x ", b)
				if b >= 0x20 && b < 0x7f {
					ascii.WriteByte(b)
				} else {
					ascii.WriteByte('.')
				}
			} else {
				out.WriteString("   ")
			}
		}
		fmt.Fprintf(&out, " |%s|\n", ascii.String())
	}
	return out.String()
}

// cmdCache reports hot-block table occupancy and arena usage.
func (d *Debugger) cmdCache(_ []string) error {
	if d.Disp == nil || d.Disp.Cache == nil {
		return fmt.Errorf("cache: no dispatcher attached")
	}
	tracked, compiled := d.Disp.Cache.Table.Stats()
	d.Printf("Hot-block table: %d pcs tracked, %d compiled\n", tracked, compiled)
	if a := d.Disp.Cache.Arena; a != nil {
		d.Printf("Code arena: %d / %d bytes used\n", a.Tail(), a.Cap())
	}
	return nil
}

// cmdDisasm decodes and prints n instructions starting at addr
// (default: the current PC).
func (d *Debugger) cmdDisasm(args []string) error {
	addr := d.State.PC
	if len(args) > 0 {
		a, err := d.parseAddr(args[0])
		if err != nil {
			return fmt.Errorf("disasm: %w", err)
		}
		addr = a
	}
	count := 8
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("disasm: bad count %q", args[1])
		}
		count = n
	}

	for i := 0; i < count; i++ {
		w := memory.ReadU32(addr)
		insn, err := decode.Decode(w)
		if err != nil {
			d.Printf("   %016x  %08x  <illegal>\n", addr, w)
			return nil
		}
		marker := "  "
		if addr == d.State.PC {
			marker = "=>"
		}
		if insn.RVC {
			d.Printf("%s %016x  %04x      %s\n", marker, addr, uint16(w), FormatInsn(addr, insn))
			addr += 2
		} else {
			d.Printf("%s %016x  %08x  %s\n", marker, addr, w, FormatInsn(addr, insn))
			addr += 4
		}
	}
	return nil
}

// cmdPrint evaluates an expression and prints it in hex and decimal.
func (d *Debugger) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("print: expression required")
	}
	expr := strings.Join(args, " ")
	v, err := d.Eval.Eval(expr)
	if err != nil {
		return err
	}
	d.Printf("%s = %#x (%d)\n", expr, v, int64(v))
	return nil
}

var helpTopics = map[string]string{
	"run":      "run\n  Resume execution until a breakpoint, watchpoint, or guest exit.",
	"continue": "continue [n]\n  Resume execution; with n, stop after at most n blocks.",
	"step":     "step [n]\n  Execute one instruction (or n), bypassing the hot-block cache.",
	"break":    "break <address|expr> [if <condition>]\n  Set a breakpoint. The condition is re-evaluated on every hit.\n  With no arguments, list breakpoints.",
	"tbreak":   "tbreak <address|expr>\n  Set a one-shot breakpoint, removed after its first hit.",
	"delete":   "delete [id]\n  Delete a breakpoint or watchpoint by id, or everything with no id.",
	"enable":   "enable <id>\n  Re-enable a disabled breakpoint.",
	"disable":  "disable <id>\n  Disable a breakpoint without deleting it.",
	"watch":    "watch <register|expr>\n  Watch a register or 8-byte memory location for a value change.\n  With no arguments, list watchpoints.",
	"regs":     "regs [f]\n  Dump the general-purpose registers and pc, or the FP registers.",
	"mem":      "mem <address> [len]\n  Hex-dump guest memory (default 64 bytes).",
	"cache":    "cache\n  Show hot-block table occupancy and code-arena usage.",
	"disasm":   "disasm [address] [n]\n  Disassemble n instructions (default 8, from pc).",
	"print":    "print <expr>\n  Evaluate an expression: registers, pc, literals, [deref], + - * /.",
}

func (d *Debugger) cmdHelp(args []string) error {
	if len(args) > 0 {
		if text, ok := helpTopics[strings.ToLower(args[0])]; ok {
			d.Printf("%s\n", text)
			return nil
		}
		return fmt.Errorf("no help for %q", args[0])
	}
	d.Printf("Commands:\n")
	d.Printf("  run, continue [n], step [n]\n")
	d.Printf("  break <addr> [if <cond>], tbreak <addr>, delete [id], enable <id>, disable <id>\n")
	d.Printf("  watch <reg|expr>\n")
	d.Printf("  regs [f], mem <addr> [len], disasm [addr] [n], print <expr>, cache\n")
	d.Printf("  help [command], quit\n")
	return nil
}

// printLocation shows the instruction the PC now points at.
func (d *Debugger) printLocation() {
	if d.Exited {
		return
	}
	w := memory.ReadU32(d.State.PC)
	insn, err := decode.Decode(w)
	if err != nil {
		d.Printf("pc %#x: <illegal instruction>\n", d.State.PC)
		return
	}
	d.Printf("pc %#x: %s\n", d.State.PC, FormatInsn(d.State.PC, insn))
}

// FormatInsn renders a decoded instruction as assembly text for the
// disasm command and the TUI's disassembly panel. Operand layout is
// derived from the opcode's family rather than stored per-op: loads
// and stores print imm(rs1), branches print their resolved target,
// and FP ops print f-register mnemonics.
func FormatInsn(pc uint64, insn decode.Insn) string {
	op := insn.Op
	mn := op.String()

	gr := func(r int8) string {
		if r < 0 {
			return machine.Zero.String()
		}
		return machine.Reg(r).String()
	}
	fr := func(r int8) string { return machine.FReg(r).String() }

	switch op {
	case decode.OpLb, decode.OpLh, decode.OpLw, decode.OpLd,
		decode.OpLbu, decode.OpLhu, decode.OpLwu:
		return fmt.Sprintf("%s %s, %d(%s)", mn, gr(insn.Rd), insn.Imm, gr(insn.Rs1))
	case decode.OpFlw, decode.OpFld:
		return fmt.Sprintf("%s %s, %d(%s)", mn, fr(insn.Rd), insn.Imm, gr(insn.Rs1))
	case decode.OpSb, decode.OpSh, decode.OpSw, decode.OpSd:
		return fmt.Sprintf("%s %s, %d(%s)", mn, gr(insn.Rs2), insn.Imm, gr(insn.Rs1))
	case decode.OpFsw, decode.OpFsd:
		return fmt.Sprintf("%s %s, %d(%s)", mn, fr(insn.Rs2), insn.Imm, gr(insn.Rs1))

	case decode.OpAddi, decode.OpSlti, decode.OpSltiu, decode.OpXori,
		decode.OpOri, decode.OpAndi, decode.OpSlli, decode.OpSrli,
		decode.OpSrai, decode.OpAddiw, decode.OpSlliw, decode.OpSrliw,
		decode.OpSraiw:
		return fmt.Sprintf("%s %s, %s, %d", mn, gr(insn.Rd), gr(insn.Rs1), insn.Imm)

	case decode.OpLui, decode.OpAuipc:
		return fmt.Sprintf("%s %s, %#x", mn, gr(insn.Rd), uint32(insn.Imm)>>12)

	case decode.OpJal:
		return fmt.Sprintf("%s %s, %#x", mn, gr(insn.Rd), pc+uint64(int64(insn.Imm)))
	case decode.OpJalr:
		return fmt.Sprintf("%s %s, %d(%s)", mn, gr(insn.Rd), insn.Imm, gr(insn.Rs1))

	case decode.OpBeq, decode.OpBne, decode.OpBlt, decode.OpBge,
		decode.OpBltu, decode.OpBgeu:
		return fmt.Sprintf("%s %s, %s, %#x", mn, gr(insn.Rs1), gr(insn.Rs2), pc+uint64(int64(insn.Imm)))

	case decode.OpEcall, decode.OpEbreak, decode.OpFence, decode.OpFenceI:
		return mn

	case decode.OpCsrrw, decode.OpCsrrs, decode.OpCsrrc:
		return fmt.Sprintf("%s %s, %#x, %s", mn, gr(insn.Rd), insn.CSR, gr(insn.Rs1))
	case decode.OpCsrrwi, decode.OpCsrrsi, decode.OpCsrrci:
		return fmt.Sprintf("%s %s, %#x, %d", mn, gr(insn.Rd), insn.CSR, insn.Imm)

	case decode.OpFmaddS, decode.OpFmsubS, decode.OpFnmsubS, decode.OpFnmaddS,
		decode.OpFmaddD, decode.OpFmsubD, decode.OpFnmsubD, decode.OpFnmaddD:
		return fmt.Sprintf("%s %s, %s, %s, %s", mn, fr(insn.Rd), fr(insn.Rs1), fr(insn.Rs2), fr(insn.Rs3))

	case decode.OpFsqrtS, decode.OpFsqrtD, decode.OpFcvtSD, decode.OpFcvtDS:
		return fmt.Sprintf("%s %s, %s", mn, fr(insn.Rd), fr(insn.Rs1))

	case decode.OpFclassS, decode.OpFclassD, decode.OpFmvXW, decode.OpFmvXD,
		decode.OpFcvtWS, decode.OpFcvtWuS, decode.OpFcvtLS, decode.OpFcvtLuS,
		decode.OpFcvtWD, decode.OpFcvtWuD, decode.OpFcvtLD, decode.OpFcvtLuD:
		return fmt.Sprintf("%s %s, %s", mn, gr(insn.Rd), fr(insn.Rs1))

	case decode.OpFmvWX, decode.OpFmvDX,
		decode.OpFcvtSW, decode.OpFcvtSWu, decode.OpFcvtSL, decode.OpFcvtSLu,
		decode.OpFcvtDW, decode.OpFcvtDWu, decode.OpFcvtDL, decode.OpFcvtDLu:
		return fmt.Sprintf("%s %s, %s", mn, fr(insn.Rd), gr(insn.Rs1))

	case decode.OpFeqS, decode.OpFltS, decode.OpFleS,
		decode.OpFeqD, decode.OpFltD, decode.OpFleD:
		return fmt.Sprintf("%s %s, %s, %s", mn, gr(insn.Rd), fr(insn.Rs1), fr(insn.Rs2))

	case decode.OpFaddS, decode.OpFsubS, decode.OpFmulS, decode.OpFdivS,
		decode.OpFaddD, decode.OpFsubD, decode.OpFmulD, decode.OpFdivD,
		decode.OpFsgnjS, decode.OpFsgnjnS, decode.OpFsgnjxS,
		decode.OpFsgnjD, decode.OpFsgnjnD, decode.OpFsgnjxD,
		decode.OpFminS, decode.OpFmaxS, decode.OpFminD, decode.OpFmaxD:
		return fmt.Sprintf("%s %s, %s, %s", mn, fr(insn.Rd), fr(insn.Rs1), fr(insn.Rs2))

	default:
		// Three-register integer forms (add/sub/logic/shift/M extension).
		return fmt.Sprintf("%s %s, %s, %s", mn, gr(insn.Rd), gr(insn.Rs1), gr(insn.Rs2))
	}
}
