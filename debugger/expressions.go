package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lookbusy1344/rv64emu/machine"
	"github.com/lookbusy1344/rv64emu/memory"
)

// Evaluator resolves the small address-expression language the
// debugger's break/watch/mem/print commands accept: register names
// (x0-x31 or their ABI mnemonics, f0-f31/fa0.../pc), hex (0x...) and
// decimal literals, a memory dereference `[expr]`, and the binary
// operators + - * /, where * and / bind tighter than + and - and each
// level is left-associative -- enough to write `break pc+8`,
// `watch [sp+16]`, or `print a0*4`.
type Evaluator struct {
	State *machine.State
}

// NewEvaluator returns an Evaluator bound to a machine state.
func NewEvaluator(s *machine.State) *Evaluator {
	return &Evaluator{State: s}
}

var regByName = buildRegByName()

func buildRegByName() map[string]machine.Reg {
	m := make(map[string]machine.Reg, machine.NumGPRegs)
	for i := 0; i < int(machine.NumGPRegs); i++ {
		r := machine.Reg(i)
		m[r.String()] = r
		m[fmt.Sprintf("x%d", i)] = r
	}
	return m
}

var fregByName = buildFRegByName()

func buildFRegByName() map[string]machine.FReg {
	m := make(map[string]machine.FReg, machine.NumFPRegs)
	for i := 0; i < int(machine.NumFPRegs); i++ {
		r := machine.FReg(i)
		m[r.String()] = r
		m[fmt.Sprintf("f%d", i)] = r
	}
	return m
}

// Eval parses and evaluates expr, returning its 64-bit value.
func (e *Evaluator) Eval(expr string) (uint64, error) {
	toks := tokenize(expr)
	if len(toks) == 0 {
		return 0, fmt.Errorf("expression: empty")
	}
	p := &exprParser{toks: toks, eval: e}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.toks) {
		return 0, fmt.Errorf("expression: unexpected trailing token %q", p.toks[p.pos])
	}
	return v, nil
}

// tokenize splits expr into operators, brackets, and atoms (numbers,
// register names). Whitespace is insignificant.
func tokenize(expr string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range expr {
		switch {
		case r == ' ' || r == '\t':
			flush()
		case strings.ContainsRune("[]+-*/", r):
			flush()
			toks = append(toks, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

type exprParser struct {
	toks []string
	pos  int
	eval *Evaluator
}

func (p *exprParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *exprParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

// parseExpr handles left-to-right +/- of one or more terms.
func (p *exprParser) parseExpr() (uint64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for p.peek() == "+" || p.peek() == "-" {
		op := p.next()
		rhs, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			v += rhs
		} else {
			v -= rhs
		}
	}
	return v, nil
}

// parseTerm handles left-to-right */ of one or more atoms.
func (p *exprParser) parseTerm() (uint64, error) {
	v, err := p.parseAtom()
	if err != nil {
		return 0, err
	}
	for p.peek() == "*" || p.peek() == "/" {
		op := p.next()
		rhs, err := p.parseAtom()
		if err != nil {
			return 0, err
		}
		if op == "*" {
			v *= rhs
		} else {
			if rhs == 0 {
				return 0, fmt.Errorf("expression: division by zero")
			}
			v /= rhs
		}
	}
	return v, nil
}

func (p *exprParser) parseAtom() (uint64, error) {
	tok := p.next()
	if tok == "" {
		return 0, fmt.Errorf("expression: unexpected end of input")
	}
	if tok == "[" {
		inner, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.next() != "]" {
			return 0, fmt.Errorf("expression: missing closing ]")
		}
		return memory.ReadU64(inner), nil
	}
	if tok == "-" {
		v, err := p.parseAtom()
		return uint64(-int64(v)), err
	}

	if tok == "pc" {
		return p.eval.State.PC, nil
	}
	if r, ok := regByName[tok]; ok {
		return p.eval.State.GetGPR(r), nil
	}
	if r, ok := fregByName[tok]; ok {
		return p.eval.State.GetFReg64(r), nil
	}
	return parseNumber(tok)
}

func parseNumber(tok string) (uint64, error) {
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		v, err := strconv.ParseUint(tok[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("expression: invalid hex literal %q", tok)
		}
		return v, nil
	}
	v, err := strconv.ParseUint(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expression: unrecognized token %q", tok)
	}
	return v, nil
}
