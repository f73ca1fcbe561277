// Package asm reads the AT&T listings the compiler emits into a
// cpu.Program the emulator can execute.
package asm

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/golang/glog"
	"github.com/joomcode/errorx"

	"github.com/samifruit440/Compiler/pkg/cpu"
)

var (
	Errors      = errorx.NewNamespace("asm")
	SyntaxError = Errors.NewType("syntax")
	LabelError  = Errors.NewType("label")

	LineProperty = errorx.RegisterProperty("line")
)

// EntryLabel is where execution starts.
const EntryLabel = "_start"

type operandClass int

const (
	anyValue  operandClass = iota // $imm, %reg or disp(%reg)
	writable                      // %reg or disp(%reg)
	byteReg                       // %al, %bl, %cl, %dl
	memory                        // disp(%reg)
	register                      // %reg
	target                        // label
	immediate                     // $imm
)

type opSpec struct {
	op       cpu.Opcode
	operands []operandClass
}

var mnemonics = map[string]opSpec{
	"nop":    {cpu.OpNOP, nil},
	"movl":   {cpu.OpMOV, []operandClass{anyValue, writable}},
	"movzbl": {cpu.OpMOVZB, []operandClass{byteReg, register}},
	"leal":   {cpu.OpLEA, []operandClass{memory, register}},
	"addl":   {cpu.OpADD, []operandClass{anyValue, writable}},
	"subl":   {cpu.OpSUB, []operandClass{anyValue, writable}},
	"imull":  {cpu.OpIMUL, []operandClass{anyValue, register}},
	"andl":   {cpu.OpAND, []operandClass{anyValue, writable}},
	"orl":    {cpu.OpOR, []operandClass{anyValue, writable}},
	"sall":   {cpu.OpSHL, []operandClass{immediate, writable}},
	"shll":   {cpu.OpSHL, []operandClass{immediate, writable}},
	"sarl":   {cpu.OpSAR, []operandClass{immediate, writable}},
	"shrl":   {cpu.OpSHR, []operandClass{immediate, writable}},
	"cmpl":   {cpu.OpCMP, []operandClass{anyValue, writable}},
	"sete":   {cpu.OpSETE, []operandClass{byteReg}},
	"setne":  {cpu.OpSETNE, []operandClass{byteReg}},
	"setl":   {cpu.OpSETL, []operandClass{byteReg}},
	"setg":   {cpu.OpSETG, []operandClass{byteReg}},
	"setle":  {cpu.OpSETLE, []operandClass{byteReg}},
	"setge":  {cpu.OpSETGE, []operandClass{byteReg}},
	"jmp":    {cpu.OpJMP, []operandClass{target}},
	"je":     {cpu.OpJE, []operandClass{target}},
	"jne":    {cpu.OpJNE, []operandClass{target}},
	"int":    {cpu.OpINT, []operandClass{immediate}},
}

var registers = map[string]int{
	"eax": cpu.EAX, "ecx": cpu.ECX, "edx": cpu.EDX, "ebx": cpu.EBX,
	"esp": cpu.ESP, "ebp": cpu.EBP, "esi": cpu.ESI, "edi": cpu.EDI,
}

var byteRegisters = map[string]int{
	"al": cpu.EAX, "cl": cpu.ECX, "dl": cpu.EDX, "bl": cpu.EBX,
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

type Assembler struct {
	labels map[string]int
}

func NewAssembler() *Assembler {
	return &Assembler{labels: make(map[string]int)}
}

// Assemble reads listing and returns the program it describes.
func Assemble(listing string) (*cpu.Program, error) {
	return NewAssembler().Assemble(listing)
}

func (a *Assembler) Assemble(listing string) (*cpu.Program, error) {
	lines := strings.Split(listing, "\n")

	parsed, err := a.pass1(lines)
	if err != nil {
		return nil, err
	}

	prog, err := a.pass2(parsed)
	if err != nil {
		return nil, err
	}

	entry, ok := a.labels[EntryLabel]
	if !ok {
		return nil, LabelError.New("missing entry label %s", EntryLabel)
	}
	prog.Entry = entry

	glog.V(2).Infof("assembled %d instructions, %d labels", len(prog.Instrs), len(prog.Labels))
	return prog, nil
}

// pass1 parses every line and records which instruction each label
// precedes.
func (a *Assembler) pass1(lines []string) ([]parsedLine, error) {
	var parsed []parsedLine
	index := 0

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return nil, lineError(LabelError, lineNo, "duplicate label '%s'", lbl)
			}
			a.labels[lbl] = index
		}

		if p.mnemonic == "" {
			continue
		}
		if isDirective(p.mnemonic) {
			if err := checkDirective(p); err != nil {
				return nil, err
			}
			continue
		}
		if _, ok := mnemonics[p.mnemonic]; !ok {
			return nil, lineError(SyntaxError, lineNo, "unknown instruction: %s", p.mnemonic)
		}

		parsed = append(parsed, p)
		index++
	}

	return parsed, nil
}

func (a *Assembler) pass2(parsed []parsedLine) (*cpu.Program, error) {
	prog := &cpu.Program{
		Instrs: make([]cpu.Instr, 0, len(parsed)),
		Labels: a.labels,
	}

	for _, p := range parsed {
		spec := mnemonics[p.mnemonic]
		if len(p.operands) != len(spec.operands) {
			return nil, lineError(SyntaxError, p.lineNo, "%s expects %d operands, got %d",
				p.mnemonic, len(spec.operands), len(p.operands))
		}

		in := cpu.Instr{Op: spec.op, Line: p.lineNo}
		for i, tok := range p.operands {
			o, err := a.parseOperand(tok, spec.operands[i], p.lineNo)
			if err != nil {
				return nil, err
			}
			in.Args = append(in.Args, o)
		}
		prog.Instrs = append(prog.Instrs, in)
	}

	return prog, nil
}

func lineError(t *errorx.Type, lineNo int, format string, args ...any) error {
	return t.New("line %d: "+format, append([]any{lineNo}, args...)...).
		WithProperty(LineProperty, lineNo)
}

func isDirective(mnemonic string) bool {
	return strings.HasPrefix(mnemonic, ".")
}

func checkDirective(p parsedLine) error {
	switch p.mnemonic {
	case ".text":
		if len(p.operands) != 0 {
			return lineError(SyntaxError, p.lineNo, ".text takes no operands")
		}
	case ".globl", ".global":
		if len(p.operands) != 1 || !isIdentifier(p.operands[0]) {
			return lineError(SyntaxError, p.lineNo, "%s expects one symbol", p.mnemonic)
		}
	default:
		return lineError(SyntaxError, p.lineNo, "unsupported directive %s", p.mnemonic)
	}
	return nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}
		label := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(label, " \t") {
			break
		}
		if !isIdentifier(label) {
			return p, lineError(SyntaxError, lineNo, "invalid label '%s'", label)
		}
		p.labels = append(p.labels, label)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	mnemonic, rest := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		mnemonic, rest = line[:i], line[i+1:]
	}
	p.mnemonic = strings.ToLower(mnemonic)

	ops, err := splitOperands(rest, lineNo)
	if err != nil {
		return p, err
	}
	p.operands = ops
	return p, nil
}

func stripComments(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return strings.TrimRight(line[:i], " \t")
	}
	return line
}

// splitOperands splits on commas outside parentheses, so "-4(%esp)"
// survives as one operand.
func splitOperands(s string, lineNo int) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var ops []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, lineError(SyntaxError, lineNo, "unbalanced ')'")
			}
		case ',':
			if depth == 0 {
				ops = append(ops, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, lineError(SyntaxError, lineNo, "unbalanced '('")
	}
	ops = append(ops, strings.TrimSpace(s[start:]))

	for _, op := range ops {
		if op == "" {
			return nil, lineError(SyntaxError, lineNo, "empty operand")
		}
	}
	return ops, nil
}

func (a *Assembler) parseOperand(tok string, class operandClass, lineNo int) (cpu.Operand, error) {
	var o cpu.Operand
	var err error

	switch {
	case strings.HasPrefix(tok, "$"):
		o.Kind = cpu.Imm
		o.Imm, err = parseImmediate(tok[1:], lineNo)
	case strings.HasPrefix(tok, "%"):
		name := strings.ToLower(tok[1:])
		if r, ok := registers[name]; ok {
			o.Kind, o.Reg = cpu.Reg, r
		} else if r, ok := byteRegisters[name]; ok {
			o.Kind, o.Reg = cpu.Reg8, r
		} else {
			err = lineError(SyntaxError, lineNo, "invalid register '%s'", tok)
		}
	case strings.HasSuffix(tok, ")"):
		o, err = parseMemory(tok, lineNo)
	case isIdentifier(tok):
		idx, ok := a.labels[tok]
		if !ok {
			return o, lineError(LabelError, lineNo, "undefined label '%s'", tok)
		}
		o.Kind, o.Target = cpu.Label, idx
	default:
		err = lineError(SyntaxError, lineNo, "invalid operand '%s'", tok)
	}
	if err != nil {
		return o, err
	}
	o.Name = tok

	if !class.accepts(o.Kind) {
		return o, lineError(SyntaxError, lineNo, "operand '%s' not allowed here", tok)
	}
	return o, nil
}

func (c operandClass) accepts(k cpu.OperandKind) bool {
	switch c {
	case anyValue:
		return k == cpu.Imm || k == cpu.Reg || k == cpu.Mem
	case writable:
		return k == cpu.Reg || k == cpu.Mem
	case byteReg:
		return k == cpu.Reg8
	case memory:
		return k == cpu.Mem
	case register:
		return k == cpu.Reg
	case target:
		return k == cpu.Label
	case immediate:
		return k == cpu.Imm
	}
	return false
}

// parseMemory reads "disp(%reg)". The displacement may be omitted.
func parseMemory(tok string, lineNo int) (cpu.Operand, error) {
	o := cpu.Operand{Kind: cpu.Mem}

	open := strings.IndexByte(tok, '(')
	if open < 0 {
		return o, lineError(SyntaxError, lineNo, "invalid memory operand '%s'", tok)
	}
	base := strings.ToLower(strings.TrimSpace(tok[open+1 : len(tok)-1]))
	r, ok := registers[strings.TrimPrefix(base, "%")]
	if !ok || !strings.HasPrefix(base, "%") {
		return o, lineError(SyntaxError, lineNo, "invalid base register in '%s'", tok)
	}
	o.Reg = r

	if disp := strings.TrimSpace(tok[:open]); disp != "" {
		v, err := parseImmediate(disp, lineNo)
		if err != nil {
			return o, err
		}
		o.Disp = v
	}
	return o, nil
}

// parseImmediate accepts decimal and 0x-prefixed values that fit in 32
// bits, signed or unsigned.
func parseImmediate(tok string, lineNo int) (int32, error) {
	v, err := strconv.ParseInt(tok, 0, 64)
	if err != nil {
		return 0, lineError(SyntaxError, lineNo, "invalid immediate '%s'", tok)
	}
	if v < -1<<31 || v > 1<<32-1 {
		return 0, lineError(SyntaxError, lineNo, "immediate out of range: %s", tok)
	}
	return int32(uint32(v)), nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '.' {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return false
		}
	}
	return true
}
