package compiler

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// Options controls a single compilation.
type Options struct {
	// FoldConstants evaluates literal-only subtrees at compile time and
	// emits a single immediate load for them.
	FoldConstants bool
}

// firstSlot is the stack index of the first temporary, below %esp.
const (
	firstSlot = -4
	wordSize  = 4
)

// CodeGen walks an AST and emits 32-bit x86 AT&T assembly.
//
// Every gen method leaves the value of its node in %eax. Temporaries live
// at negative offsets from %esp; the stack index si passed down is the next
// free slot and each method returns the next free slot after it has run.
// Spilled operands and let bindings are released on return; pair storage
// is not, so a pair stays addressable until the program exits.
type CodeGen struct {
	out       strings.Builder
	nextLabel int
	opts      Options
}

func newCodeGen(opts Options) *CodeGen {
	return &CodeGen{opts: opts}
}

func (cg *CodeGen) newLabel() string {
	l := fmt.Sprintf("L%d", cg.nextLabel)
	cg.nextLabel++
	return l
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

func (cg *CodeGen) comment(format string, args ...any) {
	cg.line("    # "+format, args...)
}

// setBool turns the condition cc of the last comparison into #t or #f.
func (cg *CodeGen) setBool(cc string) {
	cg.line("    set%s %%al", cc)
	cg.line("    movzbl %%al, %%eax")
	cg.line("    sall $5, %%eax")
	cg.line("    orl $0x%x, %%eax", BoolTag)
}

// genTagTest compares the bits of %eax selected by mask with tag.
func (cg *CodeGen) genTagTest(mask, tag int) {
	cg.line("    movl %%eax, %%ecx")
	cg.line("    andl $0x%x, %%ecx", mask)
	cg.line("    cmpl $0x%x, %%ecx", tag)
	cg.setBool("e")
}

func (cg *CodeGen) genUnary(op UnaryOp) error {
	switch op {
	case Add1:
		cg.line("    addl $%d, %%eax", TagFixnum(1))
	case Sub1:
		cg.line("    subl $%d, %%eax", TagFixnum(1))
	case IntegerToChar:
		cg.line("    sall $%d, %%eax", CharShift-FixnumShift)
		cg.line("    orl $0x%02x, %%eax", CharTag)
	case CharToInteger:
		cg.line("    shrl $%d, %%eax", CharShift)
		cg.line("    sall $%d, %%eax", FixnumShift)
	case IsZero:
		cg.line("    cmpl $0, %%eax")
		cg.setBool("e")
	case IsNull:
		cg.line("    cmpl $0x%x, %%eax", EmptyListTag)
		cg.setBool("e")
	case IsInteger:
		cg.genTagTest(FixnumMask, FixnumTag)
	case IsBoolean:
		// #f and #t differ only in BoolBit; mask it out so both match.
		cg.genTagTest(BoolMask&^BoolBit, BoolTag)
	case IsChar:
		cg.genTagTest(CharMask, CharTag)
	default:
		return CodegenError.New("unknown unary primitive %s", op)
	}
	return nil
}

// conditionCodes maps comparison primitives to the setcc suffix that holds
// after "cmpl right, left".
var conditionCodes = map[BinaryOp]string{
	Equal:        "e",
	Less:         "l",
	Greater:      "g",
	LessEqual:    "le",
	GreaterEqual: "ge",
	CharEqual:    "e",
	CharLess:     "l",
}

// genBinary combines %eax (left) with the word at slot(%esp) (right).
func (cg *CodeGen) genBinary(op BinaryOp, slot int) error {
	switch op {
	case Plus:
		cg.line("    addl %d(%%esp), %%eax", slot)
	case Minus:
		cg.line("    subl %d(%%esp), %%eax", slot)
	case Multiply:
		// Both operands carry the fixnum shift; drop one of them.
		cg.line("    imull %d(%%esp), %%eax", slot)
		cg.line("    sarl $%d, %%eax", FixnumShift)
	default:
		cc, ok := conditionCodes[op]
		if !ok {
			return CodegenError.New("unknown binary primitive %s", op)
		}
		cg.line("    cmpl %d(%%esp), %%eax", slot)
		cg.setBool(cc)
	}
	return nil
}

// release returns the stack index to hand back to the caller once a
// temporary at slot is dead: slot itself, unless the code that ran below it
// allocated pairs, in which case their storage stays reserved.
func release(slot, below int) int {
	if below < slot-wordSize {
		return below
	}
	return slot
}

func (cg *CodeGen) genExpr(e Expr, si int, env *Env) (int, error) {
	if e == nil {
		return si, CodegenError.New("nil expression")
	}

	if cg.opts.FoldConstants && IsConstant(e) {
		v, err := Eval(e)
		if err != nil {
			return si, err
		}
		glog.V(3).Infof("folded %s to %d", e, v)
		cg.line("    movl $%d, %%eax", v)
		return si, nil
	}

	switch n := e.(type) {
	case *Fixnum, *Boolean, *Character, *EmptyList:
		v, err := Eval(n)
		if err != nil {
			return si, err
		}
		cg.line("    movl $%d, %%eax", v)
		return si, nil

	case *Variable:
		off, ok := env.Lookup(n.Name)
		if !ok {
			return si, SemanticError.New("unbound variable %q", n.Name)
		}
		cg.line("    movl %d(%%esp), %%eax", off)
		return si, nil

	case *UnaryPrim:
		next, err := cg.genExpr(n.Operand, si, env)
		if err != nil {
			return si, err
		}
		return next, cg.genUnary(n.Op)

	case *BinaryPrim:
		// Right operand first, so the left one ends up in %eax.
		right, err := cg.genExpr(n.Right, si, env)
		if err != nil {
			return si, err
		}
		cg.line("    movl %%eax, %d(%%esp)", right)
		left, err := cg.genExpr(n.Left, right-wordSize, env)
		if err != nil {
			return si, err
		}
		if err := cg.genBinary(n.Op, right); err != nil {
			return si, err
		}
		return release(right, left), nil

	case *Let:
		slot, err := cg.genExpr(n.Init, si, env)
		if err != nil {
			return si, err
		}
		cg.comment("let %s -> %d(%%esp)", n.Name, slot)
		cg.line("    movl %%eax, %d(%%esp)", slot)
		inner := env.Extend(n.Name, slot)
		glog.V(3).Infof("let %s at %d, scope depth %d", n.Name, slot, inner.Len())
		body, err := cg.genExpr(n.Body, slot-wordSize, inner)
		if err != nil {
			return si, err
		}
		return release(slot, body), nil

	case *If:
		falseLabel := cg.newLabel()
		endLabel := cg.newLabel()
		test, err := cg.genExpr(n.Test, si, env)
		if err != nil {
			return si, err
		}
		cg.line("    cmpl $0x%x, %%eax", False)
		cg.line("    je %s", falseLabel)
		then, err := cg.genExpr(n.Then, test, env)
		if err != nil {
			return si, err
		}
		cg.line("    jmp %s", endLabel)
		cg.line("%s:", falseLabel)
		els, err := cg.genExpr(n.Else, test, env)
		if err != nil {
			return si, err
		}
		cg.line("%s:", endLabel)
		return min(then, els), nil

	case *Cons:
		car, err := cg.genExpr(n.Car, si, env)
		if err != nil {
			return si, err
		}
		cg.line("    movl %%eax, %d(%%esp)", car)
		// The cdr word sits directly below the car; anything the cdr
		// allocates goes below both.
		cdrSlot := car - wordSize
		next, err := cg.genExpr(n.Cdr, cdrSlot-wordSize, env)
		if err != nil {
			return si, err
		}
		cg.line("    movl %%eax, %d(%%esp)", cdrSlot)
		cg.line("    leal %d(%%esp), %%eax", cdrSlot)
		cg.line("    orl $%d, %%eax", PairTag)
		return next, nil

	case *Car:
		next, err := cg.genExpr(n.Pair, si, env)
		if err != nil {
			return si, err
		}
		cg.line("    andl $%d, %%eax", ^PairTag)
		cg.line("    movl %d(%%eax), %%eax", CarOffset)
		return next, nil

	case *Cdr:
		next, err := cg.genExpr(n.Pair, si, env)
		if err != nil {
			return si, err
		}
		cg.line("    andl $%d, %%eax", ^PairTag)
		cg.line("    movl %d(%%eax), %%eax", CdrOffset)
		return next, nil

	default:
		return si, CodegenError.New("unknown expression node %T", e)
	}
}

// Generate emits a complete program for e. The program leaves the tagged
// value of e in %ebx and exits with its low byte as the status.
func Generate(e Expr, opts Options) (string, error) {
	cg := newCodeGen(opts)

	cg.line("    .text")
	cg.line("    .globl _start")
	cg.line("_start:")

	if _, err := cg.genExpr(e, firstSlot, nil); err != nil {
		return "", err
	}

	cg.line("    movl %%eax, %%ebx")
	cg.line("    movl $1, %%eax")
	cg.line("    int $0x80")

	glog.V(2).Infof("generated %d labels", cg.nextLabel)
	return cg.out.String(), nil
}
