package compiler

import "fmt"

// UnaryOp names a one-operand primitive.
type UnaryOp int

const (
	Add1 UnaryOp = iota
	Sub1
	IntegerToChar
	CharToInteger
	IsZero
	IsNull
	IsInteger
	IsBoolean
	IsChar
)

var unaryOpNames = [...]string{
	Add1:          "add1",
	Sub1:          "sub1",
	IntegerToChar: "integer->char",
	CharToInteger: "char->integer",
	IsZero:        "zero?",
	IsNull:        "null?",
	IsInteger:     "integer?",
	IsBoolean:     "boolean?",
	IsChar:        "char?",
}

func (op UnaryOp) String() string {
	if int(op) >= 0 && int(op) < len(unaryOpNames) {
		return unaryOpNames[op]
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

// BinaryOp names a two-operand primitive.
type BinaryOp int

const (
	Plus BinaryOp = iota
	Minus
	Multiply
	Equal
	Less
	Greater
	LessEqual
	GreaterEqual
	CharEqual
	CharLess
)

var binaryOpNames = [...]string{
	Plus:         "+",
	Minus:        "-",
	Multiply:     "*",
	Equal:        "=",
	Less:         "<",
	Greater:      ">",
	LessEqual:    "<=",
	GreaterEqual: ">=",
	CharEqual:    "char=?",
	CharLess:     "char<?",
}

func (op BinaryOp) String() string {
	if int(op) >= 0 && int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// unaryPrims and binaryPrims resolve the name in call position of a
// parenthesised form to its primitive.
var unaryPrims = map[string]UnaryOp{}
var binaryPrims = map[string]BinaryOp{}

func init() {
	for op, name := range unaryOpNames {
		unaryPrims[name] = UnaryOp(op)
	}
	for op, name := range binaryOpNames {
		binaryPrims[name] = BinaryOp(op)
	}
}

// Expr is implemented by every AST node. The set of implementations is
// closed; consumers switch over all of them.
//
// A composite node exclusively owns its children and never has a nil child.
type Expr interface {
	exprNode()
	String() string
}

// Fixnum is an integer literal.
type Fixnum struct {
	Value int32
}

func (*Fixnum) exprNode()        {}
func (f *Fixnum) String() string { return fmt.Sprintf("%d", f.Value) }

// Boolean is #t or #f.
type Boolean struct {
	Value bool
}

func (*Boolean) exprNode() {}
func (b *Boolean) String() string {
	if b.Value {
		return "#t"
	}
	return "#f"
}

// Character is a #\c literal.
type Character struct {
	Value byte
}

func (*Character) exprNode() {}
func (c *Character) String() string {
	for name, v := range namedChars {
		if v == c.Value {
			return `#\` + name
		}
	}
	return fmt.Sprintf(`#\%c`, c.Value)
}

// EmptyList is the () literal.
type EmptyList struct{}

func (*EmptyList) exprNode()      {}
func (*EmptyList) String() string { return "()" }

// UnaryPrim applies a one-operand primitive.
//
//	(add1 x)
//	 ^^^^ ^
//	 Op   Operand
type UnaryPrim struct {
	Op      UnaryOp
	Operand Expr
}

func (*UnaryPrim) exprNode() {}
func (u *UnaryPrim) String() string {
	return fmt.Sprintf("(%s %s)", u.Op, u.Operand)
}

// BinaryPrim applies a two-operand primitive, either written in prefix form
// or produced by infix + - *.
//
//	(< a b)      2 + 3
//	 ^ ^ ^       ^ ^ ^
//	 | | Right   | | Right
//	 | Left      | Op
//	 Op          Left
type BinaryPrim struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (*BinaryPrim) exprNode() {}
func (b *BinaryPrim) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Op, b.Left, b.Right)
}

// Variable is a reference to a let-bound name. Resolution happens during
// code generation.
type Variable struct {
	Name string
}

func (*Variable) exprNode()        {}
func (v *Variable) String() string { return v.Name }

// Let binds Name to Init for the extent of Body.
//
//	(let (x 5) (+ x 3))
//	      ^ ^  ^^^^^^^
//	   Name Init  Body
type Let struct {
	Name string
	Init Expr
	Body Expr
}

func (*Let) exprNode() {}
func (l *Let) String() string {
	return fmt.Sprintf("(let (%s %s) %s)", l.Name, l.Init, l.Body)
}

// If selects Then unless Test evaluates to #f.
type If struct {
	Test Expr
	Then Expr
	Else Expr
}

func (*If) exprNode() {}
func (i *If) String() string {
	return fmt.Sprintf("(if %s %s %s)", i.Test, i.Then, i.Else)
}

// Cons builds a pair.
type Cons struct {
	Car Expr
	Cdr Expr
}

func (*Cons) exprNode() {}
func (c *Cons) String() string {
	return fmt.Sprintf("(cons %s %s)", c.Car, c.Cdr)
}

// Car reads the first word of a pair.
type Car struct {
	Pair Expr
}

func (*Car) exprNode()        {}
func (c *Car) String() string { return fmt.Sprintf("(car %s)", c.Pair) }

// Cdr reads the second word of a pair.
type Cdr struct {
	Pair Expr
}

func (*Cdr) exprNode()        {}
func (c *Cdr) String() string { return fmt.Sprintf("(cdr %s)", c.Pair) }
