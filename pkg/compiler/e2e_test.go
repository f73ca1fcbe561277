package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samifruit440/Compiler/pkg/asm"
	"github.com/samifruit440/Compiler/pkg/cpu"
)

// runCode compiles src, assembles the listing and executes it, returning
// the process exit status.
func runCode(t *testing.T, src string, opts Options) byte {
	t.Helper()
	listing, err := Compile(src, opts)
	require.NoError(t, err, src)

	prog, err := asm.Assemble(listing)
	require.NoError(t, err, "listing for %s:\n%s", src, listing)

	c := cpu.NewCPU()
	c.Load(prog)
	code, err := c.Run(context.Background())
	require.NoError(t, err, "running %s", src)
	return code
}

// exitStatus is the low byte of a tagged word, which is what the
// compiled program reports.
func exitStatus(tagged int32) byte {
	return byte(uint32(tagged))
}

var bothModes = []struct {
	name string
	opts Options
}{
	{"plain", Options{}},
	{"folded", Options{FoldConstants: true}},
}

func TestE2E_Scenarios(t *testing.T) {
	tests := []struct {
		src  string
		want byte
	}{
		{"42", 168},
		{"#t", 63},
		{"#f", 31},
		{"(let (x 5) (+ x 3))", 32},
		{"(if #f 10 5)", 20},
		{"(car (cons 5 10))", 20},
		{"(cdr (cons 5 10))", 40},
		{"2 + 3 * 4", 56},
		{"return 7;", 28},
		{"()", 0x2F},
	}

	for _, mode := range bothModes {
		t.Run(mode.name, func(t *testing.T) {
			for _, tt := range tests {
				assert.Equal(t, tt.want, runCode(t, tt.src, mode.opts), tt.src)
			}
		})
	}
}

func TestE2E_Arithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want int32
	}{
		{"(+ 10 20)", 30},
		{"(- 10 3)", 7},
		{"(- 3 10) + 10", 3},
		{"(* 6 7)", 42},
		{"(* (- 0 2) (- 0 3))", 6},
		{"10 - 3 - 2", 5},
		{"(1 + 2) * 3", 9},
		{"(add1 (add1 5))", 7},
		{"(sub1 1)", 0},
		{`(char->integer #\A)`, 65},
		{"(char->integer (integer->char 33))", 33},
		{"(let (x 3) (let (y 4) (* x y)))", 12},
		{"(let (x 1) (let (x (+ x 10)) x))", 11},
		{"(let (x 2) (+ (let (y 3) (* x y)) x))", 8},
	}

	for _, mode := range bothModes {
		t.Run(mode.name, func(t *testing.T) {
			for _, tt := range tests {
				assert.Equal(t, exitStatus(TagFixnum(tt.want)), runCode(t, tt.src, mode.opts), tt.src)
			}
		})
	}
}

func TestE2E_Predicates(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"(zero? 0)", true},
		{"(zero? 3)", false},
		{"(null? ())", true},
		{"(null? 0)", false},
		{"(integer? 12)", true},
		{`(integer? #\a)`, false},
		{"(boolean? #t)", true},
		{"(boolean? #f)", true},
		{"(boolean? 1)", false},
		{"(char? #\\space)", true},
		{"(char? ())", false},
		{"(= 4 4)", true},
		{"(= 4 5)", false},
		{"(< 1 2)", true},
		{"(< 2 1)", false},
		{"(< (- 0 5) 1)", true},
		{"(> 2 1)", true},
		{"(> 1 2)", false},
		{"(<= 3 3)", true},
		{"(<= 4 3)", false},
		{"(>= 3 3)", true},
		{"(>= 2 3)", false},
		{`(char=? #\x #\x)`, true},
		{`(char<? #\a #\b)`, true},
		{`(char<? #\b #\a)`, false},
		{"(if (< 1 2) #t #f)", true},
	}

	for _, mode := range bothModes {
		t.Run(mode.name, func(t *testing.T) {
			for _, tt := range tests {
				assert.Equal(t, exitStatus(TagBool(tt.want)), runCode(t, tt.src, mode.opts), tt.src)
			}
		})
	}
}

func TestE2E_Characters(t *testing.T) {
	// Only the low byte is observable, and every character shares it.
	for _, src := range []string{`#\a`, `#\newline`, "(integer->char 90)"} {
		assert.Equal(t, byte(CharTag), runCode(t, src, Options{}), src)
	}
}

func TestE2E_Control(t *testing.T) {
	tests := []struct {
		src  string
		want int32
	}{
		{"(if #t 1 2)", 1},
		{"(if 0 1 2)", 1},
		{"(if () 1 2)", 1},
		{"(if (zero? 0) (if #f 3 4) 5)", 4},
		{"(if (if #f #t #f) 1 2)", 2},
		{"(+ (if #t 1 2) (if #f 3 4))", 5},
		{"(let (x 10) (if (> x 5) (- x 5) x))", 5},
	}

	for _, mode := range bothModes {
		t.Run(mode.name, func(t *testing.T) {
			for _, tt := range tests {
				assert.Equal(t, exitStatus(TagFixnum(tt.want)), runCode(t, tt.src, mode.opts), tt.src)
			}
		})
	}
}

func TestE2E_Pairs(t *testing.T) {
	tests := []struct {
		src  string
		want int32
	}{
		{"(car (cdr (cons 1 (cons 2 ()))))", 2},
		{"(let (p (cons 3 4)) (+ (car p) (cdr p)))", 7},
		{"(let (p (cons 1 2)) (let (q (cons 30 40)) (+ (car p) (cdr q))))", 41},
		{"(+ (car (cons 5 6)) (cdr (cons 7 8)))", 13},
		{"(car (car (cons (cons 9 10) 11)))", 9},
		{"(let (p (cons (+ 1 2) (* 3 4))) (- (cdr p) (car p)))", 9},
	}

	for _, mode := range bothModes {
		t.Run(mode.name, func(t *testing.T) {
			for _, tt := range tests {
				assert.Equal(t, exitStatus(TagFixnum(tt.want)), runCode(t, tt.src, mode.opts), tt.src)
			}
		})
	}

	assert.Equal(t, byte(0x2F), runCode(t, "(cdr (cdr (cons 1 (cons 2 ()))))", Options{}))
}

// Folding must never change what a constant expression computes.
func TestE2E_FoldingEquivalence(t *testing.T) {
	exprs := []string{
		"(+ 536870911 1)",
		"(* 100000 100000)",
		"(- 0 536870911)",
		"(sub1 0)",
		"(char->integer (integer->char 255))",
		"(< (- 0 1) 0)",
		"(> 536870911 (- 0 536870911))",
		"(boolean? (zero? (* 0 99)))",
		"(integer? (integer->char 7))",
		"(null? (char? ()))",
		`(char<? (integer->char 97) #\b)`,
		"(add1 (* (+ 2 3) (- 7 (* 2 2))))",
	}

	for _, src := range exprs {
		e, err := Parse(src)
		require.NoError(t, err)
		folded, err := Eval(e)
		require.NoError(t, err)

		plain := runCode(t, src, Options{})
		assert.Equal(t, exitStatus(folded), plain, src)
		assert.Equal(t, plain, runCode(t, src, Options{FoldConstants: true}), src)
	}
}
