package compiler

import (
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsConstant(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"42", true},
		{"#t", true},
		{`#\a`, true},
		{"()", true},
		{"(add1 (* 2 3))", true},
		{"(< (char->integer #\\a) 100)", true},
		{"x", false},
		{"(add1 x)", false},
		{"(let (x 1) 2)", false},
		{"(if #t 1 2)", false},
		{"(cons 1 2)", false},
		{"(car (cons 1 2))", false},
		{"(+ 1 (if #t 1 2))", false},
	}
	for _, tt := range tests {
		e, err := Parse(tt.src)
		require.NoError(t, err, tt.src)
		assert.Equal(t, tt.want, IsConstant(e), tt.src)
	}
}

func TestEval(t *testing.T) {
	tests := []struct {
		src  string
		want int32
	}{
		{"42", TagFixnum(42)},
		{"(+ 1 2)", TagFixnum(3)},
		{"(- 3 5)", TagFixnum(-2)},
		{"(* 6 7)", TagFixnum(42)},
		{"(* (- 0 3) 4)", TagFixnum(-12)},
		{"(add1 41)", TagFixnum(42)},
		{"(sub1 0)", TagFixnum(-1)},
		{"(integer->char 65)", TagChar('A')},
		{`(char->integer #\A)`, TagFixnum(65)},
		{"(zero? 0)", True},
		{"(zero? 1)", False},
		{"(null? ())", True},
		{"(null? 0)", False},
		{"(integer? 5)", True},
		{"(integer? #t)", False},
		{"(boolean? #t)", True},
		{"(boolean? #f)", True},
		{"(boolean? 0)", False},
		{"(boolean? ())", False},
		{`(char? #\x)`, True},
		{"(char? 7)", False},
		{"(= 3 3)", True},
		{"(< 1 2)", True},
		{"(< 2 1)", False},
		{"(> 2 1)", True},
		{"(<= 2 2)", True},
		{"(>= 1 2)", False},
		{"(< (- 0 5) 2)", True},
		{`(char=? #\a #\a)`, True},
		{`(char<? #\a #\b)`, True},
		{`(char<? #\b #\a)`, False},
	}
	for _, tt := range tests {
		e, err := Parse(tt.src)
		require.NoError(t, err, tt.src)
		got, err := Eval(e)
		require.NoError(t, err, tt.src)
		assert.Equal(t, tt.want, got, tt.src)
	}
}

func TestEvalWraps(t *testing.T) {
	// 536870911 + 1 overflows the fixnum range and wraps like addl does.
	e, err := Parse("(+ 536870911 1)")
	require.NoError(t, err)
	got, err := Eval(e)
	require.NoError(t, err)
	assert.Equal(t, int32(-1<<31), got)
}

func TestEvalRejectsNonConstant(t *testing.T) {
	for _, src := range []string{"x", "(if #t 1 2)", "(cons 1 2)", "(+ 1 (let (x 1) x))"} {
		e, err := Parse(src)
		require.NoError(t, err)
		_, err = Eval(e)
		require.Error(t, err, src)
		assert.True(t, errorx.IsOfType(err, CodegenError), src)
	}
}
