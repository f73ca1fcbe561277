// Package compiler translates a single tagged-value expression into 32-bit
// x86 AT&T assembly whose process exit status is the low byte of the
// expression's tagged value.
//
// Pipeline: source → Lexer → Parser → Expr tree → CodeGen → assembly text
package compiler
