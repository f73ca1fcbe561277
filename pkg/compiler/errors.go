package compiler

import "github.com/joomcode/errorx"

// Errors raised by the pipeline. The first error anywhere aborts the
// compilation; callers tell the stages apart with errorx.IsOfType.
var (
	Errors = errorx.NewNamespace("tagc")

	LexError      = Errors.NewType("lex")
	SyntaxError   = Errors.NewType("syntax")
	SemanticError = Errors.NewType("semantic")
	CodegenError  = Errors.NewType("codegen")

	// PositionProperty holds the byte offset into the source of the
	// offending token, when one is known.
	PositionProperty = errorx.RegisterProperty("position")
)
