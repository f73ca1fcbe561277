package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	RETURN // "return", accepted only as a legacy program prefix

	// Literals
	NUMBER     // unsigned decimal digit run
	TRUE       // #t
	FALSE      // #f
	CHAR       // #\c, #\space, #\newline, #\tab
	EMPTY_LIST // ()
	IDENTIFIER // variable, special form or primitive name

	// Operators
	PLUS     // +
	MINUS    // -
	STAR     // *
	SLASH    // /
	EQUALS   // =
	LESS     // <
	GREATER  // >
	QUESTION // ?

	// Punctuation
	LPAREN    // (
	RPAREN    // )
	SEMICOLON // ;
)

// tokenNames is indexed by TokenType and matches the names used in token dumps.
var tokenNames = [...]string{
	EOF:        "TOK_EOF",
	RETURN:     "TOK_RETURN",
	NUMBER:     "TOK_NUMBER",
	TRUE:       "TOK_TRUE",
	FALSE:      "TOK_FALSE",
	CHAR:       "TOK_CHAR",
	EMPTY_LIST: "TOK_EMPTY_LIST",
	IDENTIFIER: "TOK_IDENTIFIER",
	PLUS:       "TOK_PLUS",
	MINUS:      "TOK_MINUS",
	STAR:       "TOK_STAR",
	SLASH:      "TOK_SLASH",
	EQUALS:     "TOK_EQUALS",
	LESS:       "TOK_LESS",
	GREATER:    "TOK_GREATER",
	QUESTION:   "TOK_QUESTION",
	LPAREN:     "TOK_LPAREN",
	RPAREN:     "TOK_RPAREN",
	SEMICOLON:  "TOK_SEMICOLON",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical unit produced by the Lexer.
// Only the payload field matching Type is meaningful.
type Token struct {
	Type   TokenType
	Value  int    // NUMBER
	Char   byte   // CHAR
	Lexeme string // IDENTIFIER; the matched text for everything else
	Pos    int    // byte offset of the first character
	Line   int    // 1-based source line
}

func (t Token) String() string {
	switch t.Type {
	case NUMBER:
		return fmt.Sprintf("%-16s %d  line %d", t.Type, t.Value, t.Line)
	case CHAR:
		return fmt.Sprintf("%-16s %q  line %d", t.Type, t.Char, t.Line)
	}
	return fmt.Sprintf("%-16s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
