package compiler

import (
	"fmt"
	"io"

	"github.com/golang/glog"
)

// maxFixnum is the largest literal that survives the two-bit fixnum shift
// in a 32-bit word.
const maxFixnum = 1<<(31-FixnumShift) - 1

// namedChars maps the #\name character spellings to their byte values.
var namedChars = map[string]byte{
	"space":   ' ',
	"newline": '\n',
	"tab":     '\t',
}

// Lexer holds the cursor for a single scanning pass over src.
// Tokens are produced on demand by Next; there is no pushback.
type Lexer struct {
	src  string
	pos  int // index of the next byte to consume
	line int // current 1-based source line
}

func NewLexer(src string) *Lexer {
	l := &Lexer{}
	l.Reset(src)
	return l
}

// Reset rewinds the lexer onto a new source string.
func (l *Lexer) Reset(src string) {
	l.src = src
	l.pos = 0
	l.line = 1
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isIdentStart(c byte) bool { return isLetter(c) || c == '_' }

func isIdentChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c == '?' || c == '-' || c == '>'
}

// peek returns the byte at the current position without advancing.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the byte one position ahead of the current position.
func (l *Lexer) peek2() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
	}
	return c
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && isSpace(l.peek()) {
		l.advance()
	}
}

func (l *Lexer) errorf(pos int, format string, args ...any) error {
	return LexError.New("line %d: "+format, append([]any{l.line}, args...)...).
		WithProperty(PositionProperty, pos)
}

// scanImmediate handles everything introduced by '#': booleans and characters.
// The '#' must still be at l.peek().
func (l *Lexer) scanImmediate() (Token, error) {
	start, line := l.pos, l.line
	l.advance() // #
	if l.pos >= len(l.src) {
		return Token{}, l.errorf(start, "incomplete immediate constant")
	}

	switch next := l.advance(); next {
	case 't', 'f':
		if l.pos < len(l.src) && isIdentChar(l.peek()) {
			return Token{}, l.errorf(start, "invalid immediate constant %q", l.src[start:l.pos+1])
		}
		tt := TRUE
		if next == 'f' {
			tt = FALSE
		}
		return Token{Type: tt, Lexeme: l.src[start:l.pos], Pos: start, Line: line}, nil

	case '\\':
		if l.pos >= len(l.src) {
			return Token{}, l.errorf(start, "incomplete character constant")
		}
		if !isLetter(l.peek()) {
			c := l.advance()
			return Token{Type: CHAR, Char: c, Lexeme: l.src[start:l.pos], Pos: start, Line: line}, nil
		}
		nameStart := l.pos
		for l.pos < len(l.src) && isLetter(l.peek()) {
			l.advance()
		}
		name := l.src[nameStart:l.pos]
		if len(name) == 1 {
			return Token{Type: CHAR, Char: name[0], Lexeme: l.src[start:l.pos], Pos: start, Line: line}, nil
		}
		c, ok := namedChars[name]
		if !ok {
			return Token{}, l.errorf(start, "unknown named character %q", name)
		}
		return Token{Type: CHAR, Char: c, Lexeme: l.src[start:l.pos], Pos: start, Line: line}, nil

	default:
		return Token{}, l.errorf(start, "unknown immediate constant %q", l.src[start:l.pos])
	}
}

// scanNumber collects an unsigned decimal digit run.
func (l *Lexer) scanNumber() (Token, error) {
	start, line := l.pos, l.line
	n := 0
	for l.pos < len(l.src) && isDigit(l.peek()) {
		n = n*10 + int(l.advance()-'0')
		if n > maxFixnum {
			return Token{}, l.errorf(start, "integer literal out of fixnum range (max %d)", maxFixnum)
		}
	}
	return Token{Type: NUMBER, Value: n, Lexeme: l.src[start:l.pos], Pos: start, Line: line}, nil
}

// scanIdent collects an identifier. The first character must still be at l.peek().
func (l *Lexer) scanIdent() Token {
	start, line := l.pos, l.line
	for l.pos < len(l.src) && isIdentChar(l.peek()) {
		l.advance()
	}
	lexeme := l.src[start:l.pos]
	if lexeme == "return" {
		return Token{Type: RETURN, Lexeme: lexeme, Pos: start, Line: line}
	}
	glog.V(3).Infof("lexed identifier %s", lexeme)
	return Token{Type: IDENTIFIER, Lexeme: lexeme, Pos: start, Line: line}
}

// Next skips whitespace and returns the next Token. Once the input is
// exhausted every call returns an EOF token.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Pos: l.pos, Line: l.line}, nil
	}

	ch := l.peek()
	pos, line := l.pos, l.line

	switch {
	case ch == '#':
		return l.scanImmediate()
	case ch == '(' && l.peek2() == ')':
		l.advance()
		l.advance()
		return Token{Type: EMPTY_LIST, Lexeme: "()", Pos: pos, Line: line}, nil
	case isDigit(ch):
		return l.scanNumber()
	case isIdentStart(ch):
		return l.scanIdent(), nil
	}

	l.advance()
	var tt TokenType
	switch ch {
	case '+':
		tt = PLUS
	case '-':
		tt = MINUS
	case '*':
		tt = STAR
	case '/':
		tt = SLASH
	case '=':
		tt = EQUALS
	case '<':
		tt = LESS
	case '>':
		tt = GREATER
	case '?':
		tt = QUESTION
	case '(':
		tt = LPAREN
	case ')':
		tt = RPAREN
	case ';':
		tt = SEMICOLON
	default:
		return Token{}, l.errorf(pos, "unexpected character %q", ch)
	}
	return Token{Type: tt, Lexeme: string(ch), Pos: pos, Line: line}, nil
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a non-nil error on the first malformed literal or illegal character.
func Lex(src string) ([]Token, error) {
	l := NewLexer(src)
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

// describeChar renders a character payload the way token dumps show it.
func describeChar(c byte) string {
	switch {
	case c == ' ':
		return "'space'"
	case c == '\n':
		return "'newline'"
	case c == '\t':
		return "'tab'"
	case c >= 32 && c < 127:
		return fmt.Sprintf("'%c'", c)
	}
	return fmt.Sprintf("0x%02x", c)
}

// DumpTokens writes a report of every token in src to w, ending with the
// EOF token and a summary count. Lexing stops at the first error, which is
// returned after the tokens seen so far have been written.
func DumpTokens(w io.Writer, src string) error {
	fmt.Fprintf(w, "# Token Stream\n\nSource: %s\n\n## Tokens\n\n", src)

	l := NewLexer(src)
	count := 0
	for {
		tok, err := l.Next()
		if err != nil {
			return err
		}
		count++
		fmt.Fprintf(w, "Token %d: %s", count, tok.Type)
		switch tok.Type {
		case NUMBER:
			fmt.Fprintf(w, " (value: %d)", tok.Value)
		case CHAR:
			fmt.Fprintf(w, " (value: %s)", describeChar(tok.Char))
		case IDENTIFIER:
			fmt.Fprintf(w, " (name: %s)", tok.Lexeme)
		}
		fmt.Fprintln(w)
		if tok.Type == EOF {
			break
		}
	}

	_, err := fmt.Fprintf(w, "\n## Summary\n\nTotal tokens: %d\n", count)
	return err
}
