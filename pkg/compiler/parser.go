package compiler

import (
	"strings"

	"github.com/golang/glog"
)

// Parser pulls tokens from a Lexer one at a time and builds an AST.
//
// Grammar (one token of lookahead, no backtracking):
//
//	program = ["return"] expr [";"] EOF
//	expr    = term (("+" | "-") term)*
//	term    = primary ("*" primary)*
//	primary = NUMBER | "#t" | "#f" | CHAR | "()" | IDENTIFIER
//	        | "(" ("+" | "-" | "*" | "=" | "<" | "<=" | ">" | ">=") expr expr ")"
//	        | "(" "let" "(" IDENTIFIER expr ")" expr ")"
//	        | "(" "if" expr expr expr ")"
//	        | "(" "cons" expr expr ")" | "(" ("car" | "cdr") expr ")"
//	        | "(" IDENTIFIER expr+ ")"     named primitive, arity from its table
//	        | "(" expr ")"
type Parser struct {
	lex         *Lexer
	tok         Token // current lookahead
	sourceLines []string
}

func NewParser(src string) *Parser {
	return &Parser{lex: NewLexer(src), sourceLines: strings.Split(src, "\n")}
}

// fmtError builds a syntax error carrying the line of the offending token.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	snippet := "<source unavailable>"
	if idx := tok.Line - 1; idx >= 0 && idx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[idx])
	}
	return SyntaxError.New("line %d: "+format+"\n  |> %s", append(append([]any{tok.Line}, args...), snippet)...).
		WithProperty(PositionProperty, tok.Pos)
}

// advance moves the lookahead to the next token.
func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) error {
	if p.tok.Type != tt {
		return p.fmtError(p.tok, "expected %s, got %s (%q)", tt, p.tok.Type, p.tok.Lexeme)
	}
	return p.advance()
}

// parseExpr handles + and -, left-associative.
func (p *Parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == PLUS || p.tok.Type == MINUS {
		op := Plus
		if p.tok.Type == MINUS {
			op = Minus
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryPrim{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parseTerm handles *, which binds tighter than + and -.
func (p *Parser) parseTerm() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == STAR {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &BinaryPrim{Op: Multiply, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.tok
	var e Expr
	switch tok.Type {
	case NUMBER:
		e = &Fixnum{Value: int32(tok.Value)}
	case TRUE:
		e = &Boolean{Value: true}
	case FALSE:
		e = &Boolean{Value: false}
	case CHAR:
		e = &Character{Value: tok.Char}
	case EMPTY_LIST:
		e = &EmptyList{}
	case IDENTIFIER:
		e = &Variable{Name: tok.Lexeme}
	case LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseForm()
	default:
		return nil, p.fmtError(tok, "unexpected %s (%q) in expression", tok.Type, tok.Lexeme)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return e, nil
}

// operatorPrims maps the operator tokens accepted in prefix position.
var operatorPrims = map[TokenType]BinaryOp{
	PLUS:    Plus,
	MINUS:   Minus,
	STAR:    Multiply,
	EQUALS:  Equal,
	LESS:    Less,
	GREATER: Greater,
}

// parseForm parses whatever follows an opening parenthesis.
func (p *Parser) parseForm() (Expr, error) {
	if op, ok := operatorPrims[p.tok.Type]; ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		// An operand can never start with '=', so "<" "=" is unambiguously <=.
		if p.tok.Type == EQUALS && (op == Less || op == Greater) {
			if op == Less {
				op = LessEqual
			} else {
				op = GreaterEqual
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		return p.parseBinaryArgs(op)
	}

	if p.tok.Type != IDENTIFIER {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return e, p.expect(RPAREN)
	}

	head := p.tok
	if err := p.advance(); err != nil {
		return nil, err
	}
	if head.Lexeme == "char" {
		if err := p.joinCharCompare(&head); err != nil {
			return nil, err
		}
	}
	glog.V(3).Infof("parsing form %s", head.Lexeme)

	switch head.Lexeme {
	case "let":
		return p.parseLet()
	case "if":
		args, err := p.parseArgs(3)
		if err != nil {
			return nil, err
		}
		return &If{Test: args[0], Then: args[1], Else: args[2]}, nil
	case "cons":
		args, err := p.parseArgs(2)
		if err != nil {
			return nil, err
		}
		return &Cons{Car: args[0], Cdr: args[1]}, nil
	case "car":
		args, err := p.parseArgs(1)
		if err != nil {
			return nil, err
		}
		return &Car{Pair: args[0]}, nil
	case "cdr":
		args, err := p.parseArgs(1)
		if err != nil {
			return nil, err
		}
		return &Cdr{Pair: args[0]}, nil
	}

	if op, ok := unaryPrims[head.Lexeme]; ok {
		args, err := p.parseArgs(1)
		if err != nil {
			return nil, err
		}
		return &UnaryPrim{Op: op, Operand: args[0]}, nil
	}
	if op, ok := binaryPrims[head.Lexeme]; ok {
		return p.parseBinaryArgs(op)
	}
	return nil, p.fmtError(head, "unknown primitive: %s", head.Lexeme)
}

// joinCharCompare rebuilds char=? and char<?, which the lexer splits
// because '=' and '<' are not identifier characters. The three pieces
// must be adjacent.
func (p *Parser) joinCharCompare(head *Token) error {
	op := p.tok
	if (op.Type != EQUALS && op.Type != LESS) || op.Pos != head.Pos+len(head.Lexeme) {
		return nil
	}
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.Type != QUESTION || p.tok.Pos != op.Pos+1 {
		return p.fmtError(p.tok, "expected '?' after char%s", op.Lexeme)
	}
	head.Lexeme += op.Lexeme + "?"
	return p.advance()
}

// parseArgs parses exactly n operand expressions followed by ")".
func (p *Parser) parseArgs(n int) ([]Expr, error) {
	args := make([]Expr, 0, n)
	for i := 0; i < n; i++ {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseBinaryArgs(op BinaryOp) (Expr, error) {
	args, err := p.parseArgs(2)
	if err != nil {
		return nil, err
	}
	return &BinaryPrim{Op: op, Left: args[0], Right: args[1]}, nil
}

// parseLet parses the remainder of (let (name init) body); "let" is consumed.
func (p *Parser) parseLet() (Expr, error) {
	if err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	if p.tok.Type != IDENTIFIER {
		return nil, p.fmtError(p.tok, "expected variable name in let binding, got %s", p.tok.Type)
	}
	name := p.tok.Lexeme
	if err := p.advance(); err != nil {
		return nil, err
	}
	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return &Let{Name: name, Init: init, Body: body}, nil
}

// parseProgram parses a whole program, rejecting trailing input.
func (p *Parser) parseProgram() (Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Type == RETURN {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.Type == SEMICOLON {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.Type != EOF {
		return nil, p.fmtError(p.tok, "expected end of input, got %s (%q)", p.tok.Type, p.tok.Lexeme)
	}
	return e, nil
}

// Parse lexes and parses src into a single expression tree.
func Parse(src string) (Expr, error) {
	e, err := NewParser(src).parseProgram()
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("parsed %s", e)
	return e, nil
}
