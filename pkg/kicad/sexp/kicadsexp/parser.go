package kicadsexp

import (
	"fmt"
	"io"
)

// Parser builds expression trees from a token stream.
type Parser struct {
	lx *Lexer
}

// NewParser returns a parser reading from r.
func NewParser(r io.Reader) *Parser {
	return &Parser{lx: NewLexer(r)}
}

// ParseAll reads every top-level expression until end of input.
func (p *Parser) ParseAll() ([]Sexp, error) {
	var exprs []Sexp
	for {
		tok, err := p.lx.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenEOF {
			return exprs, nil
		}
		expr, err := p.expr(tok)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
}

// expr completes the expression that starts with tok.
func (p *Parser) expr(tok Token) (Sexp, error) {
	switch tok.Type {
	case TokenSymbol:
		return Symbol(tok.Value), nil
	case TokenString:
		return String(tok.Value), nil
	case TokenLeftParen:
		return p.list(tok.Line)
	case TokenRightParen:
		return nil, fmt.Errorf("line %d: unexpected ')'", tok.Line)
	}
	return nil, fmt.Errorf("line %d: unexpected %v", tok.Line, tok.Type)
}

// list reads elements up to the ')' closing a list opened on line start.
func (p *Parser) list(start int) (*List, error) {
	l := &List{}
	for {
		tok, err := p.lx.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenRightParen:
			return l, nil
		case TokenEOF:
			return nil, fmt.Errorf("line %d: unexpected EOF in list", start)
		}
		elem, err := p.expr(tok)
		if err != nil {
			return nil, err
		}
		l.elements = append(l.elements, elem)
	}
}
