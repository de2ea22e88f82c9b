package kicadsexp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// TokenType classifies a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenLeftParen
	TokenRightParen
	TokenSymbol
	TokenString
)

var tokenNames = [...]string{
	TokenEOF:        "EOF",
	TokenLeftParen:  "'('",
	TokenRightParen: "')'",
	TokenSymbol:     "symbol",
	TokenString:     "string",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is one lexical token and the line it started on.
type Token struct {
	Type  TokenType
	Value string
	Line  int
}

// Lexer splits KiCad S-expression text into tokens. Lines starting with
// '#' outside strings are comments.
type Lexer struct {
	r    *bufio.Reader
	line int
}

// NewLexer returns a lexer reading from r.
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{r: bufio.NewReader(r), line: 1}
}

// Line is the 1-based line of the read position.
func (l *Lexer) Line() int {
	return l.line
}

func (l *Lexer) next() (rune, error) {
	ch, _, err := l.r.ReadRune()
	if err == nil && ch == '\n' {
		l.line++
	}
	return ch, err
}

func (l *Lexer) back(ch rune) {
	_ = l.r.UnreadRune()
	if ch == '\n' {
		l.line--
	}
}

// skip consumes whitespace and comments and returns the first rune after.
func (l *Lexer) skip() (rune, error) {
	for {
		ch, err := l.next()
		if err != nil {
			return 0, err
		}
		switch {
		case unicode.IsSpace(ch):
		case ch == '#':
			for ch != '\n' {
				if ch, err = l.next(); err != nil {
					return 0, err
				}
			}
		default:
			return ch, nil
		}
	}
}

// NextToken returns the next token, or a TokenEOF token at end of input.
func (l *Lexer) NextToken() (Token, error) {
	ch, err := l.skip()
	if errors.Is(err, io.EOF) {
		return Token{Type: TokenEOF, Line: l.line}, nil
	}
	if err != nil {
		return Token{}, err
	}

	switch ch {
	case '(':
		return Token{Type: TokenLeftParen, Value: "(", Line: l.line}, nil
	case ')':
		return Token{Type: TokenRightParen, Value: ")", Line: l.line}, nil
	case '"':
		return l.quoted()
	}
	l.back(ch)
	return l.bare()
}

var escapes = map[rune]rune{'n': '\n', 't': '\t', 'r': '\r'}

// quoted reads the rest of a string after its opening quote.
func (l *Lexer) quoted() (Token, error) {
	start := l.line
	var sb strings.Builder
	for {
		ch, err := l.next()
		if err != nil {
			return Token{}, fmt.Errorf("line %d: unexpected EOF in string: %w", start, err)
		}
		switch ch {
		case '"':
			return Token{Type: TokenString, Value: sb.String(), Line: start}, nil
		case '\\':
			esc, err := l.next()
			if err != nil {
				return Token{}, fmt.Errorf("line %d: unexpected EOF after backslash: %w", l.line, err)
			}
			if r, ok := escapes[esc]; ok {
				esc = r
			}
			sb.WriteRune(esc)
		default:
			sb.WriteRune(ch)
		}
	}
}

// bare reads an unquoted atom up to whitespace, a paren or a quote.
func (l *Lexer) bare() (Token, error) {
	var sb strings.Builder
	for {
		ch, err := l.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Token{}, err
		}
		if unicode.IsSpace(ch) || strings.ContainsRune(`()"`, ch) {
			l.back(ch)
			break
		}
		sb.WriteRune(ch)
	}
	if sb.Len() == 0 {
		return Token{}, fmt.Errorf("line %d: empty symbol", l.line)
	}
	return Token{Type: TokenSymbol, Value: sb.String(), Line: l.line}, nil
}
