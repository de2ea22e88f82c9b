// Package kicadsexp provides a lightweight streaming S-expression reader and
// writer for KiCad files (symbol libraries, netlists). Quoted strings are
// kept distinct from bare symbols so that a tree read from disk can be
// written back with the same quoting.
package kicadsexp

import (
	"io"
	"strings"
)

// Sexp represents an S-expression node.
// It can be either a leaf (atom) or a list.
type Sexp interface {
	// IsLeaf returns true if this is an atom (not a list)
	IsLeaf() bool

	// LeafCount returns the number of elements in a list (1 for atoms)
	LeafCount() int

	// Head returns the first element of a list (the atom itself for atoms)
	Head() Sexp

	// Tail returns the rest of the list after the first element (nil for atoms)
	Tail() Sexp

	// String returns the string representation
	String() string
}

// Symbol represents a bare atom (keyword, number, identifier)
type Symbol string

func (s Symbol) IsLeaf() bool   { return true }
func (s Symbol) LeafCount() int { return 1 }
func (s Symbol) Head() Sexp     { return s }
func (s Symbol) Tail() Sexp     { return nil }
func (s Symbol) String() string { return string(s) }

// String represents a quoted atom. Its value is stored unescaped.
type String string

func (s String) IsLeaf() bool   { return true }
func (s String) LeafCount() int { return 1 }
func (s String) Head() Sexp     { return s }
func (s String) Tail() Sexp     { return nil }
func (s String) String() string { return quote(string(s)) }

// List represents a list of S-expressions
type List struct {
	elements []Sexp
}

// NewList builds a list from the given elements.
func NewList(elements ...Sexp) *List {
	return &List{elements: elements}
}

func (l *List) IsLeaf() bool { return false }

func (l *List) LeafCount() int {
	return len(l.elements)
}

func (l *List) Head() Sexp {
	if len(l.elements) == 0 {
		return nil
	}
	return l.elements[0]
}

func (l *List) Tail() Sexp {
	if len(l.elements) <= 1 {
		return nil
	}
	return &List{elements: l.elements[1:]}
}

func (l *List) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, elem := range l.elements {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(elem.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Get returns the element at the given index
func (l *List) Get(index int) Sexp {
	if index < 0 || index >= len(l.elements) {
		return nil
	}
	return l.elements[index]
}

// Len returns the number of elements in the list
func (l *List) Len() int {
	return len(l.elements)
}

// Items returns the list elements. The slice must not be modified.
func (l *List) Items() []Sexp {
	return l.elements
}

// Append adds elements to the end of the list.
func (l *List) Append(elements ...Sexp) *List {
	l.elements = append(l.elements, elements...)
	return l
}

// Atom returns the text of a leaf, quoted or not.
func Atom(s Sexp) (string, bool) {
	switch v := s.(type) {
	case Symbol:
		return string(v), true
	case String:
		return string(v), true
	}
	return "", false
}

// Parse parses all top-level S-expressions from an io.Reader.
func Parse(r io.Reader) ([]Sexp, error) {
	return NewParser(r).ParseAll()
}

// ParseString parses S-expressions from a string.
func ParseString(s string) ([]Sexp, error) {
	return Parse(strings.NewReader(s))
}

func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
