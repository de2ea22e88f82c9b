package kicadsexp

import (
	"bufio"
	"io"
	"strings"
)

const (
	defaultIndent   = "  "
	defaultMaxWidth = 72
	leadingInline   = 2
)

// Writer pretty-prints S-expressions in the layout KiCad uses for its
// own files: short shallow lists stay on one line, longer lists keep
// their head and up to two leading flat children on the opening line and
// put every other child on its own indented line.
type Writer struct {
	w        *bufio.Writer
	indent   string
	maxWidth int
	err      error
}

// NewWriter creates a writer with two-space indentation.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:        bufio.NewWriter(w),
		indent:   defaultIndent,
		maxWidth: defaultMaxWidth,
	}
}

// Write emits one top-level expression followed by a newline.
func (wr *Writer) Write(s Sexp) error {
	wr.node(s, 0)
	wr.put("\n")
	return wr.err
}

// Flush flushes buffered output.
func (wr *Writer) Flush() error {
	if wr.err != nil {
		return wr.err
	}
	return wr.w.Flush()
}

// Format renders a single expression as a string using the writer layout.
func Format(s Sexp) string {
	var b strings.Builder
	wr := NewWriter(&b)
	wr.Write(s)
	wr.Flush()
	return b.String()
}

func (wr *Writer) put(s string) {
	if wr.err != nil {
		return
	}
	_, wr.err = wr.w.WriteString(s)
}

func (wr *Writer) node(s Sexp, level int) {
	list, ok := s.(*List)
	if !ok {
		wr.put(s.String())
		return
	}
	if wr.fits(list) {
		wr.put(list.String())
		return
	}

	wr.put("(")
	i := 0
	// Head atoms
	for ; i < len(list.elements) && list.elements[i].IsLeaf(); i++ {
		if i > 0 {
			wr.put(" ")
		}
		wr.put(list.elements[i].String())
	}
	// Leading flat children
	for n := 0; n < leadingInline && i < len(list.elements); n++ {
		child, ok := list.elements[i].(*List)
		if !ok || depth(child) > 1 {
			break
		}
		wr.put(" ")
		wr.put(child.String())
		i++
	}
	pad := strings.Repeat(wr.indent, level+1)
	for ; i < len(list.elements); i++ {
		wr.put("\n")
		wr.put(pad)
		wr.node(list.elements[i], level+1)
	}
	wr.put(")")
}

func (wr *Writer) fits(l *List) bool {
	if depth(l) > 2 {
		return false
	}
	return len(l.String()) <= wr.maxWidth
}

func depth(s Sexp) int {
	l, ok := s.(*List)
	if !ok {
		return 0
	}
	deepest := 0
	for _, e := range l.elements {
		if d := depth(e); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}
