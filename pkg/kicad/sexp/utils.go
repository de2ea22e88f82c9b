package sexp

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/sexp/kicadsexp"
)

// children returns the elements of a list, head included. Leaves have none.
func children(s kicadsexp.Sexp) []kicadsexp.Sexp {
	if s == nil || s.IsLeaf() {
		return nil
	}
	if l, ok := s.(*kicadsexp.List); ok {
		return l.Items()
	}
	var out []kicadsexp.Sexp
	for cur := s; cur != nil && !cur.IsLeaf() && cur.LeafCount() > 0; cur = cur.Tail() {
		out = append(out, cur.Head())
		if cur.LeafCount() == 1 {
			break
		}
	}
	return out
}

func named(item kicadsexp.Sexp, key string) bool {
	if item.IsLeaf() {
		return false
	}
	name, err := GetNodeName(item)
	return err == nil && name == key
}

// FindNode returns the first direct child list whose head is key, so
// FindNode(pin, "name") finds (name "IN") but never a grandchild.
func FindNode(s kicadsexp.Sexp, key string) (kicadsexp.Sexp, bool) {
	for _, item := range children(s) {
		if named(item, key) {
			return item, true
		}
	}
	return nil, false
}

// FindAllNodes returns every direct child list whose head is key, in order.
func FindAllNodes(s kicadsexp.Sexp, key string) []kicadsexp.Sexp {
	var found []kicadsexp.Sexp
	for _, item := range children(s) {
		if named(item, key) {
			found = append(found, item)
		}
	}
	return found
}

// GetNodeName returns the head symbol of a list, or the symbol itself for
// a bare leaf.
func GetNodeName(s kicadsexp.Sexp) (string, error) {
	switch {
	case s == nil:
		return "", errors.New("sexp: nil expression")
	case s.IsLeaf():
		if sym, ok := s.(kicadsexp.Symbol); ok {
			return string(sym), nil
		}
		return "", fmt.Errorf("sexp: leaf %s is not a symbol", s)
	}
	if sym, ok := s.Head().(kicadsexp.Symbol); ok {
		return string(sym), nil
	}
	return "", fmt.Errorf("sexp: list %s has no symbol head", s)
}

// GetString returns the atom at position i of a list, quoted or bare.
// Position 0 is the head.
func GetString(s kicadsexp.Sexp, i int) (string, error) {
	if s == nil || s.IsLeaf() {
		return "", errors.New("sexp: not a list")
	}
	items := children(s)
	if i < 0 || i >= len(items) {
		return "", fmt.Errorf("sexp: position %d outside list of %d", i, len(items))
	}
	v, ok := kicadsexp.Atom(items[i])
	if !ok {
		return "", fmt.Errorf("sexp: position %d holds a list", i)
	}
	return v, nil
}

// GetInt is GetString followed by strconv.Atoi.
func GetInt(s kicadsexp.Sexp, i int) (int, error) {
	v, err := GetString(s, i)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("sexp: position %d: %w", i, err)
	}
	return n, nil
}

// GetChildString returns the first value of the child named key,
// e.g. "C1" for GetChildString((comp (ref "C1")), "ref").
func GetChildString(s kicadsexp.Sexp, key string) (string, bool) {
	node, ok := FindNode(s, key)
	if !ok {
		return "", false
	}
	v, err := GetString(node, 1)
	return v, err == nil
}

// HasSymbol reports whether a bare flag such as hide appears directly in s.
func HasSymbol(s kicadsexp.Sexp, flag string) bool {
	items := children(s)
	if len(items) == 0 {
		return false
	}
	for _, item := range items[1:] {
		if sym, ok := item.(kicadsexp.Symbol); ok && string(sym) == flag {
			return true
		}
	}
	return false
}
