// Package sexp provides shared S-expression helpers for KiCad files:
// navigation over parsed trees and builders for emitting new ones.
package sexp

import (
	"strconv"

	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/sexp/kicadsexp"
)

// L builds a list node whose head is the bare symbol key.
// Example: L("pin", Str("1")) renders as (pin "1")
func L(key string, items ...kicadsexp.Sexp) *kicadsexp.List {
	elems := make([]kicadsexp.Sexp, 0, len(items)+1)
	elems = append(elems, kicadsexp.Symbol(key))
	elems = append(elems, items...)
	return kicadsexp.NewList(elems...)
}

// Sym builds a bare atom.
func Sym(s string) kicadsexp.Symbol {
	return kicadsexp.Symbol(s)
}

// Str builds a quoted atom.
func Str(s string) kicadsexp.String {
	return kicadsexp.String(s)
}

// Int builds a bare integer atom.
func Int(n int) kicadsexp.Symbol {
	return kicadsexp.Symbol(strconv.Itoa(n))
}

// Field is shorthand for a (key "value") pair, the most common KiCad node.
func Field(key, value string) *kicadsexp.List {
	return L(key, Str(value))
}
