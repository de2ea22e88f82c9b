// Package symlib reads KiCad symbol libraries (.kicad_sym) and resolves
// library:symbol references to pin definitions.
package symlib

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrLibraryNotFound is returned when no library file exists for a name.
	ErrLibraryNotFound = errors.New("symlib: library not found")
	// ErrSymbolNotFound is returned when a library has no such symbol.
	ErrSymbolNotFound = errors.New("symlib: symbol not found")
)

// Pin is a symbol pin as declared in the library.
type Pin struct {
	Number string // Pin number (e.g., "1")
	Name   string // Pin name (e.g., "K", "~" when unnamed)
	Type   string // Electrical type (input, passive, power_in, ...)
	Unit   int    // Symbol unit, 0 for pins common to all units
	Hidden bool
}

// Symbol is a resolved library symbol. Inherited data from an extended
// parent symbol is already merged in.
type Symbol struct {
	Lib         string
	Name        string
	Extends     string
	Reference   string // Reference designator prefix (e.g., "C")
	Value       string
	Footprint   string
	Datasheet   string
	Description string
	Keywords    string
	Power       bool // Power symbols (e.g. #PWR flags)
	Properties  map[string]string
	Pins        []Pin
}

// ID returns the "Lib:Name" identifier.
func (s *Symbol) ID() string {
	return s.Lib + ":" + s.Name
}

// Pin returns the pin with the given number, or with the given name if no
// number matches.
func (s *Symbol) Pin(id string) (Pin, bool) {
	for _, p := range s.Pins {
		if p.Number == id {
			return p, true
		}
	}
	for _, p := range s.Pins {
		if p.Name == id {
			return p, true
		}
	}
	return Pin{}, false
}

// clone returns a deep copy so callers can't mutate cached symbols.
func (s *Symbol) clone() *Symbol {
	c := *s
	c.Pins = append([]Pin(nil), s.Pins...)
	c.Properties = make(map[string]string, len(s.Properties))
	for k, v := range s.Properties {
		c.Properties[k] = v
	}
	return &c
}

// Library is a parsed .kicad_sym file.
type Library struct {
	Name         string
	Version      int
	Generator    string
	GeneratorVer string
	symbols      map[string]*Symbol
}

// Names returns the symbol names in the library, sorted.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.symbols))
	for n := range l.symbols {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Symbol returns the named symbol with any extends chain resolved.
func (l *Library) Symbol(name string) (*Symbol, error) {
	sym, err := l.resolve(name, 0)
	if err != nil {
		return nil, err
	}
	return sym.clone(), nil
}

const maxExtendsDepth = 8

func (l *Library) resolve(name string, depth int) (*Symbol, error) {
	sym, ok := l.symbols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s:%s", ErrSymbolNotFound, l.Name, name)
	}
	if sym.Extends == "" {
		return sym, nil
	}
	if depth >= maxExtendsDepth {
		return nil, fmt.Errorf("symlib: %s:%s: extends chain too deep", l.Name, name)
	}

	parent, err := l.resolve(sym.Extends, depth+1)
	if err != nil {
		return nil, fmt.Errorf("symlib: %s:%s extends %s: %w", l.Name, name, sym.Extends, err)
	}

	merged := parent.clone()
	merged.Name = sym.Name
	merged.Extends = sym.Extends
	for k, v := range sym.Properties {
		merged.Properties[k] = v
	}
	merged.applyProperties()
	if len(sym.Pins) > 0 {
		merged.Pins = append([]Pin(nil), sym.Pins...)
	}
	return merged, nil
}

// applyProperties refreshes the well-known fields from the property map.
func (s *Symbol) applyProperties() {
	s.Reference = s.Properties["Reference"]
	s.Value = s.Properties["Value"]
	s.Footprint = s.Properties["Footprint"]
	s.Datasheet = s.Properties["Datasheet"]
	s.Keywords = s.Properties["ki_keywords"]
	s.Description = s.Properties["Description"]
	if s.Description == "" {
		// KiCad 6 and 7 libraries
		s.Description = s.Properties["ki_description"]
	}
}
