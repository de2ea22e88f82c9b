package symlib

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/sexp"
	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/sexp/kicadsexp"
)

// FileExtension is the extension of KiCad 6+ symbol libraries.
const FileExtension = ".kicad_sym"

// Minimum supported symbol library version (KiCad 6.0 = 20211014)
const MinSupportedVersion = 20211014

// ParseFile reads and parses a KiCad symbol library. The library name is
// the file name without extension.
func ParseFile(filename string) (*Library, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("symlib: failed to open file: %w", err)
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(filename), FileExtension)
	return Parse(name, file)
}

// Parse reads and parses a KiCad symbol library from an io.Reader
func Parse(name string, r io.Reader) (*Library, error) {
	sexps, err := kicadsexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("symlib: %s: failed to parse s-expression: %w", name, err)
	}
	if len(sexps) == 0 {
		return nil, fmt.Errorf("symlib: %s: empty file", name)
	}

	root := sexps[0]
	rootName, err := sexp.GetNodeName(root)
	if err != nil {
		return nil, fmt.Errorf("symlib: %s: failed to get root node name: %w", name, err)
	}
	if rootName != "kicad_symbol_lib" {
		return nil, fmt.Errorf("symlib: %s: not a KiCad symbol library: expected 'kicad_symbol_lib', got '%s'", name, rootName)
	}

	lib := &Library{
		Name:    name,
		symbols: make(map[string]*Symbol),
	}

	if versionNode, found := sexp.FindNode(root, "version"); found {
		lib.Version, err = sexp.GetInt(versionNode, 1)
		if err != nil {
			return nil, fmt.Errorf("symlib: %s: bad version: %w", name, err)
		}
		if lib.Version < MinSupportedVersion {
			return nil, fmt.Errorf("symlib: %s: unsupported library version %d (minimum %d)", name, lib.Version, MinSupportedVersion)
		}
	}
	lib.Generator, _ = sexp.GetChildString(root, "generator")
	lib.GeneratorVer, _ = sexp.GetChildString(root, "generator_version")

	for _, symNode := range sexp.FindAllNodes(root, "symbol") {
		sym, err := parseSymbol(name, symNode)
		if err != nil {
			return nil, fmt.Errorf("symlib: %s: %w", name, err)
		}
		lib.symbols[sym.Name] = sym
	}

	return lib, nil
}

// parseSymbol parses a single top-level library symbol definition
func parseSymbol(lib string, node kicadsexp.Sexp) (*Symbol, error) {
	name, err := sexp.GetString(node, 1)
	if err != nil {
		return nil, fmt.Errorf("symbol without name: %w", err)
	}

	sym := &Symbol{
		Lib:        lib,
		Name:       name,
		Properties: make(map[string]string),
	}
	sym.Extends, _ = sexp.GetChildString(node, "extends")
	if _, found := sexp.FindNode(node, "power"); found {
		sym.Power = true
	}

	for _, pn := range sexp.FindAllNodes(node, "property") {
		key, err := sexp.GetString(pn, 1)
		if err != nil {
			continue
		}
		value, _ := sexp.GetString(pn, 2)
		sym.Properties[key] = value
	}
	sym.applyProperties()

	// Nested unit symbols hold the pins, named <symbol>_<unit>_<style>
	seen := make(map[string]bool)
	for _, unitNode := range sexp.FindAllNodes(node, "symbol") {
		unitName, _ := sexp.GetString(unitNode, 1)
		unit := unitNumber(name, unitName)
		for _, pinNode := range sexp.FindAllNodes(unitNode, "pin") {
			pin := parsePin(pinNode)
			pin.Unit = unit
			// De Morgan body styles repeat the same pins
			if seen[pin.Number] {
				continue
			}
			seen[pin.Number] = true
			sym.Pins = append(sym.Pins, pin)
		}
	}

	return sym, nil
}

// parsePin parses a pin definition:
// (pin passive line (at 0 3.81 270) (length 2.794) (name "~") (number "1"))
func parsePin(node kicadsexp.Sexp) Pin {
	pin := Pin{}

	pin.Type, _ = sexp.GetString(node, 1)
	pin.Name, _ = sexp.GetChildString(node, "name")
	pin.Number, _ = sexp.GetChildString(node, "number")

	// Old libraries use a bare hide flag, KiCad 8 uses (hide yes)
	pin.Hidden = sexp.HasSymbol(node, "hide")
	if hideNode, found := sexp.FindNode(node, "hide"); found {
		v, _ := sexp.GetString(hideNode, 1)
		pin.Hidden = v == "yes"
	}

	return pin
}

// unitNumber extracts the unit from a nested symbol name like "C_1_1".
func unitNumber(symbol, unitName string) int {
	rest := strings.TrimPrefix(unitName, symbol+"_")
	if rest == unitName {
		return 0
	}
	parts := strings.Split(rest, "_")
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	return n
}
