// Package netlist reads and writes KiCad netlists (export format "E").
package netlist

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/trace-eurorack/pkg/circuit"
	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/sexp"
	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/sexp/kicadsexp"
)

// FormatVersion is the KiCad netlist export version written.
const FormatVersion = "E"

// DefaultTool is written to (design (tool ...)) when Options.Tool is empty.
const DefaultTool = "trace-eurorack"

// Options controls the design header of a written netlist.
type Options struct {
	Source string // Definition file the circuit came from
	Tool   string
}

// tstampSpace is the namespace of the name-based component UUIDs.
var tstampSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/OpenTraceLab/trace-eurorack"))

// ComponentStamp returns the deterministic tstamp of a component.
func ComponentStamp(circuitName, ref string) uuid.UUID {
	return uuid.NewSHA1(tstampSpace, []byte(circuitName+"/"+ref))
}

// Build converts a graph into the netlist S-expression tree.
func Build(g *circuit.Graph, opts Options) *kicadsexp.List {
	tool := opts.Tool
	if tool == "" {
		tool = DefaultTool
	}

	design := sexp.L("design",
		sexp.Field("source", opts.Source),
		sexp.Field("date", ""),
		sexp.Field("tool", tool),
	)

	return sexp.L("export",
		sexp.Field("version", FormatVersion),
		design,
		components(g),
		libparts(g),
		nets(g),
	)
}

func components(g *circuit.Graph) *kicadsexp.List {
	list := sexp.L("components")
	for _, p := range g.Parts {
		list.Append(sexp.L("comp",
			sexp.Field("ref", p.Ref),
			sexp.Field("value", p.Value),
			sexp.Field("footprint", p.Footprint),
			sexp.L("libsource",
				sexp.Field("lib", p.Lib),
				sexp.Field("part", p.SymbolName),
				sexp.Field("description", p.Description),
			),
			sexp.L("sheetpath", sexp.Field("names", "/"), sexp.Field("tstamps", "/")),
			sexp.Field("tstamps", ComponentStamp(g.Name, p.Ref).String()),
		))
	}
	return list
}

func libparts(g *circuit.Graph) *kicadsexp.List {
	seen := make(map[string]*circuit.Part)
	var ids []string
	for _, p := range g.Parts {
		id := p.LibID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = p
		ids = append(ids, id)
	}
	sort.Strings(ids)

	list := sexp.L("libparts")
	for _, id := range ids {
		p := seen[id]
		lp := sexp.L("libpart", sexp.Field("lib", p.Lib), sexp.Field("part", p.SymbolName))
		if p.Def != nil && p.Def.Description != "" {
			lp.Append(sexp.Field("description", p.Def.Description))
		}
		if p.Def != nil && p.Def.Datasheet != "" && p.Def.Datasheet != "~" {
			lp.Append(sexp.Field("docs", p.Def.Datasheet))
		}

		fields := sexp.L("fields")
		if p.Def != nil {
			fields.Append(field("Reference", p.Def.Reference))
			fields.Append(field("Value", p.Def.Value))
			if p.Def.Footprint != "" {
				fields.Append(field("Footprint", p.Def.Footprint))
			}
		}
		lp.Append(fields)

		pins := sexp.L("pins")
		for _, pin := range p.Pins() {
			pins.Append(sexp.L("pin",
				sexp.Field("num", pin.Number),
				sexp.Field("name", pin.Name),
				sexp.Field("type", string(pin.Type)),
			))
		}
		lp.Append(pins)
		list.Append(lp)
	}
	return list
}

func field(name, value string) *kicadsexp.List {
	return sexp.L("field", sexp.Field("name", name), sexp.Str(value))
}

func nets(g *circuit.Graph) *kicadsexp.List {
	list := sexp.L("nets")
	for i, n := range g.Nets {
		net := sexp.L("net",
			sexp.Field("code", strconv.Itoa(i+1)),
			sexp.Field("name", n.Name),
		)
		for _, pin := range n.Pins {
			node := sexp.L("node",
				sexp.Field("ref", pin.Part().Ref),
				sexp.Field("pin", pin.Number),
			)
			if pin.Name != "" && pin.Name != "~" {
				node.Append(sexp.Field("pinfunction", pin.Name))
			}
			node.Append(sexp.Field("pintype", string(pin.Type)))
			net.Append(node)
		}
		list.Append(net)
	}
	return list
}

// Write emits the netlist of g to w.
func Write(w io.Writer, g *circuit.Graph, opts Options) error {
	wr := kicadsexp.NewWriter(w)
	if err := wr.Write(Build(g, opts)); err != nil {
		return fmt.Errorf("netlist: write: %w", err)
	}
	if err := wr.Flush(); err != nil {
		return fmt.Errorf("netlist: write: %w", err)
	}
	return nil
}

// WriteFile writes the netlist to path through a temporary file in the
// same directory, so readers never see a partial file.
func WriteFile(path string, g *circuit.Graph, opts Options) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("netlist: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, g, opts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("netlist: close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("netlist: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("netlist: rename to %s: %w", path, err)
	}
	return nil
}
