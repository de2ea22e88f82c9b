// Package circuitdef loads circuit definition files written in HCL and
// declares them on a circuit.Circuit.
//
// A definition declares nets and parts by block and connects pins with
// connect blocks:
//
//	title = "Power Supply"
//
//	net "gnd" {
//	  name  = "GND"
//	  drive = "power"
//	}
//
//	part "C1" {
//	  lib       = "Device"
//	  symbol    = "C"
//	  value     = "10uF"
//	  footprint = "Capacitor_SMD:C_0805_2012Metric"
//	}
//
//	connect {
//	  net  = net.gnd
//	  pins = ["C1[2]", "J1[2..8]"]
//	}
//
// A connect block without a net ties its pins into an anonymous net.
package circuitdef

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/OpenTraceLab/trace-eurorack/internal/ctxlog"
	"github.com/OpenTraceLab/trace-eurorack/pkg/circuit"
	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/symlib"
)

// FileExtension is the extension of circuit definition files.
const FileExtension = ".hcl"

// Definition is a loaded circuit definition.
type Definition struct {
	Name    string // File base name without extension
	Title   string
	Output  string // Netlist file name
	Source  string // Path the definition was read from
	Circuit *circuit.Circuit
}

// hclFile is the top-level structure of a definition file.
type hclFile struct {
	Title    string        `hcl:"title,optional"`
	Output   string        `hcl:"output,optional"`
	Nets     []*hclNet     `hcl:"net,block"`
	Parts    []*hclPart    `hcl:"part,block"`
	Connects []*hclConnect `hcl:"connect,block"`
}

type hclNet struct {
	Label     string    `hcl:"label,label"`
	Name      string    `hcl:"name,optional"`
	Drive     string    `hcl:"drive,optional"`
	DeclRange hcl.Range `hcl:",def_range"`
}

type hclPart struct {
	Ref         string    `hcl:"ref,label"`
	Lib         string    `hcl:"lib"`
	Symbol      string    `hcl:"symbol"`
	Value       string    `hcl:"value,optional"`
	Footprint   string    `hcl:"footprint,optional"`
	Description string    `hcl:"description,optional"`
	DeclRange   hcl.Range `hcl:",def_range"`
}

type hclConnect struct {
	Net       hcl.Expression `hcl:"net,optional"`
	Pins      []string       `hcl:"pins"`
	DeclRange hcl.Range      `hcl:",def_range"`
}

// LoadFile reads and declares the definition at path.
func LoadFile(ctx context.Context, path string, resolver symlib.Resolver) (*Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse circuit file %s: %w", path, diags)
	}
	return decode(ctx, path, file, resolver)
}

// Load declares a definition from source bytes; filename names it in
// diagnostics and determines the circuit name.
func Load(ctx context.Context, filename string, src []byte, resolver symlib.Resolver) (*Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse circuit file %s: %w", filename, diags)
	}
	return decode(ctx, filename, file, resolver)
}

func decode(ctx context.Context, path string, file *hcl.File, resolver symlib.Resolver) (*Definition, error) {
	logger := ctxlog.FromContext(ctx)

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode circuit file %s: %w", path, diags)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	def := &Definition{
		Name:    name,
		Title:   parsed.Title,
		Output:  parsed.Output,
		Source:  path,
		Circuit: circuit.New(name, resolver),
	}
	if def.Title == "" {
		def.Title = name
	}
	if def.Output == "" {
		def.Output = name + ".net"
	}

	// First pass: nets and parts
	netNames := make(map[string]cty.Value, len(parsed.Nets))
	for _, n := range parsed.Nets {
		if err := declareNet(def.Circuit, n); err != nil {
			return nil, err
		}
		netName := n.Name
		if netName == "" {
			netName = n.Label
		}
		netNames[n.Label] = cty.StringVal(netName)
	}
	for _, p := range parsed.Parts {
		if err := declarePart(def.Circuit, p); err != nil {
			return nil, err
		}
	}

	// Second pass: connections, with net labels in scope
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"net": cty.ObjectVal(netNames),
		},
	}
	for _, conn := range parsed.Connects {
		if err := connect(def.Circuit, conn, evalCtx); err != nil {
			return nil, err
		}
	}

	logger.Debug("Loaded circuit definition", "path", path, "nets", len(parsed.Nets),
		"parts", len(parsed.Parts), "connections", len(parsed.Connects))
	return def, nil
}

func declareNet(c *circuit.Circuit, n *hclNet) error {
	name := n.Name
	if name == "" {
		name = n.Label
	}
	net, err := c.Net(name)
	if err != nil {
		return fmt.Errorf("%s: %w", n.DeclRange, err)
	}
	if n.Drive == "" {
		return nil
	}
	d, err := circuit.ParseDrive(n.Drive)
	if err != nil {
		return fmt.Errorf("%s: net %q: %w", n.DeclRange, n.Label, err)
	}
	return net.SetDrive(d)
}

func declarePart(c *circuit.Circuit, p *hclPart) error {
	opts := []circuit.PartOption{circuit.WithRef(p.Ref)}
	if p.Value != "" {
		opts = append(opts, circuit.WithValue(p.Value))
	}
	if p.Footprint != "" {
		opts = append(opts, circuit.WithFootprint(p.Footprint))
	}
	if p.Description != "" {
		opts = append(opts, circuit.WithDescription(p.Description))
	}
	if _, err := c.Part(p.Lib, p.Symbol, opts...); err != nil {
		return fmt.Errorf("%s: %w", p.DeclRange, err)
	}
	return nil
}

func connect(c *circuit.Circuit, conn *hclConnect, evalCtx *hcl.EvalContext) error {
	pins, err := resolvePins(c, conn.Pins)
	if err != nil {
		return fmt.Errorf("%s: %w", conn.DeclRange, err)
	}
	if len(pins) == 0 {
		return fmt.Errorf("%s: connect block has no pins", conn.DeclRange)
	}

	val, diags := conn.Net.Value(evalCtx)
	if diags.HasErrors() {
		return fmt.Errorf("%s: %w", conn.DeclRange, diags)
	}

	if val.IsNull() {
		_, err := c.Tie(pins...)
		if err != nil {
			return fmt.Errorf("%s: %w", conn.DeclRange, err)
		}
		return nil
	}
	if !val.IsKnown() || val.Type() != cty.String {
		return fmt.Errorf("%s: net must be a net reference or name", conn.Net.Range())
	}

	net, ok := c.NetByName(val.AsString())
	if !ok {
		return fmt.Errorf("%s: unknown net %q (declared: %s)", conn.Net.Range(), val.AsString(),
			strings.Join(netList(evalCtx), ", "))
	}
	if err := net.Connect(pins...); err != nil {
		return fmt.Errorf("%s: %w", conn.DeclRange, err)
	}
	return nil
}

func resolvePins(c *circuit.Circuit, refs []string) ([]*circuit.Pin, error) {
	var pins []*circuit.Pin
	for _, s := range refs {
		ref, err := ParsePinRef(s)
		if err != nil {
			return nil, err
		}
		part, ok := c.PartByRef(ref.Ref)
		if !ok {
			return nil, fmt.Errorf("unknown part %q in %q", ref.Ref, s)
		}
		ids, err := ref.Pins()
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			pin, err := part.Pin(id)
			if err != nil {
				return nil, err
			}
			pins = append(pins, pin)
		}
	}
	return pins, nil
}

func netList(evalCtx *hcl.EvalContext) []string {
	var names []string
	for _, v := range evalCtx.Variables["net"].AsValueMap() {
		names = append(names, v.AsString())
	}
	sort.Strings(names)
	return names
}
