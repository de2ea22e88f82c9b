package netlist

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/sexp"
	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/sexp/kicadsexp"
)

// Netlist is a KiCad netlist read back from disk.
type Netlist struct {
	Version    string
	Source     string
	Tool       string
	Components []Component
	Nets       []Net
}

// Component is one (comp ...) entry.
type Component struct {
	Ref         string
	Value       string
	Footprint   string
	Lib         string
	Part        string
	Description string
	Tstamp      string
}

// Net is one (net ...) entry.
type Net struct {
	Code  string
	Name  string
	Nodes []Node
}

// Node is a pin on a net.
type Node struct {
	Ref      string
	Pin      string
	Function string
	Type     string
}

// Component returns the component with the given reference.
func (n *Netlist) Component(ref string) (Component, bool) {
	for _, c := range n.Components {
		if c.Ref == ref {
			return c, true
		}
	}
	return Component{}, false
}

// Net returns the net with the given name.
func (n *Netlist) Net(name string) (Net, bool) {
	for _, net := range n.Nets {
		if net.Name == name {
			return net, true
		}
	}
	return Net{}, false
}

// ParseFile reads a netlist from disk.
func ParseFile(path string) (*Netlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("netlist: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a KiCad netlist.
func Parse(r io.Reader) (*Netlist, error) {
	exprs, err := kicadsexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("netlist: %w", err)
	}
	if len(exprs) == 0 {
		return nil, fmt.Errorf("netlist: empty input")
	}
	root := exprs[0]
	if name, err := sexp.GetNodeName(root); err != nil || name != "export" {
		return nil, fmt.Errorf("netlist: root node is not (export ...)")
	}

	nl := &Netlist{}
	nl.Version, _ = sexp.GetChildString(root, "version")
	if design, ok := sexp.FindNode(root, "design"); ok {
		nl.Source, _ = sexp.GetChildString(design, "source")
		nl.Tool, _ = sexp.GetChildString(design, "tool")
	}

	if comps, ok := sexp.FindNode(root, "components"); ok {
		for _, node := range sexp.FindAllNodes(comps, "comp") {
			nl.Components = append(nl.Components, parseComponent(node))
		}
	}

	if nets, ok := sexp.FindNode(root, "nets"); ok {
		for _, node := range sexp.FindAllNodes(nets, "net") {
			net := Net{}
			net.Code, _ = sexp.GetChildString(node, "code")
			net.Name, _ = sexp.GetChildString(node, "name")
			for _, n := range sexp.FindAllNodes(node, "node") {
				var nd Node
				nd.Ref, _ = sexp.GetChildString(n, "ref")
				nd.Pin, _ = sexp.GetChildString(n, "pin")
				nd.Function, _ = sexp.GetChildString(n, "pinfunction")
				nd.Type, _ = sexp.GetChildString(n, "pintype")
				net.Nodes = append(net.Nodes, nd)
			}
			nl.Nets = append(nl.Nets, net)
		}
	}

	return nl, nil
}

func parseComponent(node kicadsexp.Sexp) Component {
	var c Component
	c.Ref, _ = sexp.GetChildString(node, "ref")
	c.Value, _ = sexp.GetChildString(node, "value")
	c.Footprint, _ = sexp.GetChildString(node, "footprint")
	c.Tstamp, _ = sexp.GetChildString(node, "tstamps")
	if src, ok := sexp.FindNode(node, "libsource"); ok {
		c.Lib, _ = sexp.GetChildString(src, "lib")
		c.Part, _ = sexp.GetChildString(src, "part")
		c.Description, _ = sexp.GetChildString(src, "description")
	}
	return c
}
