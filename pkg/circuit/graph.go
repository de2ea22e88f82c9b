package circuit

import (
	"sort"
	"strings"
)

// Graph is the finalized, read-only connectivity of a circuit.
type Graph struct {
	Name        string
	Parts       []*Part     // Sorted by reference
	Nets        []*GraphNet // Sorted by name
	Unconnected []*Pin      // Pins on no net, sorted by part then pin
	Merges      []Merge

	netOf map[*Pin]*GraphNet
}

// GraphNet is a net of the finalized graph.
type GraphNet struct {
	Name      string
	Declared  Drive // Strongest drive declared on any net merged into this one
	Drive     Drive // Declared drive combined with pin drives
	Anonymous bool
	Aliases   []string // Names of other declared nets merged into this one
	Pins      []*Pin   // Sorted by part reference then pin number
}

// NetOf returns the net a pin belongs to, or nil if it is unconnected.
func (g *Graph) NetOf(p *Pin) *GraphNet {
	return g.netOf[p]
}

// Part returns the part with the given reference.
func (g *Graph) Part(ref string) *Part {
	i := sort.Search(len(g.Parts), func(i int) bool {
		return !naturalLess(g.Parts[i].Ref, ref)
	})
	if i < len(g.Parts) && g.Parts[i].Ref == ref {
		return g.Parts[i]
	}
	return nil
}

// Net returns the net with the given name.
func (g *Graph) Net(name string) *GraphNet {
	for _, n := range g.Nets {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// NamedNets returns the nets that were declared by name, skipping the
// anonymous N$ nets.
func (g *Graph) NamedNets() []*GraphNet {
	var nets []*GraphNet
	for _, n := range g.Nets {
		if !n.Anonymous {
			nets = append(nets, n)
		}
	}
	return nets
}

// Finalize closes the circuit to further declarations and builds the
// graph. Calling it again returns the same graph.
func (c *Circuit) Finalize() (*Graph, error) {
	if c.graph != nil {
		return c.graph, nil
	}

	g := &Graph{
		Name:   c.name,
		Merges: append([]Merge(nil), c.merges...),
		netOf:  make(map[*Pin]*GraphNet),
	}

	// One graph net per owning net
	byRoot := make(map[string]*GraphNet)
	for root, owner := range c.owner {
		gn := &GraphNet{
			Name:      owner.name,
			Declared:  DriveNone,
			Anonymous: owner.anonymous,
		}
		byRoot[root] = gn
	}

	// Fold every declared net's drive (and alias) into its set
	for _, n := range c.nets {
		gn := byRoot[c.uf.find(n.key())]
		if n.drive > gn.Declared {
			gn.Declared = n.drive
		}
		if n.name != gn.Name && !n.anonymous {
			gn.Aliases = append(gn.Aliases, n.name)
		}
	}

	g.Parts = append([]*Part(nil), c.parts...)
	sort.Slice(g.Parts, func(i, j int) bool {
		return naturalLess(g.Parts[i].Ref, g.Parts[j].Ref)
	})

	for _, part := range g.Parts {
		for _, pin := range part.pins {
			gn, ok := byRoot[c.uf.find(pin.key())]
			if !ok {
				g.Unconnected = append(g.Unconnected, pin)
				continue
			}
			gn.Pins = append(gn.Pins, pin)
			g.netOf[pin] = gn
		}
	}

	for _, gn := range byRoot {
		gn.Drive = gn.Declared
		for _, pin := range gn.Pins {
			if d := pin.Type.Drive(); d > gn.Drive {
				gn.Drive = d
			}
		}
		sortPins(gn.Pins)
		sort.Strings(gn.Aliases)
		g.Nets = append(g.Nets, gn)
	}
	sort.Slice(g.Nets, func(i, j int) bool {
		return netLess(g.Nets[i].Name, g.Nets[j].Name)
	})
	sortPins(g.Unconnected)

	c.graph = g
	return g, nil
}

func sortPins(pins []*Pin) {
	sort.SliceStable(pins, func(i, j int) bool {
		a, b := pins[i], pins[j]
		if a.part.Ref != b.part.Ref {
			return naturalLess(a.part.Ref, b.part.Ref)
		}
		return naturalLess(a.Number, b.Number)
	})
}

// netLess orders nets by name, anonymous N$ nets numerically.
func netLess(a, b string) bool {
	aa, ba := strings.HasPrefix(a, AnonymousPrefix), strings.HasPrefix(b, AnonymousPrefix)
	if aa && ba {
		return naturalLess(a, b)
	}
	return a < b
}
