package circuit

import (
	"fmt"
	"io"
	"strings"
)

// WriteSummary prints the part list and the connections of every named
// net in a human readable form.
func (g *Graph) WriteSummary(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Total Parts: %d\n", len(g.Parts))
	fmt.Fprintf(&b, "Total Nets: %d\n", len(g.Nets))

	b.WriteString("\nParts List:\n")
	for _, p := range g.Parts {
		fmt.Fprintf(&b, "  %s: %s (%s)\n", p.Ref, p.Value, p.Footprint)
	}

	b.WriteString("\nNet Connections:\n")
	for _, n := range g.NamedNets() {
		pins := make([]string, len(n.Pins))
		for i, p := range n.Pins {
			pins[i] = p.String()
		}
		fmt.Fprintf(&b, "  %s: %s\n", n.Name, strings.Join(pins, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
