// Package erc runs electrical rules checks over a finalized circuit graph.
package erc

import (
	"context"
	"fmt"
	"io"

	"github.com/OpenTraceLab/trace-eurorack/internal/ctxlog"
	"github.com/OpenTraceLab/trace-eurorack/pkg/circuit"
)

// Severity of a violation.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "ERROR"
	}
	return "WARNING"
}

// Rule names.
const (
	RulePinConflict = "pin-conflict"
	RuleDrive       = "drive"
	RuleSinglePin   = "single-pin"
	RuleEmptyNet    = "empty-net"
	RuleUnconnected = "unconnected"
	RuleNoFootprint = "no-footprint"
	RuleNetMerge    = "net-merge"
)

// Violation is one ERC finding.
type Violation struct {
	Severity Severity
	Rule     string
	Net      string // Empty for part level findings
	Part     string // Empty for net level findings
	Message  string
}

// Result holds the violations of one check, in a deterministic order.
type Result struct {
	Violations []Violation
}

// Errors returns the error level violations.
func (r *Result) Errors() []Violation {
	return r.filter(Error)
}

// Warnings returns the warning level violations.
func (r *Result) Warnings() []Violation {
	return r.filter(Warning)
}

func (r *Result) filter(s Severity) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == s {
			out = append(out, v)
		}
	}
	return out
}

// Print writes each violation on its own line followed by the counts.
func (r *Result) Print(w io.Writer) {
	for _, v := range r.Violations {
		fmt.Fprintf(w, "ERC %s: %s\n", v.Severity, v.Message)
	}
	fmt.Fprintf(w, "ERC: %d error(s), %d warning(s)\n", len(r.Errors()), len(r.Warnings()))
}

func (r *Result) add(s Severity, rule, net, part, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{
		Severity: s,
		Rule:     rule,
		Net:      net,
		Part:     part,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Check runs every rule over g.
func Check(ctx context.Context, g *circuit.Graph) *Result {
	log := ctxlog.FromContext(ctx)
	r := &Result{}

	for _, n := range g.Nets {
		checkNet(r, n)
	}

	for _, p := range g.Unconnected {
		if p.Type == circuit.PinNoConnect {
			continue
		}
		r.add(Warning, RuleUnconnected, "", p.Part().Ref,
			"Unconnected pin %s (%s, %s)", p, pinLabel(p), p.Type)
	}

	for _, part := range g.Parts {
		if part.Footprint == "" {
			r.add(Warning, RuleNoFootprint, "", part.Ref, "Part %s has no footprint", part.Ref)
		}
	}

	for _, m := range g.Merges {
		r.add(Warning, RuleNetMerge, m.Kept, "",
			"Nets %s and %s were merged, keeping %s", m.Kept, m.Absorbed, m.Kept)
	}

	log.Debug("ERC finished", "circuit", g.Name,
		"errors", len(r.Errors()), "warnings", len(r.Warnings()))
	return r
}

func checkNet(r *Result, n *circuit.GraphNet) {
	switch len(n.Pins) {
	case 0:
		r.add(Warning, RuleEmptyNet, n.Name, "", "Net %s has no pins", n.Name)
		return
	case 1:
		if n.Pins[0].Type != circuit.PinNoConnect {
			r.add(Warning, RuleSinglePin, n.Name, "",
				"Net %s has only one pin: %s", n.Name, n.Pins[0])
		}
	}

	for i, a := range n.Pins {
		for _, b := range n.Pins[i+1:] {
			var s Severity
			switch conflict(a.Type, b.Type) {
			case ok:
				continue
			case warn:
				s = Warning
			case fail:
				s = Error
			}
			r.add(s, RulePinConflict, n.Name, "",
				"Pin conflict on net %s: %s (%s) and %s (%s)", n.Name, a, a.Type, b, b.Type)
		}
	}

	for _, p := range n.Pins {
		if p.Type.RequiredDrive() > n.Drive {
			r.add(Error, RuleDrive, n.Name, p.Part().Ref,
				"Insufficient drive on net %s for pin %s (%s, %s)", n.Name, p, pinLabel(p), p.Type)
		}
	}
}

func pinLabel(p *circuit.Pin) string {
	if p.Name == "" || p.Name == "~" {
		return p.Number
	}
	return p.Name
}
