package circuit

import (
	"fmt"
	"strconv"

	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/symlib"
)

// Net is a named electrical connection. Pins are attached with Connect.
type Net struct {
	circuit   *Circuit
	id        int
	name      string
	drive     Drive
	anonymous bool
}

// Name returns the net name.
func (n *Net) Name() string { return n.name }

// Drive returns the declared drive.
func (n *Net) Drive() Drive { return n.drive }

// Anonymous reports whether the net was auto-created by Tie.
func (n *Net) Anonymous() bool { return n.anonymous }

// SetDrive declares the drive of the net, e.g. DrivePower for a supply rail
// fed from off-board.
func (n *Net) SetDrive(d Drive) error {
	if n.circuit.graph != nil {
		return ErrFinalized
	}
	n.drive = d
	return nil
}

// Connect attaches pins to this net.
func (n *Net) Connect(pins ...*Pin) error {
	return n.circuit.Connect(n, pins...)
}

func (n *Net) key() string {
	return "n:" + strconv.Itoa(n.id)
}

// Part is an instance of a library symbol. Fields must not be modified
// after the part is declared.
type Part struct {
	circuit *Circuit
	pins    []*Pin

	Ref         string // Reference designator (e.g., "C1")
	Lib         string // Symbol library (e.g., "Device")
	SymbolName  string // Symbol within the library (e.g., "C")
	Value       string
	Footprint   string // "Library:Footprint"
	Description string
	Datasheet   string
	Def         *symlib.Symbol
}

// LibID returns "Lib:Symbol".
func (p *Part) LibID() string {
	return p.Lib + ":" + p.SymbolName
}

// Pins returns the part's pins in library order.
func (p *Part) Pins() []*Pin {
	return append([]*Pin(nil), p.pins...)
}

// Pin finds a pin by number, or by name when no number matches.
func (p *Part) Pin(id string) (*Pin, error) {
	for _, pin := range p.pins {
		if pin.Number == id {
			return pin, nil
		}
	}
	var found *Pin
	for _, pin := range p.pins {
		if pin.Name != id {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s[%s]", ErrAmbiguousPin, p.Ref, id)
		}
		found = pin
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s[%s]", ErrUnknownPin, p.Ref, id)
	}
	return found, nil
}

// Pin is one pin of a part.
type Pin struct {
	part   *Part
	Number string
	Name   string
	Type   PinType
	Hidden bool
}

// Part returns the owning part.
func (p *Pin) Part() *Part { return p.part }

// String returns "Ref.Number", the form used in summaries.
func (p *Pin) String() string {
	return p.part.Ref + "." + p.Number
}

func (p *Pin) key() string {
	return "p:" + p.part.Ref + "\x00" + p.Number
}
