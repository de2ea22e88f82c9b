package circuit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/symlib"
)

var (
	ErrFinalized     = errors.New("circuit: already finalized")
	ErrDuplicateNet  = errors.New("circuit: duplicate net name")
	ErrDuplicateRef  = errors.New("circuit: duplicate reference")
	ErrUnknownPin    = errors.New("circuit: unknown pin")
	ErrAmbiguousPin  = errors.New("circuit: ambiguous pin name")
	ErrReservedName  = errors.New("circuit: reserved net name")
	ErrForeignObject = errors.New("circuit: object belongs to another circuit")
)

// AnonymousPrefix starts the names of nets created by tying pins together.
const AnonymousPrefix = "N$"

// Circuit is the accumulation context for one circuit's declarations.
// Nets and parts are created through it and stay bound to it; Finalize
// closes it and returns the immutable connectivity graph.
type Circuit struct {
	name     string
	resolver symlib.Resolver

	nets       []*Net
	netsByName map[string]*Net
	parts      []*Part
	partsByRef map[string]*Part

	uf      *unionFind
	owner   map[string]*Net // union-find root -> net that names the set
	anonSeq int
	merges  []Merge

	graph *Graph
}

// Merge records two named nets that were joined by a connection.
type Merge struct {
	Kept     string
	Absorbed string
}

// New creates an empty circuit whose parts are resolved through resolver.
func New(name string, resolver symlib.Resolver) *Circuit {
	return &Circuit{
		name:       name,
		resolver:   resolver,
		netsByName: make(map[string]*Net),
		partsByRef: make(map[string]*Part),
		uf:         newUnionFind(),
		owner:      make(map[string]*Net),
	}
}

// Name returns the circuit name.
func (c *Circuit) Name() string {
	return c.name
}

// Net declares a named net.
func (c *Circuit) Net(name string) (*Net, error) {
	if c.graph != nil {
		return nil, ErrFinalized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("circuit: net name is empty")
	}
	if strings.HasPrefix(name, AnonymousPrefix) {
		return nil, fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	if _, exists := c.netsByName[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNet, name)
	}
	return c.addNet(name, false), nil
}

func (c *Circuit) addNet(name string, anonymous bool) *Net {
	n := &Net{
		circuit:   c,
		id:        len(c.nets),
		name:      name,
		drive:     DriveNone,
		anonymous: anonymous,
	}
	c.nets = append(c.nets, n)
	c.netsByName[name] = n
	key := n.key()
	c.uf.add(key)
	c.owner[key] = n
	return n
}

// NetByName returns a declared net.
func (c *Circuit) NetByName(name string) (*Net, bool) {
	n, ok := c.netsByName[name]
	return n, ok
}

// PartOption customises a part declaration.
type PartOption func(*Part)

// WithRef sets an explicit reference designator instead of the next free one.
func WithRef(ref string) PartOption {
	return func(p *Part) { p.Ref = ref }
}

// WithValue sets the displayed value (e.g. "10uF").
func WithValue(value string) PartOption {
	return func(p *Part) { p.Value = value }
}

// WithFootprint sets the footprint as "Library:Footprint".
func WithFootprint(fp string) PartOption {
	return func(p *Part) { p.Footprint = fp }
}

// WithDescription overrides the library description.
func WithDescription(desc string) PartOption {
	return func(p *Part) { p.Description = desc }
}

// Part instantiates the library symbol lib:symbol.
func (c *Circuit) Part(lib, symbol string, opts ...PartOption) (*Part, error) {
	if c.graph != nil {
		return nil, ErrFinalized
	}
	if c.resolver == nil {
		return nil, fmt.Errorf("circuit: no symbol resolver for %s:%s", lib, symbol)
	}
	def, err := c.resolver.Lookup(lib, symbol)
	if err != nil {
		return nil, fmt.Errorf("circuit: part %s:%s: %w", lib, symbol, err)
	}

	p := &Part{
		circuit:     c,
		Lib:         lib,
		SymbolName:  symbol,
		Value:       def.Value,
		Footprint:   def.Footprint,
		Description: def.Description,
		Datasheet:   def.Datasheet,
		Def:         def,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.Footprint != "" && !strings.Contains(p.Footprint, ":") {
		return nil, fmt.Errorf("circuit: part %s:%s: footprint %q is not Library:Name", lib, symbol, p.Footprint)
	}

	if p.Ref == "" {
		p.Ref = c.nextRef(def.Reference)
	} else if _, exists := c.partsByRef[p.Ref]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRef, p.Ref)
	}

	for _, sp := range def.Pins {
		pt, err := ParsePinType(sp.Type)
		if err != nil {
			return nil, fmt.Errorf("circuit: part %s pin %s: %w", p.Ref, sp.Number, err)
		}
		pin := &Pin{
			part:   p,
			Number: sp.Number,
			Name:   sp.Name,
			Type:   pt,
			Hidden: sp.Hidden,
		}
		p.pins = append(p.pins, pin)
		c.uf.add(pin.key())
	}

	c.parts = append(c.parts, p)
	c.partsByRef[p.Ref] = p
	return p, nil
}

// PartByRef returns a declared part.
func (c *Circuit) PartByRef(ref string) (*Part, bool) {
	p, ok := c.partsByRef[ref]
	return p, ok
}

// nextRef returns the first free <prefix><n> designator, starting at 1.
func (c *Circuit) nextRef(prefix string) string {
	prefix = strings.TrimRight(prefix, "?")
	if prefix == "" {
		prefix = "U"
	}
	for n := 1; ; n++ {
		ref := prefix + strconv.Itoa(n)
		if _, used := c.partsByRef[ref]; !used {
			return ref
		}
	}
}

// Connect attaches pins to net. A pin already attached elsewhere pulls
// its whole net into this one.
func (c *Circuit) Connect(net *Net, pins ...*Pin) error {
	if c.graph != nil {
		return ErrFinalized
	}
	if net == nil || net.circuit != c {
		return fmt.Errorf("%w: net", ErrForeignObject)
	}
	if err := c.checkPins(pins); err != nil {
		return err
	}
	for _, p := range pins {
		c.join(net.key(), p.key())
	}
	return nil
}

// Tie joins pins into one net and returns it. If none of the pins is on
// a net yet, a new anonymous net (N$1, N$2, ...) is created.
func (c *Circuit) Tie(pins ...*Pin) (*Net, error) {
	if c.graph != nil {
		return nil, ErrFinalized
	}
	if len(pins) == 0 {
		return nil, fmt.Errorf("circuit: tie needs at least one pin")
	}
	if err := c.checkPins(pins); err != nil {
		return nil, err
	}

	first := pins[0].key()
	for _, p := range pins[1:] {
		c.join(first, p.key())
	}

	root := c.uf.find(first)
	if n := c.owner[root]; n != nil {
		return n, nil
	}
	c.anonSeq++
	n := c.addNet(AnonymousPrefix+strconv.Itoa(c.anonSeq), true)
	c.join(n.key(), first)
	return n, nil
}

func (c *Circuit) checkPins(pins []*Pin) error {
	for _, p := range pins {
		if p == nil || p.part == nil || p.part.circuit != c {
			return fmt.Errorf("%w: pin", ErrForeignObject)
		}
	}
	return nil
}

// join unions two sets and keeps track of which net names the result.
func (c *Circuit) join(a, b string) {
	ra, rb := c.uf.find(a), c.uf.find(b)
	if ra == rb {
		return
	}
	oa, ob := c.owner[ra], c.owner[rb]
	root := c.uf.union(ra, rb)

	kept, absorbed := preferNet(oa, ob)
	if absorbed != nil && !kept.anonymous && !absorbed.anonymous {
		c.merges = append(c.merges, Merge{Kept: kept.name, Absorbed: absorbed.name})
	}

	delete(c.owner, ra)
	delete(c.owner, rb)
	if kept != nil {
		c.owner[root] = kept
	}
}

// preferNet picks the net that names a merged set: named nets win over
// anonymous ones, then the earlier declaration wins.
func preferNet(a, b *Net) (kept, absorbed *Net) {
	switch {
	case a == nil:
		return b, nil
	case b == nil:
		return a, nil
	case a.anonymous != b.anonymous:
		if a.anonymous {
			return b, a
		}
		return a, b
	case a.id <= b.id:
		return a, b
	default:
		return b, a
	}
}
