package circuitdef

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// PinRefLexer tokenizes pin references such as J1[2..8] or U1[IN,EN].
var PinRefLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Range", Pattern: `\.\.`},
	{Name: "LBracket", Pattern: `\[`},
	{Name: "RBracket", Pattern: `\]`},
	{Name: "Comma", Pattern: `,`},
	// Pin numbers with a letter suffix, e.g. 1A
	{Name: "Mixed", Pattern: `[0-9]+[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_~+\-/#$!][A-Za-z0-9_~+\-/#$!]*`},
})

// PinRef is a parsed reference to one or more pins of a part.
// Example: C1[1] or J1[2..8] or U1[IN,EN]
type PinRef struct {
	Ref       string      `@Ident LBracket`
	Selectors []*Selector `@@ ( Comma @@ )* RBracket`
}

// Selector picks pins by number, inclusive number range, or name.
type Selector struct {
	Number *NumberRange `  @@`
	Name   string       `| @( Ident | Mixed )`
}

// NumberRange is a pin number, or an inclusive From..To range.
type NumberRange struct {
	From string `@Int`
	To   string `( Range @Int )?`
}

var (
	pinRefParser     *participle.Parser[PinRef]
	pinRefParserErr  error
	pinRefParserOnce sync.Once
)

func parser() (*participle.Parser[PinRef], error) {
	pinRefParserOnce.Do(func() {
		pinRefParser, pinRefParserErr = participle.Build[PinRef](
			participle.Lexer(PinRefLexer),
			participle.Elide("Whitespace"),
		)
	})
	return pinRefParser, pinRefParserErr
}

// ParsePinRef parses a pin reference string.
func ParsePinRef(s string) (*PinRef, error) {
	p, err := parser()
	if err != nil {
		return nil, fmt.Errorf("failed to build pin reference parser: %w", err)
	}
	ref, err := p.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("invalid pin reference %q: %w", s, err)
	}
	return ref, nil
}

// Pins expands the selectors into pin identifiers, in order. Ranges
// expand to every number between their bounds.
func (r *PinRef) Pins() ([]string, error) {
	var ids []string
	for _, sel := range r.Selectors {
		if sel.Number == nil {
			ids = append(ids, sel.Name)
			continue
		}
		if sel.Number.To == "" {
			ids = append(ids, sel.Number.From)
			continue
		}
		from, err := strconv.Atoi(sel.Number.From)
		if err != nil {
			return nil, fmt.Errorf("%s: bad range start %q", r.Ref, sel.Number.From)
		}
		to, err := strconv.Atoi(sel.Number.To)
		if err != nil {
			return nil, fmt.Errorf("%s: bad range end %q", r.Ref, sel.Number.To)
		}
		if from > to {
			return nil, fmt.Errorf("%s: descending range %d..%d", r.Ref, from, to)
		}
		for n := from; n <= to; n++ {
			ids = append(ids, strconv.Itoa(n))
		}
	}
	return ids, nil
}

func (r *PinRef) String() string {
	s := r.Ref + "["
	for i, sel := range r.Selectors {
		if i > 0 {
			s += ","
		}
		switch {
		case sel.Number == nil:
			s += sel.Name
		case sel.Number.To == "":
			s += sel.Number.From
		default:
			s += sel.Number.From + ".." + sel.Number.To
		}
	}
	return s + "]"
}
