package circuit

import (
	"bytes"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/symlib"
)

func newTestCircuit(t *testing.T) *Circuit {
	t.Helper()
	lib, err := symlib.Builtin()
	if err != nil {
		t.Fatalf("Failed to load builtin symbols: %v", err)
	}
	return New("test", lib)
}

func mustPart(t *testing.T, c *Circuit, lib, sym string, opts ...PartOption) *Part {
	t.Helper()
	p, err := c.Part(lib, sym, opts...)
	if err != nil {
		t.Fatalf("Part(%s, %s) failed: %v", lib, sym, err)
	}
	return p
}

func mustPin(t *testing.T, p *Part, id string) *Pin {
	t.Helper()
	pin, err := p.Pin(id)
	if err != nil {
		t.Fatalf("Pin(%s) failed: %v", id, err)
	}
	return pin
}

func mustNet(t *testing.T, c *Circuit, name string) *Net {
	t.Helper()
	n, err := c.Net(name)
	if err != nil {
		t.Fatalf("Net(%s) failed: %v", name, err)
	}
	return n
}

func pinNames(pins []*Pin) []string {
	out := make([]string, len(pins))
	for i, p := range pins {
		out[i] = p.String()
	}
	return out
}

func TestAutoReferences(t *testing.T) {
	c := newTestCircuit(t)
	c1 := mustPart(t, c, "Device", "C")
	c2 := mustPart(t, c, "Device", "C")
	l1 := mustPart(t, c, "Device", "L")
	j1 := mustPart(t, c, "Connector_Generic", "Conn_02x05_Odd_Even")

	got := []string{c1.Ref, c2.Ref, l1.Ref, j1.Ref}
	want := []string{"C1", "C2", "L1", "J1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("References mismatch (-want +got):\n%s", diff)
	}

	// An explicit reference is honoured and skipped by auto numbering
	mustPart(t, c, "Device", "C", WithRef("C4"))
	c3 := mustPart(t, c, "Device", "C")
	c5 := mustPart(t, c, "Device", "C")
	if c3.Ref != "C3" || c5.Ref != "C5" {
		t.Errorf("Expected C3 and C5, got %s and %s", c3.Ref, c5.Ref)
	}
}

func TestPartDefaultsAndOptions(t *testing.T) {
	c := newTestCircuit(t)

	u1 := mustPart(t, c, "Regulator_Switching", "AP63203WU", WithValue("AP63203WU-7"))
	if u1.Ref != "U1" {
		t.Errorf("Expected U1, got %s", u1.Ref)
	}
	if u1.Value != "AP63203WU-7" {
		t.Errorf("Expected value override, got %q", u1.Value)
	}
	if u1.Footprint != "Package_TO_SOT_SMD:TSOT-23-6" {
		t.Errorf("Expected library footprint, got %q", u1.Footprint)
	}
	if u1.LibID() != "Regulator_Switching:AP63203WU" {
		t.Errorf("Unexpected LibID %q", u1.LibID())
	}
	if len(u1.Pins()) != 6 {
		t.Fatalf("Expected 6 pins, got %d", len(u1.Pins()))
	}

	in := mustPin(t, u1, "IN")
	if in.Number != "3" || in.Type != PinPowerIn {
		t.Errorf("Expected IN to be pin 3 power_in, got %s %s", in.Number, in.Type)
	}

	if _, err := c.Part("Device", "C", WithFootprint("C_0805")); err == nil {
		t.Error("Expected error for footprint without library")
	}
	if _, err := c.Part("Device", "C", WithRef("U1")); !errors.Is(err, ErrDuplicateRef) {
		t.Errorf("Expected ErrDuplicateRef, got %v", err)
	}
	if _, err := c.Part("Device", "NoSuchSymbol"); !errors.Is(err, symlib.ErrSymbolNotFound) {
		t.Errorf("Expected ErrSymbolNotFound, got %v", err)
	}
}

func TestPinLookup(t *testing.T) {
	c := newTestCircuit(t)
	d1 := mustPart(t, c, "Device", "D_Schottky")

	k := mustPin(t, d1, "K")
	if k.Number != "1" {
		t.Errorf("Expected K to be pin 1, got %s", k.Number)
	}
	if p := mustPin(t, d1, "2"); p.Name != "A" {
		t.Errorf("Expected pin 2 to be A, got %s", p.Name)
	}
	if _, err := d1.Pin("X"); !errors.Is(err, ErrUnknownPin) {
		t.Errorf("Expected ErrUnknownPin, got %v", err)
	}

	// Capacitor pins share the name "~"
	c1 := mustPart(t, c, "Device", "C")
	if _, err := c1.Pin("~"); !errors.Is(err, ErrAmbiguousPin) {
		t.Errorf("Expected ErrAmbiguousPin, got %v", err)
	}
}

func TestNetDeclaration(t *testing.T) {
	c := newTestCircuit(t)
	mustNet(t, c, "GND")

	if _, err := c.Net("GND"); !errors.Is(err, ErrDuplicateNet) {
		t.Errorf("Expected ErrDuplicateNet, got %v", err)
	}
	if _, err := c.Net("N$1"); !errors.Is(err, ErrReservedName) {
		t.Errorf("Expected ErrReservedName, got %v", err)
	}
	if _, err := c.Net("  "); err == nil {
		t.Error("Expected error for empty net name")
	}
	if n, ok := c.NetByName("GND"); !ok || n.Name() != "GND" {
		t.Error("NetByName did not return GND")
	}
}

func TestTieCreatesAnonymousNet(t *testing.T) {
	c := newTestCircuit(t)
	j1 := mustPart(t, c, "Connector_Generic", "Conn_02x05_Odd_Even")
	d1 := mustPart(t, c, "Device", "D_Schottky")

	n, err := c.Tie(mustPin(t, j1, "1"), mustPin(t, d1, "K"))
	if err != nil {
		t.Fatalf("Tie failed: %v", err)
	}
	if !n.Anonymous() || n.Name() != "N$1" {
		t.Errorf("Expected anonymous N$1, got %s (anonymous=%v)", n.Name(), n.Anonymous())
	}

	// Tying a pin already on N$1 reuses it
	again, err := c.Tie(mustPin(t, d1, "K"))
	if err != nil {
		t.Fatalf("Tie failed: %v", err)
	}
	if again != n {
		t.Errorf("Expected existing net, got %s", again.Name())
	}

	g, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	gn := g.Net("N$1")
	if gn == nil {
		t.Fatal("N$1 missing from graph")
	}
	if diff := cmp.Diff([]string{"D1.1", "J1.1"}, pinNames(gn.Pins)); diff != "" {
		t.Errorf("N$1 pins mismatch (-want +got):\n%s", diff)
	}
	if len(g.NamedNets()) != 0 {
		t.Errorf("Expected no named nets, got %d", len(g.NamedNets()))
	}
}

func TestTieThenConnectAdoptsName(t *testing.T) {
	c := newTestCircuit(t)
	u1 := mustPart(t, c, "Regulator_Switching", "AP63203WU")
	c3 := mustPart(t, c, "Device", "C")
	l1 := mustPart(t, c, "Device", "L")

	if _, err := c.Tie(mustPin(t, u1, "SW"), mustPin(t, l1, "1")); err != nil {
		t.Fatalf("Tie failed: %v", err)
	}
	sw := mustNet(t, c, "SW")
	if err := sw.Connect(mustPin(t, l1, "1"), mustPin(t, c3, "1")); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	g, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if len(g.Nets) != 1 {
		t.Fatalf("Expected 1 net, got %d", len(g.Nets))
	}
	gn := g.Nets[0]
	if gn.Name != "SW" || gn.Anonymous {
		t.Errorf("Expected named net SW, got %s", gn.Name)
	}
	if diff := cmp.Diff([]string{"C1.1", "L1.1", "U1.5"}, pinNames(gn.Pins)); diff != "" {
		t.Errorf("SW pins mismatch (-want +got):\n%s", diff)
	}
	if len(g.Merges) != 0 {
		t.Errorf("Anonymous adoption should not be recorded as a merge: %v", g.Merges)
	}
}

func TestMergeKeepsFirstDeclaredName(t *testing.T) {
	c := newTestCircuit(t)
	c1 := mustPart(t, c, "Device", "C")
	agnd := mustNet(t, c, "AGND")
	gnd := mustNet(t, c, "GND")
	if err := gnd.SetDrive(DrivePower); err != nil {
		t.Fatal(err)
	}

	pin := mustPin(t, c1, "2")
	if err := gnd.Connect(pin); err != nil {
		t.Fatal(err)
	}
	if err := agnd.Connect(pin); err != nil {
		t.Fatal(err)
	}

	g, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if len(g.Nets) != 1 {
		t.Fatalf("Expected 1 net, got %d", len(g.Nets))
	}
	gn := g.Nets[0]
	if gn.Name != "AGND" {
		t.Errorf("Expected first declared name AGND, got %s", gn.Name)
	}
	if gn.Declared != DrivePower {
		t.Errorf("Expected merged declared drive power, got %s", gn.Declared)
	}
	if diff := cmp.Diff([]string{"GND"}, gn.Aliases); diff != "" {
		t.Errorf("Aliases mismatch (-want +got):\n%s", diff)
	}
	want := []Merge{{Kept: "AGND", Absorbed: "GND"}}
	if diff := cmp.Diff(want, g.Merges); diff != "" {
		t.Errorf("Merges mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectionOrderIndependence(t *testing.T) {
	build := func(reverse bool) *Graph {
		c := newTestCircuit(t)
		c1 := mustPart(t, c, "Device", "C")
		c2 := mustPart(t, c, "Device", "C")
		gnd := mustNet(t, c, "GND")
		vcc := mustNet(t, c, "VCC")

		steps := []func() error{
			func() error { return gnd.Connect(mustPin(t, c1, "2")) },
			func() error { return vcc.Connect(mustPin(t, c1, "1"), mustPin(t, c2, "1")) },
			func() error { _, err := c.Tie(mustPin(t, c2, "2"), mustPin(t, c1, "2")); return err },
		}
		if reverse {
			for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
				steps[i], steps[j] = steps[j], steps[i]
			}
		}
		for _, step := range steps {
			if err := step(); err != nil {
				t.Fatal(err)
			}
		}
		g, err := c.Finalize()
		if err != nil {
			t.Fatal(err)
		}
		return g
	}

	summarize := func(g *Graph) map[string][]string {
		out := make(map[string][]string)
		for _, n := range g.Nets {
			out[n.Name] = pinNames(n.Pins)
		}
		return out
	}

	forward, backward := summarize(build(false)), summarize(build(true))
	if diff := cmp.Diff(forward, backward); diff != "" {
		t.Errorf("Graph depends on connection order (-forward +backward):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"C1.2", "C2.2"}, forward["GND"]); diff != "" {
		t.Errorf("GND pins mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalize(t *testing.T) {
	c := newTestCircuit(t)
	u1 := mustPart(t, c, "Regulator_Switching", "AP63203WU")
	vin := mustNet(t, c, "+12V")
	if err := vin.Connect(mustPin(t, u1, "IN"), mustPin(t, u1, "EN")); err != nil {
		t.Fatal(err)
	}

	g, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	again, err := c.Finalize()
	if err != nil || again != g {
		t.Error("Finalize should return the same graph when called twice")
	}

	if _, err := c.Net("GND"); !errors.Is(err, ErrFinalized) {
		t.Errorf("Expected ErrFinalized from Net, got %v", err)
	}
	if _, err := c.Part("Device", "C"); !errors.Is(err, ErrFinalized) {
		t.Errorf("Expected ErrFinalized from Part, got %v", err)
	}
	if err := vin.Connect(mustPin(t, u1, "FB")); !errors.Is(err, ErrFinalized) {
		t.Errorf("Expected ErrFinalized from Connect, got %v", err)
	}
	if err := vin.SetDrive(DrivePower); !errors.Is(err, ErrFinalized) {
		t.Errorf("Expected ErrFinalized from SetDrive, got %v", err)
	}

	if diff := cmp.Diff([]string{"U1.1", "U1.4", "U1.5", "U1.6"}, pinNames(g.Unconnected)); diff != "" {
		t.Errorf("Unconnected mismatch (-want +got):\n%s", diff)
	}
	if n := g.NetOf(mustPin(t, u1, "EN")); n == nil || n.Name != "+12V" {
		t.Error("NetOf(U1.EN) should be +12V")
	}
	if g.Part("U1") != u1 {
		t.Error("Part(U1) lookup failed")
	}
	if g.Part("U2") != nil {
		t.Error("Part(U2) should be nil")
	}
	// power_in pins put no drive on the net
	if n := g.Net("+12V"); n.Drive != DriveNone {
		t.Errorf("Expected drive none, got %s", n.Drive)
	}
}

func TestForeignObjects(t *testing.T) {
	a := newTestCircuit(t)
	b := newTestCircuit(t)
	pa := mustPart(t, a, "Device", "C")
	nb := mustNet(t, b, "GND")

	if err := nb.Connect(mustPin(t, pa, "1")); !errors.Is(err, ErrForeignObject) {
		t.Errorf("Expected ErrForeignObject, got %v", err)
	}
	if err := a.Connect(nb); !errors.Is(err, ErrForeignObject) {
		t.Errorf("Expected ErrForeignObject for net, got %v", err)
	}
}

func TestWriteSummary(t *testing.T) {
	c := newTestCircuit(t)
	c1 := mustPart(t, c, "Device", "C", WithValue("10uF"), WithFootprint("Capacitor_SMD:C_0805_2012Metric"))
	l1 := mustPart(t, c, "Device", "L", WithValue("10uH"), WithFootprint("Inductor_SMD:L_1210_3225Metric"))
	gnd := mustNet(t, c, "GND")
	if err := gnd.Connect(mustPin(t, c1, "2")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Tie(mustPin(t, c1, "1"), mustPin(t, l1, "1")); err != nil {
		t.Fatal(err)
	}
	g, err := c.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := g.WriteSummary(&buf); err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"Total Parts: 2",
		"Total Nets: 2",
		"",
		"Parts List:",
		"  C1: 10uF (Capacitor_SMD:C_0805_2012Metric)",
		"  L1: 10uH (Inductor_SMD:L_1210_3225Metric)",
		"",
		"Net Connections:",
		"  GND: C1.2",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
}

func TestDriveOrdering(t *testing.T) {
	order := []Drive{DriveNoConnect, DriveNone, DrivePassive, DrivePullUpDn, DriveOneSide, DriveTriState, DrivePushPull, DrivePower}
	if !sort.SliceIsSorted(order, func(i, j int) bool { return order[i] < order[j] }) {
		t.Error("Drive constants are not ordered weakest to strongest")
	}
	for _, d := range order {
		parsed, err := ParseDrive(d.String())
		if err != nil || parsed != d {
			t.Errorf("ParseDrive(%q) = %v, %v", d.String(), parsed, err)
		}
	}
	if _, err := ParseDrive("strong"); err == nil {
		t.Error("Expected error for unknown drive")
	}
}

func TestPinTypes(t *testing.T) {
	tests := []struct {
		in       string
		want     PinType
		drive    Drive
		required Drive
	}{
		{"input", PinInput, DriveNone, DrivePassive},
		{"output", PinOutput, DrivePushPull, DriveNone},
		{"power_in", PinPowerIn, DriveNone, DrivePower},
		{"power_out", PinPowerOut, DrivePower, DriveNone},
		{"passive", PinPassive, DrivePassive, DriveNone},
		{"tristate", PinTriState, DriveTriState, DriveNone},
		{"openCol", PinOpenCollector, DriveOneSide, DriveNone},
		{"no_connect", PinNoConnect, DriveNoConnect, DriveNoConnect},
	}
	for _, tt := range tests {
		got, err := ParsePinType(tt.in)
		if err != nil {
			t.Errorf("ParsePinType(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want || got.Drive() != tt.drive || got.RequiredDrive() != tt.required {
			t.Errorf("ParsePinType(%q) = %s drive=%s required=%s", tt.in, got, got.Drive(), got.RequiredDrive())
		}
	}
	if _, err := ParsePinType("analog"); err == nil {
		t.Error("Expected error for unknown pin type")
	}
}

func TestNaturalLess(t *testing.T) {
	refs := []string{"U1", "C10", "C2", "J1", "C1", "N$10", "N$2"}
	sort.Slice(refs, func(i, j int) bool { return naturalLess(refs[i], refs[j]) })
	want := []string{"C1", "C2", "C10", "J1", "N$2", "N$10", "U1"}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Errorf("Sort mismatch (-want +got):\n%s", diff)
	}
	if naturalLess("9", "9") {
		t.Error("naturalLess must be irreflexive")
	}
	if !naturalLess("9", "10") {
		t.Error("Expected 9 < 10")
	}
}
