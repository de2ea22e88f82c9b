package erc

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/trace-eurorack/pkg/circuit"
	"github.com/OpenTraceLab/trace-eurorack/pkg/kicad/symlib"
)

// fixture wraps a circuit under construction and fails the test on any
// declaration error.
type fixture struct {
	t *testing.T
	c *circuit.Circuit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lib, err := symlib.Builtin()
	if err != nil {
		t.Fatalf("Failed to load builtin symbols: %v", err)
	}
	return &fixture{t: t, c: circuit.New("erc", lib)}
}

func (f *fixture) part(lib, sym string, opts ...circuit.PartOption) *circuit.Part {
	f.t.Helper()
	p, err := f.c.Part(lib, sym, opts...)
	if err != nil {
		f.t.Fatalf("Part failed: %v", err)
	}
	return p
}

func (f *fixture) net(name string, d circuit.Drive) *circuit.Net {
	f.t.Helper()
	n, err := f.c.Net(name)
	if err != nil {
		f.t.Fatalf("Net failed: %v", err)
	}
	if err := n.SetDrive(d); err != nil {
		f.t.Fatal(err)
	}
	return n
}

func (f *fixture) pins(p *circuit.Part, ids ...string) []*circuit.Pin {
	f.t.Helper()
	var out []*circuit.Pin
	for _, id := range ids {
		pin, err := p.Pin(id)
		if err != nil {
			f.t.Fatalf("Pin failed: %v", err)
		}
		out = append(out, pin)
	}
	return out
}

func (f *fixture) connect(n *circuit.Net, pins ...[]*circuit.Pin) {
	f.t.Helper()
	for _, group := range pins {
		if err := n.Connect(group...); err != nil {
			f.t.Fatalf("Connect failed: %v", err)
		}
	}
}

func (f *fixture) tie(pins ...[]*circuit.Pin) {
	f.t.Helper()
	var all []*circuit.Pin
	for _, group := range pins {
		all = append(all, group...)
	}
	if _, err := f.c.Tie(all...); err != nil {
		f.t.Fatalf("Tie failed: %v", err)
	}
}

func (f *fixture) check() *Result {
	f.t.Helper()
	g, err := f.c.Finalize()
	if err != nil {
		f.t.Fatalf("Finalize failed: %v", err)
	}
	return Check(context.Background(), g)
}

func rules(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Severity.String() + " " + v.Rule
	}
	return out
}

// powerSupply declares the Eurorack power stage. When skipFB is set the
// regulator feedback pin is left unconnected.
func powerSupply(t *testing.T, skipFB bool) *fixture {
	f := newFixture(t)

	plus12 := f.net("+12V", circuit.DrivePower)
	minus12 := f.net("-12V", circuit.DrivePower)
	gnd := f.net("GND", circuit.DrivePower)
	plus3v3 := f.net("+3.3V", circuit.DrivePower)
	sw := f.net("SW", circuit.DriveNone)

	j1 := f.part("Connector_Generic", "Conn_02x05_Odd_Even",
		circuit.WithValue("Eurorack_Power"),
		circuit.WithFootprint("Connector_IDC:IDC-Header_2x05_P2.54mm_Vertical"))
	d1 := f.part("Device", "D_Schottky", circuit.WithValue("SS14"),
		circuit.WithFootprint("Diode_SMD:D_SMA"))
	u1 := f.part("Regulator_Switching", "AP63203WU", circuit.WithValue("AP63203WU-7"))
	c1 := f.part("Device", "C", circuit.WithValue("10uF"),
		circuit.WithFootprint("Capacitor_SMD:C_0805_2012Metric"))
	c2 := f.part("Device", "C", circuit.WithValue("22uF"),
		circuit.WithFootprint("Capacitor_SMD:C_0805_2012Metric"))
	c3 := f.part("Device", "C", circuit.WithValue("100nF"),
		circuit.WithFootprint("Capacitor_SMD:C_0402_1005Metric"))
	l1 := f.part("Device", "L", circuit.WithValue("10uH"),
		circuit.WithFootprint("Inductor_SMD:L_1210_3225Metric"))

	f.tie(f.pins(j1, "1"), f.pins(d1, "K"))
	f.connect(minus12, f.pins(d1, "A"))
	f.connect(plus12, f.pins(j1, "9", "10"), f.pins(c1, "1"), f.pins(u1, "IN", "EN"))
	f.connect(gnd, f.pins(j1, "2", "3", "4", "5", "6", "7", "8"),
		f.pins(c1, "2"), f.pins(u1, "GND"), f.pins(c2, "2"))
	f.connect(sw, f.pins(u1, "SW"), f.pins(c3, "1"), f.pins(l1, "1"))
	f.tie(f.pins(u1, "BST"), f.pins(c3, "2"))
	f.connect(plus3v3, f.pins(l1, "2"), f.pins(c2, "1"))
	if !skipFB {
		f.connect(plus3v3, f.pins(u1, "FB"))
	}
	return f
}

func TestPowerSupplyClean(t *testing.T) {
	r := powerSupply(t, false).check()

	if len(r.Errors()) != 0 {
		t.Errorf("Expected no errors, got %v", r.Errors())
	}
	want := []Violation{{
		Severity: Warning,
		Rule:     RuleSinglePin,
		Net:      "-12V",
		Message:  "Net -12V has only one pin: D1.2",
	}}
	if diff := cmp.Diff(want, r.Violations); diff != "" {
		t.Errorf("Violations mismatch (-want +got):\n%s", diff)
	}
}

func TestUnconnectedFeedback(t *testing.T) {
	r := powerSupply(t, true).check()

	var found bool
	for _, v := range r.Warnings() {
		if v.Rule == RuleUnconnected && v.Part == "U1" {
			found = true
			if v.Message != "Unconnected pin U1.1 (FB, input)" {
				t.Errorf("Unexpected message %q", v.Message)
			}
		}
	}
	if !found {
		t.Error("Expected an unconnected warning for U1.FB")
	}
	if len(r.Errors()) != 0 {
		t.Errorf("Expected no errors, got %v", r.Errors())
	}
}

func TestInsufficientDrive(t *testing.T) {
	f := newFixture(t)
	vin := f.net("VIN", circuit.DriveNone)
	u1 := f.part("Regulator_Switching", "AP63203WU")
	c1 := f.part("Device", "C", circuit.WithFootprint("Capacitor_SMD:C_0805_2012Metric"))
	f.connect(vin, f.pins(u1, "IN"), f.pins(c1, "1"))

	r := f.check()
	errs := r.Errors()
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %v", errs)
	}
	if errs[0].Rule != RuleDrive || errs[0].Part != "U1" {
		t.Errorf("Unexpected violation %+v", errs[0])
	}
	if !strings.HasPrefix(errs[0].Message, "Insufficient drive on net VIN for pin U1.3") {
		t.Errorf("Unexpected message %q", errs[0].Message)
	}
}

func TestPowerOutConflict(t *testing.T) {
	f := newFixture(t)
	sw := f.net("SW", circuit.DriveNone)
	u1 := f.part("Regulator_Switching", "AP63203WU")
	u2 := f.part("Regulator_Switching", "AP63203WU")
	f.connect(sw, f.pins(u1, "SW"), f.pins(u2, "SW"))

	r := f.check()
	var conflicts []Violation
	for _, v := range r.Violations {
		if v.Rule == RulePinConflict {
			conflicts = append(conflicts, v)
		}
	}
	if len(conflicts) != 1 || conflicts[0].Severity != Error {
		t.Fatalf("Expected one pin conflict error, got %v", conflicts)
	}
	want := "Pin conflict on net SW: U1.5 (power_out) and U2.5 (power_out)"
	if conflicts[0].Message != want {
		t.Errorf("Message = %q, want %q", conflicts[0].Message, want)
	}
}

func TestInputOnPassiveNetIsDriven(t *testing.T) {
	f := newFixture(t)
	fb := f.net("FB", circuit.DriveNone)
	u1 := f.part("Regulator_Switching", "AP63203WU")
	c1 := f.part("Device", "C", circuit.WithFootprint("Capacitor_SMD:C_0805_2012Metric"))
	f.connect(fb, f.pins(u1, "FB"), f.pins(c1, "1"))

	for _, v := range f.check().Errors() {
		if v.Net == "FB" {
			t.Errorf("Unexpected error on FB: %s", v.Message)
		}
	}
}

func TestPartAndMergeRules(t *testing.T) {
	f := newFixture(t)
	agnd := f.net("AGND", circuit.DrivePower)
	gnd := f.net("GND", circuit.DrivePower)
	f.net("SPARE", circuit.DriveNone)
	c1 := f.part("Device", "C")
	f.connect(agnd, f.pins(c1, "1", "2"))
	f.connect(gnd, f.pins(c1, "2"))

	got := rules(f.check().Violations)
	want := []string{
		"WARNING empty-net",
		"WARNING no-footprint",
		"WARNING net-merge",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Rules mismatch (-want +got):\n%s", diff)
	}
}

func TestPrint(t *testing.T) {
	r := &Result{}
	r.add(Error, RuleDrive, "VIN", "U1", "Insufficient drive on net %s", "VIN")
	r.add(Warning, RuleSinglePin, "-12V", "", "Net -12V has only one pin: D1.2")

	var buf bytes.Buffer
	r.Print(&buf)
	want := "ERC ERROR: Insufficient drive on net VIN\n" +
		"ERC WARNING: Net -12V has only one pin: D1.2\n" +
		"ERC: 1 error(s), 1 warning(s)\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Print mismatch (-want +got):\n%s", diff)
	}
}

func TestConflictMatrixSymmetric(t *testing.T) {
	for i, a := range matrixOrder {
		for j, b := range matrixOrder {
			if conflictMatrix[i][j] != conflictMatrix[j][i] {
				t.Errorf("Matrix not symmetric for %s/%s", a, b)
			}
		}
	}

	tests := []struct {
		a, b circuit.PinType
		want level
	}{
		{circuit.PinOutput, circuit.PinOutput, fail},
		{circuit.PinPowerOut, circuit.PinPowerOut, fail},
		{circuit.PinOutput, circuit.PinPowerOut, fail},
		{circuit.PinUnspecified, circuit.PinPassive, warn},
		{circuit.PinNoConnect, circuit.PinPassive, fail},
		{circuit.PinPassive, circuit.PinPowerIn, ok},
		{circuit.PinInput, circuit.PinOutput, ok},
	}
	for _, tt := range tests {
		if got := conflict(tt.a, tt.b); got != tt.want {
			t.Errorf("conflict(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
