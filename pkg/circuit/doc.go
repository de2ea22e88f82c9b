// Package circuit is a small declarative circuit description library.
//
// A Circuit is an explicit accumulation context: nets and parts are values
// returned by constructor calls on it, and connections are explicit calls
// that relate them. Several circuits can be declared in one process.
//
// # Usage
//
//	lib, _ := symlib.FromEnv()
//	c := circuit.New("power_supply", lib)
//
//	gnd, _ := c.Net("GND")
//	gnd.SetDrive(circuit.DrivePower)
//
//	c1, _ := c.Part("Device", "C",
//		circuit.WithValue("10uF"),
//		circuit.WithFootprint("Capacitor_SMD:C_0805_2012Metric"))
//
//	pin, _ := c1.Pin("2")
//	gnd.Connect(pin)
//
//	graph, _ := c.Finalize()
//
// Pins can also be tied directly to each other with Tie; when none of them
// is on a net yet, an anonymous net named N$1, N$2, ... is created. A
// connection that joins two named nets merges them; the first declared
// name is kept and the merge is recorded on the graph.
//
// Connectivity is tracked with a union-find over net and pin nodes, so
// connection order never matters for the final graph.
package circuit
