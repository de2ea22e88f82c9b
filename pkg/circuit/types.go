package circuit

import (
	"fmt"
	"strings"
)

// Drive is the drive strength a pin puts on a net, or that a net is
// declared to have. Values are ordered from weakest to strongest.
type Drive int

const (
	DriveNoConnect Drive = iota
	DriveNone
	DrivePassive
	DrivePullUpDn
	DriveOneSide
	DriveTriState
	DrivePushPull
	DrivePower
)

var driveNames = map[Drive]string{
	DriveNoConnect: "noconnect",
	DriveNone:      "none",
	DrivePassive:   "passive",
	DrivePullUpDn:  "pullupdn",
	DriveOneSide:   "oneside",
	DriveTriState:  "tristate",
	DrivePushPull:  "pushpull",
	DrivePower:     "power",
}

func (d Drive) String() string {
	if s, ok := driveNames[d]; ok {
		return s
	}
	return fmt.Sprintf("drive(%d)", int(d))
}

// ParseDrive converts a drive name ("power", "passive", ...) to a Drive.
func ParseDrive(s string) (Drive, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d, name := range driveNames {
		if name == s {
			return d, nil
		}
	}
	return DriveNone, fmt.Errorf("circuit: unknown drive %q", s)
}

// PinType is the KiCad electrical type of a pin.
type PinType string

const (
	PinInput         PinType = "input"
	PinOutput        PinType = "output"
	PinBidirectional PinType = "bidirectional"
	PinTriState      PinType = "tri_state"
	PinPassive       PinType = "passive"
	PinFree          PinType = "free"
	PinUnspecified   PinType = "unspecified"
	PinPowerIn       PinType = "power_in"
	PinPowerOut      PinType = "power_out"
	PinOpenCollector PinType = "open_collector"
	PinOpenEmitter   PinType = "open_emitter"
	PinNoConnect     PinType = "no_connect"
)

// pinDrives holds the drive a pin type applies and the minimum drive it
// needs to receive from its net.
var pinDrives = map[PinType]struct{ out, min Drive }{
	PinInput:         {DriveNone, DrivePassive},
	PinOutput:        {DrivePushPull, DriveNone},
	PinBidirectional: {DriveTriState, DriveNone},
	PinTriState:      {DriveTriState, DriveNone},
	PinPassive:       {DrivePassive, DriveNone},
	PinFree:          {DriveNone, DriveNone},
	PinUnspecified:   {DriveNone, DriveNone},
	PinPowerIn:       {DriveNone, DrivePower},
	PinPowerOut:      {DrivePower, DriveNone},
	PinOpenCollector: {DriveOneSide, DriveNone},
	PinOpenEmitter:   {DriveOneSide, DriveNone},
	PinNoConnect:     {DriveNoConnect, DriveNoConnect},
}

// ParsePinType validates a KiCad pin type string. Legacy names used by
// older libraries are accepted.
func ParsePinType(s string) (PinType, error) {
	switch s {
	case "tristate":
		return PinTriState, nil
	case "power", "power_input":
		return PinPowerIn, nil
	case "power_output":
		return PinPowerOut, nil
	case "openCol":
		return PinOpenCollector, nil
	case "openEm":
		return PinOpenEmitter, nil
	case "NotConnected", "not_connected":
		return PinNoConnect, nil
	}
	t := PinType(s)
	if _, ok := pinDrives[t]; !ok {
		return PinUnspecified, fmt.Errorf("circuit: unknown pin type %q", s)
	}
	return t, nil
}

// Drive returns the drive this pin type puts on its net.
func (t PinType) Drive() Drive {
	return pinDrives[t].out
}

// RequiredDrive returns the minimum net drive this pin type needs.
func (t PinType) RequiredDrive() Drive {
	return pinDrives[t].min
}
