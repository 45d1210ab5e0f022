// Package viewmode selects how school markers are styled. One Mode is active
// at a time; Feeder mode also carries the currently selected region.
package viewmode

import (
	"fmt"
	"strings"
)

// Mode is a display mode for school markers.
type Mode int

const (
	Default Mode = iota
	ISP
	Capacity
	Programs
	Feeder
)

// Modes lists every mode in selector order.
var Modes = []Mode{Default, ISP, Capacity, Programs, Feeder}

var modeNames = [...]string{"default", "isp", "capacity", "programs", "feeder"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Parse resolves a selector value such as "isp" to a Mode.
func Parse(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return Default, fmt.Errorf("unknown view mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
