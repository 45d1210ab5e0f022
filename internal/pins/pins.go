// Package pins keeps the user's dropped location markers for one session.
package pins

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// ErrNotFound is returned when a pin id is unknown.
var ErrNotFound = errors.New("pin not found")

// Pin is a user marker. Its label is edited after creation.
type Pin struct {
	ID       string    `json:"id" doc:"Opaque pin id" format:"uuid"`
	Location orb.Point `json:"location" doc:"Longitude, latitude"`
	Address  string    `json:"address" doc:"Display address"`
	Label    string    `json:"label" doc:"User label"`
}

// CoordinateAddress is the default address of a pin dropped directly on the
// map: the coordinate at five decimal places.
func CoordinateAddress(lat, lng float64) string {
	return fmt.Sprintf("%.5f, %.5f", lat, lng)
}

// Manager is an insertion ordered pin collection. It is not safe for
// concurrent use; the owning controller serializes access.
type Manager struct {
	pins []*Pin
}

// NewManager returns an empty collection.
func NewManager() *Manager {
	return &Manager{}
}

// Add creates a pin at loc with an empty label.
func (m *Manager) Add(loc orb.Point, address string) *Pin {
	p := &Pin{ID: uuid.NewString(), Location: loc, Address: address}
	m.pins = append(m.pins, p)
	return p
}

// Remove deletes exactly p, compared by identity. It reports whether p was
// present.
func (m *Manager) Remove(p *Pin) bool {
	for i, q := range m.pins {
		if q == p {
			m.pins = append(m.pins[:i], m.pins[i+1:]...)
			return true
		}
	}
	return false
}

// Get looks a pin up by id.
func (m *Manager) Get(id string) (*Pin, error) {
	for _, p := range m.pins {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Relabel sets the label of the pin with the given id.
func (m *Manager) Relabel(id, label string) (*Pin, error) {
	p, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	p.Label = label
	return p, nil
}

// Clear removes every pin.
func (m *Manager) Clear() {
	m.pins = nil
}

// List returns the pins in insertion order.
func (m *Manager) List() []*Pin {
	out := make([]*Pin, len(m.pins))
	copy(out, m.pins)
	return out
}

// Len returns the number of pins.
func (m *Manager) Len() int { return len(m.pins) }
