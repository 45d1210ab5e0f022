package view

import (
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/legend"
	"github.com/joeblew999/plat-schoolmap/internal/mapview"
	"github.com/joeblew999/plat-schoolmap/internal/pins"
	"github.com/joeblew999/plat-schoolmap/internal/search"
	"github.com/joeblew999/plat-schoolmap/internal/service"
	"github.com/joeblew999/plat-schoolmap/internal/style"
)

// Region is the payload of a KindRegions event.
type Region struct {
	Name  string        `json:"name"`
	Style style.Polygon `json:"style"`
}

// Boundary is the payload of a KindBoundaries event.
type Boundary struct {
	Type    district.SchoolType `json:"type"`
	Visible bool                `json:"visible"`
}

// Viewport is the payload of a KindViewport event.
type Viewport struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Zoom    int     `json:"zoom"`
	Animate bool    `json:"animate"`
}

// Popup is a school popup: its details plus the utilization colour.
type Popup struct {
	district.Details
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	UtilizationColor string  `json:"utilizationColor,omitempty"`
}

// PopupFor builds the popup content of s.
func PopupFor(s *district.School) Popup {
	p := Popup{Details: s.Details(), Lat: s.Location.Lat(), Lng: s.Location.Lon()}
	if p.Utilization != nil {
		p.UtilizationColor = style.UtilizationColor(*p.Utilization)
	}
	return p
}

// Surface publishes every change of a mapview.App to the event bus.
// Payloads are copies, so subscribers never share state with the App.
//
// Marker styles arrive one school at a time and are held back until the
// legend that always follows a restyle, then sent as a single event.
type Surface struct {
	bus     *service.EventBus
	pending map[string]style.Marker
}

// NewSurface creates a surface publishing to bus.
func NewSurface(bus *service.EventBus) *Surface {
	return &Surface{bus: bus, pending: map[string]style.Marker{}}
}

func (s *Surface) SetMarkerStyle(school *district.School, m style.Marker) {
	s.pending[school.Name] = m
}

func (s *Surface) ShowLegend(l legend.Legend) {
	if len(s.pending) > 0 {
		s.publish(service.KindMarkers, s.pending)
		s.pending = make(map[string]style.Marker, len(s.pending))
	}
	s.publish(service.KindLegend, l)
}

func (s *Surface) SetRegionStyle(r district.Region, p style.Polygon) {
	s.publish(service.KindRegions, Region{Name: r.Name, Style: p})
}

func (s *Surface) SetBoundaryVisible(t district.SchoolType, visible bool) {
	s.publish(service.KindBoundaries, Boundary{Type: t, Visible: visible})
}

func (s *Surface) CenterOn(loc orb.Point, zoom int, animate bool) {
	s.publish(service.KindViewport, Viewport{Lat: loc.Lat(), Lng: loc.Lon(), Zoom: zoom, Animate: animate})
}

func (s *Surface) OpenSchool(school *district.School) {
	s.publish(service.KindPopup, PopupFor(school))
}

func (s *Surface) ShowPins(list []*pins.Pin) {
	s.publish(service.KindPins, copyPins(list))
}

func (s *Surface) OpenPin(p *pins.Pin) {
	s.publish(service.KindPinPopup, *p)
}

func (s *Surface) ShowSearch(v mapview.SearchView) {
	v.Results = append([]search.Result(nil), v.Results...)
	s.publish(service.KindSearch, v)
}

func (s *Surface) publish(k service.Kind, payload any) {
	s.bus.Publish(service.Event{Kind: k, Payload: payload})
}

func copyPins(list []*pins.Pin) []pins.Pin {
	out := make([]pins.Pin, len(list))
	for i, p := range list {
		out[i] = *p
	}
	return out
}
