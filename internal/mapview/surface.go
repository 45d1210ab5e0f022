package mapview

import (
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/legend"
	"github.com/joeblew999/plat-schoolmap/internal/pins"
	"github.com/joeblew999/plat-schoolmap/internal/search"
	"github.com/joeblew999/plat-schoolmap/internal/style"
	"github.com/joeblew999/plat-schoolmap/internal/viewmode"
)

// Surface is the rendering side of the map. The App calls it while holding
// its lock, so implementations must not call back into the App.
type Surface interface {
	SetMarkerStyle(s *district.School, m style.Marker)
	ShowLegend(l legend.Legend)
	SetRegionStyle(r district.Region, p style.Polygon)
	SetBoundaryVisible(t district.SchoolType, visible bool)
	CenterOn(loc orb.Point, zoom int, animate bool)
	OpenSchool(s *district.School)
	ShowPins(list []*pins.Pin)
	OpenPin(p *pins.Pin)
	ShowSearch(v SearchView)
}

// SearchView is everything the search box and its result list display.
type SearchView struct {
	Query       string          `json:"query"`
	Results     []search.Result `json:"-"`
	Active      int             `json:"active"`
	Open        bool            `json:"open"`
	Placeholder string          `json:"placeholder"`
}

// modeSurface adapts the Surface for the view-mode controller. Every mode or
// feeder change rebuilds the legend from the same state.
type modeSurface struct {
	app *App
}

func (m modeSurface) SetMarkerStyle(s *district.School, st style.Marker) {
	m.app.surface.SetMarkerStyle(s, st)
}

func (m modeSurface) ModeChanged(mode viewmode.Mode, region string) {
	m.app.surface.ShowLegend(legend.Build(mode, region))
}
