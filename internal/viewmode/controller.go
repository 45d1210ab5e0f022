package viewmode

import (
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/style"
)

// Surface receives the output of the controller. ModeChanged is called once
// per transition or feeder selection, after every marker has been restyled.
type Surface interface {
	SetMarkerStyle(s *district.School, m style.Marker)
	ModeChanged(m Mode, region string)
}

// clickHandler reacts to a marker click while installed.
type clickHandler func(s *district.School)

// Controller owns the active mode, the feeder selection and the single set of
// marker click handlers belonging to that mode.
type Controller struct {
	schools []*district.School
	surface Surface
	logger  zerolog.Logger

	mode    Mode
	region  string
	onClick clickHandler
}

// NewController creates a controller in Default mode and styles every marker.
func NewController(schools []*district.School, surface Surface, logger zerolog.Logger) *Controller {
	c := &Controller{schools: schools, surface: surface, logger: logger}
	c.transition(Default)
	return c
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode { return c.mode }

// Region returns the feeder selection, or "" when nothing is selected.
func (c *Controller) Region() string { return c.region }

// Interactive reports whether the active mode handles marker clicks.
func (c *Controller) Interactive() bool { return c.onClick != nil }

// Select switches to m. Selecting the active mode again re-applies it and
// clears any feeder selection.
func (c *Controller) Select(m Mode) {
	c.transition(m)
}

// Click routes a marker click to the handler installed by the active mode.
// It reports whether a handler was installed.
func (c *Controller) Click(s *district.School) bool {
	if c.onClick == nil || s == nil {
		return false
	}
	c.onClick(s)
	return true
}

// transition tears down the previous mode's handlers before installing the
// new ones, so at most one mode's handlers are ever live.
func (c *Controller) transition(m Mode) {
	c.onClick = nil
	c.mode = m
	c.region = ""

	c.restyle()
	if m == Feeder {
		c.onClick = c.selectRegionOf
	}

	c.logger.Debug().Str("mode", m.String()).Msg("view mode applied")
	c.surface.ModeChanged(m, "")
}

// selectRegionOf highlights every school sharing the clicked school's region.
// Schools without a region, or in the district-wide sentinel, are ignored.
func (c *Controller) selectRegionOf(s *district.School) {
	if !s.InRegion() {
		return
	}
	c.region = s.Region
	c.restyle()

	c.logger.Debug().Str("region", c.region).Msg("feeder region selected")
	c.surface.ModeChanged(c.mode, c.region)
}

func (c *Controller) restyle() {
	for _, s := range c.schools {
		c.surface.SetMarkerStyle(s, StyleFor(c.mode, s, c.region))
	}
}
