package viewmode

import (
	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/style"
)

// Fixed looks shared across modes.
var (
	// dimmed de-emphasises middle and high schools in ISP and capacity mode.
	dimmed = style.Marker{Fill: "#444", FillOpacity: 0.2, Stroke: "#333", Weight: 1}
	// feederDim is the resting look of every marker in feeder mode.
	feederDim = style.Marker{Fill: "#555", FillOpacity: 0.15, Stroke: "#333", Weight: 1}
	// unknown marks an elementary school without capacity data.
	unknown = style.Marker{Fill: style.Neutral, FillOpacity: 0.4, Stroke: "#555", Weight: 1}
)

// StyleFor computes the marker style of s. It depends only on its arguments;
// region is the feeder selection and is ignored by every other mode.
func StyleFor(m Mode, s *district.School, region string) style.Marker {
	radius := style.TypeRadius(s.Type)

	switch m {
	case ISP:
		if s.Type != district.Elementary {
			return withRadius(dimmed, radius)
		}
		return full(style.ISPColor(s.ISP), 0.9, radius)

	case Capacity:
		if s.Type != district.Elementary {
			return withRadius(dimmed, radius)
		}
		u, ok := s.Utilization()
		if !ok {
			return withRadius(unknown, radius)
		}
		return full(style.CapacityColor(u), 0.9, style.CapacityRadius(*s.Enrollment))

	case Programs:
		return full(style.ProgramColor(s.Program), 0.85, radius)

	case Feeder:
		if region != "" && !district.IsSentinel(region) && s.Region == region {
			color, ok := style.RegionColor(region)
			if !ok {
				color = style.White
			}
			return full(color, 0.9, radius+3)
		}
		return withRadius(feederDim, radius)
	}

	return full(style.TypeColor(s.Type), 0.85, radius)
}

func full(fill string, opacity, radius float64) style.Marker {
	return style.Marker{Fill: fill, FillOpacity: opacity, Stroke: style.White, Weight: 2, Radius: radius}
}

func withRadius(m style.Marker, radius float64) style.Marker {
	m.Radius = radius
	return m
}
