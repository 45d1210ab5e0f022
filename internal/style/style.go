// Package style holds the colour and sizing rules that turn school and region
// attributes into render styles. Every function here is pure and total.
package style

import (
	"github.com/joeblew999/plat-schoolmap/internal/district"
)

// Palette colours shared by several rules.
const (
	Neutral = "#6b7280" // missing data, unmatched program
	Green   = "#5a9a58"
	Amber   = "#e6b422"
	Red     = "#ff6b6b"
	White   = "#fff"
)

// Marker is the render style of a circle marker.
type Marker struct {
	Fill        string  `json:"fill" doc:"Fill color (CSS)" example:"#5a9a58"`
	FillOpacity float64 `json:"fillOpacity" minimum:"0" maximum:"1" doc:"Fill opacity (0-1)"`
	Stroke      string  `json:"stroke" doc:"Stroke color (CSS)" example:"#fff"`
	Weight      float64 `json:"weight" doc:"Stroke width"`
	Radius      float64 `json:"radius" doc:"Circle radius in pixels"`
}

// Polygon is the render style of a region or boundary polygon.
type Polygon struct {
	Fill          string  `json:"fill" doc:"Fill color (CSS)"`
	FillOpacity   float64 `json:"fillOpacity" minimum:"0" maximum:"1"`
	Stroke        string  `json:"stroke" doc:"Stroke color (CSS)"`
	StrokeOpacity float64 `json:"strokeOpacity,omitempty" minimum:"0" maximum:"1"`
	Weight        float64 `json:"weight"`
	DashArray     string  `json:"dashArray,omitempty" example:"5,5"`
}

// typeColors and typeRadius give every school type its default look.
var (
	typeColors = map[district.SchoolType]string{
		district.Elementary: "#5a9a58",
		district.Middle:     "#4a90d9",
		district.High:       "#d95a5a",
	}
	typeRadius = map[district.SchoolType]float64{
		district.Elementary: 7,
		district.Middle:     8,
		district.High:       9,
	}
)

// TypeColor returns the fixed colour of a school type.
func TypeColor(t district.SchoolType) string {
	if c, ok := typeColors[t]; ok {
		return c
	}
	return Neutral
}

// TypeRadius returns the default marker radius of a school type.
func TypeRadius(t district.SchoolType) float64 {
	if r, ok := typeRadius[t]; ok {
		return r
	}
	return 7
}

// Region is one row of the fixed region colour table.
type Region struct {
	Name  string
	Color string
}

// Regions is ordered; the feeder legend lists regions in this order.
var Regions = []Region{
	{"Central", "#e6b422"},
	{"East", "#4ecdc4"},
	{"North", "#ff6b6b"},
	{"Southeast", "#a78bfa"},
	{"Southwest", "#f97316"},
}

// RegionColor looks a region up in the table. ok is false for unknown names.
func RegionColor(name string) (color string, ok bool) {
	for _, r := range Regions {
		if r.Name == name {
			return r.Color, true
		}
	}
	return "", false
}

// RegionPolygon styles an attendance region at the given fill opacity.
func RegionPolygon(name string, opacity float64) Polygon {
	color, ok := RegionColor(name)
	if !ok {
		color = "#888"
	}
	return Polygon{
		Fill:          color,
		FillOpacity:   ClampOpacity(opacity),
		Stroke:        color,
		StrokeOpacity: 0.7,
		Weight:        2,
	}
}

// BoundaryPolygon styles a catchment boundary of one school type.
func BoundaryPolygon(t district.SchoolType) Polygon {
	c := TypeColor(t)
	return Polygon{
		Fill:        c,
		FillOpacity: 0.08,
		Stroke:      c,
		Weight:      1.5,
		DashArray:   "5,5",
	}
}

// ClampOpacity keeps an opacity within [0, 1].
func ClampOpacity(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
