// Package district holds the read-only school district data: schools,
// attendance regions and catchment boundaries, decoded from GeoJSON.
package district

import (
	"strings"

	"github.com/paulmach/orb"
)

// SentinelRegion marks schools that serve the whole district. They belong to
// no attendance region for grouping purposes.
const SentinelRegion = "District-wide"

// SchoolType is the level of a school.
type SchoolType string

const (
	Elementary SchoolType = "es"
	Middle     SchoolType = "ms"
	High       SchoolType = "hs"
)

// SchoolTypes lists every type in marker order.
var SchoolTypes = []SchoolType{Elementary, Middle, High}

// Label returns the short badge shown next to search results.
func (t SchoolType) Label() string {
	return strings.ToUpper(string(t))
}

// Title returns the long human readable type name.
func (t SchoolType) Title() string {
	switch t {
	case Elementary:
		return "Elementary"
	case Middle:
		return "Middle"
	case High:
		return "High"
	}
	return string(t)
}

// Valid reports whether t is one of the known types.
func (t SchoolType) Valid() bool {
	return t == Elementary || t == Middle || t == High
}

// School is one facility. It is immutable after load.
type School struct {
	Name     string     `json:"name" doc:"School name, unique within the district" example:"Oakwood Elementary"`
	Type     SchoolType `json:"type" enum:"es,ms,hs" doc:"School level"`
	Location orb.Point  `json:"location" doc:"Longitude, latitude"`
	Address  string     `json:"address,omitempty" doc:"Street address"`
	Region   string     `json:"region,omitempty" doc:"Attendance region" example:"East"`
	Program  string     `json:"program,omitempty" doc:"Magnet or special program label"`
	Calendar string     `json:"calendar,omitempty" doc:"Calendar (traditional, year-round)"`
	Grades   string     `json:"grades,omitempty" doc:"Grade span"`

	// ISP, Capacity and Enrollment are elementary attributes; CTE is high
	// school only. Nil means the value is missing or not numeric.
	ISP        *float64 `json:"isp,omitempty" doc:"Identified student percentage"`
	Capacity   *float64 `json:"capacity,omitempty" doc:"Building capacity"`
	Enrollment *float64 `json:"enrollment,omitempty" doc:"Current enrollment"`
	CTE        string   `json:"cte,omitempty" doc:"Career and technical education offering"`
}

// Utilization returns enrollment/capacity. ok is false when either value is
// missing or not positive.
func (s *School) Utilization() (u float64, ok bool) {
	if s.Capacity == nil || s.Enrollment == nil || *s.Capacity <= 0 || *s.Enrollment <= 0 {
		return 0, false
	}
	return *s.Enrollment / *s.Capacity, true
}

// InRegion reports whether the school takes part in region based grouping.
func (s *School) InRegion() bool {
	return s.Region != "" && !IsSentinel(s.Region)
}

// IsSentinel reports whether region is the district-wide marker value.
func IsSentinel(region string) bool {
	return strings.EqualFold(region, SentinelRegion)
}

// Region is an attendance region polygon.
type Region struct {
	Name     string       `json:"name"`
	Geometry orb.Geometry `json:"-"`
	// LabelAt is where the permanent region label is anchored.
	LabelAt orb.Point `json:"labelAt"`
}

// Boundary is a catchment polygon for one school type. Decorative only.
type Boundary struct {
	Type     SchoolType   `json:"type"`
	Name     string       `json:"name"`
	Geometry orb.Geometry `json:"-"`
}
