package district

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// boundaryNameKeys are tried in order for a boundary's tooltip name.
var boundaryNameKeys = []string{"school_nam", "sch_name", "name"}

// DecodeRegions parses the region polygon collection. The region name is read
// from the "Region" property.
func DecodeRegions(data []byte) ([]Region, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing regions: %w", err)
	}

	regions := make([]Region, 0, len(fc.Features))
	for _, f := range fc.Features {
		r := Region{
			Name:     stringProp(f.Properties, "Region"),
			Geometry: f.Geometry,
		}
		if f.Geometry != nil {
			r.LabelAt = f.Geometry.Bound().Center()
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// DecodeSchools parses a school point collection of one type. Features
// without a point geometry or a name are skipped.
func DecodeSchools(data []byte, t SchoolType) ([]*School, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s schools: %w", t, err)
	}

	schools := make([]*School, 0, len(fc.Features))
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		p := f.Properties
		name := stringProp(p, "name")
		if name == "" {
			continue
		}
		s := &School{
			Name:     name,
			Type:     t,
			Location: pt,
			Address:  stringProp(p, "address"),
			Region:   stringProp(p, "region"),
			Program:  stringProp(p, "program"),
			Calendar: stringProp(p, "calendar"),
			Grades:   stringProp(p, "grades"),
		}
		switch t {
		case Elementary:
			s.ISP = truncated(numberProp(p, "isp"))
			s.Capacity = numberProp(p, "capacity")
			s.Enrollment = numberProp(p, "enrollment")
		case High:
			s.CTE = stringProp(p, "cte")
		}
		schools = append(schools, s)
	}
	return schools, nil
}

// DecodeBoundaries parses a catchment polygon collection of one type.
func DecodeBoundaries(data []byte, t SchoolType) ([]Boundary, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s boundaries: %w", t, err)
	}

	out := make([]Boundary, 0, len(fc.Features))
	for _, f := range fc.Features {
		b := Boundary{Type: t, Geometry: f.Geometry}
		for _, key := range boundaryNameKeys {
			if name := stringProp(f.Properties, key); name != "" {
				b.Name = name
				break
			}
		}
		out = append(out, b)
	}
	return out, nil
}

// stringProp renders a property as text. Numbers are formatted without a
// trailing ".0" so "grades": 5 reads as "5".
func stringProp(p geojson.Properties, key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// numberProp accepts JSON numbers and numeric strings such as "42" or "42%".
func numberProp(p geojson.Properties, key string) *float64 {
	v, ok := p[key]
	if !ok || v == nil {
		return nil
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(x), "%"))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// truncated drops the fractional part; ISP values are whole percentages.
func truncated(f *float64) *float64 {
	if f == nil {
		return nil
	}
	t := math.Trunc(*f)
	return &t
}
