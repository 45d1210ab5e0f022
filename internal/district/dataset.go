package district

import "github.com/paulmach/orb"

// Dataset is the in-memory registry built once at startup.
type Dataset struct {
	Regions    []Region
	Boundaries map[SchoolType][]Boundary

	schools []*School
	byName  map[string]*School
}

// NewDataset indexes schools by name. When two schools share a name the
// later one wins the name and the earlier one is dropped, so every name maps
// to exactly one marker.
func NewDataset(regions []Region, schools []*School, boundaries map[SchoolType][]Boundary) *Dataset {
	d := &Dataset{
		Regions:    regions,
		Boundaries: boundaries,
		byName:     make(map[string]*School, len(schools)),
	}
	if d.Boundaries == nil {
		d.Boundaries = map[SchoolType][]Boundary{}
	}
	for _, s := range schools {
		d.byName[s.Name] = s
	}
	for _, s := range schools {
		if d.byName[s.Name] == s {
			d.schools = append(d.schools, s)
		}
	}
	return d
}

// Schools returns every school, elementary first, in file order.
func (d *Dataset) Schools() []*School {
	out := make([]*School, len(d.schools))
	copy(out, d.schools)
	return out
}

// SchoolsOfType returns the schools of a single type.
func (d *Dataset) SchoolsOfType(t SchoolType) []*School {
	var out []*School
	for _, s := range d.schools {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

// School looks a school up by its exact name.
func (d *Dataset) School(name string) (*School, bool) {
	s, ok := d.byName[name]
	return s, ok
}

// Names returns the name -> school mapping used by the search index.
func (d *Dataset) Names() map[string]*School {
	out := make(map[string]*School, len(d.byName))
	for k, v := range d.byName {
		out[k] = v
	}
	return out
}

// Bound covers every school location and region polygon.
func (d *Dataset) Bound() orb.Bound {
	var b orb.Bound
	first := true
	extend := func(o orb.Bound) {
		if first {
			b = o
			first = false
			return
		}
		b = b.Union(o)
	}
	for _, s := range d.schools {
		extend(s.Location.Bound())
	}
	for _, r := range d.Regions {
		if r.Geometry != nil {
			extend(r.Geometry.Bound())
		}
	}
	return b
}
