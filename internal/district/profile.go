package district

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes one district deployment: where the map opens, how the
// geocoder is biased and which files hold the data.
type Profile struct {
	Name         string     `yaml:"name"`
	Center       Coordinate `yaml:"center"`
	Zoom         int        `yaml:"zoom"`
	ViewBox      ViewBox    `yaml:"viewbox"`
	CountryCodes string     `yaml:"countryCodes"`
	UserAgent    string     `yaml:"userAgent"`
	Resources    Resources  `yaml:"resources"`
}

// Coordinate is a latitude/longitude pair.
type Coordinate struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

// ViewBox is the approximate district bounding box used to bias geocoding.
type ViewBox struct {
	West  float64 `yaml:"west"`
	South float64 `yaml:"south"`
	East  float64 `yaml:"east"`
	North float64 `yaml:"north"`
}

// Resources names the seven GeoJSON files of a district.
type Resources struct {
	Regions      string `yaml:"regions"`
	SchoolsES    string `yaml:"schoolsEs"`
	SchoolsMS    string `yaml:"schoolsMs"`
	SchoolsHS    string `yaml:"schoolsHs"`
	BoundariesES string `yaml:"boundariesEs"`
	BoundariesMS string `yaml:"boundariesMs"`
	BoundariesHS string `yaml:"boundariesHs"`
}

// list returns the resources in load order: regions, schools, boundaries.
func (r Resources) list() []string {
	return []string{
		r.Regions,
		r.SchoolsES, r.SchoolsMS, r.SchoolsHS,
		r.BoundariesES, r.BoundariesMS, r.BoundariesHS,
	}
}

// DefaultResources is the file layout the map ships with.
func DefaultResources() Resources {
	return Resources{
		Regions:      "regions.geojson",
		SchoolsES:    "schools-es.geojson",
		SchoolsMS:    "schools-ms.geojson",
		SchoolsHS:    "schools-hs.geojson",
		BoundariesES: "boundaries-es.geojson",
		BoundariesMS: "boundaries-ms.geojson",
		BoundariesHS: "boundaries-hs.geojson",
	}
}

// DefaultProfile is Durham Public Schools.
func DefaultProfile() Profile {
	return Profile{
		Name:         "Durham Public Schools",
		Center:       Coordinate{Lat: 35.98, Lng: -78.9},
		Zoom:         11,
		ViewBox:      ViewBox{West: -79.1, South: 35.85, East: -78.7, North: 36.15},
		CountryCodes: "us",
		UserAgent:    "SchoolPantryNetwork/1.0 (schoolpantry.network)",
		Resources:    DefaultResources(),
	}
}

// LoadProfile reads a YAML profile. Keys absent from the file keep their
// DefaultProfile values. An empty path returns the default.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("reading profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parsing profile: %w", err)
	}
	return p, nil
}
