package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-schoolmap/internal/district"
)

type InfoHandler struct {
	profile district.Profile
	data    *district.Dataset
	source  string
	version string
}

func NewInfoHandler(profile district.Profile, data *district.Dataset, source, version string) *InfoHandler {
	return &InfoHandler{profile: profile, data: data, source: source, version: version}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string              `json:"name" doc:"Service name"`
	Version  string              `json:"version" doc:"Service version"`
	District string              `json:"district" doc:"District profile name"`
	Source   string              `json:"source" doc:"Where the district data was loaded from"`
	Center   district.Coordinate `json:"center" doc:"Initial map centre"`
	Zoom     int                 `json:"zoom" doc:"Initial map zoom"`
	Schools  map[string]int      `json:"schools" doc:"School count per type"`
	Regions  int                 `json:"regions" doc:"Attendance regions"`
	Features []string            `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	schools := make(map[string]int, len(district.SchoolTypes))
	for _, t := range district.SchoolTypes {
		schools[string(t)] = len(h.data.SchoolsOfType(t))
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "schoolmap",
		Version:  h.version,
		District: h.profile.Name,
		Source:   h.source,
		Center:   h.profile.Center,
		Zoom:     h.profile.Zoom,
		Schools:  schools,
		Regions:  len(h.data.Regions),
		Features: []string{"view-modes", "feeder", "search", "geocode", "pins"},
	}}, nil
}
