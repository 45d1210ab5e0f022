// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-schoolmap/internal/api/view"
	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/legend"
	"github.com/joeblew999/plat-schoolmap/internal/mapview"
	"github.com/joeblew999/plat-schoolmap/internal/pins"
	"github.com/joeblew999/plat-schoolmap/internal/search"
	"github.com/joeblew999/plat-schoolmap/internal/session"
	"github.com/joeblew999/plat-schoolmap/internal/style"
	"github.com/joeblew999/plat-schoolmap/internal/viewmode"
)

// Services holds the dependencies of the API handlers. The state and pin
// routes act on the session found in the request context.
type Services struct {
	Dataset *district.Dataset
	Index   *search.Index
}

// Types

type NameInput struct {
	Name string `path:"name" doc:"School name" example:"Oakwood Elementary"`
}

type PinIDInput struct {
	ID string `path:"id" doc:"Pin ID"`
}

type SchoolsInput struct {
	Type string `query:"type" enum:"es,ms,hs" doc:"Only schools of this type"`
}

type LegendInput struct {
	Mode   string `query:"mode" default:"default" enum:"default,isp,capacity,programs,feeder" doc:"View mode"`
	Region string `query:"region" doc:"Highlighted feeder region" example:"East"`
}

type SearchInput struct {
	Query string `query:"q" required:"true" doc:"Search text" example:"oak"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type RegionBody struct {
	Name    string    `json:"name" doc:"Region name"`
	Color   string    `json:"color" doc:"Fill colour"`
	LabelAt orb.Point `json:"labelAt" doc:"Longitude, latitude of the label"`
	Schools int       `json:"schools" doc:"Schools in the region"`
}

type SearchHit struct {
	Kind  string `json:"kind" enum:"school,address"`
	Label string `json:"label"`
	Badge string `json:"badge,omitempty" doc:"School type badge"`
	Name  string `json:"name,omitempty" doc:"School name, for school hits"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterSchools registers the read-only district routes.
func (h *APIHandler) RegisterSchools(api huma.API) {
	huma.Get(api, "/api/v1/schools", h.GetSchools, huma.OperationTags("district"))
	huma.Get(api, "/api/v1/schools/{name}", h.GetSchool, huma.OperationTags("district"))
	huma.Get(api, "/api/v1/regions", h.GetRegions, huma.OperationTags("district"))
	huma.Get(api, "/api/v1/search", h.Search, huma.OperationTags("district"))
}

// RegisterLegend registers the legend route.
func (h *APIHandler) RegisterLegend(api huma.API) {
	huma.Get(api, "/api/v1/legend", h.GetLegend, huma.OperationTags("view"))
}

// RegisterState registers the map state and pin routes.
func (h *APIHandler) RegisterState(api huma.API) {
	huma.Get(api, "/api/v1/state", h.GetState, huma.OperationTags("view"))
	huma.Get(api, "/api/v1/pins", h.GetPins, huma.OperationTags("pins"))
	huma.Delete(api, "/api/v1/pins/{id}", h.DeletePin, huma.OperationTags("pins"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetSchools(ctx context.Context, input *SchoolsInput) (*struct{ Body []*district.School }, error) {
	schools := h.svc.Dataset.Schools()
	if input.Type != "" {
		schools = h.svc.Dataset.SchoolsOfType(district.SchoolType(input.Type))
	}
	return &struct{ Body []*district.School }{Body: schools}, nil
}

func (h *APIHandler) GetSchool(ctx context.Context, input *NameInput) (*struct{ Body view.Popup }, error) {
	s, ok := h.svc.Dataset.School(input.Name)
	if !ok {
		return nil, huma.Error404NotFound("school not found")
	}
	return &struct{ Body view.Popup }{Body: view.PopupFor(s)}, nil
}

func (h *APIHandler) GetRegions(ctx context.Context, input *struct{}) (*struct{ Body []RegionBody }, error) {
	counts := map[string]int{}
	for _, s := range h.svc.Dataset.Schools() {
		if s.InRegion() {
			counts[s.Region]++
		}
	}
	out := make([]RegionBody, 0, len(h.svc.Dataset.Regions))
	for _, r := range h.svc.Dataset.Regions {
		out = append(out, RegionBody{
			Name:    r.Name,
			Color:   style.RegionPolygon(r.Name, 1).Fill,
			LabelAt: r.LabelAt,
			Schools: counts[r.Name],
		})
	}
	return &struct{ Body []RegionBody }{Body: out}, nil
}

func (h *APIHandler) GetLegend(ctx context.Context, input *LegendInput) (*struct{ Body legend.Legend }, error) {
	m, err := viewmode.Parse(input.Mode)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &struct{ Body legend.Legend }{Body: legend.Build(m, input.Region)}, nil
}

func (h *APIHandler) Search(ctx context.Context, input *SearchInput) (*struct{ Body []SearchHit }, error) {
	results := h.svc.Index.Match(input.Query)
	out := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hit := SearchHit{Kind: r.Kind.String(), Label: r.Label(), Badge: r.Badge()}
		if r.School != nil {
			hit.Name = r.School.Name
		}
		out = append(out, hit)
	}
	return &struct{ Body []SearchHit }{Body: out}, nil
}

func currentApp(ctx context.Context) (*mapview.App, error) {
	s, ok := session.FromContext(ctx)
	if !ok {
		return nil, huma.Error500InternalServerError("no map session")
	}
	return s.App, nil
}

func (h *APIHandler) GetState(ctx context.Context, input *struct{}) (*struct{ Body mapview.State }, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	return &struct{ Body mapview.State }{Body: app.Snapshot()}, nil
}

func (h *APIHandler) GetPins(ctx context.Context, input *struct{}) (*struct{ Body []pins.Pin }, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	return &struct{ Body []pins.Pin }{Body: app.Snapshot().Pins}, nil
}

func (h *APIHandler) DeletePin(ctx context.Context, input *PinIDInput) (*struct{ Body MessageBody }, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	if err := app.RemovePin(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Pin removed"}}, nil
}
