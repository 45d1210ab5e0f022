// Package view serves the interactive map over Datastar: browser controls
// post their signals here, and every resulting change streams back on a
// single server-sent event connection. Each request acts on the map of its
// own session, which must be in the request context.
package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/humastar"
	"github.com/joeblew999/plat-schoolmap/internal/legend"
	"github.com/joeblew999/plat-schoolmap/internal/mapview"
	"github.com/joeblew999/plat-schoolmap/internal/pins"
	"github.com/joeblew999/plat-schoolmap/internal/search"
	"github.com/joeblew999/plat-schoolmap/internal/service"
	"github.com/joeblew999/plat-schoolmap/internal/session"
	"github.com/joeblew999/plat-schoolmap/internal/style"
	"github.com/joeblew999/plat-schoolmap/internal/templates"
	"github.com/joeblew999/plat-schoolmap/internal/viewmode"
)

// Handler wires browser controls to the App entry points.
type Handler struct {
	humastar.Handler
	logger zerolog.Logger
}

// NewHandler creates a view handler.
func NewHandler(renderer *templates.Renderer, logger zerolog.Logger) *Handler {
	return &Handler{
		Handler: humastar.Handler{Renderer: renderer},
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags("view")
	huma.Get(api, "/api/v1/view/events", h.Events, tags)
	huma.Post(api, "/api/v1/view/mode", h.SelectMode, tags)
	huma.Post(api, "/api/v1/view/regions/opacity", h.SetRegionOpacity, tags)
	huma.Post(api, "/api/v1/view/boundaries/{type}", h.SetBoundaryVisible, tags)
	huma.Post(api, "/api/v1/view/preferences", h.SetPreferences, tags)
	huma.Post(api, "/api/v1/view/search/input", h.SearchInput, tags)
	huma.Post(api, "/api/v1/view/search/key", h.SearchKey, tags)
	huma.Post(api, "/api/v1/view/search/results/{index}", h.ActivateResult, tags)
	huma.Post(api, "/api/v1/view/search/close", h.CloseSearch, tags)
	huma.Post(api, "/api/v1/view/markers/{name}/click", h.ClickMarker, tags)
	huma.Post(api, "/api/v1/view/map/dblclick", h.DoubleClickMap, tags)
	huma.Delete(api, "/api/v1/view/pins", h.ClearPins, tags)
	huma.Delete(api, "/api/v1/view/pins/{id}", h.RemovePin, tags)
	huma.Put(api, "/api/v1/view/pins/{id}/label", h.RelabelPin, tags)
}

func current(ctx context.Context) (*session.Session, error) {
	s, ok := session.FromContext(ctx)
	if !ok {
		return nil, huma.Error500InternalServerError("no map session")
	}
	return s, nil
}

func currentApp(ctx context.Context) (*mapview.App, error) {
	s, err := current(ctx)
	if err != nil {
		return nil, err
	}
	return s.App, nil
}

// Events paints the current state, then streams every change. A stream that
// falls behind is cut off by the bus; it then resubscribes and repaints.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	sess, err := current(ctx)
	if err != nil {
		return nil, err
	}
	return h.Stream(func(sse humastar.SSE) {
		sess.Attach()
		defer sess.Detach()

		for {
			ch := sess.Bus.Subscribe()
			h.paint(sse, sess.App.Snapshot())
			if !h.relay(ctx, sse, ch) {
				sess.Bus.Unsubscribe(ch)
				return
			}
			h.logger.Warn().Str("session", sess.ID).Msg("view stream fell behind, repainting")
		}
	}), nil
}

// relay sends events from ch until ctx ends, reporting false, or the bus
// closes ch, reporting true.
func (h *Handler) relay(ctx context.Context, sse humastar.SSE, ch <-chan service.Event) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return true
			}
			h.send(sse, ev)
		}
	}
}

func (h *Handler) SelectMode(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	m, err := viewmode.Parse(signals.String("mode"))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	app.SelectMode(m)
	return h.ack(), nil
}

func (h *Handler) SetRegionOpacity(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("regionOpacity") {
		return nil, huma.Error400BadRequest("regionOpacity is required")
	}
	app.SetRegionOpacity(signals.Float("regionOpacity"))
	return h.ack(), nil
}

type BoundaryInput struct {
	Type    string `path:"type" enum:"es,ms,hs" doc:"School type"`
	RawBody []byte
}

func (h *Handler) SetBoundaryVisible(ctx context.Context, input *BoundaryInput) (*huma.StreamResponse, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	signals, err := humastar.ParseSignals(input.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	visible := false
	if group, ok := signals["boundaries"].(map[string]any); ok {
		visible, _ = group[input.Type].(bool)
	}
	if err := app.SetBoundaryVisible(district.SchoolType(input.Type), visible); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return h.ack(), nil
}

func (h *Handler) SetPreferences(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if signals.Has("zoomOnSelect") {
		app.SetZoomOnSelect(signals.Bool("zoomOnSelect"))
	}
	if signals.Has("reducedMotion") {
		app.SetReducedMotion(signals.Bool("reducedMotion"))
	}
	return h.ack(), nil
}

func (h *Handler) SearchInput(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	app.OnSearchInput(signals.String("query"))
	return h.ack(), nil
}

func (h *Handler) SearchKey(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	app.OnSearchKey(search.Key(signals.String("key")))
	return h.ack(), nil
}

type ResultInput struct {
	Index int `path:"index" minimum:"0" doc:"Row of the result list"`
}

func (h *Handler) ActivateResult(ctx context.Context, input *ResultInput) (*huma.StreamResponse, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	app.ActivateResult(input.Index)
	return h.ack(), nil
}

func (h *Handler) CloseSearch(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	app.CloseSearch()
	return h.ack(), nil
}

type MarkerInput struct {
	Name string `path:"name" doc:"School name"`
}

func (h *Handler) ClickMarker(ctx context.Context, input *MarkerInput) (*huma.StreamResponse, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	if err := app.ClickMarker(input.Name); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return h.ack(), nil
}

func (h *Handler) DoubleClickMap(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("lat") || !signals.Has("lng") {
		return nil, huma.Error400BadRequest("lat and lng are required")
	}
	app.DoubleClickMap(signals.Float("lat"), signals.Float("lng"), signals.Bool("modifier"))
	return h.ack(), nil
}

func (h *Handler) ClearPins(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	app.ClearPins()
	return h.done("Pins cleared"), nil
}

type PinInput struct {
	ID string `path:"id" doc:"Pin ID"`
}

func (h *Handler) RemovePin(ctx context.Context, input *PinInput) (*huma.StreamResponse, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	if err := app.RemovePin(input.ID); err != nil {
		return nil, pinError(err)
	}
	return h.done("Pin removed"), nil
}

type RelabelInput struct {
	ID      string `path:"id" doc:"Pin ID"`
	RawBody []byte
}

func (h *Handler) RelabelPin(ctx context.Context, input *RelabelInput) (*huma.StreamResponse, error) {
	app, err := currentApp(ctx)
	if err != nil {
		return nil, err
	}
	signals, err := humastar.ParseSignals(input.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	if err := app.RelabelPin(input.ID, signals.String("pinLabel")); err != nil {
		return nil, pinError(err)
	}
	return h.ack(), nil
}

func pinError(err error) error {
	if errors.Is(err, pins.ErrNotFound) {
		return huma.Error404NotFound(err.Error())
	}
	return huma.Error500InternalServerError("pin update failed", err)
}

// ack answers an action. The visible result arrives on the events stream.
func (h *Handler) ack() *huma.StreamResponse {
	return h.Stream(func(humastar.SSE) {})
}

// done answers an action with a confirmation toast.
func (h *Handler) done(msg string) *huma.StreamResponse {
	return h.Stream(func(sse humastar.SSE) { sse.Success(msg) })
}

// paint sends the whole state to a freshly attached stream.
func (h *Handler) paint(sse humastar.SSE, st mapview.State) {
	h.patchLegend(sse, st.Legend)
	sse.Signals(map[string]any{
		"mode":          st.Mode,
		"region":        st.Region,
		"markers":       st.Markers,
		"regionOpacity": st.RegionOpacity,
		"boundaries":    st.Boundaries,
		"zoomOnSelect":  st.ZoomOnSelect,
		"reducedMotion": st.ReducedMotion,
	})
	h.patchSearch(sse, st.Search)
	h.patchPins(sse, st.Pins)
}

// send translates one bus event into patches, signals or browser events.
func (h *Handler) send(sse humastar.SSE, ev service.Event) {
	switch p := ev.Payload.(type) {
	case map[string]style.Marker:
		sse.Signals(map[string]any{"markers": p})
	case legend.Legend:
		h.patchLegend(sse, p)
	case Region:
		sse.Signals(map[string]any{"regions": map[string]any{p.Name: p.Style}})
	case Boundary:
		sse.Signals(map[string]any{"boundaries": map[string]any{string(p.Type): p.Visible}})
	case Viewport:
		sse.DispatchCustomEvent("map-center", p)
	case Popup:
		sse.DispatchCustomEvent("open-popup", map[string]any{
			"name": p.Name,
			"lat":  p.Lat,
			"lng":  p.Lng,
			"html": h.Render("school-popup", p),
		})
	case []pins.Pin:
		h.patchPins(sse, p)
	case pins.Pin:
		sse.DispatchCustomEvent("open-pin", p)
	case mapview.SearchView:
		h.patchSearch(sse, p)
	default:
		h.logger.Warn().Str("kind", string(ev.Kind)).Str("payload", fmt.Sprintf("%T", ev.Payload)).Msg("unhandled view event")
	}
}

func (h *Handler) patchLegend(sse humastar.SSE, l legend.Legend) {
	sse.Replace(h.Render("legend", l), "#legend")
	sse.Signals(map[string]any{"mode": l.Mode})
}

func (h *Handler) patchSearch(sse humastar.SSE, v mapview.SearchView) {
	sse.Patch(h.Render("search-results", v), "#search-results")
	sse.Signals(map[string]any{
		"query":        v.Query,
		"placeholder":  v.Placeholder,
		"searchOpen":   v.Open,
		"searchActive": v.Active,
	})
}

func (h *Handler) patchPins(sse humastar.SSE, list []pins.Pin) {
	items := make([]any, len(list))
	for i, p := range list {
		items[i] = p
	}
	html := h.Render("pins-header", list) +
		h.RenderList("pin", items, "No pins yet", "Hold Ctrl or ⌘ and double-click the map to drop one")
	sse.Patch(html, "#pins")
	sse.Signals(map[string]any{"pinCount": len(list)})
}
