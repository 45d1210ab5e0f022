package view

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/starfederation/datastar-go/datastar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/humastar"
	"github.com/joeblew999/plat-schoolmap/internal/legend"
	"github.com/joeblew999/plat-schoolmap/internal/mapview"
	"github.com/joeblew999/plat-schoolmap/internal/pins"
	"github.com/joeblew999/plat-schoolmap/internal/search"
	"github.com/joeblew999/plat-schoolmap/internal/service"
	"github.com/joeblew999/plat-schoolmap/internal/templates"
	"github.com/joeblew999/plat-schoolmap/internal/viewmode"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	renderer, err := templates.New()
	require.NoError(t, err)
	return &Handler{Handler: humastar.Handler{Renderer: renderer}, logger: zerolog.Nop()}
}

func stream(t *testing.T, fn func(sse humastar.SSE)) string {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/view/events", nil)
	fn(humastar.SSE{ServerSentEventGenerator: datastar.NewSSE(rec, req)})
	return rec.Body.String()
}

func TestSend_Legend(t *testing.T) {
	h := newTestHandler(t)
	body := stream(t, func(sse humastar.SSE) {
		h.send(sse, service.Event{Kind: service.KindLegend, Payload: legend.Build(viewmode.Feeder, "East")})
	})

	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, "Showing East region schools")
	assert.Contains(t, body, "#legend")
	assert.Contains(t, body, `<section id="legend"`)
	assert.NotContains(t, body, "mode inner", "the legend section is replaced whole")
}

func TestSend_SearchResults(t *testing.T) {
	h := newTestHandler(t)
	school := &district.School{Name: "Oakwood Elementary", Type: district.Elementary}
	v := mapview.SearchView{
		Query: "oak",
		Results: []search.Result{
			{Kind: search.KindSchool, School: school},
			{Kind: search.KindAddress, Query: "oak"},
		},
		Active:      1,
		Open:        true,
		Placeholder: mapview.DefaultPlaceholder,
	}
	body := stream(t, func(sse humastar.SSE) {
		h.send(sse, service.Event{Kind: service.KindSearch, Payload: v})
	})

	assert.Contains(t, body, "Oakwood Elementary")
	assert.Contains(t, body, `<span class="search-result-type">ES</span>`)
	assert.Contains(t, body, "search-address-item active")
	assert.Contains(t, body, "Search address: oak")
	assert.Contains(t, body, "datastar-patch-signals")
}

func TestSend_PinsAndPopups(t *testing.T) {
	h := newTestHandler(t)
	pin := pins.Pin{ID: "p1", Location: orb.Point{-78.9, 36}, Address: "120, Morris Street", Label: "Work"}
	school := &district.School{Name: "Pine High", Type: district.High, CTE: "Automotive"}

	body := stream(t, func(sse humastar.SSE) {
		h.send(sse, service.Event{Kind: service.KindPins, Payload: []pins.Pin{pin}})
		h.send(sse, service.Event{Kind: service.KindPinPopup, Payload: pin})
		h.send(sse, service.Event{Kind: service.KindPopup, Payload: PopupFor(school)})
	})

	assert.Contains(t, body, "120, Morris Street")
	assert.Contains(t, body, "(1)")
	assert.Contains(t, body, `id="pin-p1"`)
	assert.NotContains(t, body, "No pins yet")
	assert.Contains(t, body, "open-pin")
	assert.Contains(t, body, "open-popup")
	assert.Contains(t, body, "Automotive")
}

func TestPaint_EmptyPins(t *testing.T) {
	h := newTestHandler(t)
	st := mapview.State{
		Mode:   viewmode.Default,
		Legend: legend.Build(viewmode.Default, ""),
		Search: mapview.SearchView{Active: -1, Placeholder: mapview.DefaultPlaceholder},
	}
	body := stream(t, func(sse humastar.SSE) { h.paint(sse, st) })

	assert.Contains(t, body, "Elementary")
	assert.Contains(t, body, `"pinCount":0`)
	assert.NotContains(t, body, "pins-header")
	assert.Contains(t, body, "No pins yet")
}

func TestRelay_OverflowAsksForRepaint(t *testing.T) {
	h := newTestHandler(t)
	bus := service.NewEventBus(1)
	ch := bus.Subscribe()
	bus.Publish(service.Event{Kind: service.KindLegend, Payload: legend.Build(viewmode.Capacity, "")})
	bus.Publish(service.Event{Kind: service.KindLegend, Payload: legend.Build(viewmode.ISP, "")})

	var repaint bool
	body := stream(t, func(sse humastar.SSE) {
		repaint = h.relay(context.Background(), sse, ch)
	})

	assert.True(t, repaint)
	assert.Contains(t, body, "Utilization")
	assert.NotContains(t, body, "ISP (Free/Reduced Lunch Proxy)")
	assert.Zero(t, bus.Subscribers())
}

func TestRelay_StopsWhenClientLeaves(t *testing.T) {
	h := newTestHandler(t)
	bus := service.NewEventBus(1)
	ch := bus.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var repaint bool
	stream(t, func(sse humastar.SSE) {
		repaint = h.relay(ctx, sse, ch)
	})

	assert.False(t, repaint)
	assert.Equal(t, 1, bus.Subscribers())
}
