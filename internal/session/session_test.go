package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/geocode"
	"github.com/joeblew999/plat-schoolmap/internal/legend"
	"github.com/joeblew999/plat-schoolmap/internal/mapview"
	"github.com/joeblew999/plat-schoolmap/internal/metrics"
	"github.com/joeblew999/plat-schoolmap/internal/pins"
	"github.com/joeblew999/plat-schoolmap/internal/service"
	"github.com/joeblew999/plat-schoolmap/internal/session"
	"github.com/joeblew999/plat-schoolmap/internal/style"
	"github.com/joeblew999/plat-schoolmap/internal/viewmode"
)

type nopSurface struct{}

func (nopSurface) SetMarkerStyle(*district.School, style.Marker) {}
func (nopSurface) ShowLegend(legend.Legend) {}
func (nopSurface) SetRegionStyle(district.Region, style.Polygon) {}
func (nopSurface) SetBoundaryVisible(district.SchoolType, bool) {}
func (nopSurface) CenterOn(orb.Point, int, bool) {}
func (nopSurface) OpenSchool(*district.School) {}
func (nopSurface) ShowPins([]*pins.Pin) {}
func (nopSurface) OpenPin(*pins.Pin) {}
func (nopSurface) ShowSearch(mapview.SearchView) {}

type noGeocoder struct{}

func (noGeocoder) Geocode(context.Context, string) (geocode.Result, error) {
	return geocode.Result{}, geocode.ErrNoResult
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newStore(t *testing.T, m *metrics.Metrics) (*session.Store, *clock) {
	t.Helper()
	data := district.NewDataset(
		[]district.Region{{Name: "East"}},
		[]*district.School{{Name: "Oakwood Elementary", Type: district.Elementary, Region: "East"}},
		nil,
	)
	clk := &clock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
	st := session.NewStore(session.Config{
		New: func(*service.EventBus) *mapview.App {
			return mapview.New(mapview.Config{
				Dataset:  data,
				Profile:  district.DefaultProfile(),
				Geocoder: noGeocoder{},
				Surface:  nopSurface{},
				Logger:   zerolog.Nop(),
				Metrics:  m,
			})
		},
		IdleTimeout: time.Minute,
		Logger:      zerolog.Nop(),
		Metrics:     m,
		Now:         clk.Now,
	})
	t.Cleanup(st.Close)
	return st, clk
}

func resolve(st *session.Store, cookie *http.Cookie) (*session.Session, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/viewer", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return st.Resolve(rec, req), rec
}

func TestStore_ResolveSetsAndHonoursCookie(t *testing.T) {
	st, _ := newStore(t, nil)

	s, rec := resolve(st, nil)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.Equal(t, s.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	again, rec := resolve(st, cookies[0])
	assert.Same(t, s, again)
	assert.Empty(t, rec.Result().Cookies())

	other, _ := resolve(st, &http.Cookie{Name: session.CookieName, Value: "unknown"})
	assert.NotSame(t, s, other)
	assert.Equal(t, 2, st.Len())
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	st, _ := newStore(t, nil)
	a, _ := resolve(st, nil)
	b, _ := resolve(st, nil)

	a.App.DoubleClickMap(36, -78.9, true)
	b.App.SelectMode(viewmode.Feeder)
	b.App.OnSearchInput("oak")

	assert.Len(t, a.App.Snapshot().Pins, 1)
	assert.Empty(t, b.App.Snapshot().Pins)
	assert.Equal(t, viewmode.Default, a.App.Snapshot().Mode)
	assert.Empty(t, a.App.Snapshot().Search.Query)
	assert.NotSame(t, a.Bus, b.Bus)
}

func TestStore_IdleSessionsExpire(t *testing.T) {
	m := metrics.New()
	st, clk := newStore(t, m)
	idle, _ := resolve(st, nil)
	streaming, _ := resolve(st, nil)
	streaming.Attach()
	idle.App.DoubleClickMap(36, -78.9, true)

	clk.Advance(2 * time.Minute)
	assert.Equal(t, 1, st.Sweep())

	_, ok := st.Get(idle.ID)
	assert.False(t, ok)
	_, ok = st.Get(streaming.ID)
	assert.True(t, ok, "sessions with an open stream survive")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "schoolmap_sessions 1")
	assert.Contains(t, rec.Body.String(), "schoolmap_pins 0")

	streaming.Detach()
	clk.Advance(2 * time.Minute)
	assert.Equal(t, 1, st.Sweep())
	assert.Zero(t, st.Len())
}

func TestStore_Middleware(t *testing.T) {
	st, _ := newStore(t, nil)

	var got *session.Session
	h := st.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = session.FromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/view/events", nil))

	require.NotNil(t, got)
	s, ok := st.Get(got.ID)
	require.True(t, ok)
	assert.Same(t, got, s)

	_, ok = session.FromContext(context.Background())
	assert.False(t, ok)
}
