package geocode_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/geocode"
	"github.com/joeblew999/plat-schoolmap/internal/provider/resilience"
)

func testClient(url string) *geocode.Client {
	p := district.DefaultProfile()
	rc := resilience.DefaultConfig("test")
	rc.InitialInterval = 5 * time.Millisecond
	rc.MaxInterval = 10 * time.Millisecond
	return geocode.NewClient(geocode.ClientConfig{
		BaseURL:      url,
		ViewBox:      p.ViewBox,
		CountryCodes: p.CountryCodes,
		UserAgent:    "schoolmap-test",
		HTTPClient:   resilience.NewClient(rc),
	})
}

func TestClient_Geocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "120 Morris St", q.Get("q"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "us", q.Get("countrycodes"))
		assert.Equal(t, "-79.1,35.85,-78.7,36.15", q.Get("viewbox"))
		assert.Equal(t, "0", q.Get("bounded"))
		assert.Equal(t, "schoolmap-test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]string{
			{"lat": "35.9966", "lon": "-78.9017", "display_name": "120, Morris Street, Downtown, Durham, NC, USA"},
			{"lat": "0", "lon": "0", "display_name": "ignored"},
		})
	}))
	defer server.Close()

	res, err := testClient(server.URL).Geocode(context.Background(), "120 Morris St")
	require.NoError(t, err)
	assert.InDelta(t, 35.9966, res.Location.Lat(), 1e-9)
	assert.InDelta(t, -78.9017, res.Location.Lon(), 1e-9)
	assert.Equal(t, "120, Morris Street", res.Short())
}

func TestClient_NoResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Geocode(context.Background(), "nowhere at all")
	assert.ErrorIs(t, err, geocode.ErrNoResult)
}

func TestClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Geocode(context.Background(), "blocked")
	require.Error(t, err)
	assert.NotErrorIs(t, err, geocode.ErrNoResult)
}

func TestClient_DefaultClientSendsOneRequest(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := geocode.NewClient(geocode.ClientConfig{BaseURL: server.URL, UserAgent: "schoolmap-test"})
	_, err := c.Geocode(context.Background(), "120 Morris St")
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load())
	assert.Zero(t, geocode.HTTPConfig().MaxRetries)
}

func TestClient_BadCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"lat":"north","lon":"-78.9","display_name":"x"}]`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Geocode(context.Background(), "garbled")
	assert.Error(t, err)
}

func TestShortAddress(t *testing.T) {
	tests := map[string]string{
		"12 Main St, Durham, NC, USA": "12 Main St, Durham",
		"Durham, NC":                  "Durham, NC",
		"  Durham  ":                  "Durham",
		"":                            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, geocode.ShortAddress(in), in)
	}
}
