package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-schoolmap/internal/metrics"
)

func TestMetrics_Exposition(t *testing.T) {
	m := metrics.New()
	m.IncModeSwitch("feeder")
	m.IncModeSwitch("feeder")
	m.IncGeocode(metrics.GeocodeStale)
	m.AddPins(4)
	m.AddPins(-1)
	m.SetSessions(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `schoolmap_mode_switches_total{mode="feeder"} 2`)
	assert.Contains(t, body, `schoolmap_geocode_requests_total{outcome="stale"} 1`)
	assert.Contains(t, body, "schoolmap_pins 3")
	assert.Contains(t, body, "schoolmap_sessions 2")
}

func TestMetrics_Middleware(t *testing.T) {
	m := metrics.New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/legend", nil))

	n, err := testutil.GatherAndCount(m.Registry(), "schoolmap_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	expected := `
# HELP schoolmap_http_requests_total Count of HTTP requests served
# TYPE schoolmap_http_requests_total counter
schoolmap_http_requests_total{method="GET",path="/legend",status="418"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "schoolmap_http_requests_total"))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.IncModeSwitch("isp")
	m.IncGeocode(metrics.GeocodeError)
	m.AddPins(1)
	m.SetSessions(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
