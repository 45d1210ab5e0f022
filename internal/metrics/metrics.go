// Package metrics holds the Prometheus collectors of the map service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Geocode outcomes.
const (
	GeocodeFound    = "found"
	GeocodeNotFound = "not_found"
	GeocodeError    = "error"
	GeocodeStale    = "stale"
)

// Metrics is the service registry. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	modeSwitches        *prometheus.CounterVec
	geocodeRequests     *prometheus.CounterVec
	pins                prometheus.Gauge
	sessions            prometheus.Gauge
}

// New creates a fresh registry with every collector registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolmap",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests served",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "schoolmap",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	modeSwitches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolmap",
		Name:      "mode_switches_total",
		Help:      "View mode selections by target mode",
	}, []string{"mode"})

	geocodeRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolmap",
		Name:      "geocode_requests_total",
		Help:      "Address lookups by outcome",
	}, []string{"outcome"})

	pins := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "schoolmap",
		Name:      "pins",
		Help:      "Pins currently placed, across all sessions",
	})

	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "schoolmap",
		Name:      "sessions",
		Help:      "Live map sessions",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		modeSwitches,
		geocodeRequests,
		pins,
		sessions,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		modeSwitches:        modeSwitches,
		geocodeRequests:     geocodeRequests,
		pins:                pins,
		sessions:            sessions,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncModeSwitch counts a selection of mode.
func (m *Metrics) IncModeSwitch(mode string) {
	if m == nil {
		return
	}
	m.modeSwitches.WithLabelValues(mode).Inc()
}

// IncGeocode counts a geocode with one of the Geocode* outcomes.
func (m *Metrics) IncGeocode(outcome string) {
	if m == nil {
		return
	}
	m.geocodeRequests.WithLabelValues(outcome).Inc()
}

// AddPins adjusts the pin count by delta.
func (m *Metrics) AddPins(delta int) {
	if m == nil {
		return
	}
	m.pins.Add(float64(delta))
}

// SetSessions records the number of live sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records every request passing through next.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.ObserveHTTPRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent event streams working behind the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
