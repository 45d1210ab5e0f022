// Package server assembles the HTTP surface of the map: REST routes, the
// Datastar view stream, the viewer page and metrics.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-schoolmap/internal/api"
	"github.com/joeblew999/plat-schoolmap/internal/api/view"
	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/mapview"
	"github.com/joeblew999/plat-schoolmap/internal/metrics"
	"github.com/joeblew999/plat-schoolmap/internal/search"
	"github.com/joeblew999/plat-schoolmap/internal/service"
	"github.com/joeblew999/plat-schoolmap/internal/session"
	"github.com/joeblew999/plat-schoolmap/internal/templates"
	"github.com/joeblew999/plat-schoolmap/internal/viewmode"
)

// Config holds the server configuration.
type Config struct {
	Host     string
	Port     string
	Version  string
	Profile  district.Profile
	Dataset  *district.Dataset
	Source   string // where the dataset was loaded from, for /api/v1/info
	Geocoder mapview.Geocoder
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics

	// FragmentsDir overrides the embedded templates, for development.
	FragmentsDir string

	// SearchRate caps /api/v1/search requests per client per second.
	// Default: 1.
	SearchRate int

	// SessionIdle is how long an unused map session lives. Default: 30m.
	SessionIdle time.Duration
	// SecureCookies marks the session cookie HTTPS only.
	SecureCookies bool
}

// Server is the schoolmap HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	index    *search.Index
	sessions *session.Store
	renderer *templates.Renderer
	logger   zerolog.Logger
}

// New creates the server. Every browser gets its own map state, keyed by a
// session cookie.
func New(cfg Config) (*Server, error) {
	if cfg.SearchRate <= 0 {
		cfg.SearchRate = 1
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("schoolmap API", cfg.Version)
	humaConfig.Info.Description = "School district map: view modes, feeder regions, search and pins."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	var (
		renderer *templates.Renderer
		err      error
	)
	if cfg.FragmentsDir != "" {
		renderer, err = templates.NewFromDir(cfg.FragmentsDir)
	} else {
		renderer, err = templates.New()
	}
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	index := search.NewIndex(cfg.Dataset.Names())
	sessions := session.NewStore(session.Config{
		New: func(bus *service.EventBus) *mapview.App {
			return mapview.New(mapview.Config{
				Dataset:  cfg.Dataset,
				Profile:  cfg.Profile,
				Geocoder: cfg.Geocoder,
				Surface:  view.NewSurface(bus),
				Logger:   cfg.Logger,
				Metrics:  cfg.Metrics,
				Index:    index,
			})
		},
		IdleTimeout: cfg.SessionIdle,
		Logger:      cfg.Logger,
		Metrics:     cfg.Metrics,
		Secure:      cfg.SecureCookies,
	})

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		index:    index,
		sessions: sessions,
		renderer: renderer,
		logger:   cfg.Logger,
	}
	s.routes()
	s.handler = s.middleware(mux)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close ends every session, abandoning in-flight geocodes.
func (s *Server) Close() error {
	s.sessions.Close()
	return nil
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(&api.Services{
		Dataset: s.config.Dataset,
		Index:   s.index,
	}))
	api.NewInfoHandler(s.config.Profile, s.config.Dataset, s.config.Source, s.config.Version).RegisterRoutes(s.humaAPI)

	// Datastar SSE routes driving the interactive map
	view.NewHandler(s.renderer, s.logger).RegisterRoutes(s.humaAPI)

	s.mux.Handle("/metrics", s.config.Metrics.Handler())

	// Page routes
	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

// middleware records metrics for every request, attaches the map session to
// the routes that act on one, and rate limits the REST search. The view
// search routes are driven by keystrokes and stay unlimited.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := httprate.Limit(
		s.config.SearchRate,
		time.Second,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)(next)
	withSession := s.sessions.Middleware(next)

	return s.config.Metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/search":
			limited.ServeHTTP(w, r)
		case needsSession(r.URL.Path):
			withSession.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	}))
}

func needsSession(path string) bool {
	return path == "/viewer" ||
		path == "/api/v1/state" ||
		path == "/api/v1/pins" ||
		strings.HasPrefix(path, "/api/v1/pins/") ||
		strings.HasPrefix(path, "/api/v1/view/")
}

func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", strconv.Itoa(1))
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]any{
		"title":    "Too Many Requests",
		"status":   http.StatusTooManyRequests,
		"detail":   "Rate limit exceeded. Please try again later.",
		"instance": r.URL.Path,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "schoolmap",
		"status":  "running",
	})
}

type viewerPage struct {
	Title   string
	Signals string
	Modes   []viewmode.Mode
	Types   []district.SchoolType
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "no map session", http.StatusInternalServerError)
		return
	}
	st := sess.App.Snapshot()
	signals, err := json.Marshal(map[string]any{
		"mode":          st.Mode,
		"regionOpacity": st.RegionOpacity,
		"boundaries":    st.Boundaries,
		"zoomOnSelect":  st.ZoomOnSelect,
		"reducedMotion": st.ReducedMotion,
		"query":         "",
		"key":           "",
		"placeholder":   st.Search.Placeholder,
		"searchOpen":    false,
		"pinLabel":      "",
		"lat":           0,
		"lng":           0,
		"modifier":      false,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	html, err := s.renderer.Render("viewer", viewerPage{
		Title:   s.config.Profile.Name,
		Signals: string(signals),
		Modes:   viewmode.Modes,
		Types:   district.SchoolTypes,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("rendering viewer")
		http.Error(w, "viewer unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}
