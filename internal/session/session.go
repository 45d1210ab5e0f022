// Package session gives every browser its own map. A cookie names the
// session; each session owns a mapview.App and the event bus its view stream
// listens on, so one visitor's mode, search and pins never reach another.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-schoolmap/internal/mapview"
	"github.com/joeblew999/plat-schoolmap/internal/metrics"
	"github.com/joeblew999/plat-schoolmap/internal/service"
)

const (
	// CookieName carries the session ID.
	CookieName = "schoolmap_session"

	// DefaultIdleTimeout is how long a session without requests or open
	// streams survives.
	DefaultIdleTimeout = 30 * time.Minute

	busSize = 256
)

// Session is one visitor's map.
type Session struct {
	ID  string
	App *mapview.App
	Bus *service.EventBus

	mu       sync.Mutex
	lastSeen time.Time
	streams  int
}

// Attach marks an open view stream. A session with open streams never
// expires.
func (s *Session) Attach() {
	s.mu.Lock()
	s.streams++
	s.mu.Unlock()
}

// Detach ends a stream started with Attach.
func (s *Session) Detach() {
	s.mu.Lock()
	s.streams--
	s.mu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time, idle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams == 0 && now.Sub(s.lastSeen) > idle
}

// Factory builds the App of a new session, publishing on bus.
type Factory func(bus *service.EventBus) *mapview.App

// Config holds the store configuration.
type Config struct {
	New         Factory
	IdleTimeout time.Duration
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics

	// Secure marks the cookie HTTPS only.
	Secure bool

	// Now is the clock. Default: time.Now.
	Now func() time.Time
}

// Store holds the live sessions.
type Store struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{cfg: cfg, sessions: make(map[string]*Session)}
}

// Get returns the session with id and marks it as used.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if ok {
		s.touch(st.cfg.Now())
	}
	return s, ok
}

// Create starts a new session. Idle sessions are expired first.
func (st *Store) Create() *Session {
	st.Sweep()

	bus := service.NewEventBus(busSize)
	s := &Session{
		ID:       uuid.NewString(),
		App:      st.cfg.New(bus),
		Bus:      bus,
		lastSeen: st.cfg.Now(),
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	n := len(st.sessions)
	st.mu.Unlock()

	st.cfg.Metrics.SetSessions(n)
	st.cfg.Logger.Debug().Str("session", s.ID).Int("sessions", n).Msg("session started")
	return s
}

// Sweep closes sessions idle for longer than the idle timeout and returns
// how many it closed.
func (st *Store) Sweep() int {
	now := st.cfg.Now()

	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if s.expired(now, st.cfg.IdleTimeout) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	n := len(st.sessions)
	st.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}
	for _, s := range expired {
		s.App.Close()
		st.cfg.Logger.Debug().Str("session", s.ID).Msg("session expired")
	}
	st.cfg.Metrics.SetSessions(n)
	return len(expired)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Close ends every session.
func (st *Store) Close() {
	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, s := range all {
		s.App.Close()
	}
	st.cfg.Metrics.SetSessions(0)
}

// Resolve returns the session named by the request cookie, starting one and
// setting the cookie when there is none or it has expired.
func (st *Store) Resolve(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(CookieName); err == nil {
		if s, ok := st.Get(c.Value); ok {
			return s
		}
	}
	s := st.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   st.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

// Middleware resolves the session of every request and stores it in the
// request context.
func (st *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := st.Resolve(w, r)
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}

type sessionKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext retrieves the session stored by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok
}
