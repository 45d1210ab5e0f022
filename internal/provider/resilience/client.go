// Package resilience wraps outbound HTTP calls to external providers with a
// circuit breaker and bounded exponential retries.
package resilience

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ServerError is a 5xx answer from the provider.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: status %d", e.StatusCode)
}

// Config tunes a Client. Zero fields other than MaxRetries take the
// defaults noted below.
type Config struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// Timeout bounds a single attempt. Default: 10s.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Zero
	// means a single attempt; DefaultConfig uses 2.
	MaxRetries uint64

	// InitialInterval and MaxInterval shape the backoff. Defaults: 200ms, 2s.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// BreakerTimeout is how long the breaker stays open. Default: 30s.
	BreakerTimeout time.Duration

	// ReadyToTrip decides when to open the breaker. Default: 5 requests
	// with at least half failing.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange observes breaker transitions.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultConfig returns the defaults for a named provider.
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		BreakerTimeout:  30 * time.Second,
		ReadyToTrip:     DefaultReadyToTrip,
	}
}

// DefaultReadyToTrip opens the breaker after 5+ requests at >= 50% failures.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < 5 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
}

// Client executes requests through the breaker with retries.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	cfg     Config
}

// NewClient builds a Client, filling in defaults.
func NewClient(cfg Config) *Client {
	def := DefaultConfig(cfg.Name)
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = def.ReadyToTrip
	}

	settings := gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   1,
		Timeout:       cfg.BreakerTimeout,
		ReadyToTrip:   cfg.ReadyToTrip,
		OnStateChange: cfg.OnStateChange,
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings), //nolint:bodyclose // type param
		cfg:     cfg,
	}
}

// Do sends req. Network errors and 5xx answers are retried; 4xx answers are
// returned to the caller as-is. The caller closes the response body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var resp *http.Response
	op := func() error {
		r, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to caller
			r, err := c.http.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				drain(r)
				return nil, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return resp, nil
}

// State exposes the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func drain(r *http.Response) {
	_, _ = io.Copy(io.Discard, r.Body)
	_ = r.Body.Close()
}
