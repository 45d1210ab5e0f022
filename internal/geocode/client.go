// Package geocode resolves free-text addresses through a Nominatim compatible
// search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/provider/resilience"
)

const (
	// ProviderName identifies the geocoder in logs and breaker state.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public OpenStreetMap Nominatim search endpoint.
	DefaultBaseURL = "https://nominatim.openstreetmap.org/search"
)

// ErrNoResult is returned when the service finds nothing for the query.
var ErrNoResult = errors.New("address not found")

// Result is the single best candidate for a query.
type Result struct {
	Location orb.Point `json:"location"`
	// Display is the full address as returned by the service.
	Display string `json:"display"`
}

// Short returns the first two comma separated parts of the full address.
func (r Result) Short() string {
	return ShortAddress(r.Display)
}

// ShortAddress keeps the first two comma separated segments of a full
// display address, e.g. "12 Main St, Durham, NC, USA" -> "12 Main St, Durham".
func ShortAddress(display string) string {
	parts := strings.Split(display, ",")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.TrimSpace(strings.Join(parts, ","))
}

// ClientConfig holds configuration for the geocoding client.
type ClientConfig struct {
	// BaseURL is the search endpoint (optional, defaults to Nominatim).
	BaseURL string

	// ViewBox biases results to the district.
	ViewBox district.ViewBox

	// CountryCodes restricts results, e.g. "us".
	CountryCodes string

	// UserAgent identifies the application, as the Nominatim usage policy
	// requires.
	UserAgent string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Nominatim search client returning the top result only.
type Client struct {
	baseURL      string
	viewBox      district.ViewBox
	countryCodes string
	userAgent    string
	httpClient   *resilience.Client
	logger       zerolog.Logger
}

// HTTPConfig is the resilience setup of the default client. A lookup is a
// single upstream request: the public service allows one per second, so
// failures are not retried.
func HTTPConfig() resilience.Config {
	cfg := resilience.DefaultConfig(ProviderName)
	cfg.MaxRetries = 0
	return cfg
}

// NewClient creates a geocoding client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(HTTPConfig())
	}
	return &Client{
		baseURL:      baseURL,
		viewBox:      cfg.ViewBox,
		countryCodes: cfg.CountryCodes,
		userAgent:    cfg.UserAgent,
		httpClient:   httpClient,
		logger:       cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode looks query up and returns the first candidate.
func (c *Client) Geocode(ctx context.Context, query string) (Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	if c.countryCodes != "" {
		params.Set("countrycodes", c.countryCodes)
	}
	if c.viewBox != (district.ViewBox{}) {
		params.Set("viewbox", fmt.Sprintf("%g,%g,%g,%g", c.viewBox.West, c.viewBox.South, c.viewBox.East, c.viewBox.North))
		params.Set("bounded", "0")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Result{}, fmt.Errorf("decoding response: %w", err)
	}
	if len(places) == 0 {
		return Result{}, ErrNoResult
	}

	top := places[0]
	lat, err := strconv.ParseFloat(top.Lat, 64)
	if err != nil {
		return Result{}, fmt.Errorf("parsing latitude %q: %w", top.Lat, err)
	}
	lon, err := strconv.ParseFloat(top.Lon, 64)
	if err != nil {
		return Result{}, fmt.Errorf("parsing longitude %q: %w", top.Lon, err)
	}

	c.logger.Debug().Str("query", query).Str("display", top.DisplayName).Msg("geocoded")
	return Result{Location: orb.Point{lon, lat}, Display: top.DisplayName}, nil
}
