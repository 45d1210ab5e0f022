// Package mapview owns the state of one interactive map: the view mode and
// feeder selection, the search box, the pins and the display preferences.
// Every inbound control is an App method; all output goes to a Surface.
package mapview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/geocode"
	"github.com/joeblew999/plat-schoolmap/internal/legend"
	"github.com/joeblew999/plat-schoolmap/internal/metrics"
	"github.com/joeblew999/plat-schoolmap/internal/pins"
	"github.com/joeblew999/plat-schoolmap/internal/search"
	"github.com/joeblew999/plat-schoolmap/internal/style"
	"github.com/joeblew999/plat-schoolmap/internal/viewmode"
)

const (
	// SchoolZoom is the zoom level used when a school is selected.
	SchoolZoom = 15
	// AddressZoom is the zoom level used for a geocoded address.
	AddressZoom = 16
	// DefaultRegionOpacity is the initial region fill opacity.
	DefaultRegionOpacity = 0.3

	DefaultPlaceholder = "Search schools or address…"
	ErrorPlaceholder   = "Address not found — try again"
)

var (
	ErrUnknownSchool = errors.New("unknown school")
	ErrUnknownType   = errors.New("unknown school type")
)

// Geocoder resolves an address query to its best match.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (geocode.Result, error)
}

// Config holds the collaborators of an App.
type Config struct {
	Dataset  *district.Dataset
	Profile  district.Profile
	Geocoder Geocoder
	Surface  Surface
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics

	// Index is shared between Apps over the same dataset. Built from the
	// dataset when nil.
	Index *search.Index

	// ErrorRevert is how long the address error placeholder stays. Default: 2s.
	ErrorRevert time.Duration
	// GeocodeTimeout bounds one lookup. Default: 15s.
	GeocodeTimeout time.Duration
}

// App is the single owner of the map state. It is safe for concurrent use;
// calls are serialized.
type App struct {
	mu sync.Mutex

	data     *district.Dataset
	profile  district.Profile
	geocoder Geocoder
	surface  Surface
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	modes   *viewmode.Controller
	session *search.Session
	pins    *pins.Manager

	regionOpacity float64
	boundaries    map[district.SchoolType]bool
	zoomOnSelect  bool
	reducedMotion bool
	placeholder   string

	// reportedPins is this App's share of the pins gauge.
	reportedPins int

	// gen is the generation of the latest geocode request. Responses from
	// older generations are discarded.
	gen uint64
	// revertGen guards the placeholder timer against newer errors.
	revertGen uint64

	errorRevert    time.Duration
	geocodeTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an App and paints the initial state onto the surface: default
// mode, regions at the default opacity, boundaries hidden, no pins.
func New(cfg Config) *App {
	if cfg.ErrorRevert <= 0 {
		cfg.ErrorRevert = 2 * time.Second
	}
	if cfg.GeocodeTimeout <= 0 {
		cfg.GeocodeTimeout = 15 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	index := cfg.Index
	if index == nil {
		index = search.NewIndex(cfg.Dataset.Names())
	}
	a := &App{
		data:           cfg.Dataset,
		profile:        cfg.Profile,
		geocoder:       cfg.Geocoder,
		surface:        cfg.Surface,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		session:        search.NewSession(index),
		pins:           pins.NewManager(),
		regionOpacity:  DefaultRegionOpacity,
		boundaries:     make(map[district.SchoolType]bool, len(district.SchoolTypes)),
		zoomOnSelect:   true,
		placeholder:    DefaultPlaceholder,
		errorRevert:    cfg.ErrorRevert,
		geocodeTimeout: cfg.GeocodeTimeout,
		ctx:            ctx,
		cancel:         cancel,
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.surface.CenterOn(orb.Point{a.profile.Center.Lng, a.profile.Center.Lat}, a.profile.Zoom, false)
	a.modes = viewmode.NewController(a.data.Schools(), modeSurface{app: a}, a.logger)
	a.paintRegions()
	for _, t := range district.SchoolTypes {
		a.boundaries[t] = false
		a.surface.SetBoundaryVisible(t, false)
	}
	a.surface.ShowPins(nil)
	a.showSearch()
	return a
}

// SelectMode switches the view mode. Re-selecting the active mode re-applies
// it.
func (a *App) SelectMode(m viewmode.Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.modes.Select(m)
	a.metrics.IncModeSwitch(m.String())
}

// SetRegionOpacity restyles every region at opacity, clamped to [0, 1].
func (a *App) SetRegionOpacity(opacity float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.regionOpacity = style.ClampOpacity(opacity)
	a.paintRegions()
}

// SetBoundaryVisible shows or hides the catchment boundaries of one type.
func (a *App) SetBoundaryVisible(t district.SchoolType, visible bool) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.boundaries[t] = visible
	a.surface.SetBoundaryVisible(t, visible)
	return nil
}

// SetZoomOnSelect sets whether selecting a result moves the viewport.
func (a *App) SetZoomOnSelect(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.zoomOnSelect = on
}

// SetReducedMotion makes viewport moves instantaneous instead of animated.
func (a *App) SetReducedMotion(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reducedMotion = on
}

// OnSearchInput recomputes the result list for text.
func (a *App) OnSearchInput(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.session.Input(text)
	a.showSearch()
}

// OnSearchKey applies a navigation key to the result list.
func (a *App) OnSearchKey(k search.Key) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r, ok := a.session.Key(k); ok {
		a.activate(r)
		return
	}
	a.showSearch()
}

// ActivateResult selects row i of the result list, as a click does.
func (a *App) ActivateResult(i int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r, ok := a.session.Pick(i); ok {
		a.activate(r)
	}
}

// CloseSearch hides the result list but keeps the query.
func (a *App) CloseSearch() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.session.Close()
	a.showSearch()
}

// ClickMarker opens the school's popup and hands the click to the active
// mode.
func (a *App) ClickMarker(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.data.School(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSchool, name)
	}
	a.surface.OpenSchool(s)
	a.modes.Click(s)
	return nil
}

// DoubleClickMap drops a pin at the coordinate when a modifier key is held.
// It returns the new pin, or nil when no modifier was held.
func (a *App) DoubleClickMap(lat, lng float64, modifier bool) *pins.Pin {
	if !modifier {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.addPin(orb.Point{lng, lat}, pins.CoordinateAddress(lat, lng))
}

// RemovePin removes the pin with the given id.
func (a *App) RemovePin(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, err := a.pins.Get(id)
	if err != nil {
		return err
	}
	a.pins.Remove(p)
	a.logger.Debug().Str("pin", id).Msg("pin removed")
	a.pinsChanged()
	return nil
}

// RelabelPin sets the label of the pin with the given id.
func (a *App) RelabelPin(id, label string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.pins.Relabel(id, label); err != nil {
		return err
	}
	a.pinsChanged()
	return nil
}

// ClearPins removes every pin.
func (a *App) ClearPins() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pins.Clear()
	a.pinsChanged()
}

// Wait blocks until in-flight geocodes and placeholder timers have finished.
func (a *App) Wait() {
	a.wg.Wait()
}

// Close abandons in-flight geocodes, waits for them to return and withdraws
// this App's pins from the metrics.
func (a *App) Close() {
	a.cancel()
	a.wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.metrics.AddPins(-a.reportedPins)
	a.reportedPins = 0
}

func (a *App) activate(r search.Result) {
	if r.Kind == search.KindSchool {
		a.session.Clear()
		a.showSearch()
		if a.zoomOnSelect {
			a.surface.CenterOn(r.School.Location, SchoolZoom, !a.reducedMotion)
		}
		a.surface.OpenSchool(r.School)
		return
	}

	a.session.Clear()
	a.showSearch()
	a.geocode(r.Query)
}

// geocode issues a lookup tagged with a new generation. It must be called
// with the lock held.
func (a *App) geocode(query string) {
	a.gen++
	gen := a.gen
	log := a.logger.With().Str("query", query).Uint64("gen", gen).Logger()
	log.Debug().Msg("geocode requested")

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(a.ctx, a.geocodeTimeout)
		res, err := a.geocoder.Geocode(ctx, query)
		cancel()

		a.mu.Lock()
		defer a.mu.Unlock()

		if a.ctx.Err() != nil {
			return
		}
		if gen != a.gen {
			log.Info().Uint64("latest", a.gen).Msg("discarding stale geocode response")
			a.metrics.IncGeocode(metrics.GeocodeStale)
			return
		}
		if err != nil {
			outcome := metrics.GeocodeError
			if errors.Is(err, geocode.ErrNoResult) {
				outcome = metrics.GeocodeNotFound
			}
			a.metrics.IncGeocode(outcome)
			log.Warn().Err(err).Msg("geocode failed")
			a.addressNotFound(query)
			return
		}

		a.metrics.IncGeocode(metrics.GeocodeFound)
		short := geocode.ShortAddress(res.Display)
		log.Info().Str("address", short).Msg("geocoded")
		a.addPin(res.Location, short)
		if a.zoomOnSelect {
			a.surface.CenterOn(res.Location, AddressZoom, !a.reducedMotion)
		}
	}()
}

// addressNotFound restores the query into the input and shows the error
// placeholder until the revert timer fires.
func (a *App) addressNotFound(query string) {
	a.session.Query = query
	a.placeholder = ErrorPlaceholder
	a.showSearch()

	a.revertGen++
	token := a.revertGen
	a.wg.Add(1)
	time.AfterFunc(a.errorRevert, func() {
		defer a.wg.Done()
		a.mu.Lock()
		defer a.mu.Unlock()
		if token != a.revertGen {
			return
		}
		a.placeholder = DefaultPlaceholder
		a.showSearch()
	})
}

func (a *App) addPin(loc orb.Point, address string) *pins.Pin {
	p := a.pins.Add(loc, address)
	a.logger.Debug().Str("pin", p.ID).Str("address", address).Msg("pin added")
	a.pinsChanged()
	a.surface.OpenPin(p)
	return p
}

func (a *App) pinsChanged() {
	n := a.pins.Len()
	a.metrics.AddPins(n - a.reportedPins)
	a.reportedPins = n
	a.surface.ShowPins(a.pins.List())
}

func (a *App) paintRegions() {
	for _, r := range a.data.Regions {
		a.surface.SetRegionStyle(r, style.RegionPolygon(r.Name, a.regionOpacity))
	}
}

func (a *App) showSearch() {
	a.surface.ShowSearch(a.searchView())
}

func (a *App) searchView() SearchView {
	return SearchView{
		Query:       a.session.Query,
		Results:     a.session.Results,
		Active:      a.session.Active,
		Open:        a.session.Open,
		Placeholder: a.placeholder,
	}
}

// State is a full copy of the map state, used to paint a newly attached view.
type State struct {
	Mode          viewmode.Mode                `json:"mode"`
	Region        string                       `json:"region,omitempty"`
	Legend        legend.Legend                `json:"legend"`
	Markers       map[string]style.Marker      `json:"markers"`
	RegionOpacity float64                      `json:"regionOpacity"`
	Boundaries    map[district.SchoolType]bool `json:"boundaries"`
	Search        SearchView                   `json:"search"`
	Pins          []pins.Pin                   `json:"pins"`
	ZoomOnSelect  bool                         `json:"zoomOnSelect"`
	ReducedMotion bool                         `json:"reducedMotion"`
}

// Snapshot returns a copy of the current state.
func (a *App) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	mode, region := a.modes.Mode(), a.modes.Region()
	st := State{
		Mode:          mode,
		Region:        region,
		Legend:        legend.Build(mode, region),
		Markers:       make(map[string]style.Marker, len(a.data.Schools())),
		RegionOpacity: a.regionOpacity,
		Boundaries:    make(map[district.SchoolType]bool, len(a.boundaries)),
		Search:        a.searchView(),
		Pins:          make([]pins.Pin, 0, a.pins.Len()),
		ZoomOnSelect:  a.zoomOnSelect,
		ReducedMotion: a.reducedMotion,
	}
	for _, s := range a.data.Schools() {
		st.Markers[s.Name] = viewmode.StyleFor(mode, s, region)
	}
	for t, v := range a.boundaries {
		st.Boundaries[t] = v
	}
	for _, p := range a.pins.List() {
		st.Pins = append(st.Pins, *p)
	}
	return st
}
