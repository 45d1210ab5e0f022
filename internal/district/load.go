package district

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrMissingResource is returned when a required resource cannot be fetched.
var ErrMissingResource = errors.New("district resource unavailable")

// Source fetches a named raw resource.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// FSSource reads resources from a file system.
type FSSource struct {
	FS fs.FS
}

// Fetch reads name from the file system.
func (s FSSource) Fetch(_ context.Context, name string) ([]byte, error) {
	data, err := fs.ReadFile(s.FS, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingResource, name, err)
	}
	return data, nil
}

// HTTPSource downloads resources relative to a base URL.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// Fetch GETs BaseURL/name. Any non-200 status is a failure.
func (s HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	url := strings.TrimSuffix(s.BaseURL, "/") + "/" + name

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingResource, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrMissingResource, url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// NewSource picks an HTTP source for http(s) locations and a directory
// source otherwise.
func NewSource(location string) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return HTTPSource{BaseURL: location}
	}
	return FSSource{FS: os.DirFS(location)}
}

// Load fetches all seven resources concurrently and decodes them. Any single
// failure aborts the whole load; no partial dataset is ever returned.
func Load(ctx context.Context, src Source, res Resources, logger zerolog.Logger) (*Dataset, error) {
	start := time.Now()

	type job struct {
		name string
		data []byte
	}
	names := res.list()
	jobs := make([]job, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		jobs[i].name = name
		g.Go(func() error {
			data, err := src.Fetch(gctx, name)
			if err != nil {
				return fmt.Errorf("loading %s: %w", name, err)
			}
			jobs[i].data = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	regions, err := DecodeRegions(jobs[0].data)
	if err != nil {
		return nil, err
	}

	var schools []*School
	boundaries := make(map[SchoolType][]Boundary, len(SchoolTypes))
	for i, t := range SchoolTypes {
		s, err := DecodeSchools(jobs[1+i].data, t)
		if err != nil {
			return nil, err
		}
		schools = append(schools, s...)

		b, err := DecodeBoundaries(jobs[4+i].data, t)
		if err != nil {
			return nil, err
		}
		boundaries[t] = b
	}

	ds := NewDataset(regions, schools, boundaries)
	if dropped := len(schools) - len(ds.Schools()); dropped > 0 {
		logger.Warn().Int("dropped", dropped).Msg("duplicate school names, later entries kept")
	}

	logger.Info().
		Int("regions", len(regions)).
		Int("schools", len(ds.Schools())).
		Dur("elapsed", time.Since(start)).
		Msg("district data loaded")

	return ds, nil
}
