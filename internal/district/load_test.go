package district_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-schoolmap/internal/district"
)

const regionsJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"Region":"East"},
  "geometry":{"type":"Polygon","coordinates":[[[-78.9,35.9],[-78.8,35.9],[-78.8,36.0],[-78.9,36.0],[-78.9,35.9]]]}}]}`

const esJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"name":"Oakwood Elementary","region":"East","isp":"47.8","capacity":500,"enrollment":"450","program":"Montessori"},
  "geometry":{"type":"Point","coordinates":[-78.85,35.95]}},
 {"type":"Feature","properties":{"name":"Not A Point"},"geometry":{"type":"LineString","coordinates":[[-78.8,35.9],[-78.7,35.9]]}},
 {"type":"Feature","properties":{"name":"No Data Elementary","region":"District-wide","isp":"n/a"},
  "geometry":{"type":"Point","coordinates":[-78.80,35.97]}}]}`

const msJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"name":"Riveroaks Middle","region":"East","isp":30},
  "geometry":{"type":"Point","coordinates":[-78.86,35.96]}}]}`

const hsJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"name":"Pine High","region":"North","cte":"Health Science","grades":"9-12"},
  "geometry":{"type":"Point","coordinates":[-78.90,36.05]}}]}`

const boundaryJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"sch_name":"Oakwood","name":"ignored"},
  "geometry":{"type":"Polygon","coordinates":[[[-78.9,35.9],[-78.8,35.9],[-78.8,36.0],[-78.9,35.9]]]}},
 {"type":"Feature","properties":{"name":"Fallback"},
  "geometry":{"type":"Polygon","coordinates":[[[-78.9,35.9],[-78.8,35.9],[-78.8,36.0],[-78.9,35.9]]]}}]}`

func testFS() fstest.MapFS {
	res := district.DefaultResources()
	return fstest.MapFS{
		res.Regions:      {Data: []byte(regionsJSON)},
		res.SchoolsES:    {Data: []byte(esJSON)},
		res.SchoolsMS:    {Data: []byte(msJSON)},
		res.SchoolsHS:    {Data: []byte(hsJSON)},
		res.BoundariesES: {Data: []byte(boundaryJSON)},
		res.BoundariesMS: {Data: []byte(boundaryJSON)},
		res.BoundariesHS: {Data: []byte(boundaryJSON)},
	}
}

func TestLoad(t *testing.T) {
	ds, err := district.Load(context.Background(), district.FSSource{FS: testFS()}, district.DefaultResources(), zerolog.Nop())
	require.NoError(t, err)

	require.Len(t, ds.Regions, 1)
	assert.Equal(t, "East", ds.Regions[0].Name)
	assert.InDelta(t, -78.85, ds.Regions[0].LabelAt.Lon(), 1e-9)
	assert.InDelta(t, 35.95, ds.Regions[0].LabelAt.Lat(), 1e-9)

	schools := ds.Schools()
	require.Len(t, schools, 4)
	assert.Equal(t, district.Elementary, schools[0].Type)
	assert.Equal(t, district.High, schools[3].Type)

	oak, ok := ds.School("Oakwood Elementary")
	require.True(t, ok)
	require.NotNil(t, oak.ISP)
	assert.Equal(t, 47.0, *oak.ISP)
	u, ok := oak.Utilization()
	require.True(t, ok)
	assert.InDelta(t, 0.9, u, 1e-9)

	nodata, _ := ds.School("No Data Elementary")
	assert.Nil(t, nodata.ISP)
	assert.False(t, nodata.InRegion())
	_, ok = nodata.Utilization()
	assert.False(t, ok)

	mid, _ := ds.School("Riveroaks Middle")
	assert.Nil(t, mid.ISP, "isp is an elementary attribute")

	pine, _ := ds.School("Pine High")
	assert.Equal(t, "Health Science", pine.CTE)
	assert.Equal(t, "9-12", pine.Grades)

	es := ds.Boundaries[district.Elementary]
	require.Len(t, es, 2)
	assert.Equal(t, "Oakwood", es[0].Name)
	assert.Equal(t, "Fallback", es[1].Name)
}

func TestLoad_FailsWhenAnyResourceMissing(t *testing.T) {
	fsys := testFS()
	delete(fsys, district.DefaultResources().BoundariesHS)

	ds, err := district.Load(context.Background(), district.FSSource{FS: fsys}, district.DefaultResources(), zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, ds)
	assert.True(t, errors.Is(err, district.ErrMissingResource))
}

func TestLoad_FailsOnInvalidGeoJSON(t *testing.T) {
	fsys := testFS()
	fsys[district.DefaultResources().SchoolsMS] = &fstest.MapFile{Data: []byte("not json")}

	_, err := district.Load(context.Background(), district.FSSource{FS: fsys}, district.DefaultResources(), zerolog.Nop())
	require.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	fsys := testFS()
	server := httptest.NewServer(http.FileServer(http.FS(fsys)))
	defer server.Close()

	ds, err := district.Load(context.Background(), district.NewSource(server.URL+"/"), district.DefaultResources(), zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, ds.Schools(), 4)

	_, err = district.HTTPSource{BaseURL: server.URL}.Fetch(context.Background(), "missing.geojson")
	assert.ErrorIs(t, err, district.ErrMissingResource)
}

func TestNewDataset_DuplicateNamesKeepLast(t *testing.T) {
	a := &district.School{Name: "Twin", Type: district.Elementary}
	b := &district.School{Name: "Twin", Type: district.Middle}

	ds := district.NewDataset(nil, []*district.School{a, b}, nil)
	require.Len(t, ds.Schools(), 1)
	got, _ := ds.School("Twin")
	assert.Same(t, b, got)
}
