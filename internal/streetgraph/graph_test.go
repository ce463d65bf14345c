package streetgraph

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/streetscore-go/internal/spatial"
)

const segmentMapJSON = `{
  "-122.87,38.61_-122.869,38.61": {
    "type": "Feature",
    "geometry": {"type": "LineString", "coordinates": [[-122.87, 38.61], [-122.869, 38.61]]},
    "properties": {"distance": 86.9}
  },
  "-122.869,38.61_-122.868,38.61": {
    "type": "Feature",
    "geometry": {"type": "LineString", "coordinates": [[-122.869, 38.61], [-122.868, 38.61]]},
    "properties": {"distance": 86.9}
  }
}`

const pointsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.87, 38.61]}, "properties": {}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.869, 38.61]}, "properties": {}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.868, 38.61]}, "properties": {}}
  ]
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestKeyString(t *testing.T) {
	k := KeyOf(spatial.Point{Lon: -122.87, Lat: 38.61})
	assert.Equal(t, "-122.87,38.61", k.String())

	start := KeyOf(spatial.Point{Lon: -122.87, Lat: 38.61})
	end := KeyOf(spatial.Point{Lon: -122.8691234, Lat: 38.6100001})
	assert.Equal(t, "-122.87,38.61_-122.8691234,38.6100001", EdgeID(start, end))
}

func TestKeyOfAbsorbsFloatNoise(t *testing.T) {
	a := KeyOf(spatial.Point{Lon: 0.1 + 0.2, Lat: 38.61})
	b := KeyOf(spatial.Point{Lon: 0.3, Lat: 38.61})
	assert.Equal(t, a, b)
}

func TestNew(t *testing.T) {
	p1 := spatial.Point{Lon: 0, Lat: 0}
	p2 := spatial.Point{Lon: 0.001, Lat: 0}
	p3 := spatial.Point{Lon: 0.002, Lat: 0}

	g, err := New([]Edge{
		{ID: "b", Start: p2, End: p3, LengthM: 50.5},
		{ID: "a", Start: p1, End: p2, LengthM: 100.25},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, "a", g.Edges()[0].ID, "edges are ordered by id")
	assert.Len(t, g.Endpoints(), 3, "shared endpoint is deduplicated")
	assert.InDelta(t, 150.75, g.TotalLengthM(), 1e-9)

	e, ok := g.Edge("b")
	require.True(t, ok)
	assert.Equal(t, p3, e.End)

	_, ok = g.Edge("missing")
	assert.False(t, ok)
}

func TestNew_Invalid(t *testing.T) {
	p := spatial.Point{Lon: 0, Lat: 0}
	tests := []struct {
		name  string
		edges []Edge
	}{
		{name: "empty", edges: nil},
		{name: "duplicate id", edges: []Edge{{ID: "a", Start: p, End: p}, {ID: "a", Start: p, End: p}}},
		{name: "empty id", edges: []Edge{{Start: p, End: p}}},
		{name: "negative length", edges: []Edge{{ID: "a", Start: p, End: p, LengthM: -1}}},
		{name: "bad coordinate", edges: []Edge{{ID: "a", Start: spatial.Point{Lon: 200}, End: p}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.edges)
			assert.Error(t, err)
		})
	}
}

func TestEdgesReturnsCopy(t *testing.T) {
	g, err := New([]Edge{{ID: "a", LengthM: 1}})
	require.NoError(t, err)

	edges := g.Edges()
	edges[0].LengthM = 1000

	e, _ := g.Edge("a")
	assert.Equal(t, 1.0, e.LengthM)
}

func TestLoad(t *testing.T) {
	segments := writeTemp(t, "segments.json", segmentMapJSON)
	points := writeTemp(t, "points.json", pointsJSON)

	g, err := Load(points, segments)
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len())
	assert.Len(t, g.Endpoints(), 3)
	assert.InDelta(t, 173.8, g.TotalLengthM(), 1e-9)

	e, ok := g.Edge("-122.87,38.61_-122.869,38.61")
	require.True(t, ok)
	assert.Equal(t, spatial.Point{Lon: -122.87, Lat: 38.61}, e.Start)
}

func TestLoad_WithoutPoints(t *testing.T) {
	g, err := Load("", writeTemp(t, "segments.json", segmentMapJSON))
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		segments string
		points   string
	}{
		{name: "empty map", segments: `{}`},
		{name: "not json", segments: `not json`},
		{name: "missing distance", segments: `{"a": {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0,0],[1,1]]}, "properties": {}}}`},
		{name: "three point line", segments: `{"a": {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0,0],[1,1],[2,2]]}, "properties": {"distance": 1}}}`},
		{name: "point geometry", segments: `{"a": {"type": "Feature", "geometry": {"type": "Point", "coordinates": [0,0]}, "properties": {"distance": 1}}}`},
		{
			name:     "endpoint missing from points",
			segments: segmentMapJSON,
			points:   `{"type": "FeatureCollection", "features": [{"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.87, 38.61]}, "properties": {}}]}`,
		},
		{name: "empty points", segments: segmentMapJSON, points: `{"type": "FeatureCollection", "features": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := writeTemp(t, "segments.json", tt.segments)
			points := ""
			if tt.points != "" {
				points = writeTemp(t, "points.json", tt.points)
			}

			_, err := Load(points, segments)
			require.Error(t, err)

			var loadErr *DatasetLoadError
			assert.True(t, errors.As(err, &loadErr))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "nope.json"))

	var loadErr *DatasetLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestBuild(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString{{0, 0}, {0.001, 0}, {0.001, 0}, {0.002, 0}}))
	fc.Append(geojson.NewFeature(orb.MultiLineString{{{0.002, 0}, {0.002, 0.001}}}))
	// same segment as the first way, already counted
	fc.Append(geojson.NewFeature(orb.LineString{{0, 0}, {0.001, 0}}))
	fc.Append(geojson.NewFeature(orb.Point{5, 5}))

	ds, err := Build(fc)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Ways)
	assert.Len(t, ds.Segments, 3)
	assert.Len(t, ds.Points.Features, 4)
	assert.Contains(t, ds.Segments, "0,0_0.001,0")
	assert.Contains(t, ds.Segments, "0.002,0_0.002,0.001")

	g, err := ds.Graph()
	require.NoError(t, err)
	assert.InDelta(t, ds.TotalLengthM, g.TotalLengthM(), 1e-6)
	assert.InDelta(t, 3*111.195, g.TotalLengthM(), 0.1)
}

func TestBuild_NoLines(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{1, 1}))

	_, err := Build(fc)
	assert.Error(t, err)
}

func TestBuildWriteLoadRoundTrip(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString{{-122.87, 38.61}, {-122.869, 38.61}, {-122.868, 38.611}}))

	ds, err := Build(fc)
	require.NoError(t, err)

	dir := t.TempDir()
	points := filepath.Join(dir, "points.json")
	segments := filepath.Join(dir, "segment_map.json")
	require.NoError(t, ds.WriteFiles(points, segments))

	g, err := Load(points, segments)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.InDelta(t, ds.TotalLengthM, g.TotalLengthM(), 1e-6)
}
