package streetgraph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/jengzang/streetscore-go/internal/spatial"
)

// DistanceProperty is the feature property holding a segment length in meters
const DistanceProperty = "distance"

// DatasetLoadError means the static street dataset could not be used. The
// process cannot serve scores without it.
type DatasetLoadError struct {
	Path string
	Err  error
}

func (e *DatasetLoadError) Error() string {
	return fmt.Sprintf("load street dataset %s: %v", e.Path, e.Err)
}

func (e *DatasetLoadError) Unwrap() error {
	return e.Err
}

// Load reads the segment map and, when pointsPath is set, the point set, and
// builds the graph. Every edge endpoint must appear in the point set.
func Load(pointsPath, segmentsPath string) (*Graph, error) {
	edges, err := readFile(segmentsPath, ReadSegments)
	if err != nil {
		return nil, err
	}

	g, err := New(edges)
	if err != nil {
		return nil, &DatasetLoadError{Path: segmentsPath, Err: err}
	}

	if pointsPath == "" {
		return g, nil
	}

	points, err := readFile(pointsPath, ReadPoints)
	if err != nil {
		return nil, err
	}
	known := make(map[Key]struct{}, len(points))
	for _, p := range points {
		known[KeyOf(p)] = struct{}{}
	}
	for _, p := range g.endpoints {
		if _, ok := known[KeyOf(p)]; !ok {
			return nil, &DatasetLoadError{Path: pointsPath, Err: fmt.Errorf("edge endpoint %s missing from point set", KeyOf(p))}
		}
	}

	return g, nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, &DatasetLoadError{Path: path, Err: err}
	}
	defer f.Close()

	v, err := read(f)
	if err != nil {
		return zero, &DatasetLoadError{Path: path, Err: err}
	}
	return v, nil
}

// ReadSegments parses a segment map: a JSON object from edge id to a
// two-point LineString feature carrying its length in properties.distance.
func ReadSegments(r io.Reader) ([]Edge, error) {
	var raw map[string]*geojson.Feature
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse segment map: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("segment map is empty")
	}

	edges := make([]Edge, 0, len(raw))
	for id, f := range raw {
		if f == nil {
			return nil, fmt.Errorf("segment %q: null feature", id)
		}
		line, ok := f.Geometry.(orb.LineString)
		if !ok || len(line) != 2 {
			return nil, fmt.Errorf("segment %q: expected a two-point LineString", id)
		}
		length, ok := f.Properties[DistanceProperty].(float64)
		if !ok {
			return nil, fmt.Errorf("segment %q: missing numeric %s property", id, DistanceProperty)
		}
		edges = append(edges, Edge{
			ID:      id,
			Start:   pointOf(line[0]),
			End:     pointOf(line[1]),
			LengthM: length,
		})
	}
	return edges, nil
}

// ReadPoints parses a FeatureCollection of Point features
func ReadPoints(r io.Reader) ([]spatial.Point, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse point set: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("point set is empty")
	}

	points := make([]spatial.Point, 0, len(fc.Features))
	for i, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("feature %d: expected a Point", i)
		}
		points = append(points, pointOf(p))
	}
	return points, nil
}

func pointOf(p orb.Point) spatial.Point {
	return spatial.Point{Lon: p.Lon(), Lat: p.Lat()}
}
