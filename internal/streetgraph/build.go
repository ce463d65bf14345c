package streetgraph

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/jengzang/streetscore-go/internal/spatial"
)

// Dataset is the preprocessed form of a street network, ready to be written
// as the point set and segment map artifacts.
type Dataset struct {
	Points       *geojson.FeatureCollection
	Segments     map[string]*geojson.Feature
	Ways         int
	TotalLengthM float64
}

// Build splits every street way (LineString or MultiLineString) into
// two-point segments between consecutive vertices. Coordinates are rounded to
// key precision so ids are reproducible. Repeated vertices are skipped and a
// segment shared by two ways is kept once.
func Build(fc *geojson.FeatureCollection) (*Dataset, error) {
	ds := &Dataset{
		Points:   geojson.NewFeatureCollection(),
		Segments: make(map[string]*geojson.Feature),
	}

	var lines []orb.LineString
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.LineString:
			lines = append(lines, g)
		case orb.MultiLineString:
			lines = append(lines, g...)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no LineString features in input")
	}
	ds.Ways = len(lines)

	seen := make(map[Key]struct{})
	var keys []Key
	for _, line := range lines {
		for i, p := range line {
			k := KeyOf(pointOf(p))
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
			if i > 0 {
				if prev := KeyOf(pointOf(line[i-1])); prev != k {
					addSegment(ds, prev, k)
				}
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Lon != keys[j].Lon {
			return keys[i].Lon < keys[j].Lon
		}
		return keys[i].Lat < keys[j].Lat
	})
	for _, k := range keys {
		p := k.Point()
		ds.Points.Append(geojson.NewFeature(orb.Point{p.Lon, p.Lat}))
	}

	if len(ds.Segments) == 0 {
		return nil, fmt.Errorf("input ways produced no segments")
	}
	return ds, nil
}

func addSegment(ds *Dataset, start, end Key) {
	id := EdgeID(start, end)
	if _, ok := ds.Segments[id]; ok {
		return
	}
	a, b := start.Point(), end.Point()
	length := spatial.HaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon)

	f := geojson.NewFeature(orb.LineString{{a.Lon, a.Lat}, {b.Lon, b.Lat}})
	f.Properties[DistanceProperty] = length
	f.Properties["key"] = id
	ds.Segments[id] = f
	ds.TotalLengthM += length
}

// Graph builds the in-memory graph for the dataset
func (ds *Dataset) Graph() (*Graph, error) {
	edges := make([]Edge, 0, len(ds.Segments))
	for id, f := range ds.Segments {
		line := f.Geometry.(orb.LineString)
		edges = append(edges, Edge{
			ID:      id,
			Start:   pointOf(line[0]),
			End:     pointOf(line[1]),
			LengthM: f.Properties[DistanceProperty].(float64),
		})
	}
	return New(edges)
}

// WriteFiles writes the point set and segment map artifacts
func (ds *Dataset) WriteFiles(pointsPath, segmentsPath string) error {
	points, err := json.MarshalIndent(ds.Points, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal points: %w", err)
	}
	if err := os.WriteFile(pointsPath, points, 0o644); err != nil {
		return fmt.Errorf("write points: %w", err)
	}

	segments, err := json.MarshalIndent(ds.Segments, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	if err := os.WriteFile(segmentsPath, segments, 0o644); err != nil {
		return fmt.Errorf("write segments: %w", err)
	}
	return nil
}
