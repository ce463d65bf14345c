// Package streetgraph holds the static street network that activities are
// scored against. A Graph is built once at startup and never mutated.
package streetgraph

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/jengzang/streetscore-go/internal/spatial"
)

// coordScale fixes endpoint identity at 1e-7 degrees (~1 cm)
const coordScale = 1e7

// Key is a hashable fixed-precision coordinate
type Key struct {
	Lon int64
	Lat int64
}

// KeyOf rounds a point to its key
func KeyOf(p spatial.Point) Key {
	return Key{
		Lon: int64(math.Round(p.Lon * coordScale)),
		Lat: int64(math.Round(p.Lat * coordScale)),
	}
}

// Point converts the key back to degrees
func (k Key) Point() spatial.Point {
	return spatial.Point{Lon: float64(k.Lon) / coordScale, Lat: float64(k.Lat) / coordScale}
}

// String formats the key as "lon,lat" using the shortest decimal form.
func (k Key) String() string {
	p := k.Point()
	return strconv.FormatFloat(p.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'f', -1, 64)
}

// EdgeID builds the dataset key for a segment between two endpoints
func EdgeID(start, end Key) string {
	return start.String() + "_" + end.String()
}

// Edge is one atomic street segment
type Edge struct {
	ID      string
	Start   spatial.Point
	End     spatial.Point
	LengthM float64
}

// StartKey returns the key of the start endpoint
func (e Edge) StartKey() Key { return KeyOf(e.Start) }

// EndKey returns the key of the end endpoint
func (e Edge) EndKey() Key { return KeyOf(e.End) }

// Graph is an immutable set of street segments
type Graph struct {
	edges        []Edge
	byID         map[string]int
	endpoints    []spatial.Point
	totalLengthM float64
}

// New validates edges and builds a graph. Edges are ordered by id.
func New(edges []Edge) (*Graph, error) {
	if len(edges) == 0 {
		return nil, errors.New("street graph has no edges")
	}

	g := &Graph{
		edges: make([]Edge, len(edges)),
		byID:  make(map[string]int, len(edges)),
	}
	copy(g.edges, edges)
	sort.Slice(g.edges, func(i, j int) bool { return g.edges[i].ID < g.edges[j].ID })

	seen := make(map[Key]struct{}, len(edges)*2)
	for i, e := range g.edges {
		if e.ID == "" {
			return nil, fmt.Errorf("edge %d has empty id", i)
		}
		if _, dup := g.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate edge id %q", e.ID)
		}
		if err := validPoint(e.Start); err != nil {
			return nil, fmt.Errorf("edge %q start: %w", e.ID, err)
		}
		if err := validPoint(e.End); err != nil {
			return nil, fmt.Errorf("edge %q end: %w", e.ID, err)
		}
		if math.IsNaN(e.LengthM) || math.IsInf(e.LengthM, 0) || e.LengthM < 0 {
			return nil, fmt.Errorf("edge %q has invalid length %v", e.ID, e.LengthM)
		}

		g.byID[e.ID] = i
		g.totalLengthM += e.LengthM

		for _, k := range [2]Key{e.StartKey(), e.EndKey()} {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			g.endpoints = append(g.endpoints, k.Point())
		}
	}

	return g, nil
}

func validPoint(p spatial.Point) error {
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || p.Lon < -180 || p.Lon > 180 || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("coordinate out of range: %v,%v", p.Lon, p.Lat)
	}
	return nil
}

// Edges returns a copy of all edges
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Len returns the number of edges
func (g *Graph) Len() int {
	return len(g.edges)
}

// Edge looks up an edge by id
func (g *Graph) Edge(id string) (Edge, bool) {
	i, ok := g.byID[id]
	if !ok {
		return Edge{}, false
	}
	return g.edges[i], true
}

// Endpoints returns every distinct edge endpoint. These are the matching
// targets for activity tracks.
func (g *Graph) Endpoints() []spatial.Point {
	out := make([]spatial.Point, len(g.endpoints))
	copy(out, g.endpoints)
	return out
}

// TotalLengthM is the sum of all edge lengths
func (g *Graph) TotalLengthM() float64 {
	return g.totalLengthM
}
