// Package coverage turns activity tracks into covered street segments and
// covered segments into scores.
package coverage

import (
	"github.com/jengzang/streetscore-go/internal/spatial"
	"github.com/jengzang/streetscore-go/internal/streetgraph"
)

// DefaultThresholdM is how close a track must pass to a street endpoint
// for the endpoint to count as visited.
const DefaultThresholdM = 20.0

// boundSlackM widens the prefilter rectangle so float error at its edge
// cannot drop an endpoint the full scan would keep.
const boundSlackM = 1.0

// Visited is a set of endpoint keys
type Visited map[streetgraph.Key]struct{}

// Has reports whether k is in the set
func (v Visited) Has(k streetgraph.Key) bool {
	_, ok := v[k]
	return ok
}

// Matcher finds the street endpoints an activity track passes near.
// It holds no state besides its threshold and is safe for concurrent use.
type Matcher struct {
	ThresholdM float64
}

// NewMatcher creates a matcher. A non-positive threshold falls back to the default.
func NewMatcher(thresholdM float64) *Matcher {
	if thresholdM <= 0 {
		thresholdM = DefaultThresholdM
	}
	return &Matcher{ThresholdM: thresholdM}
}

// DecodeTrack decodes an encoded polyline into a track
func DecodeTrack(encoded string) (spatial.Track, error) {
	return spatial.DecodePolyline(encoded)
}

// FindVisitedEndpoints returns every graph endpoint within the threshold of
// the track. The boundary is inclusive.
func (m *Matcher) FindVisitedEndpoints(track spatial.Track, g *streetgraph.Graph) Visited {
	visited := make(Visited)
	if len(track) == 0 {
		return visited
	}

	path := spatial.NewPath(track)
	bound := path.Bound()
	reach := spatial.MetersToAngle(m.ThresholdM + boundSlackM)

	for _, p := range g.Endpoints() {
		if bound.DistanceToLatLng(p.S2LatLng()) > reach {
			continue
		}
		if path.Within(p, m.ThresholdM) {
			visited[streetgraph.KeyOf(p)] = struct{}{}
		}
	}
	return visited
}

// MatchPolyline decodes an encoded polyline and resolves the segments it
// covers. A decode failure is returned as *spatial.DecodeError.
func (m *Matcher) MatchPolyline(encoded string, g *streetgraph.Graph) ([]string, error) {
	track, err := DecodeTrack(encoded)
	if err != nil {
		return nil, err
	}
	return Resolve(m.FindVisitedEndpoints(track, g), g), nil
}
