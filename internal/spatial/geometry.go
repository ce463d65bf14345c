package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Point represents a geographic position in degrees
type Point struct {
	Lon float64
	Lat float64
}

// S2LatLng converts the point to an s2 LatLng
func (p Point) S2LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lon)
}

// S2 returns the point on the unit sphere
func (p Point) S2() s2.Point {
	return s2.PointFromLatLng(p.S2LatLng())
}

// Track is an ordered sequence of GPS positions
type Track []Point

// PathLength calculates the total length of a track in meters
func PathLength(points Track) float64 {
	if len(points) < 2 {
		return 0
	}

	var totalDist float64
	for i := 1; i < len(points); i++ {
		totalDist += HaversineDistance(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
	}

	return totalDist
}

// Path is a track projected onto the unit sphere, prepared for repeated
// distance queries against many points. It is read-only after construction.
type Path struct {
	points []s2.Point
	bound  s2.Rect
}

// NewPath projects a track onto the sphere and computes its bounding rectangle.
// The bound accounts for great-circle edges bulging past their endpoints.
func NewPath(track Track) *Path {
	p := &Path{points: make([]s2.Point, 0, len(track))}
	bounder := s2.NewRectBounder()
	for _, pt := range track {
		sp := pt.S2()
		p.points = append(p.points, sp)
		bounder.AddPoint(sp)
	}
	p.bound = bounder.RectBound()
	return p
}

// Len returns the number of vertices
func (p *Path) Len() int {
	return len(p.points)
}

// Bound returns a rectangle containing every point of the path
func (p *Path) Bound() s2.Rect {
	return p.bound
}

// Distance returns the minimum geodesic distance in meters from pt to the
// path, treating consecutive vertices as connected segments. An empty path is
// infinitely far away.
func (p *Path) Distance(pt Point) float64 {
	switch len(p.points) {
	case 0:
		return math.Inf(1)
	case 1:
		return AngleToMeters(pt.S2().Distance(p.points[0]))
	}

	x := pt.S2()
	best := math.Inf(1)
	for i := 0; i+1 < len(p.points); i++ {
		if d := AngleToMeters(segmentDistance(x, p.points[i], p.points[i+1])); d < best {
			best = d
		}
	}
	return best
}

// Within reports whether pt lies at most meters from the path. It stops at
// the first segment close enough.
func (p *Path) Within(pt Point, meters float64) bool {
	switch len(p.points) {
	case 0:
		return false
	case 1:
		return AngleToMeters(pt.S2().Distance(p.points[0])) <= meters
	}

	x := pt.S2()
	for i := 0; i+1 < len(p.points); i++ {
		if AngleToMeters(segmentDistance(x, p.points[i], p.points[i+1])) <= meters {
			return true
		}
	}
	return false
}
