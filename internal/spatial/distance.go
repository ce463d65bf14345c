package spatial

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
)

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return AngleToMeters(p1.Distance(p2))
}

// MetersToAngle converts a surface distance to the central angle it subtends
func MetersToAngle(meters float64) s1.Angle {
	return s1.Angle(meters / EarthRadiusMeters)
}

// AngleToMeters converts a central angle to a surface distance in meters
func AngleToMeters(a s1.Angle) float64 {
	return a.Radians() * EarthRadiusMeters
}

// segmentDistance is the angle from x to the great-circle segment a-b. A
// degenerate segment is treated as a single point.
func segmentDistance(x, a, b s2.Point) s1.Angle {
	if a == b {
		return x.Distance(a)
	}
	return s2.DistanceFromSegment(x, a, b)
}
