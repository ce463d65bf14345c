package spatial

import (
	"fmt"

	"github.com/twpayne/go-polyline"
)

// DecodeError reports a malformed encoded polyline
type DecodeError struct {
	Encoded string
	Err     error
}

func (e *DecodeError) Error() string {
	encoded := e.Encoded
	if len(encoded) > 32 {
		encoded = encoded[:32] + "..."
	}
	return fmt.Sprintf("decode polyline %q: %v", encoded, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodePolyline decodes a Google encoded polyline (1e-5 precision) into a
// track of lon/lat points. An empty string decodes to an empty track.
func DecodePolyline(encoded string) (Track, error) {
	if encoded == "" {
		return Track{}, nil
	}

	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, &DecodeError{Encoded: encoded, Err: err}
	}
	if len(rest) > 0 {
		return nil, &DecodeError{Encoded: encoded, Err: fmt.Errorf("%d trailing bytes", len(rest))}
	}

	track := make(Track, 0, len(coords))
	for _, c := range coords {
		if len(c) != 2 {
			return nil, &DecodeError{Encoded: encoded, Err: fmt.Errorf("coordinate has %d values", len(c))}
		}
		// encoded polylines are lat,lon ordered
		track = append(track, Point{Lon: c[1], Lat: c[0]})
	}
	return track, nil
}

// EncodePolyline is the inverse of DecodePolyline
func EncodePolyline(track Track) string {
	coords := make([][]float64, 0, len(track))
	for _, p := range track {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}
