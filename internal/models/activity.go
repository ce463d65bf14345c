package models

import "time"

// Activity is a user's GPS activity as last reported by the ingestion source
type Activity struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"userId" db:"user_id"`

	// Descriptive fields
	Name      string  `json:"name" db:"name"`
	SportType string  `json:"sportType,omitempty" db:"sport_type"`
	StartDate int64   `json:"startDate" db:"start_date"` // Unix timestamp
	DistanceM float64 `json:"distanceM,omitempty" db:"distance_m"`

	// Track and policy flags
	Polyline string `json:"polyline,omitempty" db:"polyline"` // Encoded summary polyline, empty when the activity has no map
	Flagged  bool   `json:"flagged" db:"flagged"`
	Deleted  bool   `json:"deleted" db:"deleted"` // Soft delete: no longer in the source snapshot

	// Metadata
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// HasTrack reports whether the activity carries an encoded polyline
func (a Activity) HasTrack() bool {
	return a.Polyline != ""
}

// ActivityWithCoverage joins an activity with its coverage record, if any
type ActivityWithCoverage struct {
	Activity
	Coverage *CoverageRecord `json:"coverage,omitempty"`
}
