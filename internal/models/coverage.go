package models

import "time"

// CoverageRecord is the set of street segments one activity covered.
// There is at most one record per activity; re-matching overwrites it.
type CoverageRecord struct {
	UserID     string   `json:"userId" db:"user_id"`
	ActivityID string   `json:"activityId" db:"activity_id"`
	SegmentIDs []string `json:"segmentIds" db:"segment_ids"` // JSON array, may be empty

	TrackHash string    `json:"-" db:"track_hash"`              // Fingerprint of the input the record was computed from
	MatchedAt time.Time `json:"matchedAt" db:"matched_at"`      // When matching started; newer wins on conflict
	UpdatedAt time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}
