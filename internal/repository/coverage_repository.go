package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jengzang/streetscore-go/internal/models"
)

// CoverageRepository stores one coverage record per activity
type CoverageRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCoverageRepository creates a new coverage repository
func NewCoverageRepository(db *sql.DB) *CoverageRepository {
	return &CoverageRepository{db: db, now: time.Now}
}

// Upsert replaces the record for the activity in a single statement. A record
// is never moved to another user. A write
// whose MatchedAt is older than the stored record's is ignored.
func (r *CoverageRepository) Upsert(ctx context.Context, rec models.CoverageRecord) error {
	ids := rec.SegmentIDs
	if ids == nil {
		ids = []string{}
	}
	segments, err := json.Marshal(ids)
	if err != nil {
		return persistErr("encode segment ids", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO coverage (activity_id, user_id, segment_ids, track_hash, matched_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(activity_id) DO UPDATE SET
	user_id = excluded.user_id,
	segment_ids = excluded.segment_ids,
	track_hash = excluded.track_hash,
	matched_at = excluded.matched_at,
	updated_at = excluded.updated_at
WHERE excluded.matched_at >= coverage.matched_at AND coverage.user_id = excluded.user_id
`, rec.ActivityID, rec.UserID, string(segments), rec.TrackHash,
		rec.MatchedAt.UTC().UnixNano(), r.now().UTC().UnixNano())
	if err != nil {
		return persistErr("upsert coverage", err)
	}
	return nil
}

// Get returns the stored record for an activity, whether or not the activity
// is still live.
func (r *CoverageRepository) Get(ctx context.Context, activityID string) (*models.CoverageRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT user_id, activity_id, segment_ids, track_hash, matched_at, updated_at
FROM coverage WHERE activity_id = ?
`, activityID)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get coverage", err)
	}
	return rec, nil
}

// ListByUser returns the user's scorable records: the activity is neither
// deleted nor flagged. Records with no segments are included.
func (r *CoverageRepository) ListByUser(ctx context.Context, userID string) ([]models.CoverageRecord, error) {
	return r.list(ctx, `
SELECT c.user_id, c.activity_id, c.segment_ids, c.track_hash, c.matched_at, c.updated_at
FROM coverage c
JOIN activities a ON a.id = c.activity_id
WHERE c.user_id = ? AND a.deleted = 0 AND a.flagged = 0
ORDER BY c.activity_id
`, userID)
}

// ListAll returns every scorable record across users
func (r *CoverageRepository) ListAll(ctx context.Context) ([]models.CoverageRecord, error) {
	return r.list(ctx, `
SELECT c.user_id, c.activity_id, c.segment_ids, c.track_hash, c.matched_at, c.updated_at
FROM coverage c
JOIN activities a ON a.id = c.activity_id
WHERE a.deleted = 0 AND a.flagged = 0
ORDER BY c.user_id, c.activity_id
`)
}

func (r *CoverageRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.CoverageRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("query coverage", err)
	}
	defer rows.Close()

	records := []models.CoverageRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, persistErr("scan coverage", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate coverage", err)
	}
	return records, nil
}

func scanRecord(scan func(dest ...interface{}) error) (*models.CoverageRecord, error) {
	var rec models.CoverageRecord
	var segments string
	var matched, updated int64
	if err := scan(&rec.UserID, &rec.ActivityID, &segments, &rec.TrackHash, &matched, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(segments), &rec.SegmentIDs); err != nil {
		return nil, err
	}
	if rec.SegmentIDs == nil {
		rec.SegmentIDs = []string{}
	}
	rec.MatchedAt = fromNanos(matched)
	rec.UpdatedAt = fromNanos(updated)
	return &rec, nil
}
