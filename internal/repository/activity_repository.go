package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jengzang/streetscore-go/internal/database"
	"github.com/jengzang/streetscore-go/internal/models"
)

// ActivityRepository handles database operations for activities
type ActivityRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db, now: time.Now}
}

// UpsertSnapshot stores the activities of one source snapshot in a single
// transaction. The deleted flag is never cleared here. Ids already owned by
// another user are left untouched and returned as foreign.
func (r *ActivityRepository) UpsertSnapshot(ctx context.Context, userID string, activities []models.Activity) (foreign []string, err error) {
	if len(activities) == 0 {
		return nil, nil
	}
	now := r.now().UTC().UnixNano()

	err = database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO activities (id, user_id, name, sport_type, start_date, distance_m, polyline, flagged, deleted, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	sport_type = excluded.sport_type,
	start_date = excluded.start_date,
	distance_m = excluded.distance_m,
	polyline = excluded.polyline,
	flagged = excluded.flagged,
	updated_at = excluded.updated_at
WHERE activities.user_id = excluded.user_id
`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		foreign = nil
		for _, a := range activities {
			result, err := stmt.ExecContext(ctx,
				a.ID, userID, a.Name, a.SportType, a.StartDate, a.DistanceM, a.Polyline, a.Flagged, now, now,
			)
			if err != nil {
				return err
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			// the conflict guard leaves rows of other users untouched
			if n == 0 {
				foreign = append(foreign, a.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, persistErr("upsert activity snapshot", err)
	}
	return foreign, nil
}

// ListIDsByUser returns the ids of a user's activities, split into live and
// soft-deleted.
func (r *ActivityRepository) ListIDsByUser(ctx context.Context, userID string) (live, deleted map[string]struct{}, err error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, deleted FROM activities WHERE user_id = ?`, userID)
	if err != nil {
		return nil, nil, persistErr("query activity ids", err)
	}
	defer rows.Close()

	live = make(map[string]struct{})
	deleted = make(map[string]struct{})
	for rows.Next() {
		var id string
		var del bool
		if err := rows.Scan(&id, &del); err != nil {
			return nil, nil, persistErr("scan activity id", err)
		}
		if del {
			deleted[id] = struct{}{}
		} else {
			live[id] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, persistErr("iterate activity ids", err)
	}
	return live, deleted, nil
}

// MarkDeleted soft-deletes activities. Their coverage records are kept but
// stop counting towards the score.
func (r *ActivityRepository) MarkDeleted(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(ids)+2)
	args = append(args, r.now().UTC().UnixNano(), userID)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	_, err := r.db.ExecContext(ctx,
		`UPDATE activities SET deleted = 1, updated_at = ? WHERE user_id = ? AND id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return persistErr("mark activities deleted", err)
	}
	return nil
}

// ListWithCoverage returns a user's live activities with their coverage
// records, newest first.
func (r *ActivityRepository) ListWithCoverage(ctx context.Context, userID string) ([]models.ActivityWithCoverage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT a.id, a.user_id, a.name, a.sport_type, a.start_date, a.distance_m, a.polyline,
	a.flagged, a.deleted, a.created_at, a.updated_at,
	c.segment_ids, c.matched_at, c.updated_at
FROM activities a
LEFT JOIN coverage c ON c.activity_id = a.id
WHERE a.user_id = ? AND a.deleted = 0
ORDER BY a.start_date DESC, a.id ASC
`, userID)
	if err != nil {
		return nil, persistErr("query activities", err)
	}
	defer rows.Close()

	out := []models.ActivityWithCoverage{}
	for rows.Next() {
		var item models.ActivityWithCoverage
		a := &item.Activity
		var created, updated int64
		var segments sql.NullString
		var matchedAt, covUpdated sql.NullInt64
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.SportType, &a.StartDate, &a.DistanceM,
			&a.Polyline, &a.Flagged, &a.Deleted, &created, &updated,
			&segments, &matchedAt, &covUpdated); err != nil {
			return nil, persistErr("scan activity", err)
		}
		a.CreatedAt = fromNanos(created)
		a.UpdatedAt = fromNanos(updated)

		if segments.Valid {
			rec := &models.CoverageRecord{
				UserID:     a.UserID,
				ActivityID: a.ID,
				MatchedAt:  fromNanos(matchedAt.Int64),
				UpdatedAt:  fromNanos(covUpdated.Int64),
			}
			if err := json.Unmarshal([]byte(segments.String), &rec.SegmentIDs); err != nil {
				return nil, persistErr("decode segment ids", err)
			}
			item.Coverage = rec
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate activities", err)
	}
	return out, nil
}
