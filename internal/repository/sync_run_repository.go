package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jengzang/streetscore-go/internal/models"
)

// SyncRunRepository records the history of sync runs
type SyncRunRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSyncRunRepository creates a new sync run repository
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db, now: time.Now}
}

// Start records a run as running
func (r *SyncRunRepository) Start(ctx context.Context, runID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sync_runs (id, user_id, status, started_at)
VALUES (?, ?, ?, ?)
`, runID, userID, models.RunRunning, r.now().UTC().UnixNano())
	if err != nil {
		return persistErr("start sync run", err)
	}
	return nil
}

// Complete marks a run as completed with its totals
func (r *SyncRunRepository) Complete(ctx context.Context, report *models.SyncReport) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE sync_runs
SET status = ?, fetched = ?, deleted = ?, failed = ?, score = ?, completed_at = ?
WHERE id = ?
`, models.RunCompleted, report.Fetched, len(report.Deleted), report.Failed, report.Score,
		r.now().UTC().UnixNano(), report.RunID)
	if err != nil {
		return persistErr("complete sync run", err)
	}
	return nil
}

// Fail marks a run as failed with an error message
func (r *SyncRunRepository) Fail(ctx context.Context, runID, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE sync_runs
SET status = ?, error_message = ?, completed_at = ?
WHERE id = ?
`, models.RunFailed, errorMsg, r.now().UTC().UnixNano(), runID)
	if err != nil {
		return persistErr("fail sync run", err)
	}
	return nil
}

// ListByUser returns a user's most recent runs, newest first
func (r *SyncRunRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.SyncRun, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, status, fetched, deleted, failed, score, error_message, started_at, completed_at
FROM sync_runs
WHERE user_id = ?
ORDER BY started_at DESC, rowid DESC
LIMIT ?
`, userID, limit)
	if err != nil {
		return nil, persistErr("query sync runs", err)
	}
	defer rows.Close()

	runs := []models.SyncRun{}
	for rows.Next() {
		var run models.SyncRun
		var started int64
		var completed sql.NullInt64
		if err := rows.Scan(&run.ID, &run.UserID, &run.Status, &run.Fetched, &run.Deleted, &run.Failed,
			&run.Score, &run.ErrorMessage, &started, &completed); err != nil {
			return nil, persistErr("scan sync run", err)
		}
		run.StartedAt = fromNanos(started)
		if completed.Valid {
			t := fromNanos(completed.Int64)
			run.CompletedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate sync runs", err)
	}
	return runs, nil
}
