package models

import "time"

// ActivityState is where an activity sits in the sync pipeline
type ActivityState string

// Activity states
const (
	StateUnseen  ActivityState = "unseen"
	StateFetched ActivityState = "fetched" // Stored from the latest snapshot, not yet matched
	StateMatched ActivityState = "matched" // Coverage record persisted
	StateScored  ActivityState = "scored"  // Owner's score recomputed after the batch
	StateDeleted ActivityState = "deleted" // Missing from the latest snapshot
)

// ActivityResult is the per-activity outcome of a sync batch
type ActivityResult struct {
	ActivityID   string        `json:"activityId"`
	State        ActivityState `json:"state"`
	SegmentCount int           `json:"segmentCount"`
	Unchanged    bool          `json:"unchanged,omitempty"` // Track identical to the stored record, matching skipped
	Error        string        `json:"error,omitempty"`
}

// SyncReport summarises one sync run for a user
type SyncReport struct {
	RunID      string           `json:"runId"`
	UserID     string           `json:"userId"`
	Fetched    int              `json:"fetched"`
	Deleted    []string         `json:"deleted"`
	Results    []ActivityResult `json:"results"`
	Failed     int              `json:"failed"`
	Score      int64            `json:"score"`
	TotalScore int64            `json:"totalScore"`
	Duration   time.Duration    `json:"durationNs"`
}

// SyncRunStatus is the lifecycle of a recorded sync run
type SyncRunStatus string

// Sync run statuses
const (
	RunRunning   SyncRunStatus = "running"
	RunCompleted SyncRunStatus = "completed"
	RunFailed    SyncRunStatus = "failed"
)

// SyncRun is the persisted history entry of one sync
type SyncRun struct {
	ID           string        `json:"id" db:"id"`
	UserID       string        `json:"userId" db:"user_id"`
	Status       SyncRunStatus `json:"status" db:"status"`
	Fetched      int           `json:"fetched" db:"fetched"`
	Deleted      int           `json:"deleted" db:"deleted"`
	Failed       int           `json:"failed" db:"failed"`
	Score        int64         `json:"score" db:"score"`
	ErrorMessage string        `json:"errorMessage,omitempty" db:"error_message"`
	StartedAt    time.Time     `json:"startedAt" db:"started_at"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty" db:"completed_at"`
}
