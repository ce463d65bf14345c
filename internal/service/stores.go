package service

import (
	"context"
	"errors"

	"github.com/jengzang/streetscore-go/internal/models"
)

var (
	// ErrUnknownUser is returned for operations on a user that was never registered
	ErrUnknownUser = errors.New("unknown user")
	// ErrInvalidInput is returned when request fields fail validation
	ErrInvalidInput = errors.New("invalid input")
	// ErrSource wraps failures of the activity source
	ErrSource = errors.New("activity source failed")
	// ErrUserExists is returned when registering an id owned by another caller
	ErrUserExists = errors.New("user already registered")
)

// ActivitySource returns the complete current activity snapshot of a user
type ActivitySource interface {
	ListActivities(ctx context.Context, userID string) ([]models.Activity, error)
}

// UserStore persists users and their derived scores
type UserStore interface {
	Create(ctx context.Context, u *models.User) (bool, error)
	Save(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	SetScore(ctx context.Context, userID string, score int64) error
	ListScores(ctx context.Context) ([]models.User, error)
}

// ActivityStore persists activity snapshots
type ActivityStore interface {
	UpsertSnapshot(ctx context.Context, userID string, activities []models.Activity) (foreign []string, err error)
	ListIDsByUser(ctx context.Context, userID string) (live, deleted map[string]struct{}, err error)
	MarkDeleted(ctx context.Context, userID string, ids []string) error
	ListWithCoverage(ctx context.Context, userID string) ([]models.ActivityWithCoverage, error)
}

// CoverageStore persists one coverage record per activity
type CoverageStore interface {
	Upsert(ctx context.Context, rec models.CoverageRecord) error
	Get(ctx context.Context, activityID string) (*models.CoverageRecord, error)
	ListByUser(ctx context.Context, userID string) ([]models.CoverageRecord, error)
	ListAll(ctx context.Context) ([]models.CoverageRecord, error)
}

// RunStore records sync run history
type RunStore interface {
	Start(ctx context.Context, runID, userID string) error
	Complete(ctx context.Context, report *models.SyncReport) error
	Fail(ctx context.Context, runID, errorMsg string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.SyncRun, error)
}
