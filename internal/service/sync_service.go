package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jengzang/streetscore-go/internal/coverage"
	"github.com/jengzang/streetscore-go/internal/logger"
	"github.com/jengzang/streetscore-go/internal/metrics"
	"github.com/jengzang/streetscore-go/internal/models"
	"github.com/jengzang/streetscore-go/internal/repository"
	"github.com/jengzang/streetscore-go/internal/streetgraph"
)

const errForeignActivity = "activity belongs to another user"

// DefaultMatchWorkers bounds concurrent matching within one sync
const DefaultMatchWorkers = 4

// SyncConfig wires the sync service
type SyncConfig struct {
	Users      UserStore
	Activities ActivityStore
	Coverage   CoverageStore
	Source     ActivitySource
	Runs       RunStore // optional
	Scores     *ScoreService
	Graph      *streetgraph.Graph
	Matcher    *coverage.Matcher
	Workers    int
	Metrics    *metrics.Collector
	Log        *logger.Logger
}

// SyncService reconciles a user's stored activities with the source snapshot,
// matches each activity against the street graph and refreshes the score.
type SyncService struct {
	users      UserStore
	activities ActivityStore
	coverage   CoverageStore
	source     ActivitySource
	runs       RunStore
	scores     *ScoreService
	graph      *streetgraph.Graph
	matcher    *coverage.Matcher
	workers    int
	metrics    *metrics.Collector
	log        *logger.Logger
	now        func() time.Time
}

// NewSyncService creates a new sync service
func NewSyncService(cfg SyncConfig) *SyncService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultMatchWorkers
	}
	matcher := cfg.Matcher
	if matcher == nil {
		matcher = coverage.NewMatcher(coverage.DefaultThresholdM)
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewCollector("")
	}
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &SyncService{
		users:      cfg.Users,
		activities: cfg.Activities,
		coverage:   cfg.Coverage,
		source:     cfg.Source,
		runs:       cfg.Runs,
		scores:     cfg.Scores,
		graph:      cfg.Graph,
		matcher:    matcher,
		workers:    workers,
		metrics:    m,
		log:        log.Named("sync"),
		now:        time.Now,
	}
}

// Sync runs one reconciliation for a user. Track decode failures are recorded
// on the affected activity only; store failures abort the run.
func (s *SyncService) Sync(ctx context.Context, userID string) (report *models.SyncReport, err error) {
	start := time.Now()
	runID := uuid.NewString()
	log := s.log.With("run_id", runID, "user_id", userID)
	defer func() {
		s.metrics.RecordSync(time.Since(start), err)
		if err != nil {
			log.Error("sync failed", "error", err)
		}
	}()

	if _, err := s.users.Get(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
		}
		return nil, err
	}

	if s.runs != nil {
		if err := s.runs.Start(ctx, runID, userID); err != nil {
			return nil, err
		}
		defer func() { s.finishRun(ctx, log, runID, report, err) }()
	}

	snapshot, err := s.source.ListActivities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSource, err)
	}
	snapshot = dedupeSnapshot(snapshot, userID)

	live, deleted, err := s.activities.ListIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	inSnapshot := make(map[string]struct{}, len(snapshot))
	for _, a := range snapshot {
		inSnapshot[a.ID] = struct{}{}
	}
	var gone []string
	for id := range live {
		if _, ok := inSnapshot[id]; !ok {
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	if err := s.activities.MarkDeleted(ctx, userID, gone); err != nil {
		return nil, err
	}
	s.metrics.RecordDeletions(len(gone))

	foreign, err := s.activities.UpsertSnapshot(ctx, userID, snapshot)
	if err != nil {
		return nil, err
	}
	foreignIDs := make(map[string]struct{}, len(foreign))
	for _, id := range foreign {
		foreignIDs[id] = struct{}{}
	}
	if len(foreign) > 0 {
		log.Warn("snapshot contains activities of another user", "activity_ids", foreign)
	}

	results := make([]models.ActivityResult, len(snapshot))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, a := range snapshot {
		if _, ok := deleted[a.ID]; ok {
			results[i] = models.ActivityResult{ActivityID: a.ID, State: models.StateDeleted}
			continue
		}
		if _, ok := foreignIDs[a.ID]; ok {
			results[i] = models.ActivityResult{ActivityID: a.ID, State: models.StateFetched, Error: errForeignActivity}
			continue
		}
		i, a := i, a
		g.Go(func() error {
			res, err := s.processActivity(gctx, log, a)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	score, err := s.scores.refreshUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	report = &models.SyncReport{
		RunID:      runID,
		UserID:     userID,
		Fetched:    len(snapshot),
		Deleted:    gone,
		Results:    results,
		Score:      score,
		TotalScore: s.scores.TotalScore(),
	}
	if report.Deleted == nil {
		report.Deleted = []string{}
	}
	for i := range report.Results {
		switch report.Results[i].State {
		case models.StateMatched:
			report.Results[i].State = models.StateScored
		case models.StateFetched:
			report.Failed++
		}
	}
	report.Duration = time.Since(start)

	log.Info("sync complete",
		"fetched", report.Fetched,
		"deleted", len(gone),
		"failed", report.Failed,
		"score", score,
		"duration", report.Duration,
	)
	return report, nil
}

// finishRun closes the run history entry. Failures here are logged and never
// change the sync outcome.
func (s *SyncService) finishRun(ctx context.Context, log *logger.Logger, runID string, report *models.SyncReport, syncErr error) {
	ctx = context.WithoutCancel(ctx)
	var err error
	if syncErr != nil {
		err = s.runs.Fail(ctx, runID, syncErr.Error())
	} else {
		err = s.runs.Complete(ctx, report)
	}
	if err != nil {
		log.Warn("failed to record sync run", "error", err)
	}
}

// Runs returns the most recent sync runs of a user
func (s *SyncService) Runs(ctx context.Context, userID string, limit int) ([]models.SyncRun, error) {
	if s.runs == nil {
		return []models.SyncRun{}, nil
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
		}
		return nil, err
	}
	return s.runs.ListByUser(ctx, userID, limit)
}

// processActivity brings one activity from fetched to matched. The returned
// error is only set for store failures.
func (s *SyncService) processActivity(ctx context.Context, log *logger.Logger, a models.Activity) (models.ActivityResult, error) {
	res := models.ActivityResult{ActivityID: a.ID, State: models.StateFetched}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	hash := s.matcher.Fingerprint(a.Polyline, a.Flagged, s.graph)
	existing, err := s.coverage.Get(ctx, a.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return res, err
	}
	if existing != nil && existing.TrackHash == hash {
		res.State = models.StateMatched
		res.Unchanged = true
		res.SegmentCount = len(existing.SegmentIDs)
		s.metrics.RecordActivity(metrics.OutcomeUnchanged)
		return res, nil
	}

	matchedAt := s.now()
	segments := []string{}
	outcome := metrics.OutcomeSkipped
	if !a.Flagged && a.HasTrack() {
		t0 := time.Now()
		segments, err = s.matcher.MatchPolyline(a.Polyline, s.graph)
		s.metrics.RecordMatch(time.Since(t0))
		if err != nil {
			log.Warn("skipping activity with undecodable track", "activity_id", a.ID, "error", err)
			s.metrics.RecordActivity(metrics.OutcomeFailed)
			res.Error = err.Error()
			return res, nil
		}
		outcome = metrics.OutcomeMatched
	}

	err = s.coverage.Upsert(ctx, models.CoverageRecord{
		UserID:     a.UserID,
		ActivityID: a.ID,
		SegmentIDs: segments,
		TrackHash:  hash,
		MatchedAt:  matchedAt,
	})
	if err != nil {
		return res, err
	}

	s.metrics.RecordActivity(outcome)
	res.State = models.StateMatched
	res.SegmentCount = len(segments)
	return res, nil
}

// dedupeSnapshot keeps the first occurrence of each id and stamps the owner
func dedupeSnapshot(snapshot []models.Activity, userID string) []models.Activity {
	seen := make(map[string]struct{}, len(snapshot))
	out := make([]models.Activity, 0, len(snapshot))
	for _, a := range snapshot {
		if _, ok := seen[a.ID]; ok || a.ID == "" {
			continue
		}
		seen[a.ID] = struct{}{}
		a.UserID = userID
		out = append(out, a)
	}
	return out
}
