package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jengzang/streetscore-go/internal/coverage"
	"github.com/jengzang/streetscore-go/internal/logger"
	"github.com/jengzang/streetscore-go/internal/models"
	"github.com/jengzang/streetscore-go/internal/repository"
	"github.com/jengzang/streetscore-go/internal/stats"
)

// ScoreService derives user scores from stored coverage
type ScoreService struct {
	users      UserStore
	coverage   CoverageStore
	aggregator *coverage.Aggregator
	log        *logger.Logger
}

// NewScoreService creates a new score service
func NewScoreService(users UserStore, cov CoverageStore, aggregator *coverage.Aggregator, log *logger.Logger) *ScoreService {
	return &ScoreService{
		users:      users,
		coverage:   cov,
		aggregator: aggregator,
		log:        log.Named("score"),
	}
}

// TotalScore is the length of the whole street network in meters
func (s *ScoreService) TotalScore() int64 {
	return s.aggregator.GlobalTotal()
}

// UserScore recomputes, persists and returns one user's score
func (s *ScoreService) UserScore(ctx context.Context, userID string) (*models.UserScore, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
		}
		return nil, err
	}

	score, err := s.refreshUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	users, err := s.users.ListScores(ctx)
	if err != nil {
		return nil, err
	}

	us := models.NewUserScore(u.ID, u.Name, score, s.TotalScore())
	us.Standing = stats.PercentileRank(scoresOf(users), score)
	return &us, nil
}

func (s *ScoreService) refreshUser(ctx context.Context, userID string) (int64, error) {
	records, err := s.coverage.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	score := s.aggregator.ScoreForUser(records)
	if err := s.users.SetScore(ctx, userID, score); err != nil {
		return 0, err
	}
	return score, nil
}

// RefreshAllScores recomputes every user's score in one pass and returns the
// resulting leaderboard. Users without scorable coverage drop to zero.
func (s *ScoreService) RefreshAllScores(ctx context.Context) (*models.Leaderboard, error) {
	records, err := s.coverage.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	scores := s.aggregator.ScoreForAllUsers(records)

	users, err := s.users.ListScores(ctx)
	if err != nil {
		return nil, err
	}
	updated := 0
	for _, u := range users {
		score := scores[u.ID]
		if score == u.Score {
			continue
		}
		if err := s.users.SetScore(ctx, u.ID, score); err != nil {
			return nil, err
		}
		updated++
	}
	s.log.Info("refreshed all scores", "users", len(users), "updated", updated, "records", len(records))

	return s.Leaderboard(ctx)
}

// Leaderboard returns the persisted scores, highest first
func (s *ScoreService) Leaderboard(ctx context.Context) (*models.Leaderboard, error) {
	users, err := s.users.ListScores(ctx)
	if err != nil {
		return nil, err
	}

	board := &models.Leaderboard{
		Entries:    make([]models.LeaderboardEntry, 0, len(users)),
		TotalScore: s.TotalScore(),
		Summary:    stats.Summarize(scoresOf(users)),
	}
	for i, u := range users {
		board.Entries = append(board.Entries, models.LeaderboardEntry{
			Rank:   i + 1,
			UserID: u.ID,
			Name:   u.Name,
			Score:  u.Score,
		})
	}
	return board, nil
}

func scoresOf(users []models.User) []int64 {
	out := make([]int64, len(users))
	for i, u := range users {
		out[i] = u.Score
	}
	return out
}
