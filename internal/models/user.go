package models

import (
	"fmt"
	"math"
	"time"

	"github.com/jengzang/streetscore-go/internal/stats"
)

// User is a registered participant
type User struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	AccessToken string    `json:"-" db:"access_token"` // Bearer token for the ingestion source
	Score       int64     `json:"score" db:"score"`     // Covered meters, derived from coverage records
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// UserScore is a user's score against the whole street network
type UserScore struct {
	UserID     string  `json:"userId"`
	Name       string  `json:"name"`
	Score      int64   `json:"score"`      // meters
	TotalScore int64   `json:"totalScore"` // meters
	ScoreKm    string  `json:"scoreKm"`
	Percent    float64 `json:"percent"`        // share of the network covered
	Standing   float64 `json:"percentileRank"` // share of users at or below this score
}

// NewUserScore fills the derived display fields
func NewUserScore(userID, name string, score, total int64) UserScore {
	us := UserScore{
		UserID:     userID,
		Name:       name,
		Score:      score,
		TotalScore: total,
		ScoreKm:    FormatKilometers(score, false),
	}
	if total > 0 {
		us.Percent = math.Round(float64(score)*1000/float64(total)) / 10
	}
	return us
}

// LeaderboardEntry is one ranked row of the leaderboard
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Score  int64  `json:"score"`
}

// Leaderboard is the ranked list of all users
type Leaderboard struct {
	Entries    []LeaderboardEntry `json:"scores"`
	TotalScore int64              `json:"totalScore"`
	Summary    stats.Summary      `json:"summary"`
}

// FormatKilometers renders meters as kilometers, either with one decimal or
// rounded to a whole number.
func FormatKilometers(meters int64, round bool) string {
	km := float64(meters) / 1000
	if round {
		return fmt.Sprintf("%d", int64(math.Round(km)))
	}
	return fmt.Sprintf("%.1f", km)
}
