package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/streetscore-go/internal/middleware"
	"github.com/jengzang/streetscore-go/internal/models"
	"github.com/jengzang/streetscore-go/internal/service"
	"github.com/jengzang/streetscore-go/pkg/response"
)

// ScoreHandler serves scores and the leaderboard
type ScoreHandler struct {
	service *service.ScoreService
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(service *service.ScoreService) *ScoreHandler {
	return &ScoreHandler{service: service}
}

// GetScore handles GET /api/v1/score
func (h *ScoreHandler) GetScore(c *gin.Context) {
	score, err := h.service.UserScore(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err, "Failed to get score")
		return
	}
	response.Success(c, score)
}

// GetLeaderboard handles GET /api/v1/scores
func (h *ScoreHandler) GetLeaderboard(c *gin.Context) {
	board, err := h.service.Leaderboard(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to get leaderboard")
		return
	}
	response.Success(c, leaderboardView(board, c.Query("round") == "true"))
}

// RefreshScores handles POST /api/v1/scores/refresh
func (h *ScoreHandler) RefreshScores(c *gin.Context) {
	board, err := h.service.RefreshAllScores(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to refresh scores")
		return
	}
	response.Success(c, leaderboardView(board, false))
}

func leaderboardView(board *models.Leaderboard, round bool) gin.H {
	return gin.H{
		"scores":       board.Entries,
		"totalScore":   board.TotalScore,
		"totalScoreKm": models.FormatKilometers(board.TotalScore, round),
		"summary":      board.Summary,
	}
}
