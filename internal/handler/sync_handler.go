package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/streetscore-go/internal/middleware"
	"github.com/jengzang/streetscore-go/internal/service"
	"github.com/jengzang/streetscore-go/pkg/response"
)

// SyncHandler triggers activity syncs
type SyncHandler struct {
	service *service.SyncService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(service *service.SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// Sync handles POST /api/v1/sync
func (h *SyncHandler) Sync(c *gin.Context) {
	report, err := h.service.Sync(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err, "Failed to sync activities")
		return
	}
	response.Success(c, report)
}

// ListRuns handles GET /api/v1/sync/runs
func (h *SyncHandler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		response.BadRequest(c, "Invalid limit parameter")
		return
	}

	runs, err := h.service.Runs(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		writeError(c, err, "Failed to list sync runs")
		return
	}
	response.Success(c, runs)
}
