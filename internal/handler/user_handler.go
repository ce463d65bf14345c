package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/streetscore-go/internal/middleware"
	"github.com/jengzang/streetscore-go/internal/service"
	"github.com/jengzang/streetscore-go/pkg/response"
)

// UserHandler handles registration and per-user reads
type UserHandler struct {
	service *service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Register handles POST /api/v1/users
func (h *UserHandler) Register(c *gin.Context) {
	var in service.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	user, token, err := h.service.Register(c.Request.Context(), in, middleware.UserID(c))
	if err != nil {
		writeError(c, err, "Failed to register user")
		return
	}

	response.Created(c, gin.H{
		"user":  user,
		"token": token,
	})
}

// GetActivities handles GET /api/v1/activities
func (h *UserHandler) GetActivities(c *gin.Context) {
	activities, err := h.service.Activities(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err, "Failed to get activities")
		return
	}

	response.Success(c, gin.H{
		"data":  activities,
		"total": len(activities),
	})
}
