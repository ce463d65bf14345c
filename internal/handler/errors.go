package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/streetscore-go/internal/service"
	"github.com/jengzang/streetscore-go/internal/strava"
	"github.com/jengzang/streetscore-go/pkg/response"
)

// writeError maps service errors onto HTTP responses
func writeError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, service.ErrUnknownUser):
		response.NotFound(c, "User not found")
	case errors.Is(err, service.ErrUserExists):
		response.Conflict(c, "User already registered")
	case errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(c, err.Error())
	case strava.IsRateLimited(err):
		response.TooManyRequests(c, "Activity source rate limit reached, try again later")
	case errors.Is(err, service.ErrSource):
		response.BadGateway(c, "Failed to fetch activities")
	default:
		response.InternalError(c, fallback)
	}
}
