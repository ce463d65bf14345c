package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/streetscore-go/internal/auth"
	"github.com/jengzang/streetscore-go/internal/config"
	"github.com/jengzang/streetscore-go/internal/handler"
	"github.com/jengzang/streetscore-go/internal/logger"
	"github.com/jengzang/streetscore-go/internal/metrics"
	"github.com/jengzang/streetscore-go/internal/middleware"
	"github.com/jengzang/streetscore-go/internal/service"
	"github.com/jengzang/streetscore-go/internal/streetgraph"
)

// Dependencies are the wired services the router exposes
type Dependencies struct {
	Log     *logger.Logger
	Metrics *metrics.Collector
	Issuer  *auth.Issuer
	Graph   *streetgraph.Graph
	Users   *service.UserService
	Sync    *service.SyncService
	Scores  *service.ScoreService
}

// SetupRouter builds the HTTP engine
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(deps.Log, deps.Metrics))

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"edges":        deps.Graph.Len(),
			"totalLengthM": deps.Graph.TotalLengthM(),
		})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	userHandler := handler.NewUserHandler(deps.Users)
	syncHandler := handler.NewSyncHandler(deps.Sync)
	scoreHandler := handler.NewScoreHandler(deps.Scores)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	{
		api.POST("/users", middleware.OptionalAuth(deps.Issuer), userHandler.Register)
		api.GET("/scores", scoreHandler.GetLeaderboard)

		authed := api.Group("")
		authed.Use(middleware.Auth(deps.Issuer))
		{
			authed.POST("/sync", syncHandler.Sync)
			authed.GET("/sync/runs", syncHandler.ListRuns)
			authed.GET("/activities", userHandler.GetActivities)
			authed.GET("/score", scoreHandler.GetScore)
			authed.POST("/scores/refresh", scoreHandler.RefreshScores)
		}
	}

	return r
}
