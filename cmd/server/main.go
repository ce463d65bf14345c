package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/streetscore-go/internal/api"
	"github.com/jengzang/streetscore-go/internal/auth"
	"github.com/jengzang/streetscore-go/internal/config"
	"github.com/jengzang/streetscore-go/internal/coverage"
	"github.com/jengzang/streetscore-go/internal/database"
	"github.com/jengzang/streetscore-go/internal/logger"
	"github.com/jengzang/streetscore-go/internal/metrics"
	"github.com/jengzang/streetscore-go/internal/repository"
	"github.com/jengzang/streetscore-go/internal/service"
	"github.com/jengzang/streetscore-go/internal/streetgraph"
	"github.com/jengzang/streetscore-go/internal/strava"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		// logger is not up yet
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	graph, err := streetgraph.Load(cfg.GraphPointsPath, cfg.GraphSegmentsPath)
	if err != nil {
		var loadErr *streetgraph.DatasetLoadError
		if errors.As(err, &loadErr) {
			log.Fatal("street dataset unusable, refusing to start", "path", loadErr.Path, "error", loadErr.Err)
		}
		log.Fatal("failed to load street graph", "error", err)
	}
	log.Info("street graph loaded", "edges", graph.Len(), "total_length_m", graph.TotalLengthM())

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer db.Close()
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("failed to migrate database", "error", err)
	}

	m := metrics.NewCollector("streetscore")
	m.SetGraph(graph.Len(), graph.TotalLengthM())

	users := repository.NewUserRepository(db)
	activities := repository.NewActivityRepository(db)
	cov := repository.NewCoverageRepository(db)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)

	source := &strava.Client{
		BaseURL:    cfg.StravaBaseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Tokens:     users,
		PerPage:    cfg.StravaPerPage,
		After:      cfg.StravaAfter(),
		Log:        log.Named("strava"),
	}

	scores := service.NewScoreService(users, cov, coverage.NewAggregator(graph), log)
	syncSvc := service.NewSyncService(service.SyncConfig{
		Users:      users,
		Activities: activities,
		Coverage:   cov,
		Source:     source,
		Runs:       repository.NewSyncRunRepository(db),
		Scores:     scores,
		Graph:      graph,
		Matcher:    coverage.NewMatcher(cfg.MatchThresholdM),
		Workers:    cfg.MatchWorkers,
		Metrics:    m,
		Log:        log,
	})

	if cfg.LogMode == "prod" || cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(cfg, api.Dependencies{
		Log:     log,
		Metrics: m,
		Issuer:  issuer,
		Graph:   graph,
		Users:   service.NewUserService(users, activities, issuer),
		Sync:    syncSvc,
		Scores:  scores,
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
