package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/streetscore-go/internal/auth"
	"github.com/jengzang/streetscore-go/internal/config"
	"github.com/jengzang/streetscore-go/internal/coverage"
	"github.com/jengzang/streetscore-go/internal/database"
	"github.com/jengzang/streetscore-go/internal/logger"
	"github.com/jengzang/streetscore-go/internal/metrics"
	"github.com/jengzang/streetscore-go/internal/models"
	"github.com/jengzang/streetscore-go/internal/repository"
	"github.com/jengzang/streetscore-go/internal/service"
	"github.com/jengzang/streetscore-go/internal/spatial"
	"github.com/jengzang/streetscore-go/internal/streetgraph"
	"github.com/jengzang/streetscore-go/internal/strava"
)

var (
	p1 = spatial.Point{Lon: -122.87, Lat: 38.61}
	p2 = spatial.Point{Lon: -122.8689, Lat: 38.61}
	p3 = spatial.Point{Lon: -122.8689, Lat: 38.6105}
)

type stubSource struct {
	activities []models.Activity
	err        error
}

func (s *stubSource) ListActivities(_ context.Context, _ string) ([]models.Activity, error) {
	return s.activities, s.err
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, source service.ActivitySource) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, logger.NewNop()))

	g, err := streetgraph.New([]streetgraph.Edge{
		{ID: "S1", Start: p1, End: p2, LengthM: 100},
		{ID: "S2", Start: p2, End: p3, LengthM: 50},
	})
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	activities := repository.NewActivityRepository(db)
	cov := repository.NewCoverageRepository(db)
	issuer := auth.NewIssuer("test-secret", time.Hour)
	m := metrics.NewCollector("test")
	log := logger.NewNop()

	scores := service.NewScoreService(users, cov, coverage.NewAggregator(g), log)
	return SetupRouter(&config.Config{RateLimitPerMinute: 0}, Dependencies{
		Log:     log,
		Metrics: m,
		Issuer:  issuer,
		Graph:   g,
		Users:   service.NewUserService(users, activities, issuer),
		Sync: service.NewSyncService(service.SyncConfig{
			Users: users, Activities: activities, Coverage: cov, Source: source,
			Runs: repository.NewSyncRunRepository(db),
			Scores: scores, Graph: g, Metrics: m, Log: log,
		}),
		Scores: scores,
	})
}

func do(t *testing.T, r *gin.Engine, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func register(t *testing.T, r *gin.Engine, id string) string {
	t.Helper()
	rec, env := do(t, r, http.MethodPost, "/api/v1/users", "", `{"id":"`+id+`","name":"Ann","accessToken":"strava-token"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestServer(t, &stubSource{})

	rec, _ := do(t, r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"edges":2`)

	rec, _ = do(t, r, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestSyncAndScoreFlow(t *testing.T) {
	source := &stubSource{activities: []models.Activity{
		{ID: "a1", Name: "Loop", StartDate: 1717315200, Polyline: spatial.EncodePolyline(spatial.Track{p1, p2, p3})},
	}}
	r := newTestServer(t, source)
	token := register(t, r, "u1")

	rec, env := do(t, r, http.MethodPost, "/api/v1/sync", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report models.SyncReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, int64(150), report.Score)
	assert.Equal(t, models.StateScored, report.Results[0].State)

	rec, env = do(t, r, http.MethodGet, "/api/v1/score", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var score models.UserScore
	require.NoError(t, json.Unmarshal(env.Data, &score))
	assert.Equal(t, int64(150), score.Score)
	assert.Equal(t, int64(150), score.TotalScore)
	assert.Equal(t, 100.0, score.Percent)

	rec, env = do(t, r, http.MethodGet, "/api/v1/activities", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"segmentIds":["S1","S2"]`)

	rec, env = do(t, r, http.MethodGet, "/api/v1/scores", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var board struct {
		Scores       []models.LeaderboardEntry `json:"scores"`
		TotalScore   int64                     `json:"totalScore"`
		TotalScoreKm string                    `json:"totalScoreKm"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board.Scores, 1)
	assert.Equal(t, int64(150), board.Scores[0].Score)
	assert.Equal(t, "0.1", board.TotalScoreKm)

	rec, _ = do(t, r, http.MethodPost, "/api/v1/scores/refresh", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = do(t, r, http.MethodPost, "/api/v1/scores/refresh", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, r, http.MethodGet, "/api/v1/sync/runs", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []models.SyncRun
	require.NoError(t, json.Unmarshal(env.Data, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].ID)
	assert.Equal(t, models.RunCompleted, runs[0].Status)

	rec, _ = do(t, r, http.MethodGet, "/api/v1/sync/runs?limit=x", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	r := newTestServer(t, &stubSource{})

	for _, path := range []string{"/api/v1/score", "/api/v1/activities"} {
		rec, _ := do(t, r, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec, _ := do(t, r, http.MethodPost, "/api/v1/sync", "bogus", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	r := newTestServer(t, &stubSource{})

	rec, _ := do(t, r, http.MethodPost, "/api/v1/users", "", `{"id":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, r, http.MethodPost, "/api/v1/users", "", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterExistingID(t *testing.T) {
	r := newTestServer(t, &stubSource{})
	token := register(t, r, "u1")
	body := `{"id":"u1","name":"Mallory","accessToken":"other-token"}`

	rec, _ := do(t, r, http.MethodPost, "/api/v1/users", "", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	other := register(t, r, "u2")
	rec, _ = do(t, r, http.MethodPost, "/api/v1/users", other, body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, r, http.MethodPost, "/api/v1/users", token, `{"id":"u1","name":"Ann B","accessToken":"fresh-token"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestUnknownUserToken(t *testing.T) {
	r := newTestServer(t, &stubSource{})
	token, err := auth.NewIssuer("test-secret", time.Hour).Issue("ghost")
	require.NoError(t, err)

	rec, _ := do(t, r, http.MethodPost, "/api/v1/sync", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSourceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "rate limited", err: &strava.APIError{StatusCode: http.StatusTooManyRequests}, code: http.StatusTooManyRequests},
		{name: "upstream down", err: &strava.APIError{StatusCode: http.StatusServiceUnavailable}, code: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestServer(t, &stubSource{err: tt.err})
			token := register(t, r, "u1")

			rec, _ := do(t, r, http.MethodPost, "/api/v1/sync", token, "")
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
