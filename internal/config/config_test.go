package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, 20.0, cfg.MatchThresholdM)
	assert.Equal(t, 4, cfg.MatchWorkers)
	assert.Equal(t, int64(1717228800), cfg.StravaActivitiesAfter)
	assert.Equal(t, 200, cfg.StravaPerPage)
	assert.Equal(t, 720*time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Unix(1717228800, 0), cfg.StravaAfter())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MATCH_THRESHOLD_METERS", "25.5")
	t.Setenv("MATCH_WORKERS", "8")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, 25.5, cfg.MatchThresholdM)
	assert.Equal(t, 8, cfg.MatchWorkers)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_PATH=/var/lib/streetscore.db\nSTRAVA_PER_PAGE=50\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/streetscore.db", cfg.DBPath)
	assert.Equal(t, 50, cfg.StravaPerPage)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("MATCH_WORKERS", "0")
	t.Setenv("STRAVA_PER_PAGE", "500")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MATCH_WORKERS")
	assert.Contains(t, err.Error(), "STRAVA_PER_PAGE")
}
