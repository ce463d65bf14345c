// Package config loads service settings from the environment, an optional
// .env file and built-in defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the service configuration
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string
	TokenTTL  time.Duration
	LogMode   string

	// Street dataset artifacts
	GraphPointsPath   string
	GraphSegmentsPath string

	// Matching
	MatchThresholdM float64
	MatchWorkers    int

	// Activity source
	StravaBaseURL         string
	StravaActivitiesAfter int64 // Unix seconds
	StravaPerPage         int

	RateLimitPerMinute int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", ":8080")
	v.SetDefault("DB_PATH", "./data/streetscore.db")
	v.SetDefault("JWT_SECRET", "your-secret-key-change-in-production")
	v.SetDefault("TOKEN_TTL", "720h")
	v.SetDefault("LOG_MODE", "dev")
	v.SetDefault("GRAPH_POINTS_PATH", "./data/points.json")
	v.SetDefault("GRAPH_SEGMENTS_PATH", "./data/segment_map.json")
	v.SetDefault("MATCH_THRESHOLD_METERS", 20.0)
	v.SetDefault("MATCH_WORKERS", 4)
	v.SetDefault("STRAVA_BASE_URL", "https://www.strava.com/api/v3")
	v.SetDefault("STRAVA_ACTIVITIES_AFTER", 1717228800)
	v.SetDefault("STRAVA_PER_PAGE", 200)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
}

// Load reads the configuration. envFile may be empty; a missing file is not
// an error.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
			}
		}
	}

	cfg := &Config{
		Port:                  v.GetString("PORT"),
		DBPath:                v.GetString("DB_PATH"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		TokenTTL:              v.GetDuration("TOKEN_TTL"),
		LogMode:               v.GetString("LOG_MODE"),
		GraphPointsPath:       v.GetString("GRAPH_POINTS_PATH"),
		GraphSegmentsPath:     v.GetString("GRAPH_SEGMENTS_PATH"),
		MatchThresholdM:       v.GetFloat64("MATCH_THRESHOLD_METERS"),
		MatchWorkers:          v.GetInt("MATCH_WORKERS"),
		StravaBaseURL:         v.GetString("STRAVA_BASE_URL"),
		StravaActivitiesAfter: v.GetInt64("STRAVA_ACTIVITIES_AFTER"),
		StravaPerPage:         v.GetInt("STRAVA_PER_PAGE"),
		RateLimitPerMinute:    v.GetInt("RATE_LIMIT_PER_MINUTE"),
	}
	if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH is required"))
	}
	if c.GraphSegmentsPath == "" {
		errs = append(errs, errors.New("GRAPH_SEGMENTS_PATH is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.MatchThresholdM <= 0 {
		errs = append(errs, fmt.Errorf("MATCH_THRESHOLD_METERS must be positive, got %v", c.MatchThresholdM))
	}
	if c.MatchWorkers < 1 {
		errs = append(errs, fmt.Errorf("MATCH_WORKERS must be at least 1, got %d", c.MatchWorkers))
	}
	if c.StravaPerPage < 1 || c.StravaPerPage > 200 {
		errs = append(errs, fmt.Errorf("STRAVA_PER_PAGE must be within 1..200, got %d", c.StravaPerPage))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.RateLimitPerMinute))
	}
	return errors.Join(errs...)
}

// StravaAfter returns the activity cut-off as a time
func (c *Config) StravaAfter() time.Time {
	if c.StravaActivitiesAfter <= 0 {
		return time.Time{}
	}
	return time.Unix(c.StravaActivitiesAfter, 0)
}
