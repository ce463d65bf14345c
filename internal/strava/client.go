// Package strava lists athlete activities from the Strava v3 API.
package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jengzang/streetscore-go/internal/logger"
	"github.com/jengzang/streetscore-go/internal/models"
	"github.com/jengzang/streetscore-go/internal/spatial"
)

const (
	DefaultBaseURL = "https://www.strava.com/api/v3"
	DefaultPerPage = 200
	maxPages       = 100
)

// TokenProvider returns the bearer token for a user
type TokenProvider interface {
	AccessToken(ctx context.Context, userID string) (string, error)
}

// APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("strava error %d: %s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether err is a 429 from the API
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsUnauthorized reports whether the API rejected the user's token
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenProvider
	PerPage    int
	After      time.Time // only activities starting after this are listed
	Log        *logger.Logger
}

type activityPayload struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	SportType string  `json:"sport_type"`
	StartDate string  `json:"start_date"`
	Distance  float64 `json:"distance"`
	Flagged   bool    `json:"flagged"`
	Map       struct {
		SummaryPolyline string `json:"summary_polyline"`
	} `json:"map"`
}

// ListActivities fetches every activity of the user, page by page, and returns
// the complete snapshot.
func (c *Client) ListActivities(ctx context.Context, userID string) ([]models.Activity, error) {
	token, err := c.Tokens.AccessToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("access token for %s: %w", userID, err)
	}

	perPage := c.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	var out []models.Activity
	for page := 1; page <= maxPages; page++ {
		params := url.Values{}
		params.Set("per_page", strconv.Itoa(perPage))
		params.Set("page", strconv.Itoa(page))
		if !c.After.IsZero() {
			params.Set("after", strconv.FormatInt(c.After.Unix(), 10))
		}

		var payload []activityPayload
		if err := c.getJSON(ctx, "/athlete/activities", params, token, &payload); err != nil {
			return nil, err
		}

		for _, p := range payload {
			a, err := toActivity(userID, p)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}

		if c.Log != nil {
			c.Log.Debug("fetched activity page", "user_id", userID, "page", page, "count", len(payload))
		}
		if len(payload) < perPage {
			return out, nil
		}
	}
	return nil, fmt.Errorf("activity listing for %s exceeded %d pages", userID, maxPages)
}

func toActivity(userID string, p activityPayload) (models.Activity, error) {
	a := models.Activity{
		ID:        strconv.FormatInt(p.ID, 10),
		UserID:    userID,
		Name:      p.Name,
		SportType: p.SportType,
		DistanceM: p.Distance,
		Polyline:  p.Map.SummaryPolyline,
		Flagged:   p.Flagged,
	}
	if p.StartDate != "" {
		start, err := time.Parse(time.RFC3339, p.StartDate)
		if err != nil {
			return models.Activity{}, fmt.Errorf("parse start_date of activity %d: %w", p.ID, err)
		}
		a.StartDate = start.Unix()
	}
	// manual uploads can omit the distance; fall back to the track length
	if a.DistanceM == 0 && a.Polyline != "" {
		if track, err := spatial.DecodePolyline(a.Polyline); err == nil {
			a.DistanceM = spatial.PathLength(track)
		}
	}
	return a, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, token string, target interface{}) error {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return err
	}
	joined, err := url.JoinPath(u.Path, path)
	if err != nil {
		return err
	}
	u.Path = joined
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
