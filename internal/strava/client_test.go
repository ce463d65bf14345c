package strava

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens map[string]string

func (s staticTokens) AccessToken(_ context.Context, userID string) (string, error) {
	tok, ok := s[userID]
	if !ok {
		return "", errors.New("no token")
	}
	return tok, nil
}

func newTestClient(t *testing.T, perPage int) *Client {
	t.Helper()
	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	return &Client{
		BaseURL:    "https://strava.test/api/v3",
		HTTPClient: httpClient,
		Tokens:     staticTokens{"u1": "tok-1"},
		PerPage:    perPage,
		After:      time.Unix(1717228800, 0),
	}
}

func activityJSON(id int, polyline string) string {
	return fmt.Sprintf(`{"id": %d, "name": "Ride %d", "sport_type": "Ride", "start_date": "2024-06-02T08:00:00Z",
		"distance": 1234.5, "flagged": false, "map": {"summary_polyline": %q}}`, id, id, polyline)
}

func TestListActivities_Paginates(t *testing.T) {
	c := newTestClient(t, 2)

	pages := map[string]string{
		"1": "[" + activityJSON(1, "_p~iF~ps|U") + "," + activityJSON(2, "") + "]",
		"2": "[" + activityJSON(3, "abc") + "]",
	}
	httpmock.RegisterResponder(http.MethodGet, "https://strava.test/api/v3/athlete/activities",
		func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			if req.Header.Get("Authorization") != "Bearer tok-1" {
				return httpmock.NewStringResponse(http.StatusUnauthorized, `{"message":"Authorization Error"}`), nil
			}
			if q.Get("after") != "1717228800" || q.Get("per_page") != "2" {
				return httpmock.NewStringResponse(http.StatusBadRequest, "bad query"), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, pages[q.Get("page")]), nil
		})

	activities, err := c.ListActivities(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, activities, 3)

	assert.Equal(t, "1", activities[0].ID)
	assert.Equal(t, "u1", activities[0].UserID)
	assert.Equal(t, "Ride", activities[0].SportType)
	assert.Equal(t, "_p~iF~ps|U", activities[0].Polyline)
	assert.Equal(t, int64(1717315200), activities[0].StartDate)
	assert.False(t, activities[1].HasTrack())
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestListActivities_EmptyFirstPage(t *testing.T) {
	c := newTestClient(t, 200)
	httpmock.RegisterResponder(http.MethodGet, "https://strava.test/api/v3/athlete/activities",
		httpmock.NewStringResponder(http.StatusOK, `[]`))

	activities, err := c.ListActivities(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, activities)
}

func TestListActivities_APIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, check: IsRateLimited},
		{name: "unauthorized", status: http.StatusUnauthorized, check: IsUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, 200)
			httpmock.RegisterResponder(http.MethodGet, "https://strava.test/api/v3/athlete/activities",
				httpmock.NewStringResponder(tt.status, `{"message":"nope"}`))

			_, err := c.ListActivities(context.Background(), "u1")
			require.Error(t, err)
			assert.True(t, tt.check(err))
		})
	}
}

func TestListActivities_UnknownUser(t *testing.T) {
	c := newTestClient(t, 200)

	_, err := c.ListActivities(context.Background(), "nobody")
	assert.Error(t, err)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestListActivities_DistanceFromTrack(t *testing.T) {
	c := newTestClient(t, 200)
	httpmock.RegisterResponder(http.MethodGet, "https://strava.test/api/v3/athlete/activities",
		httpmock.NewStringResponder(http.StatusOK, `[
			{"id": 1, "map": {"summary_polyline": "_p~iF~ps|U_ulLnnqC"}},
			{"id": 2, "distance": 10, "map": {"summary_polyline": "_p~iF~ps|U_ulLnnqC"}},
			{"id": 3, "map": {"summary_polyline": "!!!"}}
		]`))

	activities, err := c.ListActivities(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, activities, 3)
	assert.InDelta(t, 252900, activities[0].DistanceM, 500)
	assert.Equal(t, 10.0, activities[1].DistanceM, "reported distance wins")
	assert.Zero(t, activities[2].DistanceM)
}

func TestListActivities_BadStartDate(t *testing.T) {
	c := newTestClient(t, 200)
	httpmock.RegisterResponder(http.MethodGet, "https://strava.test/api/v3/athlete/activities",
		httpmock.NewStringResponder(http.StatusOK, `[{"id": 9, "start_date": "yesterday"}]`))

	_, err := c.ListActivities(context.Background(), "u1")
	assert.ErrorContains(t, err, "start_date")
}
