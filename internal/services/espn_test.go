package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const espnSampleBody = `{
  "team": {"displayName": "Arizona Wildcats"},
  "events": [
    {
      "date": "2026-03-10T02:00Z",
      "competitions": [{
        "status": {"type": {"state": "post"}},
        "competitors": [
          {
            "homeAway": "home",
            "winner": true,
            "score": {"displayValue": "78"},
            "team": {"displayName": "Arizona Wildcats"}
          },
          {
            "homeAway": "away",
            "winner": false,
            "score": {"displayValue": "71"},
            "team": {"displayName": "Texas Tech Red Raiders"}
          }
        ]
      }]
    },
    {
      "date": "2026-03-15T01:30Z",
      "competitions": [{
        "status": {"type": {"state": "pre"}},
        "competitors": [
          {
            "homeAway": "away",
            "team": {"displayName": "Arizona Wildcats"}
          },
          {
            "homeAway": "home",
            "team": {"displayName": "Kansas Jayhawks"}
          }
        ]
      }]
    }
  ]
}`

func TestParseESPNSchedule(t *testing.T) {
	sched := parseESPNSchedule([]byte(espnSampleBody))

	assert.Equal(t, "Arizona Wildcats", sched.TeamName)
	require.Len(t, sched.Events, 2)

	past := sched.Events[0]
	assert.Equal(t, "post", past.State)
	assert.Equal(t, "Texas Tech Red Raiders", past.Opponent)
	assert.Equal(t, "home", past.HomeAway)
	assert.Equal(t, "78", past.OurScore)
	assert.Equal(t, "71", past.OppScore)
	assert.True(t, past.Won)
	assert.True(t, past.Date.Equal(time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)))

	next := sched.Events[1]
	assert.Equal(t, "pre", next.State)
	assert.Equal(t, "Kansas Jayhawks", next.Opponent)
	assert.Equal(t, "away", next.HomeAway)
	assert.False(t, next.Won)
}

func TestESPNCacheAndStaleFallback(t *testing.T) {
	var calls, failing int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if failing > 0 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(espnSampleBody))
	}))
	defer server.Close()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s := NewESPN(server.Client())
	s.baseURL = server.URL
	s.now = func() time.Time { return now }

	ctx := context.Background()

	sched, err := s.Schedule(ctx, "basketball", 12)
	require.NoError(t, err)
	assert.Equal(t, "Arizona Wildcats", sched.TeamName)
	assert.Equal(t, 1, calls)

	// Within the TTL the cache answers without another request.
	_, err = s.Schedule(ctx, "basketball", 12)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// Past the TTL a failing upstream falls back to the stale schedule.
	now = now.Add(time.Hour)
	failing = 1
	sched, err = s.Schedule(ctx, "basketball", 12)
	require.NoError(t, err)
	assert.Equal(t, "Arizona Wildcats", sched.TeamName)
	assert.Equal(t, 2, calls)

	// With no cached entry the error surfaces.
	_, err = s.Schedule(ctx, "basketball", 99)
	assert.ErrorContains(t, err, "schedule API status 502")
}
