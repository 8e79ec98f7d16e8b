package services

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"verba/internal/command"
)

const espnBaseURL = "http://site.api.espn.com/apis/site/v2/sports"

// ESPN fetches team schedules from ESPN's public site API. Responses are
// cached; on a fetch failure a stale cached schedule is served if one
// exists.
type ESPN struct {
	client  *http.Client
	baseURL string

	mu    sync.Mutex
	cache map[string]espnCacheEntry

	ttl time.Duration
	now func() time.Time
}

type espnCacheEntry struct {
	fetched time.Time
	sched   command.Schedule
}

func NewESPN(client *http.Client) *ESPN {
	if client == nil {
		client = http.DefaultClient
	}
	return &ESPN{
		client:  client,
		baseURL: espnBaseURL,
		cache:   map[string]espnCacheEntry{},
		ttl:     10 * time.Minute,
		now:     time.Now,
	}
}

func (s *ESPN) Schedule(ctx context.Context, sport string, teamID int) (command.Schedule, error) {
	key := fmt.Sprintf("%s/%d", sport, teamID)

	s.mu.Lock()
	entry, cached := s.cache[key]
	s.mu.Unlock()
	if cached && s.now().Sub(entry.fetched) < s.ttl {
		return entry.sched, nil
	}

	sched, err := s.fetch(ctx, sport, teamID)
	if err != nil {
		if cached {
			log.Warn("Schedule fetch failed, serving stale cache", "team", key, "err", err)
			return entry.sched, nil
		}
		return command.Schedule{}, err
	}

	s.mu.Lock()
	s.cache[key] = espnCacheEntry{fetched: s.now(), sched: sched}
	s.mu.Unlock()
	return sched, nil
}

// ESPN timestamps look like "2026-01-20T02:00Z".
const espnDateLayout = "2006-01-02T15:04Z07:00"

func (s *ESPN) fetch(ctx context.Context, sport string, teamID int) (command.Schedule, error) {
	url := fmt.Sprintf("%s/%s/teams/%d/schedule", s.baseURL, sport, teamID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return command.Schedule{}, fmt.Errorf("build schedule request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return command.Schedule{}, fmt.Errorf("fetch schedule: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return command.Schedule{}, fmt.Errorf("schedule API status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return command.Schedule{}, fmt.Errorf("read schedule: %w", err)
	}
	return parseESPNSchedule(body), nil
}

func parseESPNSchedule(body []byte) command.Schedule {
	root := gjson.ParseBytes(body)
	teamName := root.Get("team.displayName").String()
	sched := command.Schedule{TeamName: teamName}

	root.Get("events").ForEach(func(_, event gjson.Result) bool {
		comp := event.Get("competitions.0")
		ev := command.GameEvent{
			State: comp.Get("status.type.state").String(),
		}
		if at, err := time.Parse(espnDateLayout, event.Get("date").String()); err == nil {
			ev.Date = at.Local()
		}

		comp.Get("competitors").ForEach(func(_, c gjson.Result) bool {
			if c.Get("team.displayName").String() == teamName {
				ev.HomeAway = c.Get("homeAway").String()
				ev.OurScore = c.Get("score.displayValue").String()
				ev.Won = c.Get("winner").Bool()
			} else {
				ev.Opponent = c.Get("team.displayName").String()
				ev.OppScore = c.Get("score.displayValue").String()
			}
			return true
		})

		sched.Events = append(sched.Events, ev)
		return true
	})
	return sched
}
