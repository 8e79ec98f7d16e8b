package command

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Team is one followed team. Aliases match the team by name in speech;
// SportKeywords match when only the sport is mentioned.
type Team struct {
	Sport         string
	ID            int
	Name          string
	ShortName     string
	SportKeywords []string
	Aliases       *regexp.Regexp
}

// GameEvent is one scheduled or completed game.
type GameEvent struct {
	Date     time.Time
	State    string // "pre", "in", "post"
	Opponent string
	HomeAway string // "home" or "away"
	OurScore string
	OppScore string
	Won      bool
}

// Schedule is a team's season schedule.
type Schedule struct {
	TeamName string
	Events   []GameEvent
}

// ScheduleSource fetches team schedules. Implementations live in
// internal/services.
type ScheduleSource interface {
	Schedule(ctx context.Context, sport string, teamID int) (Schedule, error)
}

// Sports answers schedule and score questions about followed teams.
type Sports struct {
	source  ScheduleSource
	teams   []Team
	kwRes   map[string]*regexp.Regexp
	timeout time.Duration
	now     func() time.Time
}

func NewSports(source ScheduleSource, teams []Team) *Sports {
	kwRes := map[string]*regexp.Regexp{}
	for _, team := range teams {
		for _, kw := range team.SportKeywords {
			if _, ok := kwRes[kw]; !ok {
				kwRes[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			}
		}
	}
	return &Sports{
		source:  source,
		teams:   teams,
		kwRes:   kwRes,
		timeout: 10 * time.Second,
		now:     time.Now,
	}
}

func (m *Sports) Name() string { return "sports" }

// --- Classification ---

var (
	sportTriggerRe = regexp.MustCompile(`(?i)\b(?:game|games|play|playing|score|schedule|match)\b`)
	lastGameRe     = regexp.MustCompile(
		`(?i)\b(?:last\s+game|most\s+recent|who\s+won|what\s+was\s+the\s+score` +
			`|how\s+did\s+.+\s+do|did\s+.+\s+win)\b`)
	thisWeekRe = regexp.MustCompile(`(?i)\bthis\s+week\b`)
	nextWeekRe = regexp.MustCompile(`(?i)\bnext\s+week\b`)
)

// findTeams resolves which teams an utterance is about. Specific aliases
// narrow to one team, sport keywords to all teams of that sport, and generic
// words like "game" to every followed team.
func (m *Sports) findTeams(text string) []Team {
	lower := strings.ToLower(text)

	var specific []Team
	for _, team := range m.teams {
		if team.Aliases != nil && team.Aliases.MatchString(text) {
			specific = append(specific, team)
		}
	}
	if len(specific) > 0 {
		return specific
	}

	for _, team := range m.teams {
		for _, kw := range team.SportKeywords {
			if !m.kwRes[kw].MatchString(lower) {
				continue
			}
			var matched []Team
			for _, t := range m.teams {
				for _, k := range t.SportKeywords {
					if k == kw {
						matched = append(matched, t)
						break
					}
				}
			}
			return matched
		}
	}

	if sportTriggerRe.MatchString(text) {
		return append([]Team(nil), m.teams...)
	}
	return nil
}

func (m *Sports) Parse(text string) *Result {
	teams := m.findTeams(text)
	if len(teams) == 0 {
		return nil
	}

	command := "next_game"
	switch {
	case lastGameRe.MatchString(text):
		command = "last_game"
	case thisWeekRe.MatchString(text):
		command = "this_week"
	case nextWeekRe.MatchString(text):
		command = "next_week"
	}
	return &Result{Command: command, Score: 0.9, Args: Args{"teams": teams}}
}

// --- Formatting ---

// shortenOpponent trims mascot suffixes: "Texas Tech Red Raiders" reads
// better as "Texas Tech".
func shortenOpponent(name string) string {
	words := strings.Fields(name)
	if len(words) > 2 {
		return strings.Join(words[:2], " ")
	}
	return name
}

func formatUpcomingGame(teamName string, ev GameEvent) string {
	day := ev.Date.Weekday().String()
	monthDay := fmt.Sprintf("%s %d", ev.Date.Month(), ev.Date.Day())
	clock := strings.ToLower(ev.Date.Format("3:04 PM"))

	if ev.Opponent == "" {
		return fmt.Sprintf("%s: %s, %s at %s.", teamName, day, monthDay, clock)
	}
	loc := "at " + shortenOpponent(ev.Opponent)
	if ev.HomeAway == "home" {
		loc = "at home against " + shortenOpponent(ev.Opponent)
	}
	return fmt.Sprintf("%s: %s, %s at %s, %s.", teamName, day, monthDay, clock, loc)
}

func findNextGame(sched Schedule, teamName string) (string, bool) {
	for _, ev := range sched.Events {
		if ev.State == "pre" {
			return formatUpcomingGame(teamName, ev), true
		}
	}
	return "", false
}

func findGamesInRange(sched Schedule, teamName string, start, end time.Time) []string {
	var out []string
	for _, ev := range sched.Events {
		if ev.State != "pre" {
			continue
		}
		if !ev.Date.Before(start) && ev.Date.Before(end) {
			out = append(out, formatUpcomingGame(teamName, ev))
		}
	}
	return out
}

func findLastGame(sched Schedule, teamName string) (string, bool) {
	var last *GameEvent
	for i := range sched.Events {
		if sched.Events[i].State == "post" {
			last = &sched.Events[i]
		}
	}
	if last == nil || last.Opponent == "" {
		return "", false
	}
	opp := shortenOpponent(last.Opponent)
	if last.Won {
		return fmt.Sprintf("%s beat %s, %s to %s.",
			teamName, opp, last.OurScore, last.OppScore), true
	}
	return fmt.Sprintf("%s lost to %s, %s to %s.",
		teamName, opp, last.OppScore, last.OurScore), true
}

// nextSundayMidnight returns midnight at the end of the current week, i.e.
// the first instant of the coming Monday.
func nextSundayMidnight(now time.Time) time.Time {
	// Monday-based weekday index.
	wd := (int(now.Weekday()) + 6) % 7
	ahead := (6-wd)%7 + 1
	day := now.AddDate(0, 0, ahead)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
}

// --- Handling ---

func (m *Sports) Handle(r *Result) string {
	teams, _ := r.Args["teams"].([]Team)
	if m.source == nil || len(teams) == 0 {
		return "Sorry, I didn't understand that sports question."
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var responses []string
	for _, team := range teams {
		sched, err := m.source.Schedule(ctx, team.Sport, team.ID)
		if err != nil {
			responses = append(responses, fmt.Sprintf(
				"Sorry, I had trouble checking the %s schedule: %v", team.ShortName, err))
			continue
		}

		switch r.Command {
		case "next_game":
			if resp, ok := findNextGame(sched, team.ShortName); ok {
				responses = append(responses, resp)
			} else {
				responses = append(responses, fmt.Sprintf(
					"I couldn't find any upcoming %s games.", team.ShortName))
			}

		case "this_week":
			now := m.now()
			games := findGamesInRange(sched, team.ShortName, now, nextSundayMidnight(now))
			if len(games) > 0 {
				responses = append(responses, games...)
			} else {
				responses = append(responses, fmt.Sprintf(
					"No %s games this week.", team.ShortName))
			}

		case "next_week":
			start := nextSundayMidnight(m.now())
			games := findGamesInRange(sched, team.ShortName, start, start.AddDate(0, 0, 7))
			if len(games) > 0 {
				responses = append(responses, games...)
			} else {
				responses = append(responses, fmt.Sprintf(
					"No %s games next week.", team.ShortName))
			}

		case "last_game":
			if resp, ok := findLastGame(sched, team.ShortName); ok {
				responses = append(responses, resp)
			} else {
				responses = append(responses, fmt.Sprintf(
					"I couldn't find a recent %s game.", team.ShortName))
			}
		}
	}

	if len(responses) == 0 {
		return "Sorry, I didn't understand that sports question."
	}
	return strings.Join(responses, " ")
}
