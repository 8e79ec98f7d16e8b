package command

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Clock answers "what time is it", "what day is it", "what's the date".
type Clock struct {
	now func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

func (c *Clock) Name() string { return "clock" }

var (
	clockCueRe  = regexp.MustCompile(`\b(what|tell me)\b`)
	clockTimeRe = regexp.MustCompile(`\btime\b`)
	clockDateRe = regexp.MustCompile(`\bdate\b`)
	clockDayRe  = regexp.MustCompile(`\bday\b`)
)

func (c *Clock) classify(text string) string {
	t := strings.ToLower(text)
	switch {
	case clockTimeRe.MatchString(t):
		return "time"
	case clockDateRe.MatchString(t):
		return "date"
	case clockDayRe.MatchString(t):
		return "day"
	}
	return ""
}

func (c *Clock) Parse(text string) *Result {
	t := strings.ToLower(text)
	cmd := c.classify(t)
	// Must actually ask a question about time/day/date.
	if cmd == "" || !clockCueRe.MatchString(t) {
		return nil
	}
	return &Result{Command: "get_" + cmd, Score: 0.9}
}

func (c *Clock) Handle(r *Result) string {
	now := c.now()

	switch r.Command {
	case "get_time":
		hour := now.Hour() % 12
		if hour == 0 {
			hour = 12
		}
		minute := now.Minute()
		ampm := "PM"
		if now.Hour() < 12 {
			ampm = "AM"
		}
		switch {
		case minute == 0:
			return fmt.Sprintf("It's %d %s.", hour, ampm)
		case minute < 10:
			return fmt.Sprintf("It's %d oh %d %s.", hour, minute, ampm)
		default:
			return fmt.Sprintf("It's %d %d %s.", hour, minute, ampm)
		}

	case "get_date":
		return fmt.Sprintf("Today is %s, %s %d, %d.",
			now.Weekday(), now.Month(), now.Day(), now.Year())

	case "get_day":
		return fmt.Sprintf("Today is %s, %s %d.",
			now.Weekday(), now.Month(), now.Day())
	}

	return fmt.Sprintf("It's %s.", now.Format("3:04 PM"))
}
