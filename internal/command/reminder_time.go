package command

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Spoken time-of-day parsing. Tolerates the shapes Whisper produces: dotted
// "p.m.", spaced "p m", run-together "845", and space-separated "8 50".

var (
	ampmPart = `(a\.?\s*m\.?|p\.?\s*m\.?)`

	noonRe     = regexp.MustCompile(`\bnoon\b`)
	midnightRe = regexp.MustCompile(`\bmidnight\b`)

	colonTimeRe   = regexp.MustCompile(`\b(\d{1,2})[:.](\d{2})\s*` + ampmPart + `?\b`)
	packedTimeRe  = regexp.MustCompile(`\b(\d{3,4})\s*` + ampmPart + `\b`)
	spacedTimeRe  = regexp.MustCompile(`\b(\d{1,2})\s+(\d{2})\s*` + ampmPart + `\b`)
	hourAmPmRe    = regexp.MustCompile(`\b(\d{1,2})\s*` + ampmPart + `\b`)
	bareDigitsRe  = regexp.MustCompile(`\b(\d{3,4})\b`)
	oclockRe      = regexp.MustCompile(`\b(\d{1,2})\s*o['’]?\s*clock\b`)
	hourContextRe = regexp.MustCompile(`\b(\d{1,2})\s+(?:in the |at )`)

	morningRe   = regexp.MustCompile(`in the morning`)
	afternoonRe = regexp.MustCompile(`in the afternoon`)
	eveningRe   = regexp.MustCompile(`in the evening`)
	nightRe     = regexp.MustCompile(`at night`)
)

// parseClockTime parses a time expression and returns its next occurrence
// after now. Handles "3pm", "3:30pm", "12:30", "6 o'clock in the morning",
// "noon", "midnight", "846", "8 50 p.m.", and similar.
func parseClockTime(text string, now time.Time) (time.Time, bool) {
	t := strings.TrimSpace(strings.ToLower(text))

	if noonRe.MatchString(t) {
		return nextOccurrence(now, 12, 0), true
	}
	if midnightRe.MatchString(t) {
		return nextOccurrence(now, 0, 0), true
	}

	// "H:MM am/pm", "H.MM" (STT sometimes uses a period)
	if m := colonTimeRe.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		ampm := normalizeAmPm(m[3])
		hour = applyAmPm(hour, ampm, t)
		if ampm == "" && hour >= 1 && hour <= 11 {
			return nextOccurrence12h(now, hour, minute), true
		}
		return nextOccurrence(now, hour, minute), true
	}

	// "HMM am/pm" — no separator, e.g. "845 p.m."
	if m := packedTimeRe.FindStringSubmatch(t); m != nil {
		hour, minute := splitPackedDigits(m[1])
		hour = applyAmPm(hour, normalizeAmPm(m[2]), t)
		return nextOccurrence(now, hour, minute), true
	}

	// "H MM am/pm" — space-separated, e.g. "8 50 p.m."
	if m := spacedTimeRe.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		hour = applyAmPm(hour, normalizeAmPm(m[3]), t)
		return nextOccurrence(now, hour, minute), true
	}

	// "H am/pm" with no minutes
	if m := hourAmPmRe.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		hour = applyAmPm(hour, normalizeAmPm(m[2]), t)
		return nextOccurrence(now, hour, 0), true
	}

	// Bare "HMM"/"HHMM" with no am/pm, e.g. "846". Treat as 12-hour and
	// pick whichever interpretation comes next.
	if m := bareDigitsRe.FindStringSubmatch(t); m != nil {
		hour, minute := splitPackedDigits(m[1])
		if hour <= 12 {
			return nextOccurrence12h(now, hour, minute), true
		}
		return nextOccurrence(now, hour, minute), true
	}

	// "N o'clock [in the morning|...]"
	if m := oclockRe.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		hour = applyAmPm(hour, "", t)
		return nextOccurrence(now, hour, 0), true
	}

	// Bare hour followed by "in the ..." / "at ..."
	if m := hourContextRe.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		hour = applyAmPm(hour, "", t)
		return nextOccurrence(now, hour, 0), true
	}

	return time.Time{}, false
}

func normalizeAmPm(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "")
	return strings.ToLower(s)
}

func splitPackedDigits(digits string) (hour, minute int) {
	if len(digits) == 3 {
		hour, _ = strconv.Atoi(digits[:1])
		minute, _ = strconv.Atoi(digits[1:])
	} else {
		hour, _ = strconv.Atoi(digits[:2])
		minute, _ = strconv.Atoi(digits[2:])
	}
	return hour, minute
}

// applyAmPm resolves an hour to 24h form from an explicit am/pm marker or,
// failing that, from context phrases in the surrounding text.
func applyAmPm(hour int, ampm, text string) int {
	switch ampm {
	case "pm":
		if hour != 12 {
			return hour + 12
		}
		return hour
	case "am":
		if hour == 12 {
			return 0
		}
		return hour
	}

	switch {
	case morningRe.MatchString(text):
		if hour == 12 {
			return 0
		}
		return hour
	case afternoonRe.MatchString(text), eveningRe.MatchString(text):
		if hour != 12 {
			return hour + 12
		}
		return hour
	case nightRe.MatchString(text):
		if hour < 12 {
			return hour + 12
		}
		return hour
	}

	// Ambiguous: leave as-is and let the caller pick the soonest.
	return hour
}

func nextOccurrence(now time.Time, hour, minute int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// nextOccurrence12h resolves an ambiguous 12-hour time to whichever of the
// AM and PM interpretations comes up sooner.
func nextOccurrence12h(now time.Time, hour, minute int) time.Time {
	amHour := hour
	if hour == 12 {
		amHour = 0
	}
	pmHour := hour + 12
	if hour == 12 {
		pmHour = 12
	}

	am := nextOccurrence(now, amHour, minute)
	pm := nextOccurrence(now, pmHour, minute)
	if am.Before(pm) {
		return am
	}
	return pm
}

// --- Day references ---

var reminderDayNames = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

var nextPrefixRe = regexp.MustCompile(`^next\s+`)

// parseDay resolves a day reference ("Tuesday", "tomorrow", "today") to a
// date. A same-weekday reference resolves to today; time resolution pushes
// it a week out if the time of day has already passed.
func parseDay(text string, now time.Time) (time.Time, bool) {
	t := strings.TrimSpace(strings.ToLower(text))
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch t {
	case "tomorrow":
		return midnight.AddDate(0, 0, 1), true
	case "today":
		return midnight, true
	}

	t = nextPrefixRe.ReplaceAllString(t, "")
	weekday, ok := reminderDayNames[t]
	if !ok {
		return time.Time{}, false
	}
	ahead := (int(weekday) - int(now.Weekday()) + 7) % 7
	return midnight.AddDate(0, 0, ahead), true
}

// resolveTimeOnDay parses a time expression and places it on the target date,
// advancing a week when the result is already past.
func resolveTimeOnDay(timeText string, day time.Time, now time.Time) (time.Time, bool) {
	parsed, ok := parseClockTime(timeText, now)
	if !ok {
		return time.Time{}, false
	}
	target := time.Date(day.Year(), day.Month(), day.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 7)
	}
	return target, true
}

// --- Pronoun flipping ---

type pronounRule struct {
	re   *regexp.Regexp
	repl string
}

// Longer phrases first so "remind me" is removed before "me" flips.
var pronounRules = []pronounRule{
	{regexp.MustCompile(`(?i)\bremind me\b`), ""},
	{regexp.MustCompile(`(?i)\bmy\b`), "your"},
	{regexp.MustCompile(`(?i)\bme\b`), "you"},
	{regexp.MustCompile(`(?i)\bmyself\b`), "yourself"},
	{regexp.MustCompile(`(?i)\bmine\b`), "yours"},
	{regexp.MustCompile(`(?i)\bi am\b`), "you are"},
	{regexp.MustCompile(`(?i)\bi'm\b`), "you're"},
	{regexp.MustCompile(`(?i)\bi\b`), "you"},
}

var multiSpaceRe = regexp.MustCompile(`  +`)

// flipPronouns converts first-person pronouns to second person so the
// reminder reads back naturally ("call my mom" -> "call your mom").
func flipPronouns(text string) string {
	out := text
	for _, rule := range pronounRules {
		out = rule.re.ReplaceAllString(out, rule.repl)
	}
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(out, " "))
}
