package command

import (
	"fmt"
	log "log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"verba/pkg/util"
)

// Timer sets, queries, and cancels multiple named countdown timers. A
// background loop announces expired timers through the injected callback.
type Timer struct {
	mu       sync.Mutex
	timers   map[string]timerEntry
	announce func(string)
	running  bool

	now  func() time.Time
	poll time.Duration
}

type timerEntry struct {
	end      time.Time
	duration time.Duration
}

func NewTimer() *Timer {
	return &Timer{
		timers: map[string]timerEntry{},
		now:    time.Now,
		poll:   500 * time.Millisecond,
	}
}

func (m *Timer) Name() string { return "timer" }

// SetAnnounce sets the callback invoked once per expired timer.
func (m *Timer) SetAnnounce(fn func(string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announce = fn
}

// --- Background checker ---

// StartChecker launches the expiry loop. Calling it again is a no-op.
func (m *Timer) StartChecker() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	go m.checkLoop()
}

func (m *Timer) checkLoop() {
	for {
		time.Sleep(m.poll)
		m.tick()
	}
}

func (m *Timer) tick() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Timer check failed", "err", r)
		}
	}()

	now := m.now()

	m.mu.Lock()
	var expired []string
	for label, e := range m.timers {
		if !now.Before(e.end) {
			expired = append(expired, label)
			delete(m.timers, label)
		}
	}
	cb := m.announce
	m.mu.Unlock()

	sort.Strings(expired)
	for _, label := range expired {
		msg := fmt.Sprintf("[[timer_done.mp3]]Your %s timer is done![[timer_done.mp3]]", label)
		if cb != nil {
			cb(msg)
		}
	}
}

// --- Duration parsing ---

type wordNum struct {
	word string
	val  float64
}

// Longer phrases come first so "forty five" wins over "forty".
var timerWordNums = []wordNum{
	{"forty five", 45}, {"seventeen", 17}, {"eighteen", 18}, {"nineteen", 19},
	{"thirteen", 13}, {"fourteen", 14}, {"fifteen", 15}, {"sixteen", 16},
	{"eleven", 11}, {"twelve", 12}, {"twenty", 20}, {"thirty", 30},
	{"forty", 40}, {"fifty", 50}, {"sixty", 60}, {"ninety", 90},
	{"three", 3}, {"seven", 7}, {"eight", 8}, {"nine", 9}, {"four", 4},
	{"five", 5}, {"one", 1}, {"two", 2}, {"six", 6}, {"ten", 10},
	{"an", 1}, {"a", 1},
}

type durationUnit struct {
	name    string
	seconds float64
	numRe   *regexp.Regexp
	halfRe  *regexp.Regexp
	wordRes []*regexp.Regexp
}

var timerUnits = buildDurationUnits()

func buildDurationUnits() []durationUnit {
	var units []durationUnit
	for _, u := range []struct {
		name string
		sec  float64
	}{{"hour", 3600}, {"minute", 60}, {"second", 1}} {
		du := durationUnit{
			name:    u.name,
			seconds: u.sec,
			// Numeric: "5 minutes", "30 seconds", hyphenated "5-minute"
			numRe: regexp.MustCompile(`(\d+(?:\.\d+)?)[- ]*` + u.name),
			// "and a half" modifier
			halfRe: regexp.MustCompile(u.name + `s?\s+and\s+a\s+half`),
		}
		for _, w := range timerWordNums {
			du.wordRes = append(du.wordRes,
				regexp.MustCompile(`\b`+w.word+`[- ]+`+u.name))
		}
		units = append(units, du)
	}
	return units
}

// parseDuration extracts a duration from text. Returns the total seconds and
// a canonical label like "5-minute", or ok=false.
func parseDuration(text string) (int, string, bool) {
	t := strings.ToLower(text)

	total := 0.0
	found := false

	for _, u := range timerUnits {
		if m := u.numRe.FindStringSubmatch(t); m != nil {
			n, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				total += n * u.seconds
				found = true
				continue
			}
		}

		for i, re := range u.wordRes {
			if re.MatchString(t) {
				total += timerWordNums[i].val * u.seconds
				found = true
				break
			}
		}

		if u.halfRe.MatchString(t) {
			total += 0.5 * u.seconds
			found = true
		}
	}

	if !found || total <= 0 {
		return 0, "", false
	}
	sec := int(total)
	return sec, durationLabel(sec), true
}

// durationLabel formats seconds as a label like "5-minute" or "2-hour".
func durationLabel(seconds int) string {
	switch {
	case seconds >= 3600 && seconds%3600 == 0:
		return fmt.Sprintf("%d-hour", seconds/3600)
	case seconds >= 60 && seconds%60 == 0:
		return fmt.Sprintf("%d-minute", seconds/60)
	}
	return fmt.Sprintf("%d-second", seconds)
}

// speakRemaining formats remaining seconds as natural speech.
func speakRemaining(seconds int) string {
	if seconds < 1 {
		return "less than a second"
	}

	var parts []string
	if seconds >= 3600 {
		parts = append(parts, util.CountNoun(seconds/3600, "hour"))
		seconds %= 3600
	}
	if seconds >= 60 {
		parts = append(parts, util.CountNoun(seconds/60, "minute"))
		seconds %= 60
	}
	// Skip seconds once we already have hours and minutes.
	if seconds >= 1 && len(parts) < 2 {
		parts = append(parts, util.CountNoun(seconds, "second"))
	}
	return util.JoinNatural(parts, "and")
}

// --- Classification ---

var (
	timerCancelRe    = regexp.MustCompile(`\b(cancel|stop)\b.*\btimer`)
	timerAllRe       = regexp.MustCompile(`\ball\b`)
	timerSetRe       = regexp.MustCompile(`\b(set|start|create)\b.*\btimer\b`)
	timerForRe       = regexp.MustCompile(`\btimer\b.*\bfor\b`)
	timerQueryRe     = regexp.MustCompile(`\b(how much|how long|time.*(left|remaining)|what.*(left|remaining))`)
	timerMentionedRe = regexp.MustCompile(`\btimer`)
)

func classifyTimer(t string) string {
	switch {
	case timerCancelRe.MatchString(t):
		if timerAllRe.MatchString(t) {
			return "cancel_all"
		}
		return "cancel"
	case timerSetRe.MatchString(t) || timerForRe.MatchString(t):
		return "set"
	case timerQueryRe.MatchString(t):
		return "query"
	}
	return ""
}

func (m *Timer) Parse(text string) *Result {
	t := strings.ToLower(text)

	switch classifyTimer(t) {
	case "set":
		args := Args{}
		if sec, label, ok := parseDuration(t); ok {
			args["seconds"] = sec
			args["label"] = label
		}
		// Recognized as a set even when the duration is unintelligible;
		// Handle produces the clarification.
		return &Result{Command: "set_timer", Score: 0.9, Args: args}
	case "query":
		return &Result{Command: "query_timers", Score: 0.9}
	case "cancel_all":
		return &Result{Command: "cancel_all_timers", Score: 0.9}
	case "cancel":
		args := Args{}
		if _, label, ok := parseDuration(t); ok {
			args["label"] = label
		}
		return &Result{Command: "cancel_timer", Score: 0.9, Args: args}
	}

	if timerMentionedRe.MatchString(t) {
		return &Result{Command: "set_timer", Score: 0.5, Args: Args{}}
	}
	return nil
}

func (m *Timer) Handle(r *Result) string {
	m.StartChecker()

	switch r.Command {
	case "set_timer":
		sec := r.Args.Int("seconds")
		label := r.Args.Str("label")
		if sec <= 0 || label == "" {
			return "Sorry, I didn't understand the duration."
		}
		m.mu.Lock()
		m.timers[label] = timerEntry{
			end:      m.now().Add(time.Duration(sec) * time.Second),
			duration: time.Duration(sec) * time.Second,
		}
		m.mu.Unlock()
		return fmt.Sprintf("Timer set for %s.", speakRemaining(sec))

	case "query_timers":
		m.mu.Lock()
		if len(m.timers) == 0 {
			m.mu.Unlock()
			return "There are currently no timers set."
		}
		now := m.now()
		var labels []string
		for label := range m.timers {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		var parts []string
		for _, label := range labels {
			remaining := m.timers[label].end.Sub(now)
			if remaining < 0 {
				remaining = 0
			}
			parts = append(parts, fmt.Sprintf("%s left on your %s timer",
				speakRemaining(int(remaining.Seconds())), label))
		}
		m.mu.Unlock()
		return "You have " + util.JoinNatural(parts, "and") + "."

	case "cancel_all_timers":
		m.mu.Lock()
		count := len(m.timers)
		m.timers = map[string]timerEntry{}
		m.mu.Unlock()
		if count == 0 {
			return "You don't have any timers to cancel."
		}
		return fmt.Sprintf("All %s canceled.", util.CountNoun(count, "timer"))

	case "cancel_timer":
		if label := r.Args.Str("label"); label != "" {
			m.mu.Lock()
			if _, ok := m.timers[label]; ok {
				delete(m.timers, label)
				m.mu.Unlock()
				return fmt.Sprintf("Your %s timer has been cancelled.", label)
			}
			m.mu.Unlock()
		}
		// No duration given, or no such timer: cancel the only one if
		// that is unambiguous.
		m.mu.Lock()
		defer m.mu.Unlock()
		switch len(m.timers) {
		case 0:
			return "There are currently no timers set."
		case 1:
			for label := range m.timers {
				delete(m.timers, label)
				return fmt.Sprintf("Your %s timer has been cancelled.", label)
			}
		}
		return "Which timer do you want to cancel?"
	}

	return "Sorry, I didn't understand that timer command."
}
