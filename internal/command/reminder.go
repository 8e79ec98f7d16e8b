package command

import (
	"encoding/json"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"verba/pkg/template"
	"verba/pkg/util"
)

// Reminder sets reminders that announce at a spoken time of day. Future
// reminders persist to disk so a restart does not lose them.
type Reminder struct {
	mu        sync.Mutex
	reminders []reminderEntry
	announce  func(string)
	running   bool
	loaded    bool

	path string
	now  func() time.Time
	poll time.Duration
}

type reminderEntry struct {
	at   time.Time
	text string
}

const reminderTimeLayout = "2006-01-02 15:04"

type reminderRecord struct {
	Time string `json:"time"`
	Text string `json:"text"`
}

// NewReminder creates the module. path names the JSON persistence file.
func NewReminder(path string) *Reminder {
	return &Reminder{
		path: path,
		now:  time.Now,
		poll: 5 * time.Second,
	}
}

func (m *Reminder) Name() string { return "reminder" }

// SetAnnounce sets the callback invoked once per fired reminder.
func (m *Reminder) SetAnnounce(fn func(string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announce = fn
}

// --- Persistence ---

// save writes the reminder list atomically. Callers hold m.mu.
func (m *Reminder) save() {
	records := make([]reminderRecord, 0, len(m.reminders))
	for _, r := range m.reminders {
		records = append(records, reminderRecord{
			Time: r.at.Format(reminderTimeLayout),
			Text: r.text,
		})
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		log.Error("Failed to encode reminders", "err", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		log.Error("Failed to create data dir", "err", err)
		return
	}
	// A save failure must never block the response path.
	if err := renameio.WriteFile(m.path, append(data, '\n'), 0o644); err != nil {
		log.Error("Failed to save reminders", "path", m.path, "err", err)
	}
}

// load reads persisted reminders, dropping past-due entries. Callers hold m.mu.
func (m *Reminder) load() {
	if m.loaded {
		return
	}
	m.loaded = true

	data, err := os.ReadFile(m.path)
	if err != nil {
		return
	}
	var records []reminderRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Warn("Ignoring corrupt reminder file", "path", m.path, "err", err)
		return
	}
	now := m.now()
	for _, rec := range records {
		at, err := time.ParseInLocation(reminderTimeLayout, rec.Time, now.Location())
		if err != nil {
			continue
		}
		if at.After(now) {
			m.reminders = append(m.reminders, reminderEntry{at: at, text: rec.Text})
		}
	}
}

// --- Background checker ---

// StartChecker loads persisted reminders and launches the firing loop.
// Calling it again is a no-op.
func (m *Reminder) StartChecker() {
	m.mu.Lock()
	m.load()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()
	go m.checkLoop()
}

func (m *Reminder) checkLoop() {
	for {
		time.Sleep(m.poll)
		m.tick()
	}
}

func (m *Reminder) tick() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Reminder check failed", "err", r)
		}
	}()

	now := m.now()

	m.mu.Lock()
	var fired []reminderEntry
	remaining := m.reminders[:0]
	for _, r := range m.reminders {
		if !now.Before(r.at) {
			fired = append(fired, r)
		} else {
			remaining = append(remaining, r)
		}
	}
	if len(fired) > 0 {
		m.reminders = remaining
		m.save()
	}
	cb := m.announce
	m.mu.Unlock()

	for _, r := range fired {
		if cb != nil {
			cb(fmt.Sprintf("[[reminder.mp3]]This is a reminder: %s.", r.text))
		}
	}
}

// --- Classification ---

// Day-aware set patterns are tried first and fall through when $day is not a
// valid day name. Greedy variants let $reminder_text absorb everything before
// the trailing time.
var reminderDayPatterns = []template.Candidate{
	{Tmpl: template.MustCompile("remind [me|us] on $day at $time to $reminder_text"), Tag: "set_day"},
	{Tmpl: template.MustCompile("remind [me|us] $day at $time to $reminder_text"), Tag: "set_day"},
	{Tmpl: template.MustGreedy("remind [me|us] to $reminder_text at $time on $day"), Tag: "set_day"},
	{Tmpl: template.MustGreedy("remind [me|us] to $reminder_text on $day at $time"), Tag: "set_day"},
	{Tmpl: template.MustGreedy("remind [me|us] on $day to $reminder_text at $time"), Tag: "set_day"},
}

var reminderPatterns = []template.Candidate{
	{Tmpl: template.MustGreedy("remind [me|us] to $reminder_text at $time"), Tag: "set"},
	{Tmpl: template.MustCompile("remind [me|us] at $time to $reminder_text"), Tag: "set"},
	{Tmpl: template.MustCompile("remind [me|us] to $rest"), Tag: "set_fallback"},
	{Tmpl: template.MustCompile("[what|list|show] $rest [reminder|reminders]"), Tag: "query"},
	{Tmpl: template.MustCompile("what reminders do [I|we] have"), Tag: "query"},
	{Tmpl: template.MustCompile("[list|show] [my|our|the] reminders"), Tag: "query"},
	{Tmpl: template.MustCompile("cancel all [reminder|reminders|my reminders|our reminders]"), Tag: "cancel_all"},
	{Tmpl: template.MustCompile("cancel [my|the|our] [reminder|reminders|next reminder]"), Tag: "cancel"},
	{Tmpl: template.MustCompile("cancel [reminder|reminders]"), Tag: "cancel"},
}

var remindMentionRe = regexp.MustCompile(`(?i)\bremind`)

// trailingTimeRe strips a trailing "at TIME" clause out of fallback reminder
// text once the time has been extracted from it.
var trailingTimeRe = regexp.MustCompile(
	`(?i)\s+at\s+\d{1,2}(:\d{2})?\s*(am|pm|a\.m\.|p\.m\.|o['’]?\s*clock)?` +
		`(\s+in the (morning|afternoon|evening)|at night)?\.?$`)

// extractReminder pulls the reminder text and fire time out of matched
// template fields.
func (m *Reminder) extractReminder(fields template.Fields) (string, time.Time, bool) {
	now := m.now()

	var day time.Time
	hasDay := false
	if d, ok := fields["day"]; ok {
		day, hasDay = parseDay(d, now)
		if !hasDay {
			// $day captured something that is not a day name.
			return "", time.Time{}, false
		}
	}

	if text, ok := fields["reminder_text"]; ok {
		if timeText, ok := fields["time"]; ok {
			var at time.Time
			var parsed bool
			if hasDay {
				at, parsed = resolveTimeOnDay(timeText, day, now)
			} else {
				at, parsed = parseClockTime(timeText, now)
			}
			if parsed {
				return flipPronouns(text), at, true
			}
		}
	}

	// Fallback: time embedded in the reminder text itself.
	if full, ok := fields["rest"]; ok {
		if at, parsed := parseClockTime(full, now); parsed {
			cleaned := strings.TrimSpace(trailingTimeRe.ReplaceAllString(full, ""))
			if cleaned != "" {
				return flipPronouns(cleaned), at, true
			}
		}
	}

	return "", time.Time{}, false
}

func (m *Reminder) Parse(text string) *Result {
	if tag, fields, ok := template.MatchAny(reminderDayPatterns, text); ok && tag == "set_day" {
		if body, at, ok := m.extractReminder(fields); ok {
			return &Result{Command: "set_reminder", Score: 0.9,
				Args: Args{"text": body, "time": at}}
		}
		// Structural match with an invalid $day: fall through.
	}

	if tag, fields, ok := template.MatchAny(reminderPatterns, text); ok {
		switch tag {
		case "set", "set_fallback":
			if body, at, ok := m.extractReminder(fields); ok {
				return &Result{Command: "set_reminder", Score: 0.9,
					Args: Args{"text": body, "time": at}}
			}
			// Recognized as a set but the time was unintelligible.
			return &Result{Command: "set_reminder", Score: 0.9, Args: Args{}}
		case "query":
			return &Result{Command: "query_reminders", Score: 0.9}
		case "cancel_all":
			return &Result{Command: "cancel_all_reminders", Score: 0.9}
		case "cancel":
			return &Result{Command: "cancel_reminder", Score: 0.9}
		}
	}

	if remindMentionRe.MatchString(text) {
		return &Result{Command: "set_reminder", Score: 0.5, Args: Args{}}
	}
	return nil
}

func (m *Reminder) speakWhen(at time.Time) string {
	clock := at.Format("3:04 PM")
	if sameDate(at, m.now()) {
		return fmt.Sprintf("at %s", clock)
	}
	return fmt.Sprintf("on %s at %s", at.Weekday(), clock)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (m *Reminder) Handle(r *Result) string {
	m.StartChecker()

	switch r.Command {
	case "set_reminder":
		body := r.Args.Str("text")
		at := r.Args.Time("time")
		if body == "" || at.IsZero() {
			return "Sorry, I didn't understand the time for that reminder."
		}
		m.mu.Lock()
		m.reminders = append(m.reminders, reminderEntry{at: at, text: body})
		m.save()
		m.mu.Unlock()
		return fmt.Sprintf("OK, I'll remind you to %s %s.", body, m.speakWhen(at))

	case "query_reminders":
		m.mu.Lock()
		if len(m.reminders) == 0 {
			m.mu.Unlock()
			return "You don't have any reminders set."
		}
		sorted := append([]reminderEntry(nil), m.reminders...)
		m.mu.Unlock()
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].at.Before(sorted[j].at) })

		var parts []string
		for _, e := range sorted {
			parts = append(parts, fmt.Sprintf("%s %s", e.text, m.speakWhen(e.at)))
		}
		if len(parts) == 1 {
			return fmt.Sprintf("You have one reminder: %s.", parts[0])
		}
		return fmt.Sprintf("You have %d reminders: %s.",
			len(parts), util.JoinNatural(parts, "and"))

	case "cancel_all_reminders":
		m.mu.Lock()
		count := len(m.reminders)
		m.reminders = nil
		m.save()
		m.mu.Unlock()
		if count == 0 {
			return "You don't have any reminders to cancel."
		}
		return fmt.Sprintf("All %s canceled.", util.CountNoun(count, "reminder"))

	case "cancel_reminder":
		// Cancel the next upcoming one.
		m.mu.Lock()
		if len(m.reminders) == 0 {
			m.mu.Unlock()
			return "You don't have any reminders to cancel."
		}
		sort.Slice(m.reminders, func(i, j int) bool {
			return m.reminders[i].at.Before(m.reminders[j].at)
		})
		removed := m.reminders[0]
		m.reminders = m.reminders[1:]
		m.save()
		m.mu.Unlock()
		return fmt.Sprintf("Canceled your reminder to %s at %s.",
			removed.text, removed.at.Format("3:04 PM"))
	}

	return "Sorry, I didn't understand that reminder command."
}
