package command

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Saturday, March 14 2026, 12:00 local.
var reminderNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		text string
		want time.Time
	}{
		{"3pm", time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)},
		{"3:30pm", time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)},
		{"3:30 p.m.", time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)},
		{"noon", time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)},
		{"midnight", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"845 p.m.", time.Date(2026, 3, 14, 20, 45, 0, 0, time.UTC)},
		{"8 50 p.m.", time.Date(2026, 3, 14, 20, 50, 0, 0, time.UTC)},
		{"6 o'clock in the morning", time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC)},
		{"9 in the evening", time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)},
		{"10 am", time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)},
		// Ambiguous 12-hour time: soonest interpretation wins.
		{"846", time.Date(2026, 3, 14, 20, 46, 0, 0, time.UTC)},
		{"9:15", time.Date(2026, 3, 14, 21, 15, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := parseClockTime(tt.text, reminderNow)
		require.True(t, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}

	_, ok := parseClockTime("whenever", reminderNow)
	assert.False(t, ok)
}

func TestParseClockTimeAmbiguousBeforeNoon(t *testing.T) {
	// The same bare 12-hour times flip to the morning side when the
	// morning occurrence is still ahead.
	morning := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)

	tests := []struct {
		text string
		want time.Time
	}{
		{"846", time.Date(2026, 3, 14, 8, 46, 0, 0, time.UTC)},
		{"9:15", time.Date(2026, 3, 14, 9, 15, 0, 0, time.UTC)},
		// Already past at 6am, so the evening occurrence is soonest.
		{"3:30", time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := parseClockTime(tt.text, morning)
		require.True(t, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestParseDay(t *testing.T) {
	day, ok := parseDay("tomorrow", reminderNow)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), day)

	day, ok = parseDay("Tuesday", reminderNow)
	require.True(t, ok)
	assert.Equal(t, time.Weekday(time.Tuesday), day.Weekday())
	assert.True(t, day.After(reminderNow.AddDate(0, 0, -1)))

	// Same weekday resolves to today; the time decides whether it pushes out.
	day, ok = parseDay("Saturday", reminderNow)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), day)

	_, ok = parseDay("the cat", reminderNow)
	assert.False(t, ok)
}

func TestResolveTimeOnDayPushesPastWeek(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC) // today
	at, ok := resolveTimeOnDay("9 am", day, reminderNow)
	require.True(t, ok)
	// 9am today already passed; same weekday next week.
	assert.Equal(t, time.Date(2026, 3, 21, 9, 0, 0, 0, time.UTC), at)
}

func TestFlipPronouns(t *testing.T) {
	assert.Equal(t, "call your mom", flipPronouns("call my mom"))
	assert.Equal(t, "take you to the airport", flipPronouns("take me to the airport"))
	assert.Equal(t, "feed the cat", flipPronouns("feed the cat"))
}

func newTestReminder(t *testing.T) *Reminder {
	t.Helper()
	m := NewReminder(filepath.Join(t.TempDir(), "reminders.json"))
	m.now = fixedClock(reminderNow)
	m.running = true
	m.loaded = true
	return m
}

func TestReminderParse(t *testing.T) {
	m := newTestReminder(t)

	r := m.Parse("remind me to feed the cat at 3pm")
	require.NotNil(t, r)
	assert.Equal(t, "set_reminder", r.Command)
	assert.Equal(t, "feed the cat", r.Args.Str("text"))
	assert.Equal(t, time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC), r.Args.Time("time"))

	r = m.Parse("remind me at 3pm to feed the cat")
	require.NotNil(t, r)
	assert.Equal(t, "feed the cat", r.Args.Str("text"))

	r = m.Parse("remind me on Tuesday at 9am to take out the trash")
	require.NotNil(t, r)
	at := r.Args.Time("time")
	assert.Equal(t, time.Tuesday, at.Weekday())
	assert.Equal(t, 9, at.Hour())

	// Pronouns flip so the announcement reads back naturally.
	r = m.Parse("remind me to call my mom at 5pm")
	require.NotNil(t, r)
	assert.Equal(t, "call your mom", r.Args.Str("text"))

	r = m.Parse("what reminders do I have")
	require.NotNil(t, r)
	assert.Equal(t, "query_reminders", r.Command)

	// Recognized as a set but with no intelligible time.
	r = m.Parse("remind me to do the thing")
	require.NotNil(t, r)
	assert.Equal(t, "set_reminder", r.Command)
	assert.Empty(t, r.Args)
}

func TestReminderSetQueryCancel(t *testing.T) {
	m := newTestReminder(t)

	resp := m.Handle(&Result{Command: "set_reminder",
		Args: Args{"text": "feed the cat", "time": reminderNow.Add(3 * time.Hour)}})
	assert.Equal(t, "OK, I'll remind you to feed the cat at 3:00 PM.", resp)

	resp = m.Handle(&Result{Command: "query_reminders"})
	assert.Equal(t, "You have one reminder: feed the cat at 3:00 PM.", resp)

	resp = m.Handle(&Result{Command: "cancel_reminder"})
	assert.Equal(t, "Canceled your reminder to feed the cat at 3:00 PM.", resp)

	resp = m.Handle(&Result{Command: "query_reminders"})
	assert.Equal(t, "You don't have any reminders set.", resp)

	resp = m.Handle(&Result{Command: "set_reminder", Args: Args{}})
	assert.Equal(t, "Sorry, I didn't understand the time for that reminder.", resp)
}

func TestReminderFires(t *testing.T) {
	m := newTestReminder(t)

	var announced []string
	m.SetAnnounce(func(s string) { announced = append(announced, s) })

	m.Handle(&Result{Command: "set_reminder",
		Args: Args{"text": "stretch", "time": reminderNow.Add(time.Minute)}})

	m.tick()
	assert.Empty(t, announced)

	m.now = fixedClock(reminderNow.Add(2 * time.Minute))
	m.tick()
	require.Len(t, announced, 1)
	assert.Equal(t, "[[reminder.mp3]]This is a reminder: stretch.", announced[0])

	assert.Equal(t, "You don't have any reminders set.",
		m.Handle(&Result{Command: "query_reminders"}))
}

func TestReminderPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.json")

	m := NewReminder(path)
	m.now = fixedClock(reminderNow)
	m.running = true
	m.loaded = true
	m.Handle(&Result{Command: "set_reminder",
		Args: Args{"text": "future thing", "time": reminderNow.Add(2 * time.Hour)}})
	m.Handle(&Result{Command: "set_reminder",
		Args: Args{"text": "past thing", "time": reminderNow.Add(time.Minute)}})

	// A fresh instance loads only reminders that are still in the future.
	m2 := NewReminder(path)
	m2.now = fixedClock(reminderNow.Add(time.Hour))
	m2.mu.Lock()
	m2.load()
	m2.mu.Unlock()

	m2.mu.Lock()
	defer m2.mu.Unlock()
	require.Len(t, m2.reminders, 1)
	assert.Equal(t, "future thing", m2.reminders[0].text)
}
