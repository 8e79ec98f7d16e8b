// Package command holds the intent modules of the assistant. Each module
// classifies free text into a Result and executes the winning Result into a
// spoken response. Parsing is pure; side effects live in Handle.
package command

import "time"

// Result is one module's classification of an utterance.
type Result struct {
	// Command tags the behavior to run, e.g. "add_item", "set_timer".
	Command string
	// Score is the match confidence, conventionally in [0,1]. Scales differ
	// between modules (exact phrase 1.0, topic-only 0.4–0.5); the router
	// compares raw values.
	Score float64
	// Args carries everything Handle needs. Keys are private to the module
	// that produced them.
	Args Args
	// Module is the owning module, set by the router after parsing.
	Module Module
	// Text is the original utterance, set by the router before handling.
	Text string
}

// Module is the contract every intent module satisfies.
//
// Parse must be pure and total: no side effects, never panics, returns nil
// for "not mine". Handle may call external services; any failure there must
// come back as a spoken error sentence, never as a panic.
type Module interface {
	Name() string
	Parse(text string) *Result
	Handle(r *Result) string
}

// Args is the per-command argument map.
type Args map[string]any

// Str returns the string value for key, or "".
func (a Args) Str(key string) string {
	s, _ := a[key].(string)
	return s
}

// Bool returns the bool value for key, or false.
func (a Args) Bool(key string) bool {
	b, _ := a[key].(bool)
	return b
}

// Int returns the int value for key, or 0.
func (a Args) Int(key string) int {
	n, _ := a[key].(int)
	return n
}

// Time returns the time value for key, or the zero time.
func (a Args) Time(key string) time.Time {
	t, _ := a[key].(time.Time)
	return t
}
