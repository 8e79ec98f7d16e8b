package command

import (
	"sync"

	"verba/pkg/template"
)

// Sleep pauses and resumes the assistant. While sleeping, the router consults
// only this module and silently ignores everything that isn't a wake phrase.
type Sleep struct {
	mu       sync.Mutex
	sleeping bool
}

func NewSleep() *Sleep {
	return &Sleep{}
}

func (s *Sleep) Name() string { return "sleep" }

// Sleeping reports whether the assistant is in sleep mode.
func (s *Sleep) Sleeping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sleeping
}

var sleepPatterns = []*template.Template{
	template.MustCompile("go to sleep"),
	template.MustCompile("stop listening"),
	template.MustCompile("[pause|suspend] [operation|operations]"),
	template.MustCompile("enter privacy mode"),
	template.MustCompile("privacy mode"),
	template.MustCompile("go [to|into] sleep [mode|]"),
	template.MustCompile("sleep mode"),
	template.MustCompile("be quiet"),
	template.MustCompile("shut up"),
	template.MustCompile("mute"),
}

var wakePatterns = []*template.Template{
	template.MustCompile("wake up"),
	template.MustCompile("I'm back"),
	template.MustCompile("[resume|start] listening"),
	template.MustCompile("[exit|leave] [privacy|sleep] mode"),
	template.MustCompile("resume [operation|operations]"),
}

func (s *Sleep) Parse(text string) *Result {
	if s.Sleeping() {
		for _, p := range wakePatterns {
			if _, ok := p.Match(text); ok {
				return &Result{Command: "wake", Score: 0.95}
			}
		}
		return nil
	}

	for _, p := range sleepPatterns {
		if _, ok := p.Match(text); ok {
			return &Result{Command: "sleep", Score: 0.95}
		}
	}
	return nil
}

func (s *Sleep) Handle(r *Result) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Command {
	case "sleep":
		s.sleeping = true
		return "Going to sleep. Say \"wake up\" when you need me."
	case "wake":
		s.sleeping = false
		return "I'm back! How can I help you?"
	}
	return ""
}
