package command

import (
	"fmt"
	"strings"
	"time"
)

// Greeting responds to hello, hi, good morning, and friends.
type Greeting struct {
	now func() time.Time
}

func NewGreeting() *Greeting {
	return &Greeting{now: time.Now}
}

func (g *Greeting) Name() string { return "greeting" }

var greetings = []string{
	"hello", "hi", "hey", "howdy", "greetings",
	"good morning", "good afternoon", "good evening",
	"what's up", "whats up",
}

func (g *Greeting) Parse(text string) *Result {
	t := strings.TrimRight(strings.TrimSpace(strings.ToLower(text)), "?!.,")

	for _, w := range greetings {
		if t == w {
			return &Result{Command: "greet", Score: 1.0}
		}
	}
	for _, w := range greetings {
		if strings.HasPrefix(t, w) {
			return &Result{Command: "greet", Score: 0.8}
		}
	}
	for _, w := range greetings {
		if strings.Contains(t, w) {
			return &Result{Command: "greet", Score: 0.4}
		}
	}
	return nil
}

func (g *Greeting) Handle(r *Result) string {
	hour := g.now().Hour()
	part := "evening"
	switch {
	case hour < 12:
		part = "morning"
	case hour < 17:
		part = "afternoon"
	}
	return fmt.Sprintf("Good %s! How can I help you?", part)
}
