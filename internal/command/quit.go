package command

import (
	"strings"
	"sync/atomic"

	"github.com/agnivade/levenshtein"
)

// Quit exits the session. It tolerates speech-to-text mishearings by
// accepting phrases that are merely close to a known quit phrase.
type Quit struct {
	requested atomic.Bool
}

func NewQuit() *Quit {
	return &Quit{}
}

func (q *Quit) Name() string { return "quit" }

// Requested reports whether a quit command has been handled.
func (q *Quit) Requested() bool { return q.requested.Load() }

var quitPhrases = []string{
	"quit demo",
	"exit demo",
	"stop demo",
	"end demo",
	"quit the demo",
	"exit the demo",
	"stop the demo",
	// Common STT misheard variants
	"a quick demo",
	"quick demo",
	"quid demo",
	"quit them oh",
	"quit thermal",
}

const quitSimilarityThreshold = 0.75

// similarity is 1 for equal strings, falling toward 0 with edit distance.
func similarity(a, b string) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

func (q *Quit) Parse(text string) *Result {
	t := strings.TrimRight(strings.TrimSpace(strings.ToLower(text)), ".")

	for _, phrase := range quitPhrases {
		if t == phrase {
			return &Result{Command: "quit", Score: 1.0}
		}
		if ratio := similarity(t, phrase); ratio > quitSimilarityThreshold {
			return &Result{Command: "quit", Score: ratio}
		}
	}
	return nil
}

func (q *Quit) Handle(r *Result) string {
	q.requested.Store(true)
	return "Goodbye!"
}
