package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"verba/pkg/template"
)

// Asker forwards a free-form question to a language model and returns a
// short spoken answer. Implementations live in internal/services.
type Asker interface {
	Ask(ctx context.Context, message string) (string, error)
}

// Ask hands questions addressed to the assistant by name off to an LLM.
type Ask struct {
	asker   Asker
	timeout time.Duration
}

func NewAsk(asker Asker) *Ask {
	return &Ask{asker: asker, timeout: 30 * time.Second}
}

func (m *Ask) Name() string { return "ask" }

// "cloud" covers the usual mishearing of the assistant's name.
var askPatterns = []*template.Template{
	template.MustGreedy("ask [Claude|cloud] $message"),
	template.MustGreedy("[hey|hi] [Claude|cloud] $message"),
	template.MustGreedy("[Claude|cloud] $message"),
}

var askPunctReplacer = strings.NewReplacer(",", "", ".", "", ":", "")

func (m *Ask) Parse(text string) *Result {
	// Whisper likes to punctuate after the name.
	clean := askPunctReplacer.Replace(text)
	for _, pat := range askPatterns {
		fields, ok := pat.Match(clean)
		if !ok {
			continue
		}
		if message := strings.TrimSpace(fields["message"]); message != "" {
			return &Result{Command: "ask", Score: 0.9, Args: Args{"message": message}}
		}
	}
	return nil
}

func (m *Ask) Handle(r *Result) string {
	if m.asker == nil {
		return "Sorry, I couldn't reach Claude."
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	answer, err := m.asker.Ask(ctx, r.Args.Str("message"))
	if err != nil {
		return fmt.Sprintf("Sorry, I couldn't reach Claude. %v", err)
	}
	return "Claude says, " + answer
}
