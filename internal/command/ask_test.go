package command

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAsker struct {
	answer string
	err    error
	asked  string
}

func (f *fakeAsker) Ask(ctx context.Context, message string) (string, error) {
	f.asked = message
	return f.answer, f.err
}

func TestAskParse(t *testing.T) {
	m := NewAsk(nil)

	tests := []struct {
		text    string
		message string
	}{
		{"ask Claude how tall is mount everest", "how tall is mount everest"},
		{"hey Claude what's the capital of france", "what's the capital of france"},
		{"Claude, how do magnets work", "how do magnets work"},
		// Speech recognition mishears the name.
		{"ask cloud why is the sky blue", "why is the sky blue"},
		{"Claude: what year did the war end", "what year did the war end"},
	}
	for _, tt := range tests {
		r := m.Parse(tt.text)
		require.NotNil(t, r, tt.text)
		assert.Equal(t, "ask", r.Command, tt.text)
		assert.Equal(t, 0.9, r.Score, tt.text)
		assert.Equal(t, tt.message, r.Args.Str("message"), tt.text)
	}

	assert.Nil(t, m.Parse("what time is it"))
	// Name alone with nothing to ask.
	assert.Nil(t, m.Parse("Claude"))
}

func TestAskHandle(t *testing.T) {
	asker := &fakeAsker{answer: "About 29,032 feet."}
	m := NewAsk(asker)

	resp := m.Handle(&Result{Command: "ask", Args: Args{"message": "how tall is mount everest"}})
	assert.Equal(t, "Claude says, About 29,032 feet.", resp)
	assert.Equal(t, "how tall is mount everest", asker.asked)
}

func TestAskHandleErrors(t *testing.T) {
	m := NewAsk(&fakeAsker{err: fmt.Errorf("api unavailable")})
	resp := m.Handle(&Result{Command: "ask", Args: Args{"message": "anything"}})
	assert.Equal(t, "Sorry, I couldn't reach Claude. api unavailable", resp)

	m = NewAsk(nil)
	resp = m.Handle(&Result{Command: "ask", Args: Args{"message": "anything"}})
	assert.Equal(t, "Sorry, I couldn't reach Claude.", resp)
}
