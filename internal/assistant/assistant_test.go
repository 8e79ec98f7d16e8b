package assistant

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"verba/internal/config"
)

func newTestAssistant(t *testing.T) *Assistant {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DispatchLog = filepath.Join(dir, "dispatch.jsonl")
	cfg.ReminderFile = filepath.Join(dir, "reminders.json")
	return New(cfg, config.Credentials{}, nil)
}

func TestDispatchNonsenseEchoes(t *testing.T) {
	a := newTestAssistant(t)

	// Nothing in the full module set claims nonsense; the router echoes.
	reply := a.Dispatch("test", "flurble garble zoop")
	assert.False(t, reply.Ignored)
	assert.Empty(t, reply.Scores)
	assert.Equal(t, "I heard you say: flurble garble zoop", reply.Text)
}

func TestDispatchRoutesToModule(t *testing.T) {
	a := newTestAssistant(t)

	reply := a.Dispatch("test", "what's 2 plus 2")
	assert.Equal(t, "2 plus 2 is 4.", reply.Text)
	assert.NotEmpty(t, reply.Scores)
	assert.Equal(t, "math", reply.Scores[0].Module)
}
