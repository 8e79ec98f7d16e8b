package router

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"verba/internal/command"
)

// stub parses when its trigger appears in the utterance and answers with a
// fixed response.
type stub struct {
	name     string
	trigger  string
	score    float64
	response string
	handled  int
}

func (s *stub) Name() string { return s.name }

func (s *stub) Parse(text string) *command.Result {
	if s.trigger != "" && !strings.Contains(text, s.trigger) {
		return nil
	}
	return &command.Result{Command: s.name, Score: s.score}
}

func (s *stub) Handle(r *command.Result) string {
	s.handled++
	return s.response
}

func TestDispatchHighestScoreWins(t *testing.T) {
	r := New("")
	weak := &stub{name: "weak", trigger: "hello", score: 0.4, response: "weak answer"}
	strong := &stub{name: "strong", trigger: "hello", score: 0.9, response: "strong answer"}
	r.Register(weak)
	r.Register(strong)

	reply := r.Dispatch("test", "hello there")
	assert.Equal(t, "strong answer", reply.Text)
	assert.False(t, reply.Ignored)
	assert.Equal(t, 1, strong.handled)
	assert.Equal(t, 0, weak.handled)

	// All candidate scores are reported, best first.
	require.Len(t, reply.Scores, 2)
	assert.Equal(t, Score{"strong", 0.9}, reply.Scores[0])
	assert.Equal(t, Score{"weak", 0.4}, reply.Scores[1])
}

func TestDispatchRegistrationOrderBreaksTies(t *testing.T) {
	r := New("")
	first := &stub{name: "first", score: 0.9, response: "first answer"}
	second := &stub{name: "second", score: 0.9, response: "second answer"}
	r.Register(first)
	r.Register(second)

	reply := r.Dispatch("test", "anything")
	assert.Equal(t, "first answer", reply.Text)
}

func TestDispatchEchoFallback(t *testing.T) {
	r := New("")
	r.Register(&stub{name: "picky", trigger: "nope", score: 0.9})

	reply := r.Dispatch("test", "something unrecognized")
	assert.Equal(t, "I heard you say: something unrecognized", reply.Text)
	assert.Empty(t, reply.Scores)
}

func TestLastResponseSkipsRepeat(t *testing.T) {
	r := New("")
	talker := &stub{name: "talker", trigger: "talk", score: 0.9, response: "the real answer"}
	repeat := &stub{name: "repeat", trigger: "again", score: 1.0, response: "the real answer"}
	r.Register(talker)
	r.Register(repeat)

	r.Dispatch("test", "talk to me")
	assert.Equal(t, "the real answer", r.LastResponse())

	// A repeat request must not overwrite what gets repeated.
	r.Dispatch("test", "say that again")
	assert.Equal(t, "the real answer", r.LastResponse())

	r.Dispatch("test", "talk more")
	assert.Equal(t, "the real answer", r.LastResponse())
}

func TestDispatchWhileAsleep(t *testing.T) {
	r := New("")
	sleep := command.NewSleep()
	chatty := &stub{name: "chatty", score: 0.9, response: "chatty answer"}
	r.Register(sleep)
	r.Register(chatty)

	reply := r.Dispatch("test", "go to sleep")
	assert.Equal(t, "Going to sleep. Say \"wake up\" when you need me.", reply.Text)

	// Everything but a wake phrase is silently dropped.
	reply = r.Dispatch("test", "what time is it")
	assert.True(t, reply.Ignored)
	assert.Empty(t, reply.Text)
	assert.Equal(t, 0, chatty.handled)

	reply = r.Dispatch("test", "wake up")
	assert.False(t, reply.Ignored)
	assert.Equal(t, "I'm back! How can I help you?", reply.Text)

	reply = r.Dispatch("test", "anything at all")
	assert.Equal(t, "chatty answer", reply.Text)
}

func TestDispatchHandlerPanic(t *testing.T) {
	r := New("")
	r.Register(panicker{})

	reply := r.Dispatch("test", "boom")
	assert.Equal(t, "Sorry, something went wrong with that.", reply.Text)
}

type panicker struct{}

func (panicker) Name() string { return "panicker" }
func (panicker) Parse(text string) *command.Result {
	return &command.Result{Command: "boom", Score: 0.9}
}
func (panicker) Handle(r *command.Result) string { panic("handler bug") }

func TestDispatchLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dispatch.jsonl")
	r := New(path)
	r.Register(&stub{name: "talker", score: 0.9, response: "an answer"})

	r.Dispatch("ipc", "first utterance")
	r.Dispatch("bus", "second utterance")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)

	first := gjson.Parse(lines[0])
	assert.Equal(t, "ipc", first.Get("source").String())
	assert.Equal(t, "first utterance", first.Get("text").String())
	assert.Equal(t, "an answer", first.Get("response").String())
	assert.Equal(t, "talker", first.Get("scores.0.module").String())
	assert.NotEmpty(t, first.Get("time").String())

	assert.Equal(t, "bus", gjson.Parse(lines[1]).Get("source").String())
}
