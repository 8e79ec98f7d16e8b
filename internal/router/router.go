// Package router arbitrates between intent modules: every module parses the
// utterance, the highest-confidence parse wins, and its module handles it.
package router

import (
	"encoding/json"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"verba/internal/command"
)

// sleeper is satisfied by the sleep module. While it reports sleeping, the
// router parses only that module and silently ignores everything else.
type sleeper interface {
	command.Module
	Sleeping() bool
}

// Score is one module's confidence for an utterance, for logging.
type Score struct {
	Module string  `json:"module"`
	Score  float64 `json:"score"`
}

// Reply is the outcome of a dispatch. Ignored means the assistant is asleep
// and the utterance was not a wake phrase; nothing should be spoken or
// logged.
type Reply struct {
	Text    string
	Ignored bool
	Scores  []Score
}

// Router holds the registered modules in priority order. Registration order
// breaks score ties: the earlier module wins.
type Router struct {
	modules []command.Module

	mu           sync.Mutex
	lastResponse string

	logPath string
	now     func() time.Time
}

// New creates a router. logPath names the JSONL dispatch log; empty disables
// logging.
func New(logPath string) *Router {
	return &Router{logPath: logPath, now: time.Now}
}

// Register appends a module. Not safe to call after dispatching starts.
func (r *Router) Register(m command.Module) {
	r.modules = append(r.modules, m)
}

// LastResponse returns the most recent spoken response, for "say that again".
func (r *Router) LastResponse() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastResponse
}

func (r *Router) asleep() (sleeper, bool) {
	for _, m := range r.modules {
		if s, ok := m.(sleeper); ok && s.Sleeping() {
			return s, true
		}
	}
	return nil, false
}

// Dispatch parses text with every module and runs the best match. source
// labels where the utterance came from ("voice", "ipc", "bus") for the
// dispatch log.
func (r *Router) Dispatch(source, text string) Reply {
	// Asleep: only the sleep module may parse, so a wake phrase gets
	// through and everything else is dropped without a trace.
	if s, sleeping := r.asleep(); sleeping {
		p := s.Parse(text)
		if p == nil {
			return Reply{Ignored: true}
		}
		p.Module = s
		p.Text = text
		resp := r.handle(p)
		r.record(source, text, resp, []Score{{s.Name(), p.Score}})
		return Reply{Text: resp, Scores: []Score{{s.Name(), p.Score}}}
	}

	var parses []*command.Result
	for _, m := range r.modules {
		p := m.Parse(text)
		if p == nil {
			continue
		}
		p.Module = m
		p.Text = text
		parses = append(parses, p)
	}

	if len(parses) == 0 {
		resp := fmt.Sprintf("I heard you say: %s", text)
		r.record(source, text, resp, nil)
		return Reply{Text: resp}
	}

	// Stable: registration order wins ties.
	sort.SliceStable(parses, func(i, j int) bool {
		return parses[i].Score > parses[j].Score
	})

	scores := make([]Score, len(parses))
	for i, p := range parses {
		scores[i] = Score{p.Module.Name(), p.Score}
	}

	best := parses[0]
	resp := r.handle(best)

	// Keep the previous response intact when this was a repeat request.
	if best.Module.Name() != "repeat" {
		r.mu.Lock()
		r.lastResponse = resp
		r.mu.Unlock()
	}

	r.record(source, text, resp, scores)
	return Reply{Text: resp, Scores: scores}
}

// handle runs the winning module, converting a panic into a spoken apology.
func (r *Router) handle(p *command.Result) (resp string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Command handler panicked", "module", p.Module.Name(), "err", rec)
			resp = "Sorry, something went wrong with that."
		}
	}()
	return p.Module.Handle(p)
}

type dispatchRecord struct {
	Time     string  `json:"time"`
	Source   string  `json:"source"`
	Text     string  `json:"text"`
	Response string  `json:"response"`
	Scores   []Score `json:"scores,omitempty"`
}

// record appends one line to the dispatch log. Failures are logged and
// swallowed; the log must never block a response.
func (r *Router) record(source, text, response string, scores []Score) {
	if r.logPath == "" {
		return
	}
	line, err := json.Marshal(dispatchRecord{
		Time:     r.now().Format(time.RFC3339),
		Source:   source,
		Text:     text,
		Response: response,
		Scores:   scores,
	})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.logPath), 0o755); err != nil {
		log.Warn("Failed to create dispatch log dir", "err", err)
		return
	}
	f, err := os.OpenFile(r.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warn("Failed to open dispatch log", "path", r.logPath, "err", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		log.Warn("Failed to write dispatch log", "err", err)
	}
}
