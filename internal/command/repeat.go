package command

import "verba/pkg/template"

// Repeat says the previous response again. The router supplies lastResponse
// and excludes repeat itself from overwriting it.
type Repeat struct {
	lastResponse func() string
}

func NewRepeat(lastResponse func() string) *Repeat {
	return &Repeat{lastResponse: lastResponse}
}

func (m *Repeat) Name() string { return "repeat" }

var repeatPatterns = []*template.Template{
	template.MustCompile("say that again"),
	template.MustCompile("repeat that"),
	template.MustCompile("[can|could] you [repeat|say] that"),
	template.MustCompile("what did you [say|just say]"),
	template.MustCompile("what was that"),
	template.MustCompile("come again"),
	template.MustCompile("one more time"),
	template.MustCompile("say it again"),
	template.MustCompile("repeat [yourself|the last]"),
	template.MustCompile("I [didn't|did not] [catch|hear|get] that"),
	template.MustCompile("pardon"),
	template.MustCompile("[could|can] you say that again"),
}

func (m *Repeat) Parse(text string) *Result {
	for _, p := range repeatPatterns {
		if _, ok := p.Match(text); ok {
			return &Result{Command: "repeat", Score: 0.95}
		}
	}
	return nil
}

func (m *Repeat) Handle(r *Result) string {
	if last := m.lastResponse(); last != "" {
		return last
	}
	return "I haven't said anything yet."
}
