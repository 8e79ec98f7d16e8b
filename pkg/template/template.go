// Package template compiles a small pattern language for matching spoken
// commands and extracting named fields.
//
// Syntax:
//
//	[alt1|alt2|alt3]  — matches any one of the alternatives (may nest)
//	$name             — captures text into a named field
//	literal text      — matches literally, case-insensitive, flexible whitespace
//
// A pattern is anchored: it must consume the whole input, after surrounding
// whitespace and trailing ".?!," are trimmed. The same $name may appear in
// different alternatives of one group; only the branch taken contributes.
//
//	t := template.MustCompile("[add|put] $item [to|on] the list")
//	t.Match("add ketchup to the list")  // Fields{"item": "ketchup"}, true
package template

import (
	"fmt"
	"regexp"
	"strings"
)

// Fields holds the captured field values of a successful match.
type Fields map[string]string

// Template is a compiled pattern. Safe for concurrent use once compiled.
type Template struct {
	src    string
	re     *regexp.Regexp
	groups map[int]string
}

// Compile compiles a pattern with non-greedy captures: each $field takes the
// shortest text consistent with the rest of the pattern matching.
func Compile(pattern string) (*Template, error) {
	return compile(pattern, false)
}

// CompileGreedy compiles a pattern with greedy captures: each $field takes the
// longest text consistent with the rest of the pattern matching.
func CompileGreedy(pattern string) (*Template, error) {
	return compile(pattern, true)
}

// MustCompile is like Compile but panics on a malformed pattern. Intended for
// package-level pattern tables.
func MustCompile(pattern string) *Template {
	t, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return t
}

// MustGreedy is like CompileGreedy but panics on a malformed pattern.
func MustGreedy(pattern string) *Template {
	t, err := CompileGreedy(pattern)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) String() string { return t.src }

// Match matches text against the pattern. It returns the captured fields and
// true on a match, or nil and false. Matching never fails with an error.
func (t *Template) Match(text string) (Fields, bool) {
	s := strings.TrimSpace(text)
	s = strings.TrimRight(s, "?!.,")
	s = strings.TrimSpace(s)

	m := t.re.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	fields := Fields{}
	for num, name := range t.groups {
		if num < len(m) && m[num] != "" {
			fields[name] = strings.TrimSpace(m[num])
		}
	}
	return fields, true
}

// Candidate pairs a compiled pattern with a tag for MatchAny.
type Candidate struct {
	Tmpl *Template
	Tag  string
}

// MatchAny tries candidates in declaration order and returns the tag and
// fields of the first match. Order is significant: more specific patterns
// must be listed before more general fallbacks.
func MatchAny(cands []Candidate, text string) (string, Fields, bool) {
	for _, c := range cands {
		if fields, ok := c.Tmpl.Match(text); ok {
			return c.Tag, fields, true
		}
	}
	return "", nil, false
}

// --- Compilation internals ---

var fieldRe = regexp.MustCompile(`^\$([a-zA-Z_]\w*)`)

type compiler struct {
	greedy     bool
	groupCount int
	groups     map[int]string
}

func compile(pattern string, greedy bool) (*Template, error) {
	c := &compiler{greedy: greedy, groups: map[int]string{}}
	body, err := c.fragment(pattern)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", pattern, err)
	}
	re, err := regexp.Compile("(?i)^" + body + "$")
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", pattern, err)
	}
	return &Template{src: pattern, re: re, groups: c.groups}, nil
}

func (c *compiler) fragment(s string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(s) {
		switch {
		case s[i] == '[':
			depth := 1
			j := i + 1
			for j < len(s) && depth > 0 {
				switch s[j] {
				case '[':
					depth++
				case ']':
					depth--
				}
				j++
			}
			if depth != 0 {
				return "", fmt.Errorf("unbalanced '[' at offset %d", i)
			}
			alts := splitAlternatives(s[i+1 : j-1])
			compiled := make([]string, 0, len(alts))
			for _, alt := range alts {
				a, err := c.fragment(alt)
				if err != nil {
					return "", err
				}
				compiled = append(compiled, a)
			}
			b.WriteString("(?:" + strings.Join(compiled, "|") + ")")
			i = j

		case s[i] == ']':
			return "", fmt.Errorf("unbalanced ']' at offset %d", i)

		case s[i] == '$':
			if m := fieldRe.FindStringSubmatch(s[i:]); m != nil {
				c.groupCount++
				c.groups[c.groupCount] = m[1]
				if c.greedy {
					b.WriteString("(.+)")
				} else {
					b.WriteString("(.+?)")
				}
				i += len(m[0])
			} else {
				b.WriteString(regexp.QuoteMeta(string(s[i])))
				i++
			}

		case s[i] == ' ' || s[i] == '\t':
			for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
				i++
			}
			b.WriteString(`\s+`)

		default:
			b.WriteString(regexp.QuoteMeta(string(s[i])))
			i++
		}
	}
	return b.String(), nil
}

// splitAlternatives splits on top-level '|', respecting nested brackets.
func splitAlternatives(s string) []string {
	var alts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case '|':
			if depth == 0 {
				alts = append(alts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(alts, s[start:])
}
