package command

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// GroceryItem is one entry on the shopping list.
type GroceryItem struct {
	ID         string
	Value      string
	CrossedOff bool
}

// GroceryList is the external list backend. Implementations live in
// internal/services.
type GroceryList interface {
	Items(ctx context.Context) ([]GroceryItem, error)
	Add(ctx context.Context, value string) error
	Remove(ctx context.Context, id string) error
}

// Grocery adds, removes, checks, and counts items on the shopping list.
// Reads go through a short-lived cache that every mutation invalidates.
type Grocery struct {
	list GroceryList

	mu        sync.Mutex
	cache     []GroceryItem
	fetchedAt time.Time

	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

// starPrefix marks an item as important on the backing list.
const starPrefix = "⭐ "

func NewGrocery(list GroceryList) *Grocery {
	return &Grocery{
		list:    list,
		ttl:     2 * time.Minute,
		timeout: 10 * time.Second,
		now:     time.Now,
	}
}

func (m *Grocery) Name() string { return "grocery" }

// --- Classification ---

const groceryListWords = `(?:shopping|grocery|groceries)\s+list`

// "tell/ask our groceries to ..." prefix, including the mishearings Whisper
// produces for "our" ("are", "their") and "tell" ("fill").
var groceryPrefixRe = regexp.MustCompile(
	`(?i)^(?:tell|fill|ask)\s+(?:our|their|are|the)\s+groceries\s+(?:to\s+)?`)

type groceryPattern struct {
	re     *regexp.Regexp
	action string
}

// Full patterns require the list to be named. "and" covers Whisper mishearing
// "add".
var groceryPatterns = []groceryPattern{
	{regexp.MustCompile(`(?i)(?:add|and|put)\s+(.+?)\s+(?:to|on)\s+(?:the\s+|my\s+)?` + groceryListWords), "add"},
	{regexp.MustCompile(`(?i)(?:remove|take|delete)\s+(.+?)\s+(?:from|off)\s+(?:the\s+|my\s+)?` + groceryListWords), "remove"},
	{regexp.MustCompile(`(?i)(?:do\s+(?:I|we)\s+have|is|are)\s+(.+?)\s+(?:on|in)\s+(?:the\s+|my\s+)?` + groceryListWords), "check"},
	{regexp.MustCompile(`(?i)how\s+many\s+(?:items?|things?)\s+(?:are\s+)?(?:on|in)\s+(?:the\s+|my\s+)?` + groceryListWords), "count"},
	{regexp.MustCompile(`(?i)what(?:'s|\s+is)\s+on\s+(?:the\s+|my\s+)?` + groceryListWords), "count"},
}

// Bare patterns apply after the prefix, where no list name is needed.
var groceryBarePatterns = []groceryPattern{
	{regexp.MustCompile(`(?i)(?:add|put)\s+(.+?)\.?$`), "add"},
	{regexp.MustCompile(`(?i)(?:remove|take\s+off|delete)\s+(.+?)\.?$`), "remove"},
	{regexp.MustCompile(`(?i)(?:do\s+(?:I|we)\s+have|is\s+there|check\s+for)\s+(.+?)\.?\??$`), "check"},
	{regexp.MustCompile(`(?i)how\s+many\s+(?:items?|things?)`), "count"},
}

var (
	groceryImportantRe = regexp.MustCompile(
		`(?i)and\s+(?:mark\s+(?:it\s+)?(?:as\s+)?important|mark\s+(?:it\s+)?starred|star\s+it|make\s+it\s+important)`)
	groceryImportantTrimRe = regexp.MustCompile(`(?i)\s+and\s+(?:mark|star|make)\s.*$`)
	groceryTopicRe         = regexp.MustCompile(`(?i)` + groceryListWords)
	groceryNameRe          = regexp.MustCompile(`(?i)\b(?:our|their|are|the)\s+groceries\b`)
)

func stripGroceryPrefix(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if loc := groceryPrefixRe.FindStringIndex(t); loc != nil {
		return t[loc[1]:], true
	}
	return t, false
}

func classifyGrocery(text string) (action, item string, important, ok bool) {
	t, hadPrefix := stripGroceryPrefix(text)

	for _, p := range groceryPatterns {
		m := p.re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		if p.action == "count" {
			return "count", "", false, true
		}
		item := strings.TrimSpace(m[1])
		important := false
		if p.action == "add" && groceryImportantRe.MatchString(t) {
			// The suffix may trail the list name, so check the full text.
			important = true
		}
		return p.action, item, important, true
	}

	if !hadPrefix {
		return "", "", false, false
	}
	for _, p := range groceryBarePatterns {
		m := p.re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		if p.action == "count" {
			return "count", "", false, true
		}
		item := strings.TrimSpace(m[1])
		important := false
		if p.action == "add" && groceryImportantRe.MatchString(t) {
			// With a bare capture the suffix lands inside the item name;
			// trim it back out.
			item = strings.TrimSpace(groceryImportantTrimRe.ReplaceAllString(item, ""))
			important = true
		}
		return p.action, item, important, true
	}
	return "", "", false, false
}

func (m *Grocery) Parse(text string) *Result {
	action, item, important, ok := classifyGrocery(text)
	if ok {
		switch action {
		case "add":
			return &Result{Command: "add_item", Score: 0.9,
				Args: Args{"item_name": item, "important": important}}
		case "remove":
			return &Result{Command: "remove_item", Score: 0.9, Args: Args{"item_name": item}}
		case "check":
			return &Result{Command: "check_item", Score: 0.9, Args: Args{"item_name": item}}
		case "count":
			return &Result{Command: "count_items", Score: 0.9}
		}
	}

	// Weak match: mentions the list or the service at all.
	if groceryTopicRe.MatchString(text) || groceryNameRe.MatchString(text) {
		return &Result{Command: "grocery", Score: 0.4, Args: Args{}}
	}
	return nil
}

// --- Item cache ---

func (m *Grocery) items(ctx context.Context) ([]GroceryItem, error) {
	m.mu.Lock()
	if m.cache != nil && m.now().Sub(m.fetchedAt) < m.ttl {
		items := m.cache
		m.mu.Unlock()
		return items, nil
	}
	m.mu.Unlock()

	items, err := m.list.Items(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache = items
	m.fetchedAt = m.now()
	m.mu.Unlock()
	return items, nil
}

func (m *Grocery) invalidate() {
	m.mu.Lock()
	m.cache = nil
	m.mu.Unlock()
}

// findItem locates an active item by name, matching with or without the
// star prefix.
func findItem(items []GroceryItem, name string) (GroceryItem, bool) {
	want := strings.ToLower(name)
	for _, item := range items {
		if item.CrossedOff {
			continue
		}
		val := strings.ToLower(item.Value)
		if val == want || val == strings.ToLower(starPrefix+name) {
			return item, true
		}
		if stripped, ok := strings.CutPrefix(val, strings.ToLower(starPrefix)); ok && stripped == want {
			return item, true
		}
	}
	return GroceryItem{}, false
}

// --- Handling ---

func (m *Grocery) Handle(r *Result) string {
	if m.list == nil {
		return "Sorry, the grocery list isn't set up."
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	resp, err := m.run(ctx, r)
	if err != nil {
		return fmt.Sprintf("Sorry, I had trouble reaching the grocery list: %v", err)
	}
	return resp
}

func (m *Grocery) run(ctx context.Context, r *Result) (string, error) {
	switch r.Command {
	case "add_item":
		name := r.Args.Str("item_name")
		important := r.Args.Bool("important")

		items, err := m.items(ctx)
		if err != nil {
			return "", err
		}
		if _, exists := findItem(items, name); exists {
			return fmt.Sprintf("%s is already on the shopping list.", name), nil
		}
		value := name
		if important {
			value = starPrefix + name
		}
		if err := m.list.Add(ctx, value); err != nil {
			return "", err
		}
		m.invalidate()
		suffix := ""
		if important {
			suffix = " and marked it important"
		}
		return fmt.Sprintf("I've added %s to the shopping list%s.", name, suffix), nil

	case "remove_item":
		name := r.Args.Str("item_name")
		items, err := m.items(ctx)
		if err != nil {
			return "", err
		}
		existing, ok := findItem(items, name)
		if !ok {
			return fmt.Sprintf("I don't see %s on the shopping list.", name), nil
		}
		if err := m.list.Remove(ctx, existing.ID); err != nil {
			return "", err
		}
		m.invalidate()
		return fmt.Sprintf("I've removed %s from the shopping list.", name), nil

	case "check_item":
		name := r.Args.Str("item_name")
		items, err := m.items(ctx)
		if err != nil {
			return "", err
		}
		if _, ok := findItem(items, name); ok {
			return fmt.Sprintf("Yes, %s is on the shopping list.", name), nil
		}
		return fmt.Sprintf("No, %s is not on the shopping list.", name), nil

	case "count_items":
		items, err := m.items(ctx)
		if err != nil {
			return "", err
		}
		n := 0
		for _, item := range items {
			if !item.CrossedOff {
				n++
			}
		}
		switch n {
		case 0:
			return "Your shopping list is empty.", nil
		case 1:
			return "There is 1 item on your shopping list.", nil
		}
		return fmt.Sprintf("There are %d items on your shopping list.", n), nil
	}

	return "Sorry, I didn't understand that grocery list command.", nil
}
