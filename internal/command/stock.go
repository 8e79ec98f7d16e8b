package command

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"verba/pkg/template"
)

// Quotes holds the current price and the oldest price within a lookback
// period. HasPast is false when only one data point exists.
type Quotes struct {
	Current float64
	Past    float64
	HasPast bool
}

// QuoteSource fetches price history for a ticker symbol. Implementations
// live in internal/services.
type QuoteSource interface {
	History(ctx context.Context, symbol, period string) (Quotes, error)
}

// Stock answers price and price-comparison questions. Symbols maps spoken
// names to ticker symbols; DisplayNames overrides how non-company symbols
// read back.
type Stock struct {
	source       QuoteSource
	symbols      map[string]string
	displayNames map[string]string
	timeout      time.Duration
}

// DefaultSymbols is the built-in name-to-ticker table.
var DefaultSymbols = map[string]string{
	"apple":                      "AAPL",
	"microsoft":                  "MSFT",
	"tesla":                      "TSLA",
	"hewlett packard enterprise": "HPE",
	"hpe":                        "HPE",
	"google":                     "GOOGL",
	"alphabet":                   "GOOGL",
	"amazon":                     "AMZN",
	"nvidia":                     "NVDA",
	"meta":                       "META",
	"facebook":                   "META",
	"netflix":                    "NFLX",
	"disney":                     "DIS",
	"boeing":                     "BA",
	"intel":                      "INTC",
	"amd":                        "AMD",
	"s&p 500":                    "^GSPC",
	"s&p":                        "^GSPC",
	"s and p":                    "^GSPC",
	"s and p 500":                "^GSPC",
	"dow":                        "^DJI",
	"dow jones":                  "^DJI",
	"nasdaq":                     "^IXIC",
	"gold":                       "GC=F",
	"silver":                     "SI=F",
}

// DefaultDisplayNames covers symbols whose spoken form differs from the
// captured name.
var DefaultDisplayNames = map[string]string{
	"^GSPC": "The S&P 500",
	"^DJI":  "The Dow",
	"^IXIC": "The Nasdaq",
	"GC=F":  "Gold",
	"SI=F":  "Silver",
}

func NewStock(source QuoteSource, symbols, displayNames map[string]string) *Stock {
	if symbols == nil {
		symbols = DefaultSymbols
	}
	if displayNames == nil {
		displayNames = DefaultDisplayNames
	}
	return &Stock{
		source:       source,
		symbols:      symbols,
		displayNames: displayNames,
		timeout:      10 * time.Second,
	}
}

func (m *Stock) Name() string { return "stock" }

// --- Patterns ---

var stockPricePatterns = []*template.Template{
	template.MustGreedy("[how is|how's] $stock doing"),
	template.MustGreedy("[how is|how's] $stock doing today"),
	template.MustGreedy("[what is|what's] the stock price [of|for] $stock"),
	template.MustGreedy("[what is|what's] the current price [of|for] $stock"),
	template.MustGreedy("[what is|what's] the price of $stock"),
	template.MustGreedy("[what is|what's] $stock trading at"),
	template.MustGreedy("[what is|what's] $stock trading at today"),
	template.MustGreedy("[what is|what's] $stock [worth|at]"),
	template.MustGreedy("[what is|what's] $stock [worth|at] today"),
	template.MustGreedy("$stock stock price"),
	template.MustGreedy("$stock price"),
	template.MustGreedy("stock price of $stock"),
	template.MustGreedy("[check|get] [the |]price of $stock"),
	template.MustGreedy("[check|get] [the |]stock price of $stock"),
}

var stockComparePatterns = []*template.Template{
	template.MustCompile("compare $stock to $interval ago"),
	template.MustCompile("[how is|how's] $stock [doing |][compared to|versus|vs] $interval ago"),
}

var stockWhatWasPatterns = []*template.Template{
	template.MustCompile("[what was|what's|where was] $stock $interval ago"),
	template.MustCompile("[what was|what's|where was] the $stock $interval ago"),
	template.MustCompile("[what was|what's|where was] the price of $stock $interval ago"),
}

// --- Interval parsing ---

var stockWordNums = map[string]int{
	"a": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12,
}

var stockIntervalRe = regexp.MustCompile(`^(\w+)\s+(day|days|week|weeks|month|months|year|years)$`)

// parseInterval turns "a month" or "three weeks" into a history period
// ("1mo", "21d") and a spoken label.
func parseInterval(text string) (period, label string, ok bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	m := stockIntervalRe.FindStringSubmatch(t)
	if m == nil {
		return "", "", false
	}
	numWord, unit := m[1], m[2]

	n, known := stockWordNums[numWord]
	if !known {
		var err error
		n, err = strconv.Atoi(numWord)
		if err != nil {
			return "", "", false
		}
	}

	switch strings.TrimSuffix(unit, "s") {
	case "day":
		period = fmt.Sprintf("%dd", n)
	case "week":
		period = fmt.Sprintf("%dd", n*7)
	case "month":
		period = fmt.Sprintf("%dmo", n)
	case "year":
		period = fmt.Sprintf("%dy", n)
	}

	if n == 1 {
		label = "a " + strings.TrimSuffix(unit, "s")
	} else {
		plural := unit
		if !strings.HasSuffix(plural, "s") {
			plural += "s"
		}
		label = numWord + " " + plural
	}
	return period, label, true
}

// --- Symbol resolution ---

var (
	stockSuffixRe = regexp.MustCompile(`(?i)\s+stock$`)
	stockLeadRe   = regexp.MustCompile(`(?i)^(the|a)\s+`)
	tickerRe      = regexp.MustCompile(`^[A-Z]{1,5}$`)
)

// resolveSymbol maps a spoken stock name to a ticker and display name. An
// unknown name that looks like a raw ticker passes through uppercased.
func (m *Stock) resolveSymbol(name string) (symbol, display string, ok bool) {
	stripped := stockSuffixRe.ReplaceAllString(
		strings.TrimRight(strings.TrimSpace(name), "."), "")
	clean := strings.ToLower(stripped)

	if sym, found := m.symbols[clean]; found {
		if d, has := m.displayNames[sym]; has {
			return sym, d, true
		}
		return sym, stripped, true
	}
	upper := strings.ToUpper(clean)
	if tickerRe.MatchString(upper) {
		return upper, upper, true
	}
	return "", "", false
}

func cleanStockName(s string) string {
	return stockLeadRe.ReplaceAllString(s, "")
}

// --- Parsing ---

func matchIntervalPatterns(patterns []*template.Template, text, command string) *Result {
	for _, pat := range patterns {
		fields, ok := pat.Match(text)
		if !ok {
			continue
		}
		stock := cleanStockName(fields["stock"])
		interval := strings.TrimSpace(fields["interval"])
		if stock == "" || interval == "" {
			continue
		}
		period, label, ok := parseInterval(interval)
		if !ok {
			continue
		}
		return &Result{Command: command, Score: 0.95,
			Args: Args{"stock": stock, "period": period, "label": label}}
	}
	return nil
}

func (m *Stock) Parse(text string) *Result {
	// Comparison queries carry an interval and are more specific.
	if r := matchIntervalPatterns(stockComparePatterns, text, "compare_price"); r != nil {
		return r
	}
	if r := matchIntervalPatterns(stockWhatWasPatterns, text, "past_price"); r != nil {
		return r
	}

	for _, pat := range stockPricePatterns {
		fields, ok := pat.Match(text)
		if !ok {
			continue
		}
		if stock := cleanStockName(fields["stock"]); stock != "" {
			return &Result{Command: "stock_price", Score: 0.9, Args: Args{"stock": stock}}
		}
	}
	return nil
}

// --- Formatting ---

func formatPrice(price float64, isIndex bool) string {
	s := strconv.FormatFloat(price, 'f', 2, 64)
	if isIndex || price >= 1000 {
		if dot := strings.IndexByte(s, '.'); dot > 0 {
			return groupDigits(s[:dot]) + s[dot:]
		}
	}
	return s
}

func formatPct(pct float64) string {
	if pct < 0 {
		pct = -pct
	}
	s := strconv.FormatFloat(pct, 'f', 1, 64)
	s = strings.TrimSuffix(s, ".0")
	return s + "%"
}

func formatQuote(display, symbol string, q Quotes, label string) string {
	isIndex := strings.HasPrefix(symbol, "^")
	priceStr := formatPrice(q.Current, isIndex)

	var b strings.Builder
	if isIndex {
		fmt.Fprintf(&b, "%s is at %s", display, priceStr)
	} else {
		fmt.Fprintf(&b, "%s is at $%s", display, priceStr)
	}

	if !q.HasPast {
		b.WriteString(".")
		return b.String()
	}

	diff := q.Current - q.Past
	pct := diff / q.Past * 100
	direction := "up"
	if diff < 0 {
		direction = "down"
	}
	diffStr := formatPrice(abs(diff), isIndex)
	if isIndex {
		fmt.Fprintf(&b, ", %s %s points (%s) from %s ago.", direction, diffStr, formatPct(pct), label)
	} else {
		fmt.Fprintf(&b, ", %s $%s (%s) from %s ago.", direction, diffStr, formatPct(pct), label)
	}
	return b.String()
}

func formatPastQuote(display, symbol string, q Quotes, label string) string {
	isIndex := strings.HasPrefix(symbol, "^")
	if !q.HasPast {
		return fmt.Sprintf("Sorry, I don't have data for %s from %s ago.", display, label)
	}

	diff := q.Current - q.Past
	pct := diff / q.Past * 100
	direction := "up"
	if diff < 0 {
		direction = "down"
	}
	pastStr := formatPrice(q.Past, isIndex)
	currentStr := formatPrice(q.Current, isIndex)
	diffStr := formatPrice(abs(diff), isIndex)

	if isIndex {
		return fmt.Sprintf("%s was at %s %s ago. It's now at %s, %s %s points (%s).",
			display, pastStr, label, currentStr, direction, diffStr, formatPct(pct))
	}
	return fmt.Sprintf("%s was at $%s %s ago. It's now at $%s, %s $%s (%s).",
		display, pastStr, label, currentStr, direction, diffStr, formatPct(pct))
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// --- Handling ---

func (m *Stock) Handle(r *Result) string {
	name := r.Args.Str("stock")
	symbol, display, ok := m.resolveSymbol(name)
	if !ok {
		return fmt.Sprintf("Sorry, I don't know the ticker symbol for %s.", name)
	}
	if m.source == nil {
		return fmt.Sprintf("Sorry, I couldn't get the price for %s.", display)
	}

	period := r.Args.Str("period")
	if period == "" {
		period = "7d"
	}
	label := r.Args.Str("label")
	if label == "" {
		label = "a week"
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	quotes, err := m.source.History(ctx, symbol, period)
	if err != nil {
		return fmt.Sprintf("Sorry, I couldn't get the price for %s. %v", display, err)
	}

	if r.Command == "past_price" {
		return formatPastQuote(display, symbol, quotes, label)
	}
	return formatQuote(display, symbol, quotes, label)
}
