package command

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuoteSource struct {
	quotes     Quotes
	err        error
	lastSymbol string
	lastPeriod string
}

func (f *fakeQuoteSource) History(ctx context.Context, symbol, period string) (Quotes, error) {
	f.lastSymbol = symbol
	f.lastPeriod = period
	if f.err != nil {
		return Quotes{}, f.err
	}
	return f.quotes, nil
}

func TestStockParse(t *testing.T) {
	m := NewStock(nil, nil, nil)

	tests := []struct {
		text    string
		command string
		stock   string
	}{
		{"how's apple doing", "stock_price", "apple"},
		{"what's the stock price of tesla", "stock_price", "tesla"},
		{"what is microsoft trading at", "stock_price", "microsoft"},
		{"nvidia stock price", "stock_price", "nvidia"},
		{"check the price of gold", "stock_price", "gold"},
		{"how's the dow doing today", "stock_price", "dow"},
	}
	for _, tt := range tests {
		r := m.Parse(tt.text)
		require.NotNil(t, r, tt.text)
		assert.Equal(t, tt.command, r.Command, tt.text)
		assert.Equal(t, 0.9, r.Score, tt.text)
		assert.Equal(t, tt.stock, r.Args.Str("stock"), tt.text)
	}

	assert.Nil(t, m.Parse("how's the weather"))
}

func TestStockParseIntervals(t *testing.T) {
	m := NewStock(nil, nil, nil)

	r := m.Parse("compare apple to a month ago")
	require.NotNil(t, r)
	assert.Equal(t, "compare_price", r.Command)
	assert.Equal(t, 0.95, r.Score)
	assert.Equal(t, "apple", r.Args.Str("stock"))
	assert.Equal(t, "1mo", r.Args.Str("period"))
	assert.Equal(t, "a month", r.Args.Str("label"))

	r = m.Parse("how's tesla doing compared to three weeks ago")
	require.NotNil(t, r)
	assert.Equal(t, "compare_price", r.Command)
	assert.Equal(t, "21d", r.Args.Str("period"))
	assert.Equal(t, "three weeks", r.Args.Str("label"))

	r = m.Parse("what was the nasdaq a year ago")
	require.NotNil(t, r)
	assert.Equal(t, "past_price", r.Command)
	assert.Equal(t, "nasdaq", r.Args.Str("stock"))
	assert.Equal(t, "1y", r.Args.Str("period"))
	assert.Equal(t, "a year", r.Args.Str("label"))
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		text   string
		period string
		label  string
	}{
		{"a month", "1mo", "a month"},
		{"one week", "7d", "a week"},
		{"three weeks", "21d", "three weeks"},
		{"5 days", "5d", "5 days"},
		{"two years", "2y", "two years"},
	}
	for _, tt := range tests {
		period, label, ok := parseInterval(tt.text)
		require.True(t, ok, tt.text)
		assert.Equal(t, tt.period, period, tt.text)
		assert.Equal(t, tt.label, label, tt.text)
	}

	_, _, ok := parseInterval("a while")
	assert.False(t, ok)
}

func TestResolveSymbol(t *testing.T) {
	m := NewStock(nil, nil, nil)

	sym, display, ok := m.resolveSymbol("apple")
	require.True(t, ok)
	assert.Equal(t, "AAPL", sym)
	assert.Equal(t, "apple", display)

	// Trailing "stock" strips before lookup.
	sym, _, ok = m.resolveSymbol("tesla stock")
	require.True(t, ok)
	assert.Equal(t, "TSLA", sym)

	// Indexes read back with their display names.
	sym, display, ok = m.resolveSymbol("s and p 500")
	require.True(t, ok)
	assert.Equal(t, "^GSPC", sym)
	assert.Equal(t, "The S&P 500", display)

	// Unknown names that look like tickers pass through.
	sym, display, ok = m.resolveSymbol("ibm")
	require.True(t, ok)
	assert.Equal(t, "IBM", sym)
	assert.Equal(t, "IBM", display)

	_, _, ok = m.resolveSymbol("my neighbor's lemonade stand")
	assert.False(t, ok)
}

func TestStockHandle(t *testing.T) {
	source := &fakeQuoteSource{quotes: Quotes{Current: 189.50, Past: 180.00, HasPast: true}}
	m := NewStock(source, nil, nil)

	resp := m.Handle(&Result{Command: "stock_price", Args: Args{"stock": "apple"}})
	assert.Equal(t, "apple is at $189.50, up $9.50 (5.3%) from a week ago.", resp)
	assert.Equal(t, "AAPL", source.lastSymbol)
	assert.Equal(t, "7d", source.lastPeriod)

	resp = m.Handle(&Result{Command: "compare_price",
		Args: Args{"stock": "apple", "period": "1mo", "label": "a month"}})
	assert.Equal(t, "apple is at $189.50, up $9.50 (5.3%) from a month ago.", resp)
	assert.Equal(t, "1mo", source.lastPeriod)

	resp = m.Handle(&Result{Command: "past_price",
		Args: Args{"stock": "apple", "period": "1mo", "label": "a month"}})
	assert.Equal(t, "apple was at $180.00 a month ago. It's now at $189.50, up $9.50 (5.3%).", resp)
}

func TestStockHandleIndex(t *testing.T) {
	source := &fakeQuoteSource{quotes: Quotes{Current: 5234.18, Past: 5300.00, HasPast: true}}
	m := NewStock(source, nil, nil)

	// Indexes speak in points with grouped digits, no dollar sign.
	resp := m.Handle(&Result{Command: "stock_price", Args: Args{"stock": "s&p 500"}})
	assert.Equal(t, "The S&P 500 is at 5,234.18, down 65.82 points (1.2%) from a week ago.", resp)
}

func TestStockHandleNoHistory(t *testing.T) {
	source := &fakeQuoteSource{quotes: Quotes{Current: 42.10}}
	m := NewStock(source, nil, nil)

	resp := m.Handle(&Result{Command: "stock_price", Args: Args{"stock": "amd"}})
	assert.Equal(t, "amd is at $42.10.", resp)

	resp = m.Handle(&Result{Command: "past_price",
		Args: Args{"stock": "amd", "period": "1y", "label": "a year"}})
	assert.Equal(t, "Sorry, I don't have data for amd from a year ago.", resp)
}

func TestStockHandleErrors(t *testing.T) {
	m := NewStock(&fakeQuoteSource{err: fmt.Errorf("rate limited")}, nil, nil)

	resp := m.Handle(&Result{Command: "stock_price", Args: Args{"stock": "apple"}})
	assert.Contains(t, resp, "Sorry, I couldn't get the price for apple.")

	resp = m.Handle(&Result{Command: "stock_price", Args: Args{"stock": "the thing from tv"}})
	assert.Equal(t, "Sorry, I don't know the ticker symbol for the thing from tv.", resp)
}
