package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"verba/internal/command"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooQuotes fetches daily closing prices from the Yahoo Finance chart
// endpoint.
type YahooQuotes struct {
	client  *http.Client
	baseURL string
}

func NewYahooQuotes(client *http.Client) *YahooQuotes {
	if client == nil {
		client = http.DefaultClient
	}
	return &YahooQuotes{client: client, baseURL: yahooChartURL}
}

func (s *YahooQuotes) History(ctx context.Context, symbol, period string) (command.Quotes, error) {
	u := s.baseURL + url.PathEscape(symbol) + "?range=" + url.QueryEscape(period) + "&interval=1d"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return command.Quotes{}, fmt.Errorf("build quote request: %w", err)
	}
	// The chart endpoint rejects requests without a browser-ish agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return command.Quotes{}, fmt.Errorf("fetch quotes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return command.Quotes{}, fmt.Errorf("quote API status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return command.Quotes{}, fmt.Errorf("read quotes: %w", err)
	}
	return parseChartQuotes(body, symbol)
}

func parseChartQuotes(body []byte, symbol string) (command.Quotes, error) {
	closes := gjson.GetBytes(body, "chart.result.0.indicators.quote.0.close")
	if !closes.Exists() {
		return command.Quotes{}, fmt.Errorf("no data for %s", symbol)
	}

	// Nulls show up on non-trading days; skip them.
	var prices []float64
	closes.ForEach(func(_, v gjson.Result) bool {
		if v.Type != gjson.Null {
			prices = append(prices, v.Float())
		}
		return true
	})
	if len(prices) == 0 {
		return command.Quotes{}, fmt.Errorf("no data for %s", symbol)
	}

	q := command.Quotes{Current: prices[len(prices)-1]}
	if len(prices) > 1 {
		q.Past = prices[0]
		q.HasPast = true
	}
	return q, nil
}
