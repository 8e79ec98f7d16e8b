package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChartQuotes(t *testing.T) {
	body := `{"chart":{"result":[{"indicators":{"quote":[{
		"close": [180.0, null, 182.5, null, 189.5]
	}]}}]}}`

	q, err := parseChartQuotes([]byte(body), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 189.5, q.Current)
	assert.Equal(t, 180.0, q.Past)
	assert.True(t, q.HasPast)
}

func TestParseChartQuotesSinglePoint(t *testing.T) {
	body := `{"chart":{"result":[{"indicators":{"quote":[{"close": [42.1]}]}}]}}`

	q, err := parseChartQuotes([]byte(body), "AMD")
	require.NoError(t, err)
	assert.Equal(t, 42.1, q.Current)
	assert.False(t, q.HasPast)
}

func TestParseChartQuotesNoData(t *testing.T) {
	_, err := parseChartQuotes([]byte(`{"chart":{"result":[]}}`), "NOPE")
	assert.ErrorContains(t, err, "no data for NOPE")

	_, err = parseChartQuotes(
		[]byte(`{"chart":{"result":[{"indicators":{"quote":[{"close":[null,null]}]}}]}}`), "GAP")
	assert.ErrorContains(t, err, "no data for GAP")
}

func TestYahooQuotesHistory(t *testing.T) {
	var gotPath, gotQuery, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{"chart":{"result":[{"indicators":{"quote":[{"close":[100.0,110.0]}]}}]}}`))
	}))
	defer server.Close()

	s := NewYahooQuotes(server.Client())
	s.baseURL = server.URL + "/v8/finance/chart/"

	q, err := s.History(context.Background(), "MSFT", "1mo")
	require.NoError(t, err)
	assert.Equal(t, 110.0, q.Current)
	assert.Equal(t, 100.0, q.Past)
	assert.Equal(t, "/v8/finance/chart/MSFT", gotPath)
	assert.Equal(t, "range=1mo&interval=1d", gotQuery)
	assert.Equal(t, "Mozilla/5.0", gotAgent)
}
