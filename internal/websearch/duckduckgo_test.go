package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statementqa/internal/config"
	"statementqa/internal/domain"
	"statementqa/internal/logging"
)

func newServer(t *testing.T, api, page string, apiStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(apiStatus)
		_, _ = w.Write([]byte(api))
	})
	mux.HandleFunc("/html/", func(w http.ResponseWriter, r *http.Request) {
		if page == "" {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(page))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func searcher(srv *httptest.Server, maxResults int) *DuckDuckGo {
	return New(config.WebSearchConfig{
		Endpoint:     srv.URL + "/api/",
		HTMLEndpoint: srv.URL + "/html/",
		MaxResults:   maxResults,
	}, srv.Client(), logging.Discard())
}

func TestSearch_InstantAnswer(t *testing.T) {
	srv := newServer(t, `{
		"Heading": "Annual percentage rate",
		"Abstract": "APR is the yearly interest rate charged on borrowings.",
		"AbstractSource": "Wikipedia",
		"AbstractURL": "https://en.wikipedia.org/wiki/Annual_percentage_rate",
		"Answer": "",
		"RelatedTopics": [
			{"Text": "Effective interest rate"},
			{"Name": "See also", "Topics": [{"Text": "Nominal rate"}, {"Text": "Compound interest"}]},
			{"Text": "Credit card"}
		]
	}`, "", http.StatusOK)

	text, err := searcher(srv, 3).Search(context.Background(), "what is APR")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "# Annual percentage rate"))
	assert.Contains(t, text, "(Source: Wikipedia, https://en.wikipedia.org/wiki/Annual_percentage_rate)")
	assert.Contains(t, text, "- Nominal rate")
	assert.Contains(t, text, "- Compound interest")
	assert.NotContains(t, text, "Credit card")
}

func TestSearch_FallsBackToHTML(t *testing.T) {
	page := `<html><body>
		<div class="result"><a class="result__a">Prime rate</a>
		<a class="result__snippet" href="#">The <b>prime rate</b> is 8.5% today.</a></div>
		<div class="result"><a class="result__snippet">Second   snippet</a></div>
	</body></html>`
	srv := newServer(t, `{"Heading":"","Abstract":"","RelatedTopics":[]}`, page, http.StatusOK)

	text, err := searcher(srv, 5).Search(context.Background(), "prime rate")
	require.NoError(t, err)
	assert.Equal(t, "DuckDuckGo results for \"prime rate\":\n\n- The prime rate is 8.5% today.\n- Second snippet", text)
}

func TestSearch_APIErrorThenHTML(t *testing.T) {
	page := `<a class="result__snippet">Only result</a>`
	srv := newServer(t, `oops`, page, http.StatusInternalServerError)

	text, err := searcher(srv, 5).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Contains(t, text, "- Only result")
}

func TestSearch_Failure(t *testing.T) {
	srv := newServer(t, `not json`, "", http.StatusOK)

	_, err := searcher(srv, 5).Search(context.Background(), "news today")
	var se *domain.SearchError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "news today", se.Query)
}

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, string) (string, error) {
	return "", errors.New("network unreachable")
}

func TestLookup_Degrades(t *testing.T) {
	text := Lookup(context.Background(), failingSearcher{}, "q", logging.Discard())
	assert.Equal(t, "Search failed: network unreachable", text)
}
