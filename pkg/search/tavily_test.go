package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boristopalov/veritas/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	mu     sync.Mutex
	auth   string
	path   string
	body   searchRequest
	called int
}

func (r *recordedRequest) snapshot() (string, string, searchRequest, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.auth, r.path, r.body, r.called
}

func tavilyServer(t *testing.T, status int, response string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body searchRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		rec.mu.Lock()
		rec.auth = r.Header.Get("Authorization")
		rec.path = r.URL.Path
		rec.body = body
		rec.called++
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestSearch(t *testing.T) {
	srv, rec := tavilyServer(t, http.StatusOK, `{
		"answer": "Paris",
		"results": [
			{"url": "https://example.org/paris", "content": "The Eiffel Tower is in Paris.", "title": "Eiffel", "score": 0.9},
			{"content": "orphan snippet"},
			{"url": "https://example.org/bare"}
		]
	}`)

	c, err := NewClient(WithAPIKey("tvly-test"), WithBaseURL(srv.URL+"/"), WithMaxResults(3))
	require.NoError(t, err)

	sources, err := c.Search(context.Background(), "Eiffel Tower location")
	require.NoError(t, err)
	assert.Equal(t, []core.Source{
		{URL: "https://example.org/paris", Content: "The Eiffel Tower is in Paris."},
		{URL: "No URL", Content: "orphan snippet"},
		{URL: "https://example.org/bare", Content: "No content"},
	}, sources)

	auth, path, body, _ := rec.snapshot()
	assert.Equal(t, "Bearer tvly-test", auth)
	assert.Equal(t, "/search", path)
	assert.Equal(t, "Eiffel Tower location", body.Query)
	assert.Equal(t, 3, body.MaxResults)
}

func TestSearchEmptyResults(t *testing.T) {
	srv, _ := tavilyServer(t, http.StatusOK, `{"results": []}`)
	c, err := NewClient(WithAPIKey("k"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	sources, err := c.Search(context.Background(), "nothing to find")
	require.NoError(t, err)
	assert.NotNil(t, sources)
	assert.Empty(t, sources)
}

func TestSearchFailures(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		srv, _ := tavilyServer(t, http.StatusUnauthorized, `{"detail": "invalid api key"}`)
		c, err := NewClient(WithAPIKey("bad"), WithBaseURL(srv.URL))
		require.NoError(t, err)

		_, err = c.Search(context.Background(), "q")
		assert.ErrorIs(t, err, ErrSearchFailed)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("malformed body", func(t *testing.T) {
		srv, _ := tavilyServer(t, http.StatusOK, `{"results": [`)
		c, err := NewClient(WithAPIKey("k"), WithBaseURL(srv.URL))
		require.NoError(t, err)

		_, err = c.Search(context.Background(), "q")
		assert.ErrorIs(t, err, ErrSearchFailed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv, _ := tavilyServer(t, http.StatusOK, `{"results": []}`)
		c, err := NewClient(WithAPIKey("k"), WithBaseURL(srv.URL))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = c.Search(ctx, "q")
		assert.ErrorIs(t, err, ErrSearchFailed)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSearchTruncatesLongQueries(t *testing.T) {
	srv, rec := tavilyServer(t, http.StatusOK, `{"results": []}`)
	c, err := NewClient(WithAPIKey("k"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Search(context.Background(), strings.Repeat("é", 300))
	require.NoError(t, err)

	_, _, body, _ := rec.snapshot()
	assert.LessOrEqual(t, len(body.Query), maxQueryLength)
	assert.True(t, strings.HasPrefix(strings.Repeat("é", 300), body.Query))
}

func TestSearchBlankQuerySkipsRequest(t *testing.T) {
	srv, rec := tavilyServer(t, http.StatusOK, `{"results": []}`)
	c, err := NewClient(WithAPIKey("k"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	sources, err := c.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, sources)
	_, _, _, called := rec.snapshot()
	assert.Zero(t, called)
}

func TestSearchRateLimit(t *testing.T) {
	srv, rec := tavilyServer(t, http.StatusOK, `{"results": []}`)
	c, err := NewClient(WithAPIKey("k"), WithBaseURL(srv.URL), WithRateLimit(1, 1))
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Search(ctx, "second")
	assert.ErrorIs(t, err, ErrSearchFailed, "second call cannot get a token before the deadline")

	_, _, _, called := rec.snapshot()
	assert.Equal(t, 1, called)
}

func TestNewClientAPIKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	_, err := NewClient()
	assert.Error(t, err)

	t.Setenv("TAVILY_API_KEY", "from-env")
	c, err := NewClient()
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.apiKey)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultMaxResults, c.maxResults)
}
