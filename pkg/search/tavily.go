// Package search retrieves web evidence for a query from the Tavily search
// API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/boristopalov/veritas/pkg/core"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://api.tavily.com"
	DefaultMaxResults = 5

	// Tavily rejects queries longer than this.
	maxQueryLength = 400

	missingContent = "No content"
)

// ErrSearchFailed wraps every failure talking to the search API.
var ErrSearchFailed = errors.New("search failed")

type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

func WithMaxResults(n int) Option {
	return func(c *Client) {
		c.maxResults = n
	}
}

// WithRateLimit caps outgoing requests at rps per second. Zero or less
// disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient builds a Tavily client. The API key falls back to
// TAVILY_API_KEY.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    DefaultBaseURL,
		maxResults: DefaultMaxResults,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" {
		c.apiKey = os.Getenv("TAVILY_API_KEY")
	}
	if c.apiKey == "" {
		return nil, errors.New("TAVILY_API_KEY is not set")
	}
	if c.maxResults < 1 {
		c.maxResults = DefaultMaxResults
	}
	return c, nil
}

type searchRequest struct {
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
}

type searchResult struct {
	URL     *string `json:"url"`
	Content *string `json:"content"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
}

type searchResponse struct {
	Answer  string         `json:"answer"`
	Results []searchResult `json:"results"`
}

// Search returns the sources Tavily finds for query. An empty result is not
// an error.
func (c *Client) Search(ctx context.Context, query string) ([]core.Source, error) {
	query = truncateQuery(strings.TrimSpace(query))
	if query == "" {
		return []core.Source{}, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
		}
	}

	body, err := json.Marshal(searchRequest{
		Query:         query,
		MaxResults:    c.maxResults,
		SearchDepth:   "basic",
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", ErrSearchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSearchFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrSearchFailed, err)
	}

	sources := make([]core.Source, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		sources = append(sources, core.Source{
			URL:     orDefault(r.URL, core.MissingURL),
			Content: orDefault(r.Content, missingContent),
		})
	}
	c.logger.Debug("search complete", "results", len(sources), "duration", time.Since(start))
	return sources, nil
}

func truncateQuery(q string) string {
	if len(q) <= maxQueryLength {
		return q
	}
	// cut on a rune boundary
	cut := maxQueryLength
	for cut > 0 && !utf8.RuneStart(q[cut]) {
		cut--
	}
	return q[:cut]
}

func orDefault(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
