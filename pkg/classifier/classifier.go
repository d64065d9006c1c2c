// Package classifier decides whether a piece of text asserts that something
// is true or false. It does not verify the claim itself.
package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/boristopalov/veritas/pkg/core"
	"github.com/boristopalov/veritas/pkg/metrics"
	"github.com/boristopalov/veritas/pkg/providers"
	"golang.org/x/sync/singleflight"
)

const promptTemplate = `You are an expert at analyzing statements. Determine whether the following text is stating that something is true or false.
Do not try to verify the information yourself. Only analyze whether the text SAYS it is true or false.

Respond with ONLY valid JSON (no markdown, no preamble) with these fields:
- is_factual: boolean, true if the text says the statement is true or correct, false if it says it is false or incorrect
- confidence: number between 0 and 1, how clearly the text makes this true/false statement
- reasoning: brief explanation of which words or phrases indicate true or false
- sources: array of objects with "url" and "content" keys for sources mentioned in the text, or an empty array

Text to analyze:
{{.Text}}

JSON Response:`

// DefaultTimeout bounds one shared LLM call.
const DefaultTimeout = 30 * time.Second

// LLMClassifier classifies text with a language model. It is safe for
// concurrent use; identical texts in flight at the same time share one call.
type LLMClassifier struct {
	client   providers.LLMClient
	model    string
	prompt   *template.Template
	timeout  time.Duration
	inflight singleflight.Group
	logger   *slog.Logger
}

type Option func(*LLMClassifier)

// WithTimeout bounds each LLM call. The bound applies to the shared call,
// independent of any single caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *LLMClassifier) {
		c.timeout = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *LLMClassifier) {
		c.logger = l
	}
}

func NewLLMClassifier(client providers.LLMClient, model string, opts ...Option) (*LLMClassifier, error) {
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	if model == "" {
		return nil, errors.New("model is required")
	}
	tmpl, err := template.New("classify").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("compile prompt template: %w", err)
	}

	c := &LLMClassifier{
		client:  client,
		model:   model,
		prompt:  tmpl,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify never fails: LLM errors and malformed replies both yield
// IsFactual=false with zero confidence.
func (c *LLMClassifier) Classify(ctx context.Context, text string) core.Assessment {
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.ClassifierOutcomes.WithLabelValues("empty").Inc()
		return failClosed(errors.New("empty text"))
	}

	// The shared call outlives any one caller; each caller waits on its own ctx.
	ch := c.inflight.DoChan(text, func() (interface{}, error) {
		callCtx, cancel := c.callContext(ctx)
		defer cancel()
		return c.classify(callCtx, text), nil
	})

	var a core.Assessment
	select {
	case res := <-ch:
		a = res.Val.(core.Assessment)
	case <-ctx.Done():
		return failClosed(ctx.Err())
	}

	// Callers sharing a coalesced result must not share its slice.
	sources := make([]core.Source, len(a.Sources))
	copy(sources, a.Sources)
	a.Sources = sources
	return a
}

func (c *LLMClassifier) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *LLMClassifier) classify(ctx context.Context, text string) core.Assessment {
	prompt, err := c.buildPrompt(text)
	if err != nil {
		c.logger.Error("failed to build classifier prompt", "error", err)
		metrics.ClassifierOutcomes.WithLabelValues("llm_error").Inc()
		return failClosed(err)
	}

	raw, err := c.client.Complete(ctx, c.model, prompt)
	if err != nil {
		c.logger.Error("classifier llm call failed", "model", c.model, "error", err)
		metrics.ClassifierOutcomes.WithLabelValues("llm_error").Inc()
		return failClosed(err)
	}

	a, err := decode(raw)
	if err != nil {
		c.logger.Error("failed to parse classifier response", "error", err)
		metrics.ClassifierOutcomes.WithLabelValues("malformed").Inc()
		return failClosed(err)
	}
	metrics.ClassifierOutcomes.WithLabelValues("ok").Inc()
	return a
}

func (c *LLMClassifier) buildPrompt(text string) (string, error) {
	var buf bytes.Buffer
	if err := c.prompt.Execute(&buf, struct{ Text string }{Text: text}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
