package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/boristopalov/veritas/pkg/core"
)

const missingContent = "No content"

type rawAssessment struct {
	IsFactual  *bool           `json:"is_factual"`
	Confidence *float64        `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
	Sources    json.RawMessage `json:"sources"`
}

// ParseResult decodes an LLM reply into an Assessment. Markdown fences and
// text around the JSON object are tolerated. Anything it cannot decode
// fails closed.
func ParseResult(raw string) core.Assessment {
	a, err := decode(raw)
	if err != nil {
		return failClosed(err)
	}
	return a
}

func failClosed(err error) core.Assessment {
	return core.Assessment{
		IsFactual:  false,
		Confidence: 0,
		Reasoning:  fmt.Sprintf("Error analyzing response: %v", err),
		Sources:    []core.Source{},
	}
}

func decode(raw string) (core.Assessment, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return core.Assessment{}, err
	}

	var r rawAssessment
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return core.Assessment{}, fmt.Errorf("invalid json: %w", err)
	}
	if r.IsFactual == nil {
		return core.Assessment{}, errors.New("missing field is_factual")
	}
	if r.Confidence == nil {
		return core.Assessment{}, errors.New("missing field confidence")
	}

	return core.Assessment{
		IsFactual:  *r.IsFactual,
		Confidence: core.ClampConfidence(*r.Confidence),
		Reasoning:  r.Reasoning,
		Sources:    normalizeSources(r.Sources),
	}, nil
}

// extractJSON returns the outermost JSON object in s.
func extractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty response")
	}
	s = stripFences(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", errors.New("no json object in response")
	}
	return s[start : end+1], nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		// drop the language tag line
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(s, "```")
}

// normalizeSources accepts a list of {"url","content"} objects or bare URL
// strings. Anything that is not a list yields no sources.
func normalizeSources(raw json.RawMessage) []core.Source {
	out := []core.Source{}
	if len(raw) == 0 {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}

	for _, item := range items {
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err == nil && obj != nil {
			out = append(out, core.Source{
				URL:     stringField(obj, "url", core.MissingURL),
				Content: stringField(obj, "content", missingContent),
			})
			continue
		}
		var url string
		if err := json.Unmarshal(item, &url); err == nil {
			out = append(out, core.Source{URL: url, Content: missingContent})
		}
	}
	return out
}

func stringField(obj map[string]any, key, fallback string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
