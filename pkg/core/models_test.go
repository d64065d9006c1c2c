package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeSources(t *testing.T) {
	forSources := []Source{
		{URL: "https://a.example", Content: "first a"},
		{URL: "https://b.example", Content: "b"},
	}
	againstSources := []Source{
		{URL: "https://a.example", Content: "second a"},
		{URL: "https://c.example", Content: "c"},
	}

	got := DedupeSources(forSources, againstSources)

	assert.Equal(t, []Source{
		{URL: "https://a.example", Content: "first a"},
		{URL: "https://b.example", Content: "b"},
		{URL: "https://c.example", Content: "c"},
	}, got)
}

func TestDedupeSourcesWithoutURL(t *testing.T) {
	got := DedupeSources(
		[]Source{
			{URL: MissingURL, Content: "a blog post"},
			{URL: MissingURL, Content: "a news report"},
			{URL: "", Content: "a forum thread"},
		},
		[]Source{
			{URL: MissingURL, Content: "a blog post"},
			{URL: "", Content: "a news report"},
		},
	)

	assert.Equal(t, []Source{
		{URL: MissingURL, Content: "a blog post"},
		{URL: MissingURL, Content: "a news report"},
		{URL: "", Content: "a forum thread"},
	}, got)
}

func TestDedupeSourcesEmpty(t *testing.T) {
	got := DedupeSources(nil, []Source{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: -0.2, want: 0},
		{in: 0, want: 0},
		{in: 0.42, want: 0.42},
		{in: 1, want: 1},
		{in: 7, want: 1},
		{in: math.NaN(), want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampConfidence(tt.in), "ClampConfidence(%v)", tt.in)
	}
}

func TestStanceValid(t *testing.T) {
	assert.True(t, StanceFor.Valid())
	assert.True(t, StanceAgainst.Valid())
	assert.False(t, Stance("neutral").Valid())
}

func TestEmptyStanceResult(t *testing.T) {
	r := EmptyStanceResult(StanceAgainst, "no evidence found")
	assert.Equal(t, StanceAgainst, r.Stance)
	assert.Empty(t, r.Sources)
	assert.Zero(t, r.Confidence)
	assert.False(t, r.IsFactual)
	assert.Equal(t, "no evidence found", r.Reasoning)
}
