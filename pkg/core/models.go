package core

import (
	"math"
)

// Stance is the evidentiary orientation assigned to an evidence agent.
type Stance string

const (
	StanceFor     Stance = "for"
	StanceAgainst Stance = "against"
)

// Valid reports whether s is one of the known stances.
func (s Stance) Valid() bool {
	return s == StanceFor || s == StanceAgainst
}

// Source is a single piece of cited evidence.
type Source struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// StanceResult is one agent's evidence-and-confidence output for its stance.
type StanceResult struct {
	Stance     Stance   `json:"stance"`
	Sources    []Source `json:"sources"`
	Reasoning  string   `json:"reasoning"`
	Confidence float64  `json:"confidence"`
	IsFactual  bool     `json:"is_factual"`
}

// EmptyStanceResult is what an agent reports when it could not gather any
// evidence: no sources and zero confidence.
func EmptyStanceResult(stance Stance, reasoning string) StanceResult {
	return StanceResult{
		Stance:     stance,
		Sources:    []Source{},
		Reasoning:  reasoning,
		Confidence: 0,
		IsFactual:  false,
	}
}

type Recommendation string

const (
	RecommendationSupported                 Recommendation = "supported"
	RecommendationContradicted              Recommendation = "contradicted"
	RecommendationNeedsFurtherInvestigation Recommendation = "needs_further_investigation"
)

// Verdict is the judge's aggregated assessment of a single claim.
type Verdict struct {
	ClaimID                string         `json:"claim_id"`
	Claim                  string         `json:"claim"`
	Summary                string         `json:"summary"`
	Sources                []Source       `json:"sources"`
	Supporting             StanceResult   `json:"supporting_evidence"`
	Opposing               StanceResult   `json:"opposing_evidence"`
	SupportingConfidence   float64        `json:"supporting_confidence"`
	OpposingConfidence     float64        `json:"opposing_confidence"`
	ConflictingEvidence    bool           `json:"conflicting_evidence"`
	ConfidenceDifferential float64        `json:"confidence_differential"`
	Recommendation         Recommendation `json:"recommendation"`
}

// Assessment is the output of a factuality classifier: whether a text says
// something is true, and how clearly it says so.
type Assessment struct {
	IsFactual  bool     `json:"is_factual"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Sources    []Source `json:"sources"`
}

// ClampConfidence maps c into [0,1]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// MissingURL stands in for the URL of a source that has none.
const MissingURL = "No URL"

// DedupeSources concatenates the groups in order, keeping the first source
// seen for each URL. Sources without a URL are told apart by content.
func DedupeSources(groups ...[]Source) []Source {
	seen := make(map[string]struct{})
	out := make([]Source, 0)
	for _, group := range groups {
		for _, src := range group {
			key := src.URL
			if key == "" || key == MissingURL {
				key = MissingURL + "\x00" + src.Content
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, src)
		}
	}
	return out
}
