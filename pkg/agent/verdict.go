package agent

import (
	"fmt"
	"math"

	"github.com/boristopalov/veritas/pkg/core"
)

// conflictThreshold is the confidence both sides must exceed for the
// evidence to count as conflicting.
const conflictThreshold = 0.5

// Recommend derives the recommendation from the two stance confidences.
// Equal confidences that are not conflicting resolve to contradicted: a
// claim needs strictly stronger support than opposition to be supported.
func Recommend(supporting, opposing float64) (core.Recommendation, bool) {
	conflicting := supporting > conflictThreshold && opposing > conflictThreshold
	switch {
	case conflicting:
		return core.RecommendationNeedsFurtherInvestigation, true
	case supporting > opposing:
		return core.RecommendationSupported, false
	default:
		return core.RecommendationContradicted, false
	}
}

// Differential is the absolute difference between the two confidences.
func Differential(a, b float64) float64 {
	return math.Abs(a - b)
}

// ComputeVerdict combines both stance results for a claim.
func ComputeVerdict(claimID, claim string, supporting, opposing core.StanceResult) core.Verdict {
	s := core.ClampConfidence(supporting.Confidence)
	o := core.ClampConfidence(opposing.Confidence)
	recommendation, conflicting := Recommend(s, o)

	return core.Verdict{
		ClaimID:                claimID,
		Claim:                  claim,
		Summary:                summarize(len(supporting.Sources), len(opposing.Sources), s, o, recommendation),
		Sources:                core.DedupeSources(supporting.Sources, opposing.Sources),
		Supporting:             supporting,
		Opposing:               opposing,
		SupportingConfidence:   s,
		OpposingConfidence:     o,
		ConflictingEvidence:    conflicting,
		ConfidenceDifferential: Differential(s, o),
		Recommendation:         recommendation,
	}
}

func summarize(forCount, againstCount int, s, o float64, recommendation core.Recommendation) string {
	return fmt.Sprintf("FOR: %d sources (confidence %.2f), AGAINST: %d sources (confidence %.2f). Recommendation: %s.",
		forCount, s, againstCount, o, recommendation)
}
