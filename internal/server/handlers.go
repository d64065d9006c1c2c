package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/boristopalov/veritas/pkg/core"
	"github.com/boristopalov/veritas/pkg/factcheck"
	"github.com/boristopalov/veritas/pkg/transcript"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type QueryRequest struct {
	Query string `json:"query" validate:"required,max=4000"`
}

type TranscriptRequest struct {
	Segments []string `json:"segments" validate:"required,min=1,dive,max=4000"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// OverallAssessment is the verdict's decision summary.
type OverallAssessment struct {
	ConflictingEvidence    bool                `json:"conflicting_evidence"`
	ConfidenceDifferential float64             `json:"confidence_differential"`
	Recommendation         core.Recommendation `json:"recommendation"`
}

// VerdictResponse is the full verdict plus its overall assessment.
type VerdictResponse struct {
	core.Verdict
	OverallAssessment OverallAssessment `json:"overall_assessment"`
}

type Evidence struct {
	IsFactual  bool          `json:"is_factual"`
	Confidence float64       `json:"confidence"`
	Reasoning  string        `json:"reasoning"`
	Sources    []core.Source `json:"sources"`
}

// InvokeResponse is the dual-agent response shape served by /invoke.
type InvokeResponse struct {
	Query              string            `json:"query"`
	SupportingEvidence Evidence          `json:"supporting_evidence"`
	OpposingEvidence   Evidence          `json:"opposing_evidence"`
	OverallAssessment  OverallAssessment `json:"overall_assessment"`
}

func assessmentOf(v core.Verdict) OverallAssessment {
	return OverallAssessment{
		ConflictingEvidence:    v.ConflictingEvidence,
		ConfidenceDifferential: v.ConfidenceDifferential,
		Recommendation:         v.Recommendation,
	}
}

func evidenceOf(r core.StanceResult, confidence float64) Evidence {
	sources := r.Sources
	if sources == nil {
		sources = []core.Source{}
	}
	return Evidence{
		IsFactual:  r.IsFactual,
		Confidence: confidence,
		Reasoning:  r.Reasoning,
		Sources:    sources,
	}
}

func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req QueryRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := s.check(&req); err != nil {
		return err
	}

	v, err := s.run(c, req.Query)
	if err != nil {
		return err
	}
	return c.JSON(VerdictResponse{Verdict: v, OverallAssessment: assessmentOf(v)})
}

func (s *Server) handleInvoke(c *fiber.Ctx) error {
	var req QueryRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := s.check(&req); err != nil {
		return err
	}

	v, err := s.run(c, req.Query)
	if err != nil {
		return err
	}
	return c.JSON(InvokeResponse{
		Query:              req.Query,
		SupportingEvidence: evidenceOf(v.Supporting, v.SupportingConfidence),
		OpposingEvidence:   evidenceOf(v.Opposing, v.OpposingConfidence),
		OverallAssessment:  assessmentOf(v),
	})
}

func (s *Server) handleTranscript(c *fiber.Ctx) error {
	var req TranscriptRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if err := s.check(&req); err != nil {
		return err
	}
	text := transcript.Combine(req.Segments)
	if text == "" {
		return fiber.NewError(fiber.StatusBadRequest, "transcript has no speech")
	}

	v, err := s.run(c, text)
	if err != nil {
		return err
	}
	return c.JSON(VerdictResponse{Verdict: v, OverallAssessment: assessmentOf(v)})
}

func (s *Server) bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func (s *Server) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s is invalid: failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}

func (s *Server) run(c *fiber.Ctx, claim string) (core.Verdict, error) {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.requestTimeout)
	defer cancel()

	v, err := s.checker.Check(ctx, claim)
	if errors.Is(err, factcheck.ErrEmptyClaim) {
		return core.Verdict{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		return core.Verdict{}, err
	}
	return v, nil
}
