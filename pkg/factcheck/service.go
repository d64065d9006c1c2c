package factcheck

import (
	"context"
	"strings"
	"time"

	"github.com/boristopalov/veritas/pkg/core"
	"github.com/boristopalov/veritas/pkg/metrics"
)

// Service checks claims, each in its own short-lived Session.
type Service struct {
	searcher   core.Searcher
	classifier core.Classifier
	opts       []Option
	o          options
}

func NewService(searcher core.Searcher, classifier core.Classifier, opts ...Option) *Service {
	return &Service{
		searcher:   searcher,
		classifier: classifier,
		opts:       opts,
		o:          buildOptions(opts),
	}
}

func (s *Service) Check(ctx context.Context, claim string) (core.Verdict, error) {
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return core.Verdict{}, ErrEmptyClaim
	}

	start := time.Now()
	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	session, err := NewSession(s.searcher, s.classifier, s.opts...)
	if err != nil {
		metrics.CheckDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return core.Verdict{}, err
	}
	defer session.Close()

	verdict, err := session.Check(ctx, claim)
	if err != nil {
		s.o.logger.Error("claim check failed", "error", err)
		metrics.CheckDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return core.Verdict{}, err
	}
	metrics.CheckDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	return verdict, nil
}
