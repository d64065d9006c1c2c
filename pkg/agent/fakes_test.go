package agent

import (
	"context"
	"sync"

	"github.com/boristopalov/veritas/pkg/core"
	"github.com/boristopalov/veritas/pkg/messaging"
)

type searchFunc func(ctx context.Context, query string) ([]core.Source, error)

func (f searchFunc) Search(ctx context.Context, query string) ([]core.Source, error) {
	return f(ctx, query)
}

type classifyFunc func(ctx context.Context, text string) core.Assessment

func (f classifyFunc) Classify(ctx context.Context, text string) core.Assessment {
	return f(ctx, text)
}

func staticClassifier(a core.Assessment) core.Classifier {
	return classifyFunc(func(ctx context.Context, text string) core.Assessment { return a })
}

// recordingSink collects every message delivered to it.
type recordingSink struct {
	mu       sync.Mutex
	messages []messaging.Message
}

func (s *recordingSink) handle(ctx context.Context, msg messaging.Message) (*messaging.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil, nil
}

func (s *recordingSink) received() []messaging.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]messaging.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *recordingSink) verdicts() []core.Verdict {
	var out []core.Verdict
	for _, msg := range s.received() {
		if report, ok := msg.Content().(messaging.VerdictReport); ok {
			out = append(out, report.Verdict)
		}
	}
	return out
}

func stanceReport(claimID string, stance core.Stance, confidence float64, sources ...core.Source) messaging.Message {
	from := ForAgentID
	if stance == core.StanceAgainst {
		from = AgainstAgentID
	}
	if sources == nil {
		sources = []core.Source{}
	}
	return messaging.NewMessage(from, JudgeAgentID, messaging.MessageTypeResponse, messaging.StanceReport{
		ClaimID: claimID,
		Claim:   "claim " + claimID,
		Result: core.StanceResult{
			Stance:     stance,
			Sources:    sources,
			Confidence: confidence,
		},
	}, nil)
}
