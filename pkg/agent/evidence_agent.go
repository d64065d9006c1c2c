package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/boristopalov/veritas/pkg/core"
	"github.com/boristopalov/veritas/pkg/messaging"
	"github.com/boristopalov/veritas/pkg/metrics"
)

const (
	FOR_QUERY_TEMPLATE     = `Find credible sources and evidence that support or verify the statement: "%s"`
	AGAINST_QUERY_TEMPLATE = `Find credible sources and evidence that challenge, oppose or contradict the statement: "%s"`

	EVIDENCE_TEXT_TEMPLATE = `Statement: "%s"
The following sources were retrieved while searching for evidence that %s the statement.
Decide what these sources say about the statement.

%s`
)

// EvidenceAgent searches for evidence on one side of a claim and reports a
// StanceResult to the judge.
type EvidenceAgent struct {
	id         string
	stance     core.Stance
	judgeID    string
	broker     messaging.Broker
	searcher   core.Searcher
	classifier core.Classifier
	timeout    time.Duration
	logger     *slog.Logger
}

// NewForAgent creates the agent gathering supporting evidence
func NewForAgent(opts ...AgentOption) (*EvidenceAgent, error) {
	return NewEvidenceAgent(core.StanceFor, opts...)
}

// NewAgainstAgent creates the agent gathering opposing evidence
func NewAgainstAgent(opts ...AgentOption) (*EvidenceAgent, error) {
	return NewEvidenceAgent(core.StanceAgainst, opts...)
}

// NewEvidenceAgent creates an evidence agent for stance and subscribes it
// to the broker.
func NewEvidenceAgent(stance core.Stance, opts ...AgentOption) (*EvidenceAgent, error) {
	if !stance.Valid() {
		return nil, fmt.Errorf("invalid stance %q", stance)
	}
	defaultID := ForAgentID
	if stance == core.StanceAgainst {
		defaultID = AgainstAgentID
	}
	params := newParams(defaultID, opts)

	if params.MessageBroker == nil {
		return nil, errors.New("message broker is required")
	}
	if params.Searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if params.Classifier == nil {
		return nil, errors.New("classifier is required")
	}

	agent := &EvidenceAgent{
		id:         params.AgentID,
		stance:     stance,
		judgeID:    params.JudgeID,
		broker:     params.MessageBroker,
		searcher:   params.Searcher,
		classifier: params.Classifier,
		timeout:    params.Timeout,
		logger:     params.Logger.With("agent", params.AgentID, "stance", string(stance)),
	}

	if err := agent.broker.Subscribe(agent.id, agent.Receive); err != nil {
		return nil, fmt.Errorf("failed to subscribe %s: %w", agent.id, err)
	}

	return agent, nil
}

func (a *EvidenceAgent) GetID() string {
	return a.id
}

func (a *EvidenceAgent) GetStance() core.Stance {
	return a.stance
}

// Receive handles a claim: it gathers evidence and sends the resulting
// StanceReport to the judge. External failures never surface here; they
// become an empty zero-confidence result.
func (a *EvidenceAgent) Receive(ctx context.Context, msg messaging.Message) (*messaging.Message, error) {
	claim, ok := msg.Content().(messaging.Claim)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects %s, got %s", ErrUnexpectedPayload, a.id, messaging.KindClaim, messaging.KindOf(msg.Content()))
	}

	result := a.gather(ctx, claim.Text)

	out := messaging.NewMessage(a.id, a.judgeID, messaging.MessageTypeResponse, messaging.StanceReport{
		ClaimID: claim.ID,
		Claim:   claim.Text,
		Result:  result,
	}, map[string]string{"claim_id": claim.ID})

	if _, err := a.broker.Send(ctx, out); err != nil {
		return &out, fmt.Errorf("failed to route %s result: %w", a.stance, err)
	}
	return &out, nil
}

func (a *EvidenceAgent) gather(ctx context.Context, claim string) core.StanceResult {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	query := FrameQuery(a.stance, claim)
	sources, err := a.searcher.Search(ctx, query)
	if err != nil {
		outcome := "search_error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
		a.logger.Warn("search failed, reporting empty evidence", "error", err, "outcome", outcome)
		metrics.StanceResults.WithLabelValues(string(a.stance), outcome).Inc()
		return core.EmptyStanceResult(a.stance, fmt.Sprintf("Search failed: %v", err))
	}
	if len(sources) == 0 {
		a.logger.Info("search returned no sources")
		metrics.StanceResults.WithLabelValues(string(a.stance), "empty").Inc()
		return core.EmptyStanceResult(a.stance, "No evidence found.")
	}

	assessment := a.classifier.Classify(ctx, EvidenceText(a.stance, claim, sources))
	metrics.StanceResults.WithLabelValues(string(a.stance), "ok").Inc()

	return core.StanceResult{
		Stance:     a.stance,
		Sources:    core.DedupeSources(sources, assessment.Sources),
		Reasoning:  assessment.Reasoning,
		Confidence: StanceConfidence(a.stance, assessment),
		IsFactual:  assessment.IsFactual,
	}
}

// FrameQuery wraps claim in the stance's search framing.
func FrameQuery(stance core.Stance, claim string) string {
	if stance == core.StanceAgainst {
		return fmt.Sprintf(AGAINST_QUERY_TEMPLATE, claim)
	}
	return fmt.Sprintf(FOR_QUERY_TEMPLATE, claim)
}

// EvidenceText renders the gathered sources into the text handed to the
// classifier.
func EvidenceText(stance core.Stance, claim string, sources []core.Source) string {
	verb := "supports"
	if stance == core.StanceAgainst {
		verb = "opposes"
	}
	var b strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, src.URL, strings.TrimSpace(src.Content))
	}
	return fmt.Sprintf(EVIDENCE_TEXT_TEMPLATE, claim, verb, strings.TrimRight(b.String(), "\n"))
}

// StanceConfidence maps a classifier assessment onto the agent's stance: the
// confidence counts only when the evidence says what the stance argues
// (true for FOR, false for AGAINST).
func StanceConfidence(stance core.Stance, a core.Assessment) float64 {
	agrees := a.IsFactual == (stance == core.StanceFor)
	if !agrees {
		return 0
	}
	return core.ClampConfidence(a.Confidence)
}
