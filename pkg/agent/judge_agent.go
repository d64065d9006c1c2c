package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/boristopalov/veritas/pkg/core"
	"github.com/boristopalov/veritas/pkg/messaging"
	"github.com/boristopalov/veritas/pkg/metrics"
)

// ClaimState is where a claim is in the judge's aggregation.
type ClaimState string

const (
	StateAwaitingBoth  ClaimState = "awaiting_both"
	StateAwaitingOther ClaimState = "awaiting_other"
	StateResolved      ClaimState = "resolved"
)

// maxResolved bounds how many resolved claim ids a judge remembers for
// rejecting late reports. The oldest are forgotten first.
const maxResolved = 4096

type pendingClaim struct {
	claim   string
	results map[core.Stance]core.StanceResult
}

// JudgeAgent collects one StanceResult per stance for each claim and emits
// a single verdict once both are present.
type JudgeAgent struct {
	id       string
	sinkID   string
	broker   messaging.Broker
	pending  map[string]*pendingClaim
	resolved map[string]struct{}
	// resolution order, oldest first
	order    []string
	capacity int
	mu       sync.Mutex
	logger   *slog.Logger
}

// NewJudgeAgent creates the judge and subscribes it to the broker
func NewJudgeAgent(opts ...AgentOption) (*JudgeAgent, error) {
	params := newParams(JudgeAgentID, opts)
	if params.MessageBroker == nil {
		return nil, errors.New("message broker is required")
	}

	judge := &JudgeAgent{
		id:       params.AgentID,
		sinkID:   params.SinkID,
		broker:   params.MessageBroker,
		pending:  make(map[string]*pendingClaim),
		resolved: make(map[string]struct{}),
		capacity: maxResolved,
		logger:   params.Logger.With("agent", params.AgentID),
	}

	if err := judge.broker.Subscribe(judge.id, judge.Receive); err != nil {
		return nil, fmt.Errorf("failed to subscribe %s: %w", judge.id, err)
	}

	return judge, nil
}

func (j *JudgeAgent) GetID() string {
	return j.id
}

// Receive stores a stance report. When it completes a claim the verdict is
// sent to the sink and returned; otherwise Receive returns nil.
func (j *JudgeAgent) Receive(ctx context.Context, msg messaging.Message) (*messaging.Message, error) {
	report, ok := msg.Content().(messaging.StanceReport)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects %s, got %s", ErrUnexpectedPayload, j.id, messaging.KindStanceReport, messaging.KindOf(msg.Content()))
	}
	if !report.Result.Stance.Valid() {
		return nil, fmt.Errorf("%w: unknown stance %q from %s", ErrUnexpectedPayload, report.Result.Stance, msg.From())
	}

	verdict, ready := j.record(report)
	if !ready {
		return nil, nil
	}

	metrics.Verdicts.WithLabelValues(string(verdict.Recommendation)).Inc()
	j.logger.Info("verdict reached",
		"claim_id", verdict.ClaimID,
		"recommendation", verdict.Recommendation,
		"supporting_confidence", verdict.SupportingConfidence,
		"opposing_confidence", verdict.OpposingConfidence,
	)

	out := messaging.NewMessage(j.id, j.sinkID, messaging.MessageTypeResponse,
		messaging.VerdictReport{Verdict: verdict},
		map[string]string{"claim_id": verdict.ClaimID})
	if _, err := j.broker.Send(ctx, out); err != nil {
		return &out, fmt.Errorf("failed to deliver verdict for claim %s: %w", verdict.ClaimID, err)
	}
	return &out, nil
}

// record stores report and, if it completes the claim, resolves it.
func (j *JudgeAgent) record(report messaging.StanceReport) (core.Verdict, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	stance := report.Result.Stance
	if _, done := j.resolved[report.ClaimID]; done {
		j.logger.Warn("ignoring stance result for resolved claim", "claim_id", report.ClaimID, "stance", stance)
		return core.Verdict{}, false
	}

	p, ok := j.pending[report.ClaimID]
	if !ok {
		p = &pendingClaim{claim: report.Claim, results: make(map[core.Stance]core.StanceResult, 2)}
		j.pending[report.ClaimID] = p
	}
	if _, dup := p.results[stance]; dup {
		j.logger.Warn("ignoring duplicate stance result", "claim_id", report.ClaimID, "stance", stance)
		return core.Verdict{}, false
	}
	p.results[stance] = report.Result

	supporting, haveFor := p.results[core.StanceFor]
	opposing, haveAgainst := p.results[core.StanceAgainst]
	if !haveFor || !haveAgainst {
		return core.Verdict{}, false
	}

	delete(j.pending, report.ClaimID)
	j.markResolved(report.ClaimID)
	return ComputeVerdict(report.ClaimID, p.claim, supporting, opposing), true
}

func (j *JudgeAgent) markResolved(claimID string) {
	j.resolved[claimID] = struct{}{}
	j.order = append(j.order, claimID)
	for len(j.order) > j.capacity {
		delete(j.resolved, j.order[0])
		j.order = j.order[1:]
	}
}

// State reports where claimID is in the aggregation.
func (j *JudgeAgent) State(claimID string) ClaimState {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, done := j.resolved[claimID]; done {
		return StateResolved
	}
	if p, ok := j.pending[claimID]; ok && len(p.results) > 0 {
		return StateAwaitingOther
	}
	return StateAwaitingBoth
}
