// Package factcheck wires the broker and the three agents into a pipeline
// that turns a claim into a verdict.
package factcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/boristopalov/veritas/pkg/agent"
	"github.com/boristopalov/veritas/pkg/core"
	"github.com/boristopalov/veritas/pkg/messaging"
	"golang.org/x/sync/errgroup"
)

// OrchestratorID is the sender of injected claims.
const OrchestratorID = "orchestrator"

var (
	ErrEmptyClaim    = errors.New("claim must not be empty")
	ErrNoVerdict     = errors.New("no verdict produced")
	ErrSessionClosed = errors.New("session closed")
)

type options struct {
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*options)

// WithAgentTimeout bounds each evidence agent's external calls.
func WithAgentTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{timeout: agent.DefaultTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Session owns one broker with a FOR agent, an AGAINST agent, a judge and
// the verdict sink subscribed to it.
type Session struct {
	broker  *messaging.SimpleBroker
	judge   *agent.JudgeAgent
	waiters map[string]chan core.Verdict
	closed  bool
	mu      sync.Mutex
	logger  *slog.Logger
}

func NewSession(searcher core.Searcher, classifier core.Classifier, opts ...Option) (*Session, error) {
	o := buildOptions(opts)
	broker := messaging.NewBroker()
	s := &Session{
		broker:  broker,
		waiters: make(map[string]chan core.Verdict),
		logger:  o.logger,
	}

	if err := broker.Subscribe(agent.SinkID, s.receiveVerdict); err != nil {
		broker.Close()
		return nil, fmt.Errorf("failed to subscribe verdict sink: %w", err)
	}

	agentOpts := []agent.AgentOption{
		agent.WithMessageBroker(broker),
		agent.WithSearcher(searcher),
		agent.WithClassifier(classifier),
		agent.WithTimeout(o.timeout),
		agent.WithLogger(o.logger),
	}
	if _, err := agent.NewForAgent(agentOpts...); err != nil {
		broker.Close()
		return nil, err
	}
	if _, err := agent.NewAgainstAgent(agentOpts...); err != nil {
		broker.Close()
		return nil, err
	}
	judge, err := agent.NewJudgeAgent(agent.WithMessageBroker(broker), agent.WithLogger(o.logger))
	if err != nil {
		broker.Close()
		return nil, err
	}
	s.judge = judge
	return s, nil
}

// Check injects claim into both evidence agents and waits for the judge's
// verdict.
func (s *Session) Check(ctx context.Context, claim string) (core.Verdict, error) {
	c := messaging.NewClaim(claim)
	ch, err := s.await(c.ID)
	if err != nil {
		return core.Verdict{}, err
	}
	defer s.forget(c.ID)

	logger := s.logger.With("claim_id", c.ID)
	logger.Info("checking claim", "claim", claim)

	var g errgroup.Group
	for _, to := range []string{agent.ForAgentID, agent.AgainstAgentID} {
		msg := messaging.NewMessage(OrchestratorID, to, messaging.MessageTypeRequest, c, map[string]string{"claim_id": c.ID})
		g.Go(func() error {
			_, err := s.broker.Send(ctx, msg)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return core.Verdict{}, fmt.Errorf("failed to dispatch claim %s: %w", c.ID, err)
	}

	// Dispatch is synchronous, so a verdict should already be waiting. A
	// delivered verdict wins over a context that ended meanwhile.
	select {
	case v := <-ch:
		return v, nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return core.Verdict{}, err
	}
	return core.Verdict{}, fmt.Errorf("%w for claim %s (judge state %s)", ErrNoVerdict, c.ID, s.judge.State(c.ID))
}

func (s *Session) await(claimID string) (chan core.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	ch := make(chan core.Verdict, 1)
	s.waiters[claimID] = ch
	return ch, nil
}

func (s *Session) forget(claimID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.waiters, claimID)
}

func (s *Session) receiveVerdict(ctx context.Context, msg messaging.Message) (*messaging.Message, error) {
	report, ok := msg.Content().(messaging.VerdictReport)
	if !ok {
		return nil, fmt.Errorf("%w: sink expects %s, got %s", agent.ErrUnexpectedPayload, messaging.KindVerdictReport, messaging.KindOf(msg.Content()))
	}

	s.mu.Lock()
	ch, ok := s.waiters[report.Verdict.ClaimID]
	s.mu.Unlock()
	if !ok {
		s.logger.Warn("dropping verdict for unknown claim", "claim_id", report.Verdict.ClaimID)
		return nil, nil
	}
	select {
	case ch <- report.Verdict:
	default:
		s.logger.Warn("dropping extra verdict", "claim_id", report.Verdict.ClaimID)
	}
	return nil, nil
}

// Log is every message routed in this session, in send order.
func (s *Session) Log() []messaging.Message {
	return s.broker.Log()
}

// Close tears down the broker. The session cannot be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.broker.Close()
}
