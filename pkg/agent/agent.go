package agent

import (
	"errors"
	"log/slog"
	"time"

	"github.com/boristopalov/veritas/pkg/core"
	"github.com/boristopalov/veritas/pkg/messaging"
)

const (
	ForAgentID     = "for_agent"
	AgainstAgentID = "against_agent"
	JudgeAgentID   = "judge_agent"
	// SinkID is where the judge delivers verdicts; the orchestrator
	// subscribes to it.
	SinkID = "app"

	DefaultTimeout = 20 * time.Second
)

// ErrUnexpectedPayload is returned when a handler is delivered a payload
// kind it does not accept.
var ErrUnexpectedPayload = errors.New("unexpected payload")

type AgentParams struct {
	AgentID       string
	JudgeID       string
	SinkID        string
	MessageBroker messaging.Broker
	Searcher      core.Searcher
	Classifier    core.Classifier
	Timeout       time.Duration
	Logger        *slog.Logger
}

type AgentOption func(*AgentParams)

func WithAgentId(id string) AgentOption {
	return func(p *AgentParams) {
		p.AgentID = id
	}
}

// WithJudgeID sets the receiver evidence agents report to.
func WithJudgeID(id string) AgentOption {
	return func(p *AgentParams) {
		p.JudgeID = id
	}
}

// WithSinkID sets the receiver the judge delivers verdicts to.
func WithSinkID(id string) AgentOption {
	return func(p *AgentParams) {
		p.SinkID = id
	}
}

func WithMessageBroker(b messaging.Broker) AgentOption {
	return func(p *AgentParams) {
		p.MessageBroker = b
	}
}

func WithSearcher(s core.Searcher) AgentOption {
	return func(p *AgentParams) {
		p.Searcher = s
	}
}

func WithClassifier(c core.Classifier) AgentOption {
	return func(p *AgentParams) {
		p.Classifier = c
	}
}

// WithTimeout bounds the external calls an evidence agent makes per claim.
// Zero disables the bound.
func WithTimeout(d time.Duration) AgentOption {
	return func(p *AgentParams) {
		p.Timeout = d
	}
}

func WithLogger(l *slog.Logger) AgentOption {
	return func(p *AgentParams) {
		p.Logger = l
	}
}

func defaultAgentParams() *AgentParams {
	return &AgentParams{
		JudgeID: JudgeAgentID,
		SinkID:  SinkID,
		Timeout: DefaultTimeout,
		Logger:  slog.Default(),
	}
}

func newParams(defaultID string, opts []AgentOption) *AgentParams {
	params := defaultAgentParams()
	params.AgentID = defaultID
	for _, opt := range opts {
		opt(params)
	}
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	return params
}

var (
	_ messaging.Agent = (*EvidenceAgent)(nil)
	_ messaging.Agent = (*JudgeAgent)(nil)
)
