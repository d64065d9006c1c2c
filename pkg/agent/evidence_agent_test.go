package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/boristopalov/veritas/pkg/core"
	"github.com/boristopalov/veritas/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAgentWithRecorder subscribes a recorder in place of the judge so a
// single agent's output can be inspected.
func newAgentWithRecorder(t *testing.T, stance core.Stance, opts ...AgentOption) (*EvidenceAgent, *recordingSink) {
	t.Helper()
	broker := messaging.NewBroker()
	t.Cleanup(broker.Close)

	judge := &recordingSink{}
	require.NoError(t, broker.Subscribe(JudgeAgentID, judge.handle))

	opts = append([]AgentOption{WithMessageBroker(broker)}, opts...)
	agent, err := NewEvidenceAgent(stance, opts...)
	require.NoError(t, err)
	return agent, judge
}

func onlyReport(t *testing.T, judge *recordingSink) messaging.StanceReport {
	t.Helper()
	received := judge.received()
	require.Len(t, received, 1)
	report, ok := received[0].Content().(messaging.StanceReport)
	require.True(t, ok, "judge received %s", messaging.KindOf(received[0].Content()))
	return report
}

func TestFrameQuery(t *testing.T) {
	claim := "The Eiffel Tower is in Berlin"

	forQuery := FrameQuery(core.StanceFor, claim)
	againstQuery := FrameQuery(core.StanceAgainst, claim)

	assert.Contains(t, forQuery, claim)
	assert.Contains(t, forQuery, "support")
	assert.Contains(t, againstQuery, claim)
	assert.Contains(t, againstQuery, "contradict")
	assert.NotEqual(t, forQuery, againstQuery)
}

func TestStanceConfidence(t *testing.T) {
	tests := []struct {
		name       string
		stance     core.Stance
		assessment core.Assessment
		want       float64
	}{
		{name: "for agrees", stance: core.StanceFor, assessment: core.Assessment{IsFactual: true, Confidence: 0.8}, want: 0.8},
		{name: "for disagrees", stance: core.StanceFor, assessment: core.Assessment{IsFactual: false, Confidence: 0.8}, want: 0},
		{name: "against agrees", stance: core.StanceAgainst, assessment: core.Assessment{IsFactual: false, Confidence: 0.9}, want: 0.9},
		{name: "against disagrees", stance: core.StanceAgainst, assessment: core.Assessment{IsFactual: true, Confidence: 0.9}, want: 0},
		{name: "fail closed", stance: core.StanceAgainst, assessment: core.Assessment{IsFactual: false, Confidence: 0}, want: 0},
		{name: "clamped", stance: core.StanceFor, assessment: core.Assessment{IsFactual: true, Confidence: 3}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StanceConfidence(tt.stance, tt.assessment))
		})
	}
}

func TestEvidenceAgentReportsToJudge(t *testing.T) {
	paris := core.Source{URL: "https://example.org/paris", Content: "The Eiffel Tower is located in Paris, France."}
	var searched string
	var classified string
	searcher := searchFunc(func(ctx context.Context, query string) ([]core.Source, error) {
		searched = query
		return []core.Source{paris}, nil
	})
	classifier := classifyFunc(func(ctx context.Context, text string) core.Assessment {
		classified = text
		return core.Assessment{
			IsFactual:  false,
			Confidence: 0.95,
			Reasoning:  "The source places the tower in Paris.",
			Sources:    []core.Source{paris, {URL: "https://example.org/extra", Content: "extra"}},
		}
	})

	agent, judge := newAgentWithRecorder(t, core.StanceAgainst, WithSearcher(searcher), WithClassifier(classifier))
	assert.Equal(t, AgainstAgentID, agent.GetID())

	claim := messaging.NewClaim("The Eiffel Tower is in Berlin")
	in := messaging.NewMessage("app", agent.GetID(), messaging.MessageTypeRequest, claim, nil)
	out, err := agent.Receive(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, FrameQuery(core.StanceAgainst, claim.Text), searched)
	assert.Contains(t, classified, paris.URL)
	assert.Contains(t, classified, claim.Text)

	assert.Equal(t, AgainstAgentID, out.From())
	assert.Equal(t, JudgeAgentID, out.To())
	assert.Equal(t, messaging.MessageTypeResponse, out.Type())
	assert.Equal(t, claim.ID, out.Metadata()["claim_id"])

	report := onlyReport(t, judge)
	assert.Equal(t, claim.ID, report.ClaimID)
	assert.Equal(t, claim.Text, report.Claim)
	assert.Equal(t, core.StanceAgainst, report.Result.Stance)
	assert.Equal(t, 0.95, report.Result.Confidence)
	assert.Len(t, report.Result.Sources, 2, "classifier sources are merged without duplicates")
	assert.Equal(t, paris, report.Result.Sources[0])
}

func TestEvidenceAgentAbsorbsFailures(t *testing.T) {
	neverCalled := classifyFunc(func(ctx context.Context, text string) core.Assessment {
		t.Error("classifier must not run without evidence")
		return core.Assessment{}
	})

	tests := []struct {
		name          string
		searcher      core.Searcher
		timeout       time.Duration
		wantReasoning string
	}{
		{
			name: "search error",
			searcher: searchFunc(func(ctx context.Context, query string) ([]core.Source, error) {
				return nil, errors.New("upstream 503")
			}),
			wantReasoning: "upstream 503",
		},
		{
			name: "empty results",
			searcher: searchFunc(func(ctx context.Context, query string) ([]core.Source, error) {
				return []core.Source{}, nil
			}),
			wantReasoning: "No evidence found",
		},
		{
			name: "timeout",
			searcher: searchFunc(func(ctx context.Context, query string) ([]core.Source, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}),
			timeout:       20 * time.Millisecond,
			wantReasoning: "deadline exceeded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []AgentOption{WithSearcher(tt.searcher), WithClassifier(neverCalled)}
			if tt.timeout > 0 {
				opts = append(opts, WithTimeout(tt.timeout))
			}
			agent, judge := newAgentWithRecorder(t, core.StanceFor, opts...)

			claim := messaging.NewClaim("The Eiffel Tower is in Berlin")
			_, err := agent.Receive(context.Background(), messaging.NewMessage("app", agent.GetID(), messaging.MessageTypeRequest, claim, nil))
			require.NoError(t, err)

			report := onlyReport(t, judge)
			assert.Equal(t, core.StanceFor, report.Result.Stance)
			assert.Empty(t, report.Result.Sources)
			assert.Zero(t, report.Result.Confidence)
			assert.False(t, report.Result.IsFactual)
			assert.True(t, strings.Contains(report.Result.Reasoning, tt.wantReasoning), "reasoning %q", report.Result.Reasoning)
		})
	}
}

func TestEvidenceAgentRejectsWrongPayload(t *testing.T) {
	searcher := searchFunc(func(ctx context.Context, query string) ([]core.Source, error) { return nil, nil })
	agent, judge := newAgentWithRecorder(t, core.StanceFor, WithSearcher(searcher), WithClassifier(staticClassifier(core.Assessment{})))

	msg := messaging.NewMessage("app", agent.GetID(), messaging.MessageTypeRequest, messaging.VerdictReport{}, nil)
	_, err := agent.Receive(context.Background(), msg)
	assert.ErrorIs(t, err, ErrUnexpectedPayload)
	assert.Empty(t, judge.received())
}

func TestNewEvidenceAgentValidation(t *testing.T) {
	broker := messaging.NewBroker()
	t.Cleanup(broker.Close)
	searcher := searchFunc(func(ctx context.Context, query string) ([]core.Source, error) { return nil, nil })
	classifier := staticClassifier(core.Assessment{})

	_, err := NewEvidenceAgent("neutral", WithMessageBroker(broker), WithSearcher(searcher), WithClassifier(classifier))
	assert.Error(t, err)

	_, err = NewForAgent(WithSearcher(searcher), WithClassifier(classifier))
	assert.Error(t, err, "broker is required")

	_, err = NewForAgent(WithMessageBroker(broker), WithClassifier(classifier))
	assert.Error(t, err, "searcher is required")

	_, err = NewForAgent(WithMessageBroker(broker), WithSearcher(searcher))
	assert.Error(t, err, "classifier is required")

	forAgent, err := NewForAgent(WithMessageBroker(broker), WithSearcher(searcher), WithClassifier(classifier))
	require.NoError(t, err)
	assert.Equal(t, ForAgentID, forAgent.GetID())
	assert.Equal(t, core.StanceFor, forAgent.GetStance())

	_, err = NewForAgent(WithMessageBroker(broker), WithSearcher(searcher), WithClassifier(classifier))
	assert.ErrorIs(t, err, messaging.ErrDuplicateSubscription)

	custom, err := NewAgainstAgent(WithAgentId("against-2"), WithMessageBroker(broker), WithSearcher(searcher), WithClassifier(classifier))
	require.NoError(t, err)
	assert.Equal(t, "against-2", custom.GetID())
}
