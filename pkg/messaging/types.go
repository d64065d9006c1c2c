package messaging

import (
	"context"
	"time"

	"github.com/boristopalov/veritas/pkg/core"
	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeRequest  MessageType = "request"
	MessageTypeResponse MessageType = "response"
)

type PayloadKind string

const (
	KindClaim         PayloadKind = "claim"
	KindStanceReport  PayloadKind = "stance_report"
	KindVerdictReport PayloadKind = "verdict_report"
)

// Payload is the content of a message. It is a closed set: Claim,
// StanceReport and VerdictReport are the only implementations.
type Payload interface {
	Kind() PayloadKind
	isPayload()
}

// Claim is the text injected into the evidence agents.
type Claim struct {
	ID   string
	Text string
}

// NewClaim assigns a fresh id to text.
func NewClaim(text string) Claim {
	return Claim{ID: uuid.NewString(), Text: text}
}

// StanceReport carries one evidence agent's result to the judge.
type StanceReport struct {
	ClaimID string
	Claim   string
	Result  core.StanceResult
}

// VerdictReport carries the judge's decision to the sink.
type VerdictReport struct {
	Verdict core.Verdict
}

func (Claim) Kind() PayloadKind { return KindClaim }
func (StanceReport) Kind() PayloadKind { return KindStanceReport }
func (VerdictReport) Kind() PayloadKind { return KindVerdictReport }

func (Claim) isPayload() {}
func (StanceReport) isPayload() {}
func (VerdictReport) isPayload() {}

// KindOf returns the payload kind, or "none" for a nil payload.
func KindOf(p Payload) PayloadKind {
	if p == nil {
		return "none"
	}
	return p.Kind()
}

// Message represents one hop between agents. It is immutable once built;
// forwarding means building a new message.
type Message struct {
	id        string
	from      string
	to        string
	msgType   MessageType
	content   Payload
	metadata  map[string]string
	timestamp time.Time
}

// NewMessage builds a message stamped with the current time and an id
// derived from the sender. metadata is copied.
func NewMessage(from, to string, msgType MessageType, content Payload, metadata map[string]string) Message {
	return Message{
		id:        from + "-" + uuid.NewString(),
		from:      from,
		to:        to,
		msgType:   msgType,
		content:   content,
		metadata:  copyMetadata(metadata),
		timestamp: time.Now(),
	}
}

func (m Message) ID() string { return m.id }
func (m Message) From() string { return m.from }
func (m Message) To() string { return m.to }
func (m Message) Type() MessageType { return m.msgType }
func (m Message) Content() Payload { return m.content }
func (m Message) Timestamp() time.Time { return m.timestamp }
func (m Message) Metadata() map[string]string { return copyMetadata(m.metadata) }

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Handler processes a delivered message and may return the message it
// emitted in response.
type Handler func(ctx context.Context, msg Message) (*Message, error)

// Receiver can receive messages
type Receiver interface {
	Receive(ctx context.Context, msg Message) (*Message, error)
}

// Agent is anything addressable through a broker
type Agent interface {
	Receiver
	GetID() string
}

// Broker handles message routing between agents
type Broker interface {
	// Send routes msg to its receiver and returns the handler's reply
	Send(ctx context.Context, msg Message) (*Message, error)
	// Subscribe registers a handler under agentID
	Subscribe(agentID string, handler Handler) error
	// Unsubscribe removes an agent's subscription
	Unsubscribe(agentID string) error
}
