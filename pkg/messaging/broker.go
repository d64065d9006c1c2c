package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/boristopalov/veritas/pkg/metrics"
)

var (
	ErrNoSubscriber          = errors.New("no subscriber")
	ErrDuplicateSubscription = errors.New("agent is already subscribed")
	ErrNotSubscribed         = errors.New("agent is not subscribed")
	ErrBrokerClosed          = errors.New("broker is closed")
)

// SimpleBroker implements Broker with synchronous dispatch: Send runs the
// receiver's handler on the caller's goroutine. Every sent message is
// appended to the log, delivered or not.
type SimpleBroker struct {
	subscribers map[string]Handler
	log         []Message
	closed      bool
	mu          sync.RWMutex
	logMu       sync.Mutex
	logger      *slog.Logger
}

// NewBroker creates a new message broker
func NewBroker() *SimpleBroker {
	return &SimpleBroker{
		subscribers: make(map[string]Handler),
		log:         make([]Message, 0),
		logger:      slog.Default().With("component", "broker"),
	}
}

// Send records msg and dispatches it to the receiver's handler.
// A routing miss is reported as ErrNoSubscriber and is not fatal.
func (b *SimpleBroker) Send(ctx context.Context, msg Message) (*Message, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		metrics.MessagesRouted.WithLabelValues(msg.To(), "closed").Inc()
		return nil, ErrBrokerClosed
	}
	b.logMu.Lock()
	b.log = append(b.log, msg)
	b.logMu.Unlock()
	handler, ok := b.subscribers[msg.To()]
	b.mu.RUnlock()

	if !ok {
		b.logger.Warn("no subscriber found", "receiver", msg.To(), "sender", msg.From(), "message_id", msg.ID())
		metrics.MessagesRouted.WithLabelValues(msg.To(), "no_subscriber").Inc()
		return nil, fmt.Errorf("%w for %s", ErrNoSubscriber, msg.To())
	}

	metrics.MessagesRouted.WithLabelValues(msg.To(), "delivered").Inc()
	return handler(ctx, msg)
}

// Subscribe registers an agent to receive messages
func (b *SimpleBroker) Subscribe(agentID string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("nil handler for agent %s", agentID)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBrokerClosed
	}
	if _, exists := b.subscribers[agentID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSubscription, agentID)
	}

	b.subscribers[agentID] = handler
	return nil
}

// Unsubscribe removes an agent's subscription
func (b *SimpleBroker) Unsubscribe(agentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[agentID]; !exists {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, agentID)
	}

	delete(b.subscribers, agentID)
	return nil
}

// Log returns a copy of every message sent so far, in send order.
func (b *SimpleBroker) Log() []Message {
	b.logMu.Lock()
	defer b.logMu.Unlock()

	messages := make([]Message, len(b.log))
	copy(messages, b.log)
	return messages
}

// Close drops all subscribers and the log. Later calls to Send and
// Subscribe fail with ErrBrokerClosed.
func (b *SimpleBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subscribers = make(map[string]Handler)
	b.logMu.Lock()
	b.log = nil
	b.logMu.Unlock()
}
