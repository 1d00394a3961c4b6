package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fboiero/MIESC-sub012/internal/types"
)

// Bus distributes messages to topic subscribers within one analysis session.
//
// Each session owns its own Bus instance; unrelated sessions never share
// subscribers or topics. Delivery is at-least-once per subscriber and
// preserves per-publisher order. Cross-publisher ordering is not
// guaranteed.
//
// Thread Safety:
//   - All methods are safe for concurrent use
//   - Multiple goroutines can publish and subscribe simultaneously
//   - Publish never blocks on slow subscribers
type Bus interface {
	// Publish enqueues a message for delivery to all current subscribers
	// of the message's topic. Returns an error only if the bus is closed
	// or the message belongs to a different session.
	Publish(ctx context.Context, msg Message) error

	// Subscribe creates a subscription for one topic.
	// Returns a channel for receiving messages and a cleanup function.
	// The cleanup function must be called to prevent resource leaks.
	Subscribe(ctx context.Context, topic Topic, bufferSize int) (<-chan Message, func())

	// Close shuts down the bus and all subscriptions. Messages published
	// after Close are dropped (Publish returns an error). Idempotent.
	Close() error
}

// SessionBus implements Bus for one session.
//
// Each subscription carries its own unbounded delivery queue drained by a
// pump goroutine into the subscriber's channel. Publishers only ever
// append to the queue, so a slow subscriber can neither block a publisher
// nor cause message loss.
type SessionBus struct {
	sessionID   types.ID
	mu          sync.RWMutex
	subscribers map[string]*subscription
	options     *busOptions
	closed      bool
}

// subscription is a single topic subscriber with its delivery queue.
type subscription struct {
	id    string
	topic Topic
	out   chan Message

	qmu    sync.Mutex
	cond   *sync.Cond
	queue  []Message
	done   bool
	closed chan struct{}

	created  time.Time
	received atomic.Int64
}

// busOptions holds configuration for SessionBus.
type busOptions struct {
	defaultBufferSize int
	errorHandler      ErrorHandler
	metricsRecorder   MetricsRecorder
}

// ErrorHandler is called when an error occurs during bus operations,
// such as a publish against a closed bus.
type ErrorHandler func(err error, context map[string]any)

// MetricsRecorder records metrics about bus operations.
type MetricsRecorder interface {
	// RecordPublished is called when a message is delivered to subscribers.
	RecordPublished(topic string, subscriberCount int)

	// RecordSubscriberAdded is called when a new subscriber is created.
	RecordSubscriberAdded(subscriberID string, topic string)

	// RecordSubscriberRemoved is called when a subscriber is removed.
	RecordSubscriberRemoved(subscriberID string, duration time.Duration)
}

// Option is a functional option for configuring SessionBus.
type Option func(*busOptions)

// WithDefaultBufferSize sets the default buffer size for subscriber
// channels, used when Subscribe is called with bufferSize=0.
// Default: 64 messages.
func WithDefaultBufferSize(size int) Option {
	return func(opts *busOptions) {
		if size > 0 {
			opts.defaultBufferSize = size
		}
	}
}

// WithErrorHandler sets the error handler for bus operations.
// Default: no-op handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(opts *busOptions) {
		if handler != nil {
			opts.errorHandler = handler
		}
	}
}

// WithMetrics sets the metrics recorder for bus operations.
// Default: no-op recorder.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(opts *busOptions) {
		if recorder != nil {
			opts.metricsRecorder = recorder
		}
	}
}

// NewSessionBus creates a bus owned by the given session.
func NewSessionBus(sessionID types.ID, opts ...Option) *SessionBus {
	options := &busOptions{
		defaultBufferSize: 64,
		errorHandler:      noopErrorHandler,
		metricsRecorder:   noopMetricsRecorder{},
	}

	for _, opt := range opts {
		opt(options)
	}

	return &SessionBus{
		sessionID:   sessionID,
		subscribers: make(map[string]*subscription),
		options:     options,
	}
}

// SessionID returns the session this bus belongs to.
func (b *SessionBus) SessionID() types.ID {
	return b.sessionID
}

// Publish enqueues the message to every current subscriber of its topic.
//
// Appending to a subscription queue is O(1) under that subscription's own
// lock, so publishers are isolated from each other and from subscribers.
func (b *SessionBus) Publish(ctx context.Context, msg Message) error {
	if msg.SessionID != b.sessionID {
		return types.NewError(types.CORRELATE_SESSION_MISMATCH,
			fmt.Sprintf("message for session %s published on bus for session %s", msg.SessionID, b.sessionID))
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		err := types.NewError(types.BUS_CLOSED, "session bus is closed")
		b.options.errorHandler(err, map[string]any{
			"session_id": b.sessionID,
			"topic":      msg.Topic,
			"agent_id":   msg.AgentID,
		})
		return err
	}

	sent := 0
	for _, sub := range b.subscribers {
		if sub.topic != msg.Topic {
			continue
		}
		if sub.enqueue(msg) {
			sent++
		}
	}

	if sent > 0 {
		b.options.metricsRecorder.RecordPublished(string(msg.Topic), sent)
	}

	return nil
}

// Subscribe creates a new subscription for one topic.
//
// The returned channel receives every message published to the topic from
// this moment onward. The cleanup function must be called to release the
// subscription's pump goroutine.
func (b *SessionBus) Subscribe(ctx context.Context, topic Topic, bufferSize int) (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if bufferSize <= 0 {
		bufferSize = b.options.defaultBufferSize
	}

	sub := &subscription{
		id:      generateSubscriberID(),
		topic:   topic,
		out:     make(chan Message, bufferSize),
		closed:  make(chan struct{}),
		created: time.Now(),
	}
	sub.cond = sync.NewCond(&sub.qmu)

	if b.closed {
		// Bus already torn down: hand back a closed channel so range
		// loops terminate immediately.
		close(sub.out)
		return sub.out, func() {}
	}

	b.subscribers[sub.id] = sub
	go sub.pump()

	b.options.metricsRecorder.RecordSubscriberAdded(sub.id, string(topic))

	cleanup := func() {
		b.unsubscribe(sub.id)
	}

	return sub.out, cleanup
}

// unsubscribe removes a subscription and stops its pump goroutine.
func (b *SessionBus) unsubscribe(subscriberID string) {
	b.mu.Lock()
	sub, exists := b.subscribers[subscriberID]
	if exists {
		delete(b.subscribers, subscriberID)
	}
	b.mu.Unlock()

	if !exists {
		return
	}

	sub.stop()
	b.options.metricsRecorder.RecordSubscriberRemoved(subscriberID, time.Since(sub.created))
}

// Close shuts down the bus and stops all subscriptions.
//
// After Close returns, Publish returns a BUS_CLOSED error and every
// subscriber channel is closed. Undelivered messages still queued at
// teardown are dropped; the session is gone and there is no receiver.
// Close is idempotent; multiple calls are safe.
func (b *SessionBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*subscription, 0, len(b.subscribers))
	for id, sub := range b.subscribers {
		subs = append(subs, sub)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
		b.options.metricsRecorder.RecordSubscriberRemoved(sub.id, time.Since(sub.created))
	}

	return nil
}

// SubscriberCount returns the current number of active subscribers.
// Useful for monitoring and testing.
func (b *SessionBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// enqueue appends a message to the subscription's delivery queue.
// Returns false if the subscription has been stopped.
func (s *subscription) enqueue(msg Message) bool {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	if s.done {
		return false
	}

	s.queue = append(s.queue, msg)
	s.cond.Signal()
	return true
}

// stop marks the subscription done and wakes the pump so it can shut down
// and close the output channel.
func (s *subscription) stop() {
	s.qmu.Lock()
	if s.done {
		s.qmu.Unlock()
		return
	}
	s.done = true
	close(s.closed)
	s.cond.Signal()
	s.qmu.Unlock()
}

// pump moves messages from the queue to the output channel in FIFO order.
// It owns the output channel: nothing else sends on it or closes it.
func (s *subscription) pump() {
	defer close(s.out)

	for {
		s.qmu.Lock()
		for len(s.queue) == 0 && !s.done {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.done {
			s.qmu.Unlock()
			return
		}
		msg := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		select {
		case s.out <- msg:
			s.received.Add(1)
		case <-s.closed:
			// Receiver abandoned the subscription; remaining queue is
			// dropped on teardown.
			return
		}
	}
}

// generateSubscriberID generates a unique subscriber ID.
// Uses timestamp + counter for uniqueness and readability.
var subscriberCounter atomic.Uint64

func generateSubscriberID() string {
	return fmt.Sprintf("sub-%d-%d", time.Now().UnixNano(), subscriberCounter.Add(1))
}

// noopErrorHandler is the default error handler that does nothing.
func noopErrorHandler(err error, context map[string]any) {}

// noopMetricsRecorder is the default metrics recorder that does nothing.
type noopMetricsRecorder struct{}

func (noopMetricsRecorder) RecordPublished(topic string, subscriberCount int)            {}
func (noopMetricsRecorder) RecordSubscriberAdded(subscriberID string, topic string)      {}
func (noopMetricsRecorder) RecordSubscriberRemoved(subscriberID string, d time.Duration) {}

// Ensure SessionBus implements Bus at compile time.
var _ Bus = (*SessionBus)(nil)
