package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fboiero/MIESC-sub012/internal/types"
)

// TestSessionBus_BasicPublishSubscribe tests basic publish and subscribe
// functionality on a single topic.
func TestSessionBus_BasicPublishSubscribe(t *testing.T) {
	sessionID := types.NewID()
	bus := NewSessionBus(sessionID)
	defer bus.Close()

	ctx := context.Background()

	msgs, cleanup := bus.Subscribe(ctx, TopicSessionStarted, 10)
	defer cleanup()

	msg := Message{
		Topic:     TopicSessionStarted,
		SessionID: sessionID,
		Timestamp: time.Now(),
	}

	if err := bus.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case received := <-msgs:
		if received.Topic != msg.Topic {
			t.Errorf("Expected topic %v, got %v", msg.Topic, received.Topic)
		}
		if received.SessionID != sessionID {
			t.Errorf("Expected session ID %v, got %v", sessionID, received.SessionID)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

// TestSessionBus_TopicIsolation tests that subscribers only receive
// messages for their own topic.
func TestSessionBus_TopicIsolation(t *testing.T) {
	sessionID := types.NewID()
	bus := NewSessionBus(sessionID)
	defer bus.Close()

	ctx := context.Background()

	msgs, cleanup := bus.Subscribe(ctx, Topic("findings.static"), 10)
	defer cleanup()

	bus.Publish(ctx, Message{Topic: Topic("findings.static"), SessionID: sessionID})
	bus.Publish(ctx, Message{Topic: Topic("findings.symbolic"), SessionID: sessionID})

	select {
	case received := <-msgs:
		if received.Topic != Topic("findings.static") {
			t.Errorf("Expected findings.static, got %v", received.Topic)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for findings.static message")
	}

	select {
	case received := <-msgs:
		t.Errorf("Received unexpected message on topic %v", received.Topic)
	case <-time.After(100 * time.Millisecond):
		// Expected timeout
	}
}

// TestSessionBus_RejectsForeignSession tests that messages for another
// session are refused instead of cross-delivered.
func TestSessionBus_RejectsForeignSession(t *testing.T) {
	bus := NewSessionBus(types.NewID())
	defer bus.Close()

	err := bus.Publish(context.Background(), Message{
		Topic:     TopicSessionStarted,
		SessionID: types.NewID(),
	})
	if err == nil {
		t.Fatal("Expected error publishing a foreign session's message")
	}
	if !errors.Is(err, types.NewError(types.CORRELATE_SESSION_MISMATCH, "")) {
		t.Errorf("Expected CORRELATE_SESSION_MISMATCH, got %v", err)
	}
}

// TestSessionBus_PerPublisherOrder tests that one publisher's messages
// arrive in publish order even under a slow consumer.
func TestSessionBus_PerPublisherOrder(t *testing.T) {
	sessionID := types.NewID()
	bus := NewSessionBus(sessionID, WithDefaultBufferSize(1))
	defer bus.Close()

	ctx := context.Background()

	msgs, cleanup := bus.Subscribe(ctx, TopicAgentStatus, 1)
	defer cleanup()

	const n = 200
	for i := 0; i < n; i++ {
		err := bus.Publish(ctx, Message{
			Topic:     TopicAgentStatus,
			SessionID: sessionID,
			Payload:   i,
		})
		if err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}

	for i := 0; i < n; i++ {
		select {
		case received := <-msgs:
			if received.Payload.(int) != i {
				t.Fatalf("Out of order delivery: expected %d, got %v", i, received.Payload)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("Timeout waiting for message %d", i)
		}
	}
}

// TestSessionBus_PublishNeverBlocks tests that a subscriber that never
// reads does not block publishers.
func TestSessionBus_PublishNeverBlocks(t *testing.T) {
	sessionID := types.NewID()
	bus := NewSessionBus(sessionID, WithDefaultBufferSize(1))
	defer bus.Close()

	ctx := context.Background()

	// Subscribe but never read.
	_, cleanup := bus.Subscribe(ctx, TopicAgentStatus, 1)
	defer cleanup()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			bus.Publish(ctx, Message{Topic: TopicAgentStatus, SessionID: sessionID, Payload: i})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

// TestSessionBus_ConcurrentPublishers tests delivery under many
// concurrent publishers.
func TestSessionBus_ConcurrentPublishers(t *testing.T) {
	sessionID := types.NewID()
	bus := NewSessionBus(sessionID)
	defer bus.Close()

	ctx := context.Background()

	msgs, cleanup := bus.Subscribe(ctx, TopicAgentStatus, 10)
	defer cleanup()

	const publishers = 8
	const perPublisher = 50

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				bus.Publish(ctx, Message{
					Topic:     TopicAgentStatus,
					SessionID: sessionID,
					AgentID:   fmt.Sprintf("agent-%d", p),
					Payload:   i,
				})
			}
		}(p)
	}
	wg.Wait()

	// Every published message must arrive, and each publisher's stream
	// must arrive in its own order.
	lastSeen := make(map[string]int)
	for received := 0; received < publishers*perPublisher; received++ {
		select {
		case msg := <-msgs:
			seq := msg.Payload.(int)
			if last, ok := lastSeen[msg.AgentID]; ok && seq <= last {
				t.Fatalf("Per-publisher order violated for %s: %d after %d", msg.AgentID, seq, last)
			}
			lastSeen[msg.AgentID] = seq
		case <-time.After(2 * time.Second):
			t.Fatalf("Timeout after %d messages", received)
		}
	}
}

// TestSessionBus_Close tests teardown semantics.
func TestSessionBus_Close(t *testing.T) {
	sessionID := types.NewID()
	bus := NewSessionBus(sessionID)

	ctx := context.Background()
	msgs, cleanup := bus.Subscribe(ctx, TopicSessionStarted, 10)
	defer cleanup()

	if err := bus.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Publish after close must error.
	err := bus.Publish(ctx, Message{Topic: TopicSessionStarted, SessionID: sessionID})
	if !errors.Is(err, types.NewError(types.BUS_CLOSED, "")) {
		t.Errorf("Expected BUS_CLOSED after Close, got %v", err)
	}

	// Subscriber channel must be closed.
	select {
	case _, ok := <-msgs:
		if ok {
			t.Error("Expected closed channel after bus Close")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for channel close")
	}

	// Close is idempotent.
	if err := bus.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}

	if bus.SubscriberCount() != 0 {
		t.Errorf("Expected 0 subscribers after Close, got %d", bus.SubscriberCount())
	}
}

// TestSessionBus_SubscribeAfterClose tests that a late subscriber gets a
// closed channel rather than a hang.
func TestSessionBus_SubscribeAfterClose(t *testing.T) {
	bus := NewSessionBus(types.NewID())
	bus.Close()

	msgs, cleanup := bus.Subscribe(context.Background(), TopicSessionStarted, 1)
	defer cleanup()

	select {
	case _, ok := <-msgs:
		if ok {
			t.Error("Expected closed channel from Subscribe after Close")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for closed channel")
	}
}

// TestSessionBus_Unsubscribe tests that cleanup removes the subscriber.
func TestSessionBus_Unsubscribe(t *testing.T) {
	sessionID := types.NewID()
	bus := NewSessionBus(sessionID)
	defer bus.Close()

	_, cleanup := bus.Subscribe(context.Background(), TopicAgentStatus, 1)
	if bus.SubscriberCount() != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", bus.SubscriberCount())
	}

	cleanup()
	if bus.SubscriberCount() != 0 {
		t.Errorf("Expected 0 subscribers after cleanup, got %d", bus.SubscriberCount())
	}

	// Cleanup is idempotent.
	cleanup()
}

// TestSessionBus_MetricsRecorder tests that the metrics hooks fire.
func TestSessionBus_MetricsRecorder(t *testing.T) {
	recorder := &countingRecorder{}
	sessionID := types.NewID()
	bus := NewSessionBus(sessionID, WithMetrics(recorder))
	defer bus.Close()

	ctx := context.Background()
	msgs, cleanup := bus.Subscribe(ctx, TopicAgentStatus, 10)
	bus.Publish(ctx, Message{Topic: TopicAgentStatus, SessionID: sessionID})

	select {
	case <-msgs:
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message")
	}

	cleanup()

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.added != 1 {
		t.Errorf("Expected 1 subscriber-added record, got %d", recorder.added)
	}
	if recorder.removed != 1 {
		t.Errorf("Expected 1 subscriber-removed record, got %d", recorder.removed)
	}
	if recorder.published != 1 {
		t.Errorf("Expected 1 publish record, got %d", recorder.published)
	}
}

type countingRecorder struct {
	mu        sync.Mutex
	published int
	added     int
	removed   int
}

func (r *countingRecorder) RecordPublished(topic string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published++
}

func (r *countingRecorder) RecordSubscriberAdded(id string, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added++
}

func (r *countingRecorder) RecordSubscriberRemoved(id string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed++
}
