package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/fboiero/MIESC-sub012/internal/events"
	"github.com/fboiero/MIESC-sub012/internal/finding"
	"github.com/fboiero/MIESC-sub012/internal/registry"
	"github.com/fboiero/MIESC-sub012/internal/types"
)

// agentDone is the sentinel payload the coordinator publishes on an
// agent's output topic once that agent reached a terminal status. Because
// the bus preserves enqueue order per subscription, the intake loop has
// processed every earlier finding by the time it sees the sentinel.
type agentDone struct {
	AgentID string
}

// Coordinator owns analysis sessions: it selects agents per request,
// supervises them under deadlines, and drives arriving raw findings
// through normalization into each session's correlator.
//
// Multiple sessions run concurrently with fully isolated state.
type Coordinator struct {
	registry RunnerRegistry

	logger       *slog.Logger
	tracer       trace.Tracer
	agentTimeout time.Duration
	drainGrace   time.Duration
	busOpts      []events.Option
	corrOpts     []finding.CorrelatorOption

	mu       sync.RWMutex
	runners  map[string]AgentRunner
	sessions map[types.ID]*sessionRuntime
}

// RunnerRegistry is the slice of the descriptor registry the coordinator
// needs.
type RunnerRegistry interface {
	Get(id string) (registry.AgentDescriptor, error)
	SelectByLayers(layers []types.CapabilityLayer) ([]registry.AgentDescriptor, error)
}

// sessionRuntime bundles a session with its supervision machinery.
type sessionRuntime struct {
	sess         *Session
	cancel       context.CancelFunc
	span         trace.Span
	intake       *errgroup.Group
	finalizeOnce sync.Once
}

// CoordinatorOption is a functional option for configuring the Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the structured logger. Default: a discard logger.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer for session and agent spans. Default: noop.
func WithTracer(tracer trace.Tracer) CoordinatorOption {
	return func(c *Coordinator) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithAgentTimeout sets the per-agent time bound. An agent task is always
// additionally clamped to the session deadline. Default: 2 minutes.
func WithAgentTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.agentTimeout = d
		}
	}
}

// WithDrainGrace sets how long finalization waits for the intake loops to
// process already-queued findings before synthesis proceeds without them.
// Default: 5 seconds.
func WithDrainGrace(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.drainGrace = d
		}
	}
}

// WithBusOptions forwards options to every session bus.
func WithBusOptions(opts ...events.Option) CoordinatorOption {
	return func(c *Coordinator) {
		c.busOpts = opts
	}
}

// WithCorrelatorOptions forwards options to every session correlator.
func WithCorrelatorOptions(opts ...finding.CorrelatorOption) CoordinatorOption {
	return func(c *Coordinator) {
		c.corrOpts = opts
	}
}

// NewCoordinator creates a coordinator over the given descriptor registry.
func NewCoordinator(reg RunnerRegistry, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		registry:     reg,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:       noop.NewTracerProvider().Tracer("miesc/session"),
		agentTimeout: 2 * time.Minute,
		drainGrace:   5 * time.Second,
		runners:      make(map[string]AgentRunner),
		sessions:     make(map[types.ID]*sessionRuntime),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RegisterRunner attaches the runner for one registered agent. Runners
// must be registered before sessions that select their agent start.
func (c *Coordinator) RegisterRunner(r AgentRunner) error {
	desc := r.Descriptor()
	if _, err := c.registry.Get(desc.ID); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.runners[desc.ID]; exists {
		return types.NewError(types.REGISTRY_DUPLICATE_AGENT,
			fmt.Sprintf("runner for agent %q already registered", desc.ID))
	}
	c.runners[desc.ID] = r
	return nil
}

// StartSession opens a session for the request and returns immediately
// with its ID; it never blocks until the deadline. Agents run as
// independent concurrent tasks supervised in the background.
func (c *Coordinator) StartSession(ctx context.Context, req Request) (types.ID, error) {
	if err := req.Validate(time.Now()); err != nil {
		return "", err
	}

	selected, err := c.registry.SelectByLayers(req.RequestedLayers)
	if err != nil {
		return "", err
	}

	sess := newSession(req, selected, c.busOpts, c.corrOpts)

	// The session outlives the request context; only the session
	// deadline bounds it.
	sessCtx, cancel := context.WithDeadline(context.Background(), req.Deadline)
	sessCtx, span := c.tracer.Start(sessCtx, "session",
		trace.WithAttributes(
			attribute.String("session.id", sess.ID().String()),
			attribute.String("artifact.fingerprint", req.ArtifactFingerprint),
			attribute.Int("agents.selected", len(selected)),
		))

	rt := &sessionRuntime{
		sess:   sess,
		cancel: cancel,
		span:   span,
		intake: &errgroup.Group{},
	}

	c.mu.Lock()
	c.sessions[sess.ID()] = rt
	c.mu.Unlock()

	logger := c.logger.With("session_id", sess.ID())
	logger.Info("session started",
		"artifact", req.ArtifactFingerprint,
		"layers", req.RequestedLayers,
		"agents", len(selected),
		"deadline", req.Deadline)

	// Intake loops consume each agent's output topic for the whole
	// session lifetime.
	for _, desc := range selected {
		desc := desc
		ch, cleanup := sess.bus.Subscribe(sessCtx, desc.OutputTopic, 0)
		rt.intake.Go(func() error {
			defer cleanup()
			c.intake(sess, desc, ch, logger)
			return nil
		})
	}

	c.publishLifecycle(sessCtx, sess, events.TopicSessionStarted, events.SessionStartedPayload{
		SessionID:           sess.ID(),
		ArtifactFingerprint: req.ArtifactFingerprint,
		RequestedLayers:     req.RequestedLayers,
		Deadline:            req.Deadline,
		SelectedAgents:      agentIDs(selected),
	})

	for _, desc := range selected {
		c.mu.RLock()
		runner, ok := c.runners[desc.ID]
		c.mu.RUnlock()

		if !ok {
			// No collaborator is wired for this agent. Recorded as a
			// failure; the session carries on.
			if sess.setStatus(desc.ID, StatusFailed, "no runner registered") {
				c.publishAgentStatus(sessCtx, sess, desc.ID, StatusFailed, "no runner registered")
			}
			c.publishSentinel(sessCtx, sess, desc)
			continue
		}

		go c.supervise(sessCtx, rt, desc, runner, logger)
	}

	go c.watchdog(sessCtx, rt, logger)

	// All runners may have been rejected up front; the session is then
	// already terminal.
	c.checkTerminal(rt, logger)

	return sess.ID(), nil
}

// Session returns the session with the given ID.
func (c *Coordinator) Session(id types.ID) (*Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rt, ok := c.sessions[id]
	if !ok {
		return nil, types.NewError(types.SESSION_NOT_FOUND,
			fmt.Sprintf("session %s not found", id))
	}
	return rt.sess, nil
}

// Status returns the per-agent status snapshot for observability.
func (c *Coordinator) Status(id types.ID) (map[string]AgentStatusRecord, error) {
	sess, err := c.Session(id)
	if err != nil {
		return nil, err
	}
	return sess.Statuses(), nil
}

// Await blocks until the session is terminal or the context is done.
func (c *Coordinator) Await(ctx context.Context, id types.ID) error {
	sess, err := c.Session(id)
	if err != nil {
		return err
	}

	select {
	case <-sess.Terminal():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// supervise runs one agent task bounded by min(agent timeout, session
// deadline) and records its terminal status.
func (c *Coordinator) supervise(sessCtx context.Context, rt *sessionRuntime, desc registry.AgentDescriptor, runner AgentRunner, logger *slog.Logger) {
	sess := rt.sess

	ctx, span := c.tracer.Start(sessCtx, "agent.run",
		trace.WithAttributes(
			attribute.String("agent.id", desc.ID),
			attribute.String("agent.layer", desc.Layer.String()),
		))
	defer span.End()

	deadline := earlier(time.Now().Add(c.agentTimeout), sess.Deadline())
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	if sess.setStatus(desc.ID, StatusRunning, "") {
		c.publishAgentStatus(sessCtx, sess, desc.ID, StatusRunning, "")
	}

	task := Task{
		SessionID:           sess.ID(),
		ArtifactFingerprint: sess.ArtifactFingerprint(),
		Deadline:            deadline,
		Publish: func(ctx context.Context, raw finding.RawFinding) error {
			return sess.bus.Publish(ctx, events.Message{
				Topic:     desc.OutputTopic,
				SessionID: sess.ID(),
				AgentID:   desc.ID,
				Timestamp: time.Now(),
				Payload:   raw,
			})
		},
	}

	err := runGuarded(runCtx, runner, task)

	var status AgentStatus
	var reason string
	switch {
	case err == nil:
		status = StatusCompleted
	case errors.Is(err, context.DeadlineExceeded):
		status, reason = StatusTimedOut, "agent exceeded its time bound"
	case errors.Is(err, context.Canceled):
		status, reason = StatusTimedOut, "agent canceled at session teardown"
	default:
		status, reason = StatusFailed, err.Error()
	}

	if sess.setStatus(desc.ID, status, reason) {
		logger.Info("agent terminal", "agent_id", desc.ID, "status", status, "reason", reason)
		c.publishAgentStatus(sessCtx, sess, desc.ID, status, reason)
	}

	c.publishSentinel(sessCtx, sess, desc)
	c.checkTerminal(rt, logger)
}

// runGuarded invokes the runner, converting a panic in the collaborator
// into an agent failure instead of tearing down the session.
func runGuarded(ctx context.Context, runner AgentRunner, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = types.NewError(types.AGENT_FAILURE, fmt.Sprintf("agent panicked: %v", r))
		}
	}()
	return runner.Run(ctx, task)
}

// intake consumes one agent's output topic, normalizing and ingesting each
// raw finding until the agent's done sentinel arrives.
func (c *Coordinator) intake(sess *Session, desc registry.AgentDescriptor, ch <-chan events.Message, logger *slog.Logger) {
	for msg := range ch {
		if done, ok := msg.Payload.(agentDone); ok && done.AgentID == desc.ID {
			return
		}

		raw, ok := msg.Payload.(finding.RawFinding)
		if !ok {
			logger.Warn("unexpected payload on output topic",
				"topic", desc.OutputTopic, "agent_id", desc.ID)
			continue
		}

		// Findings from an already-canceled or failed agent are not
		// trusted.
		if rec, ok := sess.Status(desc.ID); ok && (rec.Status == StatusTimedOut || rec.Status == StatusFailed) {
			sess.discarded.Add(1)
			continue
		}

		cf, err := sess.normalizer.Normalize(raw, desc)
		if err != nil {
			logger.Debug("rejected malformed raw finding",
				"agent_id", desc.ID, "error", err)
			continue
		}

		if err := sess.correlator.Ingest(cf); err != nil {
			if errors.Is(err, types.NewError(types.CORRELATE_FROZEN, "")) {
				sess.discarded.Add(1)
				continue
			}
			// A session-mismatch here is an internal invariant
			// violation: abort loudly rather than synthesize a wrong
			// report.
			panic(err)
		}
	}
}

// watchdog forces termination when the session deadline passes before all
// agents finish.
func (c *Coordinator) watchdog(sessCtx context.Context, rt *sessionRuntime, logger *slog.Logger) {
	select {
	case <-rt.sess.Terminal():
	case <-sessCtx.Done():
		c.finalize(rt, true, logger)
	}
}

// checkTerminal finalizes the session once every agent is terminal.
func (c *Coordinator) checkTerminal(rt *sessionRuntime, logger *slog.Logger) {
	if rt.sess.allTerminal() {
		c.finalize(rt, false, logger)
	}
}

// finalize drives the session to its terminal condition exactly once:
// still-pending agents are force-marked timed-out, the intake loops get a
// bounded drain window, and the terminal signal is raised for the report
// synthesizer.
func (c *Coordinator) finalize(rt *sessionRuntime, deadlineForced bool, logger *slog.Logger) {
	rt.finalizeOnce.Do(func() {
		sess := rt.sess
		ctx := context.Background()

		if deadlineForced {
			forced := sess.forceTimeouts("session deadline exceeded")
			for _, agentID := range forced {
				c.publishAgentStatus(ctx, sess, agentID, StatusTimedOut, "session deadline exceeded")
			}
			for _, desc := range sess.Selected() {
				c.publishSentinel(ctx, sess, desc)
			}
			logger.Warn("session deadline exceeded", "forced_timeouts", len(forced))
		}

		// Give the intake loops a bounded window to process queued
		// findings; never wait indefinitely for cooperative shutdown.
		drained := make(chan struct{})
		go func() {
			rt.intake.Wait() //nolint:errcheck // intake loops never return errors
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(c.drainGrace):
			logger.Warn("intake drain grace elapsed; proceeding with partial findings")
		}

		sess.markTerminal(deadlineForced)

		c.publishLifecycle(ctx, sess, events.TopicSessionTerminal, events.SessionTerminalPayload{
			SessionID:      sess.ID(),
			DeadlineForced: deadlineForced,
		})

		sess.bus.Close()
		rt.cancel()
		rt.span.End()

		logger.Info("session terminal",
			"deadline_forced", deadlineForced,
			"findings", sess.correlator.Size(),
			"rejected", sess.RejectedRawFindings(),
			"discarded", sess.DiscardedFindings())
	})
}

// publishAgentStatus emits a status transition on the agent status topic.
func (c *Coordinator) publishAgentStatus(ctx context.Context, sess *Session, agentID string, status AgentStatus, reason string) {
	sess.bus.Publish(ctx, events.Message{ //nolint:errcheck // best-effort observability
		Topic:     events.TopicAgentStatus,
		SessionID: sess.ID(),
		AgentID:   agentID,
		Timestamp: time.Now(),
		Payload: events.AgentStatusPayload{
			AgentID: agentID,
			Status:  status.String(),
			Reason:  reason,
		},
	})
}

// publishSentinel marks the logical end of an agent's output stream.
func (c *Coordinator) publishSentinel(ctx context.Context, sess *Session, desc registry.AgentDescriptor) {
	sess.bus.Publish(ctx, events.Message{ //nolint:errcheck // bus may already be closed at teardown
		Topic:     desc.OutputTopic,
		SessionID: sess.ID(),
		Timestamp: time.Now(),
		Payload:   agentDone{AgentID: desc.ID},
	})
}

// publishLifecycle emits a session lifecycle message.
func (c *Coordinator) publishLifecycle(ctx context.Context, sess *Session, topic events.Topic, payload any) {
	sess.bus.Publish(ctx, events.Message{ //nolint:errcheck // best-effort observability
		Topic:     topic,
		SessionID: sess.ID(),
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func agentIDs(descs []registry.AgentDescriptor) []string {
	ids := make([]string, 0, len(descs))
	for _, d := range descs {
		ids = append(ids, d.ID)
	}
	return ids
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
