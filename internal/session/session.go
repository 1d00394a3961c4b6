// Package session implements the coordination core: it opens analysis
// sessions, supervises the selected agents under per-agent and per-session
// deadlines, feeds their raw findings through normalization into the
// correlator, and signals the terminal condition the report synthesizer
// waits on.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fboiero/MIESC-sub012/internal/events"
	"github.com/fboiero/MIESC-sub012/internal/finding"
	"github.com/fboiero/MIESC-sub012/internal/registry"
	"github.com/fboiero/MIESC-sub012/internal/types"
)

// Request describes one analysis request over one artifact.
type Request struct {
	// ArtifactFingerprint identifies the artifact under analysis.
	ArtifactFingerprint string `json:"artifact_fingerprint"`

	// RequestedLayers selects which capability layers to invoke.
	RequestedLayers []types.CapabilityLayer `json:"requested_layers"`

	// Deadline bounds the whole session.
	Deadline time.Time `json:"deadline"`
}

// Validate checks the request before a session is opened.
func (r Request) Validate(now time.Time) error {
	if r.ArtifactFingerprint == "" {
		return types.NewError(types.SESSION_INVALID_REQUEST, "artifact fingerprint cannot be empty")
	}
	if len(r.RequestedLayers) == 0 {
		return types.NewError(types.SESSION_INVALID_REQUEST, "at least one capability layer must be requested")
	}
	for _, l := range r.RequestedLayers {
		if !l.IsValid() {
			return types.NewError(types.SESSION_INVALID_REQUEST, "invalid capability layer: "+l.String())
		}
	}
	if !r.Deadline.After(now) {
		return types.NewError(types.SESSION_INVALID_REQUEST, "deadline must be in the future")
	}
	return nil
}

// Session is the mutable state of one analysis request. All mutation goes
// through the coordinator and is serialized per session; status reads may
// occur concurrently without blocking writers.
type Session struct {
	id       types.ID
	request  Request
	started  time.Time
	selected []registry.AgentDescriptor

	bus        *events.SessionBus
	normalizer *finding.Normalizer
	correlator *finding.Correlator

	mu       sync.RWMutex
	statuses map[string]AgentStatusRecord

	terminalOnce   sync.Once
	terminalCh     chan struct{}
	deadlineForced bool

	// discarded counts findings that were not admitted: published by an
	// agent that had already been canceled or failed, or arriving after
	// the partition was frozen.
	discarded atomic.Int64
}

func newSession(req Request, selected []registry.AgentDescriptor, busOpts []events.Option, corrOpts []finding.CorrelatorOption) *Session {
	id := types.NewID()

	statuses := make(map[string]AgentStatusRecord, len(selected))
	for _, d := range selected {
		statuses[d.ID] = AgentStatusRecord{Status: StatusPending}
	}

	return &Session{
		id:         id,
		request:    req,
		started:    time.Now(),
		selected:   selected,
		bus:        events.NewSessionBus(id, busOpts...),
		normalizer: finding.NewNormalizer(),
		correlator: finding.NewCorrelator(id, corrOpts...),
		statuses:   statuses,
		terminalCh: make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() types.ID {
	return s.id
}

// ArtifactFingerprint returns the analyzed artifact's fingerprint.
func (s *Session) ArtifactFingerprint() string {
	return s.request.ArtifactFingerprint
}

// RequestedLayers returns the capability layers the request asked for.
func (s *Session) RequestedLayers() []types.CapabilityLayer {
	return s.request.RequestedLayers
}

// Deadline returns the session deadline.
func (s *Session) Deadline() time.Time {
	return s.request.Deadline
}

// StartedAt returns the session start time.
func (s *Session) StartedAt() time.Time {
	return s.started
}

// Selected returns the descriptors of the agents chosen for this session.
func (s *Session) Selected() []registry.AgentDescriptor {
	return s.selected
}

// Bus returns the session-scoped context bus.
func (s *Session) Bus() *events.SessionBus {
	return s.bus
}

// Statuses returns a snapshot of the per-agent status map.
func (s *Session) Statuses() map[string]AgentStatusRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]AgentStatusRecord, len(s.statuses))
	for id, rec := range s.statuses {
		out[id] = rec
	}
	return out
}

// Status returns one agent's current status record.
func (s *Session) Status(agentID string) (AgentStatusRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.statuses[agentID]
	return rec, ok
}

// setStatus applies a monotone status transition. It returns false when
// the transition would move backwards (including any attempt to leave a
// terminal status), which callers treat as a no-op.
func (s *Session) setStatus(agentID string, status AgentStatus, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.statuses[agentID]
	if !ok || !current.Status.CanTransitionTo(status) {
		return false
	}

	s.statuses[agentID] = AgentStatusRecord{Status: status, Reason: reason}
	return true
}

// allTerminal reports whether every selected agent reached a terminal
// status.
func (s *Session) allTerminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.statuses {
		if !rec.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// forceTimeouts marks every non-terminal agent timed-out with the given
// reason. Returns the IDs that were forced.
func (s *Session) forceTimeouts(reason string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var forced []string
	for id, rec := range s.statuses {
		if rec.Status.IsTerminal() {
			continue
		}
		s.statuses[id] = AgentStatusRecord{Status: StatusTimedOut, Reason: reason}
		forced = append(forced, id)
	}
	return forced
}

// markTerminal flips the session to terminal exactly once.
func (s *Session) markTerminal(deadlineForced bool) {
	s.terminalOnce.Do(func() {
		s.mu.Lock()
		s.deadlineForced = deadlineForced
		s.mu.Unlock()
		close(s.terminalCh)
	})
}

// Terminal returns a channel closed when the session reaches its terminal
// condition.
func (s *Session) Terminal() <-chan struct{} {
	return s.terminalCh
}

// IsTerminal reports whether the session already terminated.
func (s *Session) IsTerminal() bool {
	select {
	case <-s.terminalCh:
		return true
	default:
		return false
	}
}

// DeadlineForced reports whether termination was forced by the session
// deadline rather than by all agents finishing.
func (s *Session) DeadlineForced() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deadlineForced
}

// Drain returns the final finding partition. It may only be called once
// the session is terminal.
func (s *Session) Drain() ([]finding.FindingCluster, error) {
	if !s.IsTerminal() {
		return nil, types.NewError(types.SESSION_NOT_TERMINAL,
			"clusters can only be drained from a terminal session")
	}
	return s.correlator.Drain(), nil
}

// RejectedRawFindings returns how many raw findings failed normalization.
func (s *Session) RejectedRawFindings() int64 {
	return s.normalizer.Rejected()
}

// DiscardedFindings returns how many findings were not admitted because
// their agent had already been canceled or failed, or because they
// arrived after the partition was frozen.
func (s *Session) DiscardedFindings() int64 {
	return s.discarded.Load()
}
