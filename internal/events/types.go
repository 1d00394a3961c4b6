package events

import (
	"time"

	"github.com/fboiero/MIESC-sub012/internal/types"
)

// Topic identifies a named channel on the session bus. Agent output topics
// are declared in their descriptors; lifecycle topics are fixed.
type Topic string

// Session lifecycle topics.
const (
	TopicSessionStarted  Topic = "session.started"
	TopicSessionTerminal Topic = "session.terminal"
)

// Agent lifecycle topics.
const (
	TopicAgentStatus Topic = "agent.status"
)

// String returns the string representation of the topic.
func (t Topic) String() string {
	return string(t)
}

// Message is one unit of delivery on a session bus. Every message belongs
// to exactly one session and one topic.
type Message struct {
	// Topic the message was published to.
	Topic Topic `json:"topic"`

	// SessionID of the owning session. Must match the bus's session.
	SessionID types.ID `json:"session_id"`

	// AgentID of the publishing agent, empty for coordinator messages.
	AgentID string `json:"agent_id,omitempty"`

	// Timestamp records when the message was published.
	Timestamp time.Time `json:"timestamp"`

	// Payload carries topic-specific typed data (use type assertion to access).
	Payload any `json:"payload,omitempty"`
}

// SessionStartedPayload is published on TopicSessionStarted when the
// coordinator opens a session.
type SessionStartedPayload struct {
	SessionID           types.ID                `json:"session_id"`
	ArtifactFingerprint string                  `json:"artifact_fingerprint"`
	RequestedLayers     []types.CapabilityLayer `json:"requested_layers"`
	Deadline            time.Time               `json:"deadline"`
	SelectedAgents      []string                `json:"selected_agents"`
}

// SessionTerminalPayload is published on TopicSessionTerminal once the
// session reaches a terminal condition.
type SessionTerminalPayload struct {
	SessionID      types.ID `json:"session_id"`
	DeadlineForced bool     `json:"deadline_forced"`
}

// AgentStatusPayload is published on TopicAgentStatus for every per-agent
// status transition.
type AgentStatusPayload struct {
	AgentID string `json:"agent_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}
