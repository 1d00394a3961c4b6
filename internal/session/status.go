package session

import (
	"encoding/json"
	"fmt"
)

// AgentStatus is the per-agent lifecycle status within one session.
// Transitions are monotone: pending -> running -> {completed, timed-out,
// failed}. A terminal status never changes again.
type AgentStatus string

const (
	StatusPending   AgentStatus = "pending"
	StatusRunning   AgentStatus = "running"
	StatusCompleted AgentStatus = "completed"
	StatusTimedOut  AgentStatus = "timed-out"
	StatusFailed    AgentStatus = "failed"
)

// statusRank orders statuses along the monotone transition chain.
var statusRank = map[AgentStatus]int{
	StatusPending:   0,
	StatusRunning:   1,
	StatusCompleted: 2,
	StatusTimedOut:  2,
	StatusFailed:    2,
}

// String returns the string representation of AgentStatus.
func (s AgentStatus) String() string {
	return string(s)
}

// IsValid checks if the AgentStatus is a valid value.
func (s AgentStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether the status is one of the terminal states.
func (s AgentStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusTimedOut, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next respects the
// monotone status machine.
func (s AgentStatus) CanTransitionTo(next AgentStatus) bool {
	return statusRank[next] > statusRank[s]
}

// MarshalJSON implements json.Marshaler.
func (s AgentStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *AgentStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status := AgentStatus(str)
	if !status.IsValid() {
		return fmt.Errorf("invalid agent status: %s", str)
	}

	*s = status
	return nil
}

// AgentStatusRecord is the observable per-agent state: the status plus the
// recorded reason for failures and timeouts.
type AgentStatusRecord struct {
	Status AgentStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}
