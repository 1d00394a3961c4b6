package finding

import (
	"time"

	"github.com/fboiero/MIESC-sub012/internal/taxonomy"
	"github.com/fboiero/MIESC-sub012/internal/types"
)

// RawLocation is the unprocessed position information attached to a raw
// finding by a tool adapter. Any field may be missing.
type RawLocation struct {
	Contract  string `json:"contract,omitempty" yaml:"contract,omitempty"`
	File      string `json:"file,omitempty" yaml:"file,omitempty"`
	StartLine int    `json:"start_line,omitempty" yaml:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty" yaml:"end_line,omitempty"`
}

// RawFinding is one unprocessed observation published by an agent on its
// output topic. It is immutable once published.
type RawFinding struct {
	// ID is assigned when the finding is published.
	ID types.ID `json:"id"`

	// AgentID identifies the publishing agent.
	AgentID string `json:"agent_id"`

	// SessionID identifies the owning session.
	SessionID types.ID `json:"session_id"`

	// Payload is the opaque tool output. The normalizer probes it for
	// well-known label and description keys; everything else passes
	// through untouched.
	Payload map[string]any `json:"payload"`

	// Location is the tool-reported position, if any.
	Location *RawLocation `json:"location,omitempty"`

	// RawSeverity is the tool's own severity label, if any.
	RawSeverity string `json:"raw_severity,omitempty"`

	// RawConfidence is the tool's own confidence, if it supplies one.
	RawConfidence *float64 `json:"raw_confidence,omitempty"`

	// Timestamp records when the observation was made.
	Timestamp time.Time `json:"timestamp"`
}

// NewRawFinding creates a raw finding with a fresh ID and timestamp.
func NewRawFinding(agentID string, sessionID types.ID, payload map[string]any) RawFinding {
	return RawFinding{
		ID:        types.NewID(),
		AgentID:   agentID,
		SessionID: sessionID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// WithLocation sets the raw location.
func (r RawFinding) WithLocation(loc RawLocation) RawFinding {
	r.Location = &loc
	return r
}

// WithSeverity sets the raw severity label.
func (r RawFinding) WithSeverity(severity string) RawFinding {
	r.RawSeverity = severity
	return r
}

// WithConfidence sets the tool-supplied confidence.
func (r RawFinding) WithConfidence(confidence float64) RawFinding {
	r.RawConfidence = &confidence
	return r
}

// CanonicalFinding is the normalized, tool-agnostic representation of one
// observation. It is derived by the normalizer and immutable.
type CanonicalFinding struct {
	// ID of the canonical finding.
	ID types.ID `json:"id"`

	// RawID references the source raw finding.
	RawID types.ID `json:"raw_id"`

	// SessionID of the owning session.
	SessionID types.ID `json:"session_id"`

	// AgentID of the reporting agent.
	AgentID string `json:"agent_id"`

	// Layer is the reporting agent's capability layer.
	Layer types.CapabilityLayer `json:"layer"`

	// Class is the normalized vulnerability class from the closed taxonomy.
	Class taxonomy.Class `json:"class"`

	// Unmapped is true when the raw label could not be resolved and the
	// finding was bucketed under the unclassified class.
	Unmapped bool `json:"unmapped,omitempty"`

	// Location is the normalized position.
	Location types.Location `json:"location"`

	// Severity on the ordinal scale.
	Severity types.Severity `json:"severity"`

	// Confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Description is a short human-readable summary extracted from the
	// raw payload.
	Description string `json:"description,omitempty"`

	// Timestamp of the source observation.
	Timestamp time.Time `json:"timestamp"`
}

// FindingCluster is one believed-distinct vulnerability instance: a set of
// canonical findings merged under the equivalence rule. Clusters are frozen
// once the session's correlator has been drained.
type FindingCluster struct {
	// ID is a content hash over the members, so a cluster's identity does
	// not depend on arrival order.
	ID string `json:"id"`

	// SessionID of the owning session.
	SessionID types.ID `json:"session_id"`

	// Class shared by all members.
	Class taxonomy.Class `json:"class"`

	// Severity is the maximum ordinal severity among members.
	Severity types.Severity `json:"severity"`

	// Confidence is the consensus confidence, in [0,1] and never below
	// the strongest member confidence.
	Confidence float64 `json:"confidence"`

	// Location is the representative location: the union span of member
	// line ranges when they share a file, otherwise the contract scope.
	Location types.Location `json:"location"`

	// Members are the constituent canonical findings, deterministically
	// ordered.
	Members []CanonicalFinding `json:"members"`

	// Agents are the distinct contributing agent IDs, sorted.
	Agents []string `json:"agents"`

	// Layers are the distinct contributing capability layers, sorted.
	Layers []types.CapabilityLayer `json:"layers"`
}

// Size returns the number of member findings.
func (c FindingCluster) Size() int {
	return len(c.Members)
}
