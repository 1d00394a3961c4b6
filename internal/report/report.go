// Package report synthesizes the final analysis report from a terminal
// session's finding partition.
package report

import (
	"time"

	"github.com/fboiero/MIESC-sub012/internal/finding"
	"github.com/fboiero/MIESC-sub012/internal/session"
	"github.com/fboiero/MIESC-sub012/internal/taxonomy"
	"github.com/fboiero/MIESC-sub012/internal/types"
)

// ClusterSummary is one believed-distinct vulnerability as it appears in
// the report: the cluster plus its external standards identifiers.
type ClusterSummary struct {
	// ID is the cluster's content-hash identity.
	ID string `json:"id"`

	// Class from the closed taxonomy.
	Class taxonomy.Class `json:"class"`

	// Standards carries the SWC/CWE/OWASP identifiers for the class.
	Standards taxonomy.StandardsMapping `json:"standards,omitempty"`

	// Severity is the maximum among the cluster's members.
	Severity types.Severity `json:"severity"`

	// Confidence is the cross-technique consensus confidence.
	Confidence float64 `json:"confidence"`

	// Location is the representative location.
	Location types.Location `json:"location"`

	// Agents that contributed, sorted.
	Agents []string `json:"agents"`

	// Layers that contributed, sorted.
	Layers []types.CapabilityLayer `json:"layers"`

	// Members are the underlying canonical findings.
	Members []finding.CanonicalFinding `json:"members"`
}

// AgentParticipation records one agent's contribution to the session.
type AgentParticipation struct {
	AgentID  string                `json:"agent_id"`
	Layer    types.CapabilityLayer `json:"layer"`
	Status   session.AgentStatus   `json:"status"`
	Reason   string                `json:"reason,omitempty"`
	Findings int                   `json:"findings"`
}

// Summary holds the aggregate counts of the report.
type Summary struct {
	// TotalClusters is the number of believed-distinct vulnerabilities.
	TotalClusters int `json:"total_clusters"`

	// TotalFindings is the number of canonical findings across all clusters.
	TotalFindings int `json:"total_findings"`

	// BySeverity counts clusters per severity level.
	BySeverity map[types.Severity]int `json:"by_severity"`

	// ByClass counts clusters per vulnerability class.
	ByClass map[taxonomy.Class]int `json:"by_class"`

	// RejectedRawFindings counts raw findings dropped at normalization.
	RejectedRawFindings int64 `json:"rejected_raw_findings"`

	// DiscardedFindings counts findings not admitted because their agent
	// was already canceled or failed, or because they arrived after the
	// partition was frozen.
	DiscardedFindings int64 `json:"discarded_findings"`
}

// Report is the final product of one analysis session.
type Report struct {
	// SessionID of the analyzed session.
	SessionID types.ID `json:"session_id"`

	// ArtifactFingerprint of the analyzed artifact.
	ArtifactFingerprint string `json:"artifact_fingerprint"`

	// RequestedLayers the session was opened with.
	RequestedLayers []types.CapabilityLayer `json:"requested_layers"`

	// GeneratedAt records when the report was first synthesized.
	GeneratedAt time.Time `json:"generated_at"`

	// StartedAt is the session start time.
	StartedAt time.Time `json:"started_at"`

	// Incomplete is true when at least one agent did not complete, so the
	// report may be missing that technique's perspective.
	Incomplete bool `json:"incomplete"`

	// DeadlineForced is true when the session was terminated by its
	// deadline rather than by all agents finishing.
	DeadlineForced bool `json:"deadline_forced"`

	// Clusters are the believed-distinct vulnerabilities, ordered by
	// severity desc, confidence desc, layer count desc, class asc.
	Clusters []ClusterSummary `json:"clusters"`

	// Agents is the per-agent participation record, sorted by agent ID.
	Agents []AgentParticipation `json:"agents"`

	// Summary holds the aggregate counts.
	Summary Summary `json:"summary"`
}
