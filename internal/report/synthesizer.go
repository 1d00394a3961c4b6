package report

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fboiero/MIESC-sub012/internal/finding"
	"github.com/fboiero/MIESC-sub012/internal/session"
	"github.com/fboiero/MIESC-sub012/internal/taxonomy"
	"github.com/fboiero/MIESC-sub012/internal/types"
)

// Synthesizer builds reports from terminal sessions. Synthesis runs
// exactly once per session; repeated calls return the cached report so
// replays observe the identical value, including GeneratedAt.
type Synthesizer struct {
	standards taxonomy.StandardsMapper

	mu    sync.Mutex
	cache map[types.ID]Report
}

// NewSynthesizer creates a synthesizer using the given standards mapper.
// A nil mapper falls back to the built-in table.
func NewSynthesizer(standards taxonomy.StandardsMapper) *Synthesizer {
	if standards == nil {
		standards = taxonomy.NewStaticMapper()
	}
	return &Synthesizer{
		standards: standards,
		cache:     make(map[types.ID]Report),
	}
}

// Synthesize produces the report for a terminal session.
//
// Calling before the session's terminal condition is an error; the
// partition is not frozen yet and any report would be provisional.
func (s *Synthesizer) Synthesize(sess *session.Session) (Report, error) {
	if !sess.IsTerminal() {
		return Report{}, types.NewError(types.REPORT_NOT_TERMINAL,
			fmt.Sprintf("session %s has not reached its terminal condition", sess.ID()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[sess.ID()]; ok {
		return cached, nil
	}

	clusters, err := sess.Drain()
	if err != nil {
		return Report{}, err
	}

	report := s.build(sess, clusters)
	s.cache[sess.ID()] = report
	return report, nil
}

func (s *Synthesizer) build(sess *session.Session, clusters []finding.FindingCluster) Report {
	summaries := make([]ClusterSummary, 0, len(clusters))
	findingsByAgent := make(map[string]int)
	totalFindings := 0
	bySeverity := make(map[types.Severity]int)
	byClass := make(map[taxonomy.Class]int)

	for _, c := range clusters {
		summaries = append(summaries, ClusterSummary{
			ID:         c.ID,
			Class:      c.Class,
			Standards:  s.standards.Lookup(c.Class),
			Severity:   c.Severity,
			Confidence: c.Confidence,
			Location:   c.Location,
			Agents:     c.Agents,
			Layers:     c.Layers,
			Members:    c.Members,
		})

		totalFindings += len(c.Members)
		bySeverity[c.Severity]++
		byClass[c.Class]++
		for _, m := range c.Members {
			findingsByAgent[m.AgentID]++
		}
	}

	sortClusterSummaries(summaries)

	statuses := sess.Statuses()
	incomplete := false
	agents := make([]AgentParticipation, 0, len(statuses))
	for _, desc := range sess.Selected() {
		rec := statuses[desc.ID]
		if rec.Status != session.StatusCompleted {
			incomplete = true
		}
		agents = append(agents, AgentParticipation{
			AgentID:  desc.ID,
			Layer:    desc.Layer,
			Status:   rec.Status,
			Reason:   rec.Reason,
			Findings: findingsByAgent[desc.ID],
		})
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].AgentID < agents[j].AgentID })

	return Report{
		SessionID:           sess.ID(),
		ArtifactFingerprint: sess.ArtifactFingerprint(),
		RequestedLayers:     sess.RequestedLayers(),
		GeneratedAt:         time.Now(),
		StartedAt:           sess.StartedAt(),
		Incomplete:          incomplete,
		DeadlineForced:      sess.DeadlineForced(),
		Clusters:            summaries,
		Agents:              agents,
		Summary: Summary{
			TotalClusters:       len(summaries),
			TotalFindings:       totalFindings,
			BySeverity:          bySeverity,
			ByClass:             byClass,
			RejectedRawFindings: sess.RejectedRawFindings(),
			DiscardedFindings:   sess.DiscardedFindings(),
		},
	}
}

// sortClusterSummaries orders clusters for presentation: severity desc,
// confidence desc, layer count desc, class asc. Location and ID break the
// remaining ties so the order is total.
func sortClusterSummaries(summaries []ClusterSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.Severity.Ord() != b.Severity.Ord() {
			return a.Severity.Ord() > b.Severity.Ord()
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if len(a.Layers) != len(b.Layers) {
			return len(a.Layers) > len(b.Layers)
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Location.String() != b.Location.String() {
			return a.Location.String() < b.Location.String()
		}
		return a.ID < b.ID
	})
}
