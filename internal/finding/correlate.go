package finding

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/fboiero/MIESC-sub012/internal/types"
)

// defaultAdjacencySlack is the number of lines two ranges may be apart and
// still be considered the same code region.
const defaultAdjacencySlack = 2

// Correlator incrementally clusters one session's canonical findings into
// believed-distinct vulnerability instances.
//
// Equivalence rule: two findings merge when they share a normalized
// vulnerability class and their normalized locations overlap or are
// adjacent (same contract scope when no line range is available). The rule
// is symmetric, and merging is implemented as an incremental union-find,
// so the final partition does not depend on arrival order.
//
// Thread-safety: all methods use a mutex; ingest happens concurrently from
// the per-agent intake loops.
type Correlator struct {
	mu        sync.Mutex
	sessionID types.ID
	slack     int

	findings []CanonicalFinding
	parent   []int
	rank     []int

	frozen   bool
	clusters []FindingCluster
}

// CorrelatorOption is a functional option for configuring the Correlator.
type CorrelatorOption func(*Correlator)

// WithAdjacencySlack overrides the line adjacency slack of the equivalence
// rule.
func WithAdjacencySlack(slack int) CorrelatorOption {
	return func(c *Correlator) {
		if slack >= 0 {
			c.slack = slack
		}
	}
}

// NewCorrelator creates a correlator for one session.
func NewCorrelator(sessionID types.ID, opts ...CorrelatorOption) *Correlator {
	c := &Correlator{
		sessionID: sessionID,
		slack:     defaultAdjacencySlack,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Ingest admits one canonical finding into the in-progress clustering.
//
// A finding from a different session indicates a programming defect
// upstream and is rejected with CORRELATE_SESSION_MISMATCH; ingesting
// after Drain is rejected with CORRELATE_FROZEN.
func (c *Correlator) Ingest(f CanonicalFinding) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f.SessionID != c.sessionID {
		return types.NewError(types.CORRELATE_SESSION_MISMATCH,
			fmt.Sprintf("finding for session %s ingested into correlator for session %s",
				f.SessionID, c.sessionID))
	}
	if c.frozen {
		return types.NewError(types.CORRELATE_FROZEN,
			"correlator already drained; late findings are not re-clustered")
	}

	idx := len(c.findings)
	c.findings = append(c.findings, f)
	c.parent = append(c.parent, idx)
	c.rank = append(c.rank, 0)

	for other := 0; other < idx; other++ {
		if c.equivalent(c.findings[other], f) {
			c.union(other, idx)
		}
	}

	return nil
}

// Drain freezes the clustering and returns the final partition. The first
// call freezes; repeated calls return the same clusters. Every ingested
// finding appears in exactly one cluster.
func (c *Correlator) Drain() []FindingCluster {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return c.clusters
	}
	c.frozen = true

	groups := make(map[int][]CanonicalFinding)
	for i := range c.findings {
		root := c.find(i)
		groups[root] = append(groups[root], c.findings[i])
	}

	clusters := make([]FindingCluster, 0, len(groups))
	for _, members := range groups {
		clusters = append(clusters, buildCluster(c.sessionID, members))
	}

	// Deterministic drain order: content-hash IDs are arrival-independent.
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].ID < clusters[j].ID })

	c.clusters = clusters
	return c.clusters
}

// Size returns the number of ingested findings.
func (c *Correlator) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.findings)
}

// equivalent implements the clustering equivalence rule.
func (c *Correlator) equivalent(a, b CanonicalFinding) bool {
	return a.Class == b.Class && a.Location.Touches(b.Location, c.slack)
}

// find returns the union-find root of i with path compression.
func (c *Correlator) find(i int) int {
	for c.parent[i] != i {
		c.parent[i] = c.parent[c.parent[i]]
		i = c.parent[i]
	}
	return i
}

// union merges the components of a and b by rank.
func (c *Correlator) union(a, b int) {
	ra, rb := c.find(a), c.find(b)
	if ra == rb {
		return
	}
	if c.rank[ra] < c.rank[rb] {
		ra, rb = rb, ra
	}
	c.parent[rb] = ra
	if c.rank[ra] == c.rank[rb] {
		c.rank[ra]++
	}
}

// buildCluster assembles the frozen cluster value for one component.
func buildCluster(sessionID types.ID, members []CanonicalFinding) FindingCluster {
	sortMembers(members)

	agents := make([]string, 0, len(members))
	layers := make([]types.CapabilityLayer, 0, len(members))
	seenAgents := make(map[string]bool)
	seenLayers := make(map[types.CapabilityLayer]bool)
	for _, m := range members {
		if !seenAgents[m.AgentID] {
			seenAgents[m.AgentID] = true
			agents = append(agents, m.AgentID)
		}
		if !seenLayers[m.Layer] {
			seenLayers[m.Layer] = true
			layers = append(layers, m.Layer)
		}
	}
	sort.Strings(agents)
	sort.Slice(layers, func(i, j int) bool { return layers[i] < layers[j] })

	return FindingCluster{
		ID:         clusterHash(members),
		SessionID:  sessionID,
		Class:      members[0].Class,
		Severity:   AggregateSeverity(members),
		Confidence: ConsensusConfidence(members),
		Location:   representativeLocation(members),
		Members:    members,
		Agents:     agents,
		Layers:     layers,
	}
}

// sortMembers orders members by content so cluster member order is
// independent of arrival order. Two members that compare equal on every
// key are interchangeable.
func sortMembers(members []CanonicalFinding) {
	sort.Slice(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if a.AgentID != b.AgentID {
			return a.AgentID < b.AgentID
		}
		if la, lb := a.Location.String(), b.Location.String(); la != lb {
			return la < lb
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Description < b.Description
	})
}

// clusterHash computes a content hash over the sorted members, following
// the same normalized-attribute hashing used for duplicate detection.
func clusterHash(members []CanonicalFinding) string {
	h := sha256.New()
	for _, m := range members {
		h.Write([]byte(m.AgentID))
		h.Write([]byte{0})
		h.Write([]byte(m.Class))
		h.Write([]byte{0})
		h.Write([]byte(m.Location.String()))
		h.Write([]byte{0})
		fmt.Fprintf(h, "%.6f", m.Confidence)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// representativeLocation merges member locations: the union span when all
// line-precise members share one file, contract scope otherwise.
func representativeLocation(members []CanonicalFinding) types.Location {
	var merged types.Location
	havePrecise := false
	mixed := false

	for _, m := range members {
		loc := m.Location
		if !loc.HasLines() {
			continue
		}
		if !havePrecise {
			merged = loc
			havePrecise = true
			continue
		}
		if loc.File != merged.File {
			mixed = true
			break
		}
		if loc.StartLine < merged.StartLine {
			merged.StartLine = loc.StartLine
		}
		if loc.EndLine > merged.EndLine {
			merged.EndLine = loc.EndLine
		}
	}

	if havePrecise && !mixed {
		return merged
	}
	return types.NewContractLocation(members[0].Location.Contract)
}
