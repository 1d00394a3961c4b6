package finding

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fboiero/MIESC-sub012/internal/registry"
	"github.com/fboiero/MIESC-sub012/internal/taxonomy"
	"github.com/fboiero/MIESC-sub012/internal/types"
)

// labelKeys are the payload keys probed, in order, for the tool's
// vulnerability label. Adapters for different tools emit different keys.
var labelKeys = []string{"class", "check", "detector", "swc_id", "title", "rule"}

// descriptionKeys are the payload keys probed for a human-readable summary.
var descriptionKeys = []string{"description", "message", "summary"}

// unclassifiedDiscount is the multiplicative confidence penalty applied to
// findings whose raw label could not be resolved onto the taxonomy.
const unclassifiedDiscount = 0.5

// fallbackScope is the contract-level scope used when a raw finding
// carries no location information at all.
const fallbackScope = "artifact"

// Normalizer maps raw, tool-specific findings onto the canonical
// representation. One normalizer serves one session; its rejection counter
// feeds the session report.
//
// Thread-safety: Normalize may be called concurrently from the per-agent
// intake loops.
type Normalizer struct {
	rejected atomic.Int64
}

// NewNormalizer creates a normalizer with a zeroed rejection counter.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Rejected returns how many raw findings were rejected as malformed.
func (n *Normalizer) Rejected() int64 {
	return n.rejected.Load()
}

// Normalize converts a raw finding into its canonical form using the
// publishing agent's descriptor.
//
// Rules:
//   - the raw label resolves through the layer-aware taxonomy lookup;
//     unmappable labels land in the unclassified bucket with a discounted
//     confidence, never dropped
//   - location becomes (file, line range) when precise, contract scope
//     otherwise
//   - raw severity maps onto the ordinal scale
//   - a tool-supplied confidence is clamped to [0,1]; when the tool
//     supplies none, the agent's reliability weight discounts the unit
//     prior instead
//
// Malformed raw findings (wrong agent, missing session, empty payload) are
// rejected with a NORMALIZE_MALFORMED error and counted.
func (n *Normalizer) Normalize(raw RawFinding, desc registry.AgentDescriptor) (CanonicalFinding, error) {
	if err := n.validate(raw, desc); err != nil {
		n.rejected.Add(1)
		return CanonicalFinding{}, err
	}

	label := probeString(raw.Payload, labelKeys)
	class, mapped := taxonomy.Resolve(desc.Layer, label)

	confidence := desc.ReliabilityWeight
	if raw.RawConfidence != nil {
		confidence = clamp01(*raw.RawConfidence)
	}
	if !mapped {
		confidence *= unclassifiedDiscount
	}

	return CanonicalFinding{
		ID:          types.NewID(),
		RawID:       raw.ID,
		SessionID:   raw.SessionID,
		AgentID:     raw.AgentID,
		Layer:       desc.Layer,
		Class:       class,
		Unmapped:    !mapped,
		Location:    normalizeLocation(raw.Location),
		Severity:    types.ParseSeverity(raw.RawSeverity),
		Confidence:  confidence,
		Description: probeString(raw.Payload, descriptionKeys),
		Timestamp:   raw.Timestamp,
	}, nil
}

// validate rejects raw findings that cannot be attributed to a session and
// agent, or that carry no payload to normalize.
func (n *Normalizer) validate(raw RawFinding, desc registry.AgentDescriptor) error {
	if raw.SessionID.IsZero() {
		return types.NewError(types.NORMALIZE_MALFORMED, "raw finding has no session id")
	}
	if raw.AgentID == "" {
		return types.NewError(types.NORMALIZE_MALFORMED, "raw finding has no agent id")
	}
	if raw.AgentID != desc.ID {
		return types.NewError(types.NORMALIZE_MALFORMED,
			fmt.Sprintf("raw finding from %q arrived on topic of agent %q", raw.AgentID, desc.ID))
	}
	if len(raw.Payload) == 0 {
		return types.NewError(types.NORMALIZE_MALFORMED, "raw finding has empty payload")
	}
	return nil
}

// normalizeLocation maps the raw position onto a normalized location,
// falling back to contract scope when line precision is unavailable.
func normalizeLocation(raw *RawLocation) types.Location {
	if raw == nil {
		return types.NewContractLocation(fallbackScope)
	}

	contract := strings.TrimSpace(raw.Contract)
	if contract == "" {
		contract = fallbackScope
	}

	if raw.File != "" && raw.StartLine > 0 {
		end := raw.EndLine
		if end < raw.StartLine {
			end = raw.StartLine
		}
		return types.NewLineLocation(contract, raw.File, raw.StartLine, end)
	}

	return types.NewContractLocation(contract)
}

// probeString returns the first non-empty string value among the given
// payload keys.
func probeString(payload map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := payload[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
