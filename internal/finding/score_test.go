package finding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fboiero/MIESC-sub012/internal/taxonomy"
	"github.com/fboiero/MIESC-sub012/internal/types"
)

func member(agent string, layer types.CapabilityLayer, conf float64, sev types.Severity) CanonicalFinding {
	return CanonicalFinding{
		ID:         types.NewID(),
		SessionID:  types.ID("00000000-0000-0000-0000-000000000001"),
		AgentID:    agent,
		Layer:      layer,
		Class:      taxonomy.ClassReentrancy,
		Location:   types.NewLineLocation("Vault", "vault.sol", 10, 20),
		Severity:   sev,
		Confidence: conf,
	}
}

func TestConsensusConfidenceBounds(t *testing.T) {
	cases := [][]CanonicalFinding{
		{member("a", types.LayerStatic, 0.6, types.SeverityHigh)},
		{
			member("a", types.LayerStatic, 0.6, types.SeverityHigh),
			member("b", types.LayerSymbolic, 0.7, types.SeverityHigh),
		},
		{
			member("a", types.LayerStatic, 0.9, types.SeverityHigh),
			member("b", types.LayerSymbolic, 0.9, types.SeverityHigh),
			member("c", types.LayerFormal, 0.9, types.SeverityHigh),
			member("d", types.LayerDynamic, 0.9, types.SeverityHigh),
			member("e", types.LayerModel, 0.9, types.SeverityHigh),
		},
		{
			member("a", types.LayerStatic, 0.0, types.SeverityLow),
			member("b", types.LayerSymbolic, 0.0, types.SeverityLow),
		},
	}

	for _, members := range cases {
		conf := ConsensusConfidence(members)
		assert.GreaterOrEqual(t, conf, 0.0)
		assert.LessOrEqual(t, conf, 1.0)

		maxMember := 0.0
		for _, m := range members {
			if m.Confidence > maxMember {
				maxMember = m.Confidence
			}
		}
		assert.GreaterOrEqual(t, conf, maxMember,
			"consensus must never fall below the strongest member")
	}
}

func TestConsensusConfidenceCrossLayerBoost(t *testing.T) {
	// Scenario: two agents in different layers agree at 0.6 and 0.7.
	members := []CanonicalFinding{
		member("static-agent", types.LayerStatic, 0.6, types.SeverityHigh),
		member("symbolic-agent", types.LayerSymbolic, 0.7, types.SeverityHigh),
	}

	conf := ConsensusConfidence(members)
	assert.Greater(t, conf, 0.7, "cross-layer corroboration must raise confidence above the strongest member")
	assert.LessOrEqual(t, conf, 1.0)
}

func TestConsensusConfidenceLayerDiversityBeatsRepetition(t *testing.T) {
	sameLayer := []CanonicalFinding{
		member("a", types.LayerStatic, 0.7, types.SeverityHigh),
		member("b", types.LayerStatic, 0.6, types.SeverityHigh),
	}
	crossLayer := []CanonicalFinding{
		member("a", types.LayerStatic, 0.7, types.SeverityHigh),
		member("b", types.LayerSymbolic, 0.6, types.SeverityHigh),
	}

	assert.Greater(t, ConsensusConfidence(crossLayer), ConsensusConfidence(sameLayer),
		"two independent layers are stronger evidence than two agents in one layer")
	assert.Greater(t, ConsensusConfidence(sameLayer), 0.7,
		"same-layer repetition still adds a small boost")
}

func TestConsensusConfidenceMonotoneInLayers(t *testing.T) {
	members := []CanonicalFinding{member("a", types.LayerStatic, 0.5, types.SeverityHigh)}
	prev := ConsensusConfidence(members)

	for i, layer := range []types.CapabilityLayer{types.LayerSymbolic, types.LayerDynamic, types.LayerFormal, types.LayerModel} {
		members = append(members, member(string(rune('b'+i)), layer, 0.5, types.SeverityHigh))
		conf := ConsensusConfidence(members)
		assert.Greater(t, conf, prev, "adding layer %s must increase confidence", layer)
		assert.LessOrEqual(t, conf, 1.0)
		prev = conf
	}
}

func TestConsensusConfidenceOrderIndependent(t *testing.T) {
	a := member("a", types.LayerStatic, 0.4, types.SeverityLow)
	b := member("b", types.LayerSymbolic, 0.8, types.SeverityHigh)
	c := member("c", types.LayerStatic, 0.6, types.SeverityMedium)

	orders := [][]CanonicalFinding{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}

	want := ConsensusConfidence(orders[0])
	for _, members := range orders[1:] {
		assert.InDelta(t, want, ConsensusConfidence(members), 1e-12)
	}
}

func TestConsensusConfidenceEmpty(t *testing.T) {
	assert.Equal(t, 0.0, ConsensusConfidence(nil))
}

func TestAggregateSeverity(t *testing.T) {
	members := []CanonicalFinding{
		member("a", types.LayerStatic, 0.5, types.SeverityLow),
		member("b", types.LayerSymbolic, 0.5, types.SeverityCritical),
		member("c", types.LayerFormal, 0.5, types.SeverityMedium),
	}
	assert.Equal(t, types.SeverityCritical, AggregateSeverity(members))
	assert.Equal(t, types.SeverityInfo, AggregateSeverity(nil))
}
