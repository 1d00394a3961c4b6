package finding

import "github.com/fboiero/MIESC-sub012/internal/types"

// Consensus confidence constants.
//
// The cluster confidence is a noisy-OR over the strongest evidence per
// capability layer: starting from the single strongest member confidence,
// each additional distinct layer that agrees removes a crossLayerGain
// fraction (scaled by that layer's best confidence) of the remaining
// doubt, and each additional same-layer member removes a much smaller
// sameLayerGain fraction. Cross-layer corroboration therefore compounds
// multiplicatively while same-layer repetition barely moves the needle.
//
// Properties (covered by tests):
//   - result is in [0,1]
//   - result >= max member confidence
//   - result strictly increases with every additional agreeing layer
//     whose best confidence is positive
const (
	crossLayerGain = 0.5
	sameLayerGain  = 0.15
)

// ConsensusConfidence computes the aggregated confidence for a set of
// member findings. The computation is commutative over members, so the
// result is independent of arrival order.
func ConsensusConfidence(members []CanonicalFinding) float64 {
	if len(members) == 0 {
		return 0
	}

	bestByLayer := make(map[types.CapabilityLayer]float64)
	maxConf := 0.0
	for _, m := range members {
		conf := clamp01(m.Confidence)
		if conf > bestByLayer[m.Layer] {
			bestByLayer[m.Layer] = conf
		}
		if conf > maxConf {
			maxConf = conf
		}
	}

	// Start from the strongest single piece of evidence and shave the
	// remaining doubt once per additional agreeing layer.
	doubt := 1 - maxConf
	skippedStrongest := false
	for _, best := range bestByLayer {
		if !skippedStrongest && best == maxConf {
			skippedStrongest = true
			continue
		}
		doubt *= 1 - best*crossLayerGain
	}

	// Same-layer repetition: every member that is not its layer's best
	// contributes a small additional dampening.
	counted := make(map[types.CapabilityLayer]bool)
	for _, m := range members {
		conf := clamp01(m.Confidence)
		if !counted[m.Layer] && conf == bestByLayer[m.Layer] {
			counted[m.Layer] = true
			continue
		}
		doubt *= 1 - conf*sameLayerGain
	}

	return clamp01(1 - doubt)
}

// AggregateSeverity returns the maximum ordinal severity among members: a
// defect is at least as severe as its most severe reported form.
func AggregateSeverity(members []CanonicalFinding) types.Severity {
	severity := types.SeverityInfo
	for _, m := range members {
		severity = types.MaxSeverity(severity, m.Severity)
	}
	return severity
}
