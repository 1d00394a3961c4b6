package registry

import (
	"fmt"

	"github.com/fboiero/MIESC-sub012/internal/events"
	"github.com/fboiero/MIESC-sub012/internal/types"
)

// AgentDescriptor is the static metadata for one registered analysis
// technique. Descriptors are created at registry load and immutable
// thereafter.
type AgentDescriptor struct {
	// ID uniquely identifies the agent across the registry.
	ID string `json:"id" yaml:"id"`

	// Name is a human-readable label for reports and logs.
	Name string `json:"name" yaml:"name"`

	// Layer is the capability layer the agent's technique belongs to.
	Layer types.CapabilityLayer `json:"layer" yaml:"layer"`

	// ReliabilityWeight is the prior trust in the agent's output, in [0,1].
	// It discounts the confidence of findings that carry no tool-supplied
	// confidence of their own.
	ReliabilityWeight float64 `json:"reliability_weight" yaml:"reliability_weight"`

	// InputTopic is the bus topic the agent consumes session events from.
	InputTopic events.Topic `json:"input_topic" yaml:"input_topic"`

	// OutputTopic is the bus topic the agent publishes raw findings to.
	OutputTopic events.Topic `json:"output_topic" yaml:"output_topic"`
}

// Validate checks descriptor fields at registry load time.
func (d AgentDescriptor) Validate() error {
	if d.ID == "" {
		return types.NewError(types.REGISTRY_INVALID_AGENT, "agent id cannot be empty")
	}
	if !d.Layer.IsValid() {
		return types.NewError(types.REGISTRY_INVALID_AGENT,
			fmt.Sprintf("agent %s: invalid capability layer %q", d.ID, d.Layer))
	}
	if d.ReliabilityWeight < 0 || d.ReliabilityWeight > 1 {
		return types.NewError(types.REGISTRY_INVALID_AGENT,
			fmt.Sprintf("agent %s: reliability weight %v outside [0,1]", d.ID, d.ReliabilityWeight))
	}
	if d.OutputTopic == "" {
		return types.NewError(types.REGISTRY_INVALID_AGENT,
			fmt.Sprintf("agent %s: output topic cannot be empty", d.ID))
	}
	return nil
}
