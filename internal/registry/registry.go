// Package registry holds the static descriptors of every registered
// analysis technique. The registry is populated once at startup and
// read-only thereafter, so lookups need no locking.
package registry

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/fboiero/MIESC-sub012/internal/events"
	"github.com/fboiero/MIESC-sub012/internal/types"
)

// Registry is a read-only collection of agent descriptors.
type Registry struct {
	byID  map[string]AgentDescriptor
	order []string
}

// New builds a registry from descriptors, validating each and rejecting
// duplicate IDs and duplicate output topics. The input order is preserved
// for List.
func New(descriptors []AgentDescriptor) (*Registry, error) {
	r := &Registry{
		byID: make(map[string]AgentDescriptor, len(descriptors)),
	}

	// Output topics must be exclusive to one agent: a shared topic would
	// cross-deliver findings into another agent's intake.
	topicOwner := make(map[events.Topic]string, len(descriptors))

	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.byID[d.ID]; exists {
			return nil, types.NewError(types.REGISTRY_DUPLICATE_AGENT,
				fmt.Sprintf("duplicate agent id %q", d.ID))
		}
		if owner, exists := topicOwner[d.OutputTopic]; exists {
			return nil, types.NewError(types.REGISTRY_DUPLICATE_AGENT,
				fmt.Sprintf("agent %s: output topic %q already used by agent %q", d.ID, d.OutputTopic, owner))
		}
		topicOwner[d.OutputTopic] = d.ID
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}

	return r, nil
}

// registryFile is the on-disk YAML shape of a registry.
type registryFile struct {
	Agents []AgentDescriptor `yaml:"agents"`
}

// LoadFile builds a registry from a YAML file listing agent descriptors.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.REGISTRY_LOAD_FAILED,
			fmt.Sprintf("failed to read registry file %s", path), err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, types.WrapError(types.REGISTRY_LOAD_FAILED,
			fmt.Sprintf("failed to parse registry file %s", path), err)
	}

	return New(file.Agents)
}

// List returns all descriptors in registration order.
func (r *Registry) List() []AgentDescriptor {
	out := make([]AgentDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Get returns the descriptor for one agent.
func (r *Registry) Get(id string) (AgentDescriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return AgentDescriptor{}, types.NewError(types.REGISTRY_AGENT_NOT_FOUND,
			fmt.Sprintf("agent %q not registered", id))
	}
	return d, nil
}

// SelectByLayers returns the descriptors whose capability layer is in the
// requested set, sorted by agent ID for deterministic selection. An empty
// result is an error: a session with no agents can never produce findings.
func (r *Registry) SelectByLayers(layers []types.CapabilityLayer) ([]AgentDescriptor, error) {
	requested := make(map[types.CapabilityLayer]bool, len(layers))
	for _, l := range layers {
		requested[l] = true
	}

	var selected []AgentDescriptor
	for _, id := range r.order {
		d := r.byID[id]
		if requested[d.Layer] {
			selected = append(selected, d)
		}
	}

	if len(selected) == 0 {
		return nil, types.NewError(types.REGISTRY_NO_AGENTS_LAYERS,
			fmt.Sprintf("no registered agents for layers %v", layers))
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].ID < selected[j].ID })
	return selected, nil
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	return len(r.byID)
}
