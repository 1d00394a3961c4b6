package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fboiero/MIESC-sub012/internal/types"
)

func validDescriptors() []AgentDescriptor {
	return []AgentDescriptor{
		{ID: "slither", Name: "Slither", Layer: types.LayerStatic, ReliabilityWeight: 0.85, OutputTopic: "findings.slither"},
		{ID: "mythril", Name: "Mythril", Layer: types.LayerSymbolic, ReliabilityWeight: 0.8, OutputTopic: "findings.mythril"},
		{ID: "echidna", Name: "Echidna", Layer: types.LayerDynamic, ReliabilityWeight: 0.75, OutputTopic: "findings.echidna"},
	}
}

func TestNewRegistry(t *testing.T) {
	r, err := New(validDescriptors())
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())

	d, err := r.Get("mythril")
	require.NoError(t, err)
	assert.Equal(t, types.LayerSymbolic, d.Layer)

	_, err = r.Get("nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.REGISTRY_AGENT_NOT_FOUND, "")))
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	descs := validDescriptors()
	descs = append(descs, descs[0])

	_, err := New(descs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.REGISTRY_DUPLICATE_AGENT, "")))
}

func TestNewRegistryRejectsSharedOutputTopic(t *testing.T) {
	descs := validDescriptors()
	descs = append(descs, AgentDescriptor{
		ID:                "slither-fork",
		Name:              "Slither Fork",
		Layer:             types.LayerStatic,
		ReliabilityWeight: 0.5,
		OutputTopic:       descs[0].OutputTopic,
	})

	_, err := New(descs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.REGISTRY_DUPLICATE_AGENT, "")))
	assert.Contains(t, err.Error(), "output topic")
}

func TestNewRegistryValidatesDescriptors(t *testing.T) {
	tests := []struct {
		name string
		desc AgentDescriptor
	}{
		{"empty id", AgentDescriptor{Layer: types.LayerStatic, ReliabilityWeight: 0.5, OutputTopic: "t"}},
		{"invalid layer", AgentDescriptor{ID: "x", Layer: "quantum", ReliabilityWeight: 0.5, OutputTopic: "t"}},
		{"weight above one", AgentDescriptor{ID: "x", Layer: types.LayerStatic, ReliabilityWeight: 1.2, OutputTopic: "t"}},
		{"negative weight", AgentDescriptor{ID: "x", Layer: types.LayerStatic, ReliabilityWeight: -0.1, OutputTopic: "t"}},
		{"missing output topic", AgentDescriptor{ID: "x", Layer: types.LayerStatic, ReliabilityWeight: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]AgentDescriptor{tt.desc})
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.NewError(types.REGISTRY_INVALID_AGENT, "")))
		})
	}
}

func TestSelectByLayers(t *testing.T) {
	r, err := New(validDescriptors())
	require.NoError(t, err)

	selected, err := r.SelectByLayers([]types.CapabilityLayer{types.LayerStatic, types.LayerSymbolic})
	require.NoError(t, err)
	require.Len(t, selected, 2)
	// Deterministic ID ordering.
	assert.Equal(t, "mythril", selected[0].ID)
	assert.Equal(t, "slither", selected[1].ID)

	_, err = r.SelectByLayers([]types.CapabilityLayer{types.LayerFormal})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.REGISTRY_NO_AGENTS_LAYERS, "")))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.yaml")

	content := `
agents:
  - id: slither
    name: Slither
    layer: static
    reliability_weight: 0.85
    output_topic: findings.slither
  - id: halmos
    name: Halmos
    layer: formal
    reliability_weight: 0.9
    output_topic: findings.halmos
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	d, err := r.Get("halmos")
	require.NoError(t, err)
	assert.Equal(t, types.LayerFormal, d.Layer)
	assert.InDelta(t, 0.9, d.ReliabilityWeight, 1e-9)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile("/nonexistent/agents.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.REGISTRY_LOAD_FAILED, "")))

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agents: [not: {valid"), 0o644))

	_, err = LoadFile(path)
	require.Error(t, err)
}
