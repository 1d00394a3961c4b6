package types

import (
	"encoding/json"
	"fmt"
)

// CapabilityLayer represents the analysis technique category an agent
// belongs to.
type CapabilityLayer string

const (
	LayerStatic   CapabilityLayer = "static"
	LayerDynamic  CapabilityLayer = "dynamic"
	LayerSymbolic CapabilityLayer = "symbolic"
	LayerFormal   CapabilityLayer = "formal"
	LayerModel    CapabilityLayer = "model"
)

// AllLayers lists every valid capability layer.
func AllLayers() []CapabilityLayer {
	return []CapabilityLayer{
		LayerStatic,
		LayerDynamic,
		LayerSymbolic,
		LayerFormal,
		LayerModel,
	}
}

// String returns the string representation of CapabilityLayer.
func (l CapabilityLayer) String() string {
	return string(l)
}

// IsValid checks if the CapabilityLayer is a valid value.
func (l CapabilityLayer) IsValid() bool {
	switch l {
	case LayerStatic, LayerDynamic, LayerSymbolic, LayerFormal, LayerModel:
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler.
func (l CapabilityLayer) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(l))
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *CapabilityLayer) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	layer := CapabilityLayer(str)
	if !layer.IsValid() {
		return fmt.Errorf("invalid capability layer: %s", str)
	}

	*l = layer
	return nil
}
