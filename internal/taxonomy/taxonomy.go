// Package taxonomy defines the closed vulnerability-class enumeration used
// by the normalization pipeline and the static standards mapping attached
// to report clusters.
//
// The class set is consumed as a closed enumeration: raw tool labels are
// resolved onto it through layer-aware alias tables, and anything that
// cannot be resolved lands in ClassUnclassified rather than being dropped.
package taxonomy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fboiero/MIESC-sub012/internal/types"
)

// Class is one entry of the closed vulnerability-class taxonomy.
type Class string

const (
	ClassReentrancy            Class = "reentrancy"
	ClassIntegerOverflow       Class = "integer-overflow"
	ClassAccessControl         Class = "access-control"
	ClassUncheckedCall         Class = "unchecked-call"
	ClassDenialOfService       Class = "denial-of-service"
	ClassFrontRunning          Class = "front-running"
	ClassTimestampDependence   Class = "timestamp-dependence"
	ClassTxOrigin              Class = "tx-origin"
	ClassDelegatecallInjection Class = "delegatecall-injection"
	ClassUninitializedStorage  Class = "uninitialized-storage"
	ClassUnclassified          Class = "unclassified"
)

// AllClasses lists every taxonomy class, unclassified last.
func AllClasses() []Class {
	return []Class{
		ClassReentrancy,
		ClassIntegerOverflow,
		ClassAccessControl,
		ClassUncheckedCall,
		ClassDenialOfService,
		ClassFrontRunning,
		ClassTimestampDependence,
		ClassTxOrigin,
		ClassDelegatecallInjection,
		ClassUninitializedStorage,
		ClassUnclassified,
	}
}

// String returns the string representation of the Class.
func (c Class) String() string {
	return string(c)
}

// IsValid checks if the Class is a member of the closed taxonomy.
func (c Class) IsValid() bool {
	switch c {
	case ClassReentrancy, ClassIntegerOverflow, ClassAccessControl,
		ClassUncheckedCall, ClassDenialOfService, ClassFrontRunning,
		ClassTimestampDependence, ClassTxOrigin, ClassDelegatecallInjection,
		ClassUninitializedStorage, ClassUnclassified:
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler.
func (c Class) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(c))
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Class) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	class := Class(str)
	if !class.IsValid() {
		return fmt.Errorf("invalid vulnerability class: %s", str)
	}

	*c = class
	return nil
}

// canonicalAliases maps normalized labels that are shared across layers.
// Keys are canonicalized with normalizeLabel.
var canonicalAliases = map[string]Class{
	"reentrancy":             ClassReentrancy,
	"integer-overflow":       ClassIntegerOverflow,
	"overflow":               ClassIntegerOverflow,
	"underflow":              ClassIntegerOverflow,
	"access-control":         ClassAccessControl,
	"unchecked-call":         ClassUncheckedCall,
	"denial-of-service":      ClassDenialOfService,
	"dos":                    ClassDenialOfService,
	"front-running":          ClassFrontRunning,
	"frontrunning":           ClassFrontRunning,
	"timestamp-dependence":   ClassTimestampDependence,
	"block-timestamp":        ClassTimestampDependence,
	"tx-origin":              ClassTxOrigin,
	"delegatecall-injection": ClassDelegatecallInjection,
	"delegatecall":           ClassDelegatecallInjection,
	"uninitialized-storage":  ClassUninitializedStorage,
	"unclassified":           ClassUnclassified,

	// SWC registry identifiers reported verbatim by several tools.
	"swc-101": ClassIntegerOverflow,
	"swc-104": ClassUncheckedCall,
	"swc-105": ClassAccessControl,
	"swc-106": ClassAccessControl,
	"swc-107": ClassReentrancy,
	"swc-109": ClassUninitializedStorage,
	"swc-112": ClassDelegatecallInjection,
	"swc-113": ClassDenialOfService,
	"swc-114": ClassFrontRunning,
	"swc-115": ClassTxOrigin,
	"swc-116": ClassTimestampDependence,
}

// layerAliases maps per-layer tool vocabularies onto the taxonomy. The same
// taxonomy key is typically reachable through different raw labels on
// different layers.
var layerAliases = map[types.CapabilityLayer]map[string]Class{
	types.LayerStatic: {
		"reentrancy-eth":          ClassReentrancy,
		"reentrancy-no-eth":       ClassReentrancy,
		"reentrancy-benign":       ClassReentrancy,
		"arbitrary-send":          ClassAccessControl,
		"suicidal":                ClassAccessControl,
		"unprotected-upgrade":     ClassAccessControl,
		"unchecked-lowlevel":      ClassUncheckedCall,
		"unchecked-send":          ClassUncheckedCall,
		"unchecked-transfer":      ClassUncheckedCall,
		"calls-loop":              ClassDenialOfService,
		"locked-ether":            ClassDenialOfService,
		"timestamp":               ClassTimestampDependence,
		"controlled-delegatecall": ClassDelegatecallInjection,
		"uninitialized-state":     ClassUninitializedStorage,
		"uninitialized-storage":   ClassUninitializedStorage,
	},
	types.LayerDynamic: {
		"assertion-failure":   ClassIntegerOverflow,
		"arithmetic-failure":  ClassIntegerOverflow,
		"reentrancy-detected": ClassReentrancy,
		"call-failure":        ClassUncheckedCall,
		"gas-exhaustion":      ClassDenialOfService,
	},
	types.LayerSymbolic: {
		"external-call-to-user-supplied-address": ClassReentrancy,
		"state-change-after-external-call":       ClassReentrancy,
		"integer-arithmetic-bugs":                ClassIntegerOverflow,
		"unprotected-selfdestruct":               ClassAccessControl,
		"unprotected-ether-withdrawal":           ClassAccessControl,
		"unchecked-call-return-value":            ClassUncheckedCall,
		"dependence-on-predictable-variables":    ClassFrontRunning,
		"dependence-on-tx-origin":                ClassTxOrigin,
		"delegatecall-to-user-supplied-address":  ClassDelegatecallInjection,
	},
	types.LayerFormal: {
		"invariant-violation":     ClassAccessControl,
		"overflow-possible":       ClassIntegerOverflow,
		"underflow-possible":      ClassIntegerOverflow,
		"reachability-assert":     ClassIntegerOverflow,
		"reentrancy-property":     ClassReentrancy,
		"nondeterministic-order":  ClassFrontRunning,
		"timestamp-manipulation":  ClassTimestampDependence,
		"storage-not-initialized": ClassUninitializedStorage,
	},
	types.LayerModel: {
		"reentrant-withdraw-pattern": ClassReentrancy,
		"missing-access-modifier":    ClassAccessControl,
		"unsafe-arithmetic":          ClassIntegerOverflow,
		"ignored-return-value":       ClassUncheckedCall,
		"mev-exposure":               ClassFrontRunning,
		"block-values-as-time":       ClassTimestampDependence,
	},
}

// Resolve maps a raw tool label onto the taxonomy using the layer's alias
// table first and the shared alias table second. The second return value is
// false when the label cannot be mapped; callers bucket such findings under
// ClassUnclassified.
func Resolve(layer types.CapabilityLayer, rawLabel string) (Class, bool) {
	label := normalizeLabel(rawLabel)
	if label == "" {
		return ClassUnclassified, false
	}

	if aliases, ok := layerAliases[layer]; ok {
		if class, ok := aliases[label]; ok {
			return class, true
		}
	}

	if class, ok := canonicalAliases[label]; ok {
		return class, true
	}

	return ClassUnclassified, false
}

// normalizeLabel canonicalizes a raw label: lowercase, trimmed, with
// spaces and underscores collapsed to dashes.
func normalizeLabel(raw string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.ReplaceAll(label, "_", "-")
	label = strings.Join(strings.Fields(label), "-")
	return label
}
