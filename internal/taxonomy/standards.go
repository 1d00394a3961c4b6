package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StandardsMapping associates a vulnerability class with external catalog
// identifiers. The mapping itself is static reference data; this core only
// looks it up.
type StandardsMapping struct {
	SWC   string `json:"swc,omitempty" yaml:"swc,omitempty"`
	CWE   string `json:"cwe,omitempty" yaml:"cwe,omitempty"`
	OWASP string `json:"owasp,omitempty" yaml:"owasp,omitempty"`
}

// StandardsMapper resolves a class to its standards mapping.
type StandardsMapper interface {
	Lookup(class Class) StandardsMapping
}

// StaticMapper implements StandardsMapper from an in-memory table.
// It is immutable after construction.
type StaticMapper struct {
	table map[Class]StandardsMapping
}

// defaultStandardsTable is the built-in mapping shipped with the binary.
// An external YAML table can override it via LoadStandardsFile.
var defaultStandardsTable = map[Class]StandardsMapping{
	ClassReentrancy:            {SWC: "SWC-107", CWE: "CWE-841", OWASP: "SC05"},
	ClassIntegerOverflow:       {SWC: "SWC-101", CWE: "CWE-190", OWASP: "SC02"},
	ClassAccessControl:         {SWC: "SWC-105", CWE: "CWE-284", OWASP: "SC01"},
	ClassUncheckedCall:         {SWC: "SWC-104", CWE: "CWE-252", OWASP: "SC04"},
	ClassDenialOfService:       {SWC: "SWC-113", CWE: "CWE-400", OWASP: "SC10"},
	ClassFrontRunning:          {SWC: "SWC-114", CWE: "CWE-362", OWASP: "SC07"},
	ClassTimestampDependence:   {SWC: "SWC-116", CWE: "CWE-829", OWASP: "SC09"},
	ClassTxOrigin:              {SWC: "SWC-115", CWE: "CWE-477", OWASP: "SC01"},
	ClassDelegatecallInjection: {SWC: "SWC-112", CWE: "CWE-829", OWASP: "SC06"},
	ClassUninitializedStorage:  {SWC: "SWC-109", CWE: "CWE-824", OWASP: "SC03"},
}

// NewStaticMapper creates a mapper over the built-in standards table.
func NewStaticMapper() *StaticMapper {
	table := make(map[Class]StandardsMapping, len(defaultStandardsTable))
	for class, mapping := range defaultStandardsTable {
		table[class] = mapping
	}
	return &StaticMapper{table: table}
}

// LoadStandardsFile creates a mapper from a YAML table keyed by class name.
// Entries for unknown classes are rejected so typos in the data file
// surface at startup instead of silently dropping mappings.
func LoadStandardsFile(path string) (*StaticMapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read standards table: %w", err)
	}

	raw := make(map[string]StandardsMapping)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse standards table: %w", err)
	}

	table := make(map[Class]StandardsMapping, len(raw))
	for name, mapping := range raw {
		class := Class(name)
		if !class.IsValid() {
			return nil, fmt.Errorf("standards table references unknown class %q", name)
		}
		table[class] = mapping
	}

	return &StaticMapper{table: table}, nil
}

// Lookup returns the standards mapping for a class. Unmapped classes
// (including unclassified) return a zero mapping.
func (m *StaticMapper) Lookup(class Class) StandardsMapping {
	return m.table[class]
}

// Ensure StaticMapper implements StandardsMapper at compile time.
var _ StandardsMapper = (*StaticMapper)(nil)
