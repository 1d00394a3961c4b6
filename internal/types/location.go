package types

import "fmt"

// Location is the normalized position of a finding inside the artifact.
// A location is either line-precise (File plus a 1-based inclusive line
// range) or a contract-level fallback when the reporting tool gave no
// usable position.
type Location struct {
	// Contract is the enclosing contract or source-unit scope. Always set.
	Contract string `json:"contract"`

	// File is the source file path, empty for contract-level locations.
	File string `json:"file,omitempty"`

	// StartLine and EndLine bound the affected lines (1-based, inclusive).
	// Both are zero for contract-level locations.
	StartLine int `json:"start_line,omitempty"`
	EndLine   int `json:"end_line,omitempty"`
}

// NewLineLocation creates a line-precise location. The range is normalized
// so StartLine <= EndLine.
func NewLineLocation(contract, file string, start, end int) Location {
	if end < start {
		start, end = end, start
	}
	return Location{
		Contract:  contract,
		File:      file,
		StartLine: start,
		EndLine:   end,
	}
}

// NewContractLocation creates a contract-level fallback location.
func NewContractLocation(contract string) Location {
	return Location{Contract: contract}
}

// HasLines reports whether the location carries a precise line range.
func (l Location) HasLines() bool {
	return l.StartLine > 0 && l.EndLine > 0
}

// SameScope reports whether two locations refer to the same contract-level
// scope.
func (l Location) SameScope(other Location) bool {
	return l.Contract == other.Contract
}

// Touches reports whether two locations describe the same code region:
// overlapping or adjacent (within slack lines) line ranges in the same
// file, or the same contract scope when either side has no line range.
func (l Location) Touches(other Location, slack int) bool {
	if !l.HasLines() || !other.HasLines() {
		return l.SameScope(other)
	}
	if l.File != other.File {
		return false
	}
	if slack < 0 {
		slack = 0
	}
	return l.StartLine <= other.EndLine+slack && other.StartLine <= l.EndLine+slack
}

// String renders the location for logs and report output.
func (l Location) String() string {
	if !l.HasLines() {
		return l.Contract
	}
	if l.StartLine == l.EndLine {
		return fmt.Sprintf("%s:%d", l.File, l.StartLine)
	}
	return fmt.Sprintf("%s:%d-%d", l.File, l.StartLine, l.EndLine)
}
