package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity represents the ordinal severity scale for normalized findings.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityOrder maps each severity to its ordinal rank (higher = worse).
var severityOrder = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// String returns the string representation of Severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid checks if the Severity is a valid value.
func (s Severity) IsValid() bool {
	_, ok := severityOrder[s]
	return ok
}

// Ord returns the ordinal rank of the severity. Invalid severities rank
// below info.
func (s Severity) Ord() int {
	if ord, ok := severityOrder[s]; ok {
		return ord
	}
	return -1
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Ord() >= other.Ord()
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Ord() > a.Ord() {
		return b
	}
	return a
}

// ParseSeverity maps a raw tool-reported severity label onto the ordinal
// scale. Matching is case-insensitive and tolerant of common synonyms.
// Unrecognized labels map to SeverityLow so an unknown rating is never
// inflated into an actionable one.
func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical", "crit", "very high", "very-high":
		return SeverityCritical
	case "high", "error", "severe":
		return SeverityHigh
	case "medium", "med", "moderate", "warning", "warn":
		return SeverityMedium
	case "low", "minor":
		return SeverityLow
	case "info", "informational", "note", "optimization":
		return SeverityInfo
	default:
		return SeverityLow
	}
}

// MarshalJSON implements json.Marshaler.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	sev := Severity(str)
	if !sev.IsValid() {
		return fmt.Errorf("invalid severity: %s", str)
	}

	*s = sev
	return nil
}
