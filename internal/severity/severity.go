// Package severity provides the severity levels attached to issues reported
// by the decomposition pipeline.
//
// Levels are ordered from least to most severe: Info < Warning < Error.
//   - SeverityInfo: a skipped section, a classification fallback or an
//     unchecked external reference
//   - SeverityWarning: an unsplittable path kept inline, a duplicated repair
//   - SeverityError: an irreparable reference
package severity

import "fmt"

// Severity is the level of an issue.
type Severity int

const (
	// SeverityInfo is a non-actionable notice about a processing choice.
	SeverityInfo Severity = iota
	// SeverityWarning is a condition the run recovered from that still deserves review.
	SeverityWarning
	// SeverityError is a condition the run could not recover from.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("severity: unknown level %q", text)
	}
	return nil
}
