// Package issues provides the issue record shared by the pipeline stages.
package issues

import (
	"fmt"

	"github.com/erraggy/oasplit/internal/severity"
)

// Issue is a single condition reported by a pipeline stage.
type Issue struct {
	// Stage is the pipeline stage that raised the issue (e.g., "extract", "split")
	Stage string `json:"stage"`
	// Path locates the subject, as a dotted section path or a path template
	Path string `json:"path,omitempty"`
	// Message is a human-readable description of the issue
	Message string `json:"message"`
	// Severity indicates the severity level of the issue
	Severity severity.Severity `json:"severity"`
	// File is the fragment or root file involved (empty when not applicable)
	File string `json:"file,omitempty"`
	// Line is the 1-based line number in the source file (0 if unknown)
	Line int `json:"line,omitempty"`
}

// String returns a formatted string representation of the issue.
// Uses different symbols based on severity level:
// "✗" for Error, "⚠" for Warning and "ℹ" for Info.
func (i Issue) String() string {
	var symbol string
	switch i.Severity {
	case severity.SeverityError:
		symbol = "✗"
	case severity.SeverityWarning:
		symbol = "⚠"
	case severity.SeverityInfo:
		symbol = "ℹ"
	default:
		symbol = "?"
	}

	subject := i.Path
	if subject == "" {
		subject = i.Stage
	}
	if i.Line > 0 {
		return fmt.Sprintf("%s %s (line %d): %s", symbol, subject, i.Line, i.Message)
	}
	return fmt.Sprintf("%s %s: %s", symbol, subject, i.Message)
}

// Location returns "file:line" when both are known, the file alone, or the path.
func (i Issue) Location() string {
	switch {
	case i.File != "" && i.Line > 0:
		return fmt.Sprintf("%s:%d", i.File, i.Line)
	case i.File != "":
		return i.File
	default:
		return i.Path
	}
}

// List is an ordered collection of issues.
type List []Issue

// Add appends an issue.
func (l *List) Add(stage string, sev severity.Severity, path, format string, args ...any) {
	*l = append(*l, Issue{Stage: stage, Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Count returns the number of issues at the given severity.
func (l List) Count(sev severity.Severity) int {
	n := 0
	for _, i := range l {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

// AtLeast returns the issues at or above the given severity.
func (l List) AtLeast(sev severity.Severity) List {
	var out List
	for _, i := range l {
		if i.Severity >= sev {
			out = append(out, i)
		}
	}
	return out
}
