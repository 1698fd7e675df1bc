// Package oaserrors provides structured error types for oasplit.
//
// These error types enable programmatic error handling via errors.Is() and
// errors.As(), allowing callers to distinguish between conditions a pipeline
// stage recovers from (a missing section) and conditions that abort a run
// (a name collision, an unrepairable reference, a failed write).
//
// # Error Categories
//
//   - ParseError: YAML/JSON parsing failures and structural issues
//   - ExtractionError: a section key is absent or has no body
//   - CollisionError: two entities claim the same name or fragment
//   - ReferenceError: a $ref whose target does not exist, circular refs, path traversal
//   - WriteError: filesystem failures creating directories or files
//   - ValidationError: the bundled document failed external validation
//   - ConfigError: invalid configuration or input options
//
// # Usage with errors.As
//
//	result, err := decomposer.DecomposeWithOptions(decomposer.WithFilePath("api.yaml"))
//	if err != nil {
//	    var collision *oaserrors.CollisionError
//	    if errors.As(err, &collision) {
//	        fmt.Println("duplicate:", collision.Name)
//	    }
//	}
package oaserrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
// These allow quick checks without type assertions.
var (
	// ErrParse indicates a parsing failure occurred.
	ErrParse = errors.New("parse error")

	// ErrExtractionMiss indicates a section key was not found or was empty.
	ErrExtractionMiss = errors.New("extraction miss")

	// ErrNameCollision indicates two entities claimed the same unique name.
	ErrNameCollision = errors.New("name collision")

	// ErrBrokenReference indicates a reference whose target does not resolve.
	ErrBrokenReference = errors.New("broken reference")

	// ErrCircularReference indicates a circular $ref was detected.
	ErrCircularReference = errors.New("circular reference")

	// ErrPathTraversal indicates a path traversal attempt was blocked.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrWrite indicates a filesystem write failure.
	ErrWrite = errors.New("write failure")

	// ErrValidation indicates the bundled document failed validation.
	ErrValidation = errors.New("validation error")

	// ErrConfig indicates an invalid configuration.
	ErrConfig = errors.New("configuration error")
)

// ParseError represents a failure to parse an OpenAPI document or fragment.
type ParseError struct {
	// Path is the file path or source identifier
	Path string
	// Line is the line number where the error occurred (0 if unknown)
	Line int
	// Column is the column number where the error occurred (0 if unknown)
	Column int
	// Message describes the parsing failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ParseError) Error() string {
	msg := "parse error"
	if e.Path != "" {
		msg += " in " + e.Path
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
		if e.Column > 0 {
			msg += fmt.Sprintf(", column %d", e.Column)
		}
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ExtractionError reports that a section could not be extracted.
// It is recoverable: callers skip the section and continue.
type ExtractionError struct {
	// Section is the key that was looked up (e.g., "schemas")
	Section string
	// Parent is the dotted path of the mapping that was searched (e.g., "components")
	Parent string
	// Empty is true when the key exists but has no body
	Empty bool
}

// Error returns a human-readable error message.
func (e *ExtractionError) Error() string {
	where := e.Section
	if e.Parent != "" {
		where = e.Parent + "." + e.Section
	}
	if e.Empty {
		return "extraction miss: " + where + " is empty"
	}
	return "extraction miss: " + where + " not found"
}

// Is reports whether target matches this error type.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtractionMiss
}

// CollisionError reports two entities mapped to the same unique name or
// fragment. A collision always aborts: keeping either side would lose data.
type CollisionError struct {
	// Kind is the entity kind: "schema", "path", "component", "section" or "fragment"
	Kind string
	// Name is the contested name, template or fragment path
	Name string
	// First and Second identify the two claimants
	First  string
	Second string
}

// Error returns a human-readable error message.
func (e *CollisionError) Error() string {
	msg := "name collision"
	if e.Kind != "" {
		msg += ": " + e.Kind
	}
	if e.Name != "" {
		msg += " " + e.Name
	}
	if e.First != "" && e.Second != "" {
		msg += fmt.Sprintf(" claimed by both %s and %s", e.First, e.Second)
	} else if e.First != "" {
		msg += " defined more than once (" + e.First + ")"
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *CollisionError) Is(target error) bool {
	return target == ErrNameCollision
}

// ReferenceError represents a $ref whose target cannot be resolved.
type ReferenceError struct {
	// Ref is the reference string that failed to resolve
	Ref string
	// Pointer locates the reference in its document (e.g., "paths./farcaster/user")
	Pointer string
	// File is the document holding the reference (empty for the root document)
	File string
	// IsCircular is true if this error is due to a circular reference
	IsCircular bool
	// IsPathTraversal is true if this error is due to a path traversal attempt
	IsPathTraversal bool
	// Message provides additional context about the failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ReferenceError) Error() string {
	msg := "broken reference"
	if e.IsCircular {
		msg = "circular reference"
	} else if e.IsPathTraversal {
		msg = "path traversal detected"
	}
	if e.Ref != "" {
		msg += ": " + e.Ref
	}
	if e.Pointer != "" {
		msg += " at " + e.Pointer
	}
	if e.File != "" {
		msg += " in " + e.File
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ReferenceError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
// Matches ErrBrokenReference, and also ErrCircularReference or ErrPathTraversal
// when appropriate flags are set.
func (e *ReferenceError) Is(target error) bool {
	if target == ErrBrokenReference {
		return true
	}
	if target == ErrCircularReference && e.IsCircular {
		return true
	}
	if target == ErrPathTraversal && e.IsPathTraversal {
		return true
	}
	return false
}

// WriteError represents a filesystem failure while producing output.
type WriteError struct {
	// Path is the file or directory being written
	Path string
	// Op is the failed operation: "mkdir", "write", "copy"
	Op string
	// Cause is the underlying error
	Cause error
}

// Error returns a human-readable error message.
func (e *WriteError) Error() string {
	msg := "write failure"
	if e.Op != "" {
		msg += " (" + e.Op + ")"
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *WriteError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *WriteError) Is(target error) bool {
	return target == ErrWrite
}

// ValidationError represents a bundled document rejected by validation.
type ValidationError struct {
	// Path is the bundled document path or source identifier
	Path string
	// Message describes the validation failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ValidationError) Error() string {
	msg := "validation error"
	if e.Path != "" {
		msg += " in " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConfigError represents an invalid configuration or input.
// This includes invalid options, missing required inputs, and conflicting settings.
type ConfigError struct {
	// Option is the name of the problematic configuration option
	Option string
	// Value is the invalid value that was provided (may be nil)
	Value any
	// Message describes the configuration error
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ConfigError) Error() string {
	msg := "configuration error"
	if e.Option != "" {
		msg += " for " + e.Option
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}
