// Package reconciler verifies the references of a decomposed root document
// and repairs the broken ones.
//
// Every path, schema and component reference in the root is checked. A
// broken reference ends in one of three states:
//
//   - repaired: the target was located elsewhere by content search and the
//     reference now points at it
//   - duplicated: no file holds the content, so the first parseable sibling
//     fragment was copied to the missing target (best effort, opt-in)
//   - irreparable: nothing could be done; Reconcile returns a ReferenceError
//
// Local references ("#/...") are resolved against the root itself. Remote
// and absolute references are recorded as external and left alone.
//
// The root document is rewritten only when a reference changed.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/erraggy/oasplit/internal/fileutil"
	"github.com/erraggy/oasplit/internal/issues"
	"github.com/erraggy/oasplit/internal/pathutil"
	"github.com/erraggy/oasplit/internal/severity"
	"github.com/erraggy/oasplit/oaserrors"
	"github.com/erraggy/oasplit/parser"
	"go.yaml.in/yaml/v4"
)

// State is the outcome of checking one reference.
type State string

const (
	// StateValid means the target exists and holds what the reference expects
	StateValid State = "valid"
	// StateRepaired means the reference was rewritten to a located target
	StateRepaired State = "repaired"
	// StateDuplicated means a sibling fragment was copied to the missing target
	StateDuplicated State = "duplicated"
	// StateIrreparable means the reference is still broken
	StateIrreparable State = "irreparable"
	// StateExternal means the reference is remote or absolute and was not
	// checked
	StateExternal State = "external"
)

// RefKind classifies a root reference.
type RefKind string

const (
	// RefKindPath is a paths entry
	RefKindPath RefKind = "path"
	// RefKindSchema is a components.schemas entry
	RefKindSchema RefKind = "schema"
	// RefKindComponent is a parameters, responses or securitySchemes entry
	RefKindComponent RefKind = "component"
)

// Check records the verification of one reference.
type Check struct {
	// Kind is the kind of root entry holding the reference
	Kind RefKind `json:"kind"`
	// Subject is the path template or component name
	Subject string `json:"subject"`
	// Pointer locates the reference in the root document
	Pointer string `json:"pointer"`
	// Ref is the reference as found
	Ref string `json:"ref"`
	// NewRef is the rewritten reference (repaired only)
	NewRef string `json:"newRef,omitempty"`
	// Source is the file copied to the target (duplicated only)
	Source string `json:"source,omitempty"`
	// State is the outcome
	State State `json:"state"`
	// Description explains the outcome
	Description string `json:"description,omitempty"`
}

// Result contains the results of a reconcile run.
type Result struct {
	// RootPath is the root document that was checked
	RootPath string `json:"rootPath"`
	// Checks holds one entry per reference, in root order
	Checks []Check `json:"checks"`
	// RootChanged is true when at least one reference was rewritten
	RootChanged bool `json:"rootChanged"`
	// Written lists the files written (root and duplicated fragments)
	Written []string `json:"written,omitempty"`
	// Issues are the warnings and errors raised
	Issues issues.List `json:"issues,omitempty"`
	// DryRun is true when no file was written
	DryRun bool `json:"dryRun"`
}

// Count returns the number of checks in the given state.
func (r *Result) Count(state State) int {
	n := 0
	for _, c := range r.Checks {
		if c.State == state {
			n++
		}
	}
	return n
}

// InState returns the checks in the given state.
func (r *Result) InState(state State) []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.State == state {
			out = append(out, c)
		}
	}
	return out
}

// Reconciler checks and repairs root document references.
type Reconciler struct {
	// AllowDuplicate enables sibling duplication when no fragment holds the
	// missing path content.
	AllowDuplicate bool
	// DryRun reports what would change without writing anything.
	DryRun bool
	// Logger receives progress and repair records. Defaults to NopLogger.
	Logger parser.Logger
}

// New creates a new Reconciler with default settings
func New() *Reconciler {
	return &Reconciler{}
}

func (r *Reconciler) log() parser.Logger {
	if r.Logger == nil {
		return parser.NopLogger{}
	}
	return r.Logger
}

// Reconcile checks every reference of the root document at rootPath.
//
// Repairs are applied (unless DryRun) before the error is returned, so a
// run with irreparable references still keeps the repairs it made. The
// returned error joins one *oaserrors.ReferenceError per irreparable
// reference.
func (r *Reconciler) Reconcile(ctx context.Context, rootPath string) (*Result, error) {
	res, err := parser.New().Parse(rootPath)
	if err != nil {
		return nil, err
	}
	run := &run{
		Reconciler: r,
		dir:        filepath.Dir(rootPath),
		rootName:   filepath.Base(rootPath),
		root:       res.Root,
		result:     &Result{RootPath: rootPath, DryRun: r.DryRun},
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if paths, err := res.Section(parser.SectionPaths); err == nil {
		run.checkPaths(paths)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if components, err := res.Section(parser.SectionComponents); err == nil {
		run.checkComponents(components)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if run.result.RootChanged && !r.DryRun {
		data, err := parser.Encode(res.Root)
		if err != nil {
			return run.result, &oaserrors.WriteError{Path: rootPath, Op: "encode", Cause: err}
		}
		if err := fileutil.WriteFile(rootPath, data, fileutil.ReadableByAll); err != nil {
			return run.result, err
		}
		run.result.Written = append(run.result.Written, rootPath)
	}

	r.log().Info("reconcile complete",
		"root", rootPath,
		"valid", run.result.Count(StateValid),
		"repaired", run.result.Count(StateRepaired),
		"duplicated", run.result.Count(StateDuplicated),
		"irreparable", run.result.Count(StateIrreparable),
		"external", run.result.Count(StateExternal),
	)
	return run.result, errors.Join(run.errs...)
}

// run carries the state of one Reconcile call.
type run struct {
	*Reconciler
	dir      string
	rootName string
	root     *yaml.Node
	result   *Result
	errs     []error
}

func (r *run) record(c Check, ref *yaml.Node) {
	switch c.State {
	case StateRepaired:
		ref.Value = c.NewRef
		r.result.RootChanged = true
		r.log().Info("reference repaired", "subject", c.Subject, "from", c.Ref, "to", c.NewRef)
		r.result.Issues = append(r.result.Issues, issues.Issue{
			Stage: "reconcile", Path: c.Pointer, Severity: severity.SeverityInfo,
			Message: fmt.Sprintf("%s %s: located at %s", c.Kind, c.Subject, c.NewRef),
		})
	case StateDuplicated:
		r.log().Warn("reference repaired by duplicating a sibling fragment", "subject", c.Subject, "ref", c.Ref, "copied", c.Source)
		r.result.Issues = append(r.result.Issues, issues.Issue{
			Stage: "reconcile", Path: c.Pointer, Severity: severity.SeverityWarning, File: c.Source,
			Message: fmt.Sprintf("%s %s: duplicated %s to %s; review the copy", c.Kind, c.Subject, c.Source, c.Ref),
		})
	case StateExternal:
		r.log().Info("reference not checked", "subject", c.Subject, "ref", c.Ref)
		r.result.Issues = append(r.result.Issues, issues.Issue{
			Stage: "reconcile", Path: c.Pointer, Severity: severity.SeverityInfo,
			Message: fmt.Sprintf("%s %s: %s not checked: %s", c.Kind, c.Subject, c.Ref, c.Description),
		})
	case StateIrreparable:
		r.log().Error("reference irreparable", "subject", c.Subject, "ref", c.Ref)
		r.result.Issues = append(r.result.Issues, issues.Issue{
			Stage: "reconcile", Path: c.Pointer, Severity: severity.SeverityError,
			Message: fmt.Sprintf("%s %s: %s", c.Kind, c.Subject, c.Description),
		})
		r.errs = append(r.errs, &oaserrors.ReferenceError{
			Ref:     c.Ref,
			Pointer: c.Pointer,
			File:    r.rootName,
			Message: fmt.Sprintf("%s %s: %s", c.Kind, c.Subject, c.Description),
		})
	default:
		r.log().Debug("reference valid", "subject", c.Subject, "ref", c.Ref)
	}
	r.result.Checks = append(r.result.Checks, c)
}

// abs maps a slash-separated path relative to the root directory onto the
// filesystem.
func (r *run) abs(rel string) string {
	return filepath.Join(r.dir, filepath.FromSlash(rel))
}

// loadMapping reads a fragment and reports whether it parses as a mapping.
func (r *run) loadMapping(rel string) (*yaml.Node, bool) {
	if !pathutil.WithinDir(r.dir, r.abs(rel)) {
		return nil, false
	}
	data, err := os.ReadFile(r.abs(rel))
	if err != nil {
		return nil, false
	}
	node, err := parser.ParseFragment(data, rel)
	if err != nil || node.Kind != yaml.MappingNode {
		return nil, false
	}
	return node, true
}

