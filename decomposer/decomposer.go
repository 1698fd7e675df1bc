// Package decomposer splits a single OpenAPI document into a fragment tree
// and a root document that references it.
//
// The pipeline runs in order: parse, extract sections, classify schemas,
// split paths, relocate local references, build the root, write fragments,
// reconcile. The whole plan is computed and checked before the first file is
// written, so a name collision never leaves a half-written tree behind.
//
//	result, err := decomposer.DecomposeWithOptions(ctx,
//	    decomposer.WithFilePath("openapi.yaml"),
//	    decomposer.WithOutputDir("src/v2"),
//	)
//
// Output layout below the output directory:
//
//	openapi.yaml                        root document
//	components/schemas/<category>.yaml  schemas grouped by category
//	components/<kind>/<Name>.yaml       parameters, responses, security schemes
//	paths/<resource>/<action>.yaml      path items
package decomposer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/erraggy/oasplit/classifier"
	"github.com/erraggy/oasplit/fragment"
	"github.com/erraggy/oasplit/internal/issues"
	"github.com/erraggy/oasplit/internal/pathutil"
	"github.com/erraggy/oasplit/oaserrors"
	"github.com/erraggy/oasplit/parser"
	"github.com/erraggy/oasplit/pathsplit"
	"github.com/erraggy/oasplit/reconciler"
)

// DefaultRootName is the file name of the generated root document.
const DefaultRootName = "openapi.yaml"

// ExtractedKinds are the component kinds moved to per-component fragments
// when component extraction is on.
var ExtractedKinds = []string{
	parser.ComponentSecuritySchemes,
	parser.ComponentParameters,
	parser.ComponentResponses,
}

// CategorySummary lists the schemas written to one category file.
type CategorySummary struct {
	Category string   `json:"category"`
	File     string   `json:"file"`
	Schemas  []string `json:"schemas"`
}

// RouteSummary records where one path template went.
type RouteSummary struct {
	Template string `json:"template"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	File     string `json:"file"`
}

// DecomposeResult contains the results of a decomposition.
type DecomposeResult struct {
	// SourcePath is the path of the decomposed document
	SourcePath string `json:"sourcePath"`
	// SourceFormat is the format of the source (JSON or YAML)
	SourceFormat parser.SourceFormat `json:"sourceFormat"`
	// OutputDir is the directory holding the root document and fragments
	OutputDir string `json:"outputDir"`
	// RootPath is the path of the generated root document
	RootPath string `json:"rootPath"`
	// Categories lists schema categories in file order
	Categories []CategorySummary `json:"categories,omitempty"`
	// Routes lists split paths sorted by (resource, action)
	Routes []RouteSummary `json:"routes,omitempty"`
	// InlinePaths lists templates kept in the root document
	InlinePaths []string `json:"inlinePaths,omitempty"`
	// Components counts extracted components per kind
	Components map[string]int `json:"components,omitempty"`
	// Fallbacks lists schemas that fell back to the catch-all category
	Fallbacks []string `json:"fallbacks,omitempty"`
	// Files lists every file claimed in this run, sorted, relative to OutputDir
	Files []string `json:"files"`
	// Changed lists the files whose bytes changed on disk
	Changed []string `json:"changed,omitempty"`
	// TagsSynthesized is true when a tags section was generated
	TagsSynthesized bool `json:"tagsSynthesized,omitempty"`
	// Issues are the recoverable conditions met along the way
	Issues issues.List `json:"issues,omitempty"`
	// Reconcile is the post-pass result (nil when skipped)
	Reconcile *reconciler.Result `json:"reconcile,omitempty"`
	// Root is the encoded root document
	Root []byte `json:"-"`
	// DryRun is true when nothing was written
	DryRun bool `json:"dryRun"`
}

// SchemaCount returns the number of schemas written to category files.
func (r *DecomposeResult) SchemaCount() int {
	n := 0
	for _, c := range r.Categories {
		n += len(c.Schemas)
	}
	return n
}

// Decomposer runs the decomposition pipeline.
type Decomposer struct {
	// OutputDir receives the root document and fragment tree.
	// Defaults to the directory of the source document.
	OutputDir string
	// RootName is the file name of the root document. Defaults to DefaultRootName.
	RootName string
	// Prefix is the API path prefix. Defaults to pathsplit.DefaultPrefix.
	Prefix string
	// Ext is the fragment extension, "yaml" or "yml".
	Ext string
	// Rules is the schema rule table. Defaults to classifier.DefaultRules().
	Rules classifier.RuleTable
	// CatchAll is the fallback category. Defaults to classifier.DefaultCatchAll.
	CatchAll string
	// ExtractComponents moves parameters, responses and security schemes
	// into per-component fragments.
	ExtractComponents bool
	// SynthesizeTags adds a tag per resource when the source has no tags.
	SynthesizeTags bool
	// Reconcile runs the reference post-pass after writing.
	Reconcile bool
	// AllowDuplicate enables sibling duplication in the post-pass.
	AllowDuplicate bool
	// DryRun computes everything without writing.
	DryRun bool
	// Logger receives stage records. Defaults to NopLogger.
	Logger parser.Logger
}

// New creates a new Decomposer with default settings
func New() *Decomposer {
	return &Decomposer{
		RootName:          DefaultRootName,
		Prefix:            pathsplit.DefaultPrefix,
		Ext:               fragment.DefaultExt,
		Rules:             classifier.DefaultRules(),
		CatchAll:          classifier.DefaultCatchAll,
		ExtractComponents: true,
		SynthesizeTags:    true,
		Reconcile:         true,
	}
}

func (d *Decomposer) log() parser.Logger {
	if d.Logger == nil {
		return parser.NopLogger{}
	}
	return d.Logger
}

// Decompose parses the document at specPath and decomposes it.
func (d *Decomposer) Decompose(ctx context.Context, specPath string) (*DecomposeResult, error) {
	res, err := (&parser.Parser{Logger: d.log()}).Parse(specPath)
	if err != nil {
		return nil, err
	}
	return d.DecomposeParsed(ctx, res)
}

// DecomposeParsed decomposes an already parsed document. The parse result
// is not modified.
func (d *Decomposer) DecomposeParsed(ctx context.Context, res *parser.ParseResult) (*DecomposeResult, error) {
	outDir := d.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(res.SourcePath)
	}
	outDir, err := pathutil.SanitizeOutputPath(outDir)
	if err != nil {
		return nil, &oaserrors.ConfigError{Option: "output-dir", Value: d.OutputDir, Cause: err}
	}
	rootName := d.RootName
	if rootName == "" {
		rootName = DefaultRootName
	}
	if !fragment.ValidFileName(rootName) {
		return nil, &oaserrors.ConfigError{Option: "root-name", Value: rootName, Message: "root name must be a plain file name"}
	}
	rootPath := filepath.Join(outDir, rootName)
	if src, err := filepath.Abs(res.SourcePath); err == nil && src == rootPath {
		return nil, &oaserrors.ConfigError{Option: "root-name", Value: rootName, Message: "root document would overwrite the source"}
	}

	result := &DecomposeResult{
		SourcePath:   res.SourcePath,
		SourceFormat: res.SourceFormat,
		OutputDir:    outDir,
		RootPath:     rootPath,
		DryRun:       d.DryRun,
	}

	p := &pipeline{Decomposer: d, res: res, result: result, rootName: rootName}
	stages := []struct {
		name string
		run  func() error
	}{
		{"extract", p.extract},
		{"classify", p.classify},
		{"split", p.split},
		{"build", p.build},
		{"write", p.write},
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parser.ForStage(d.log(), stage.name).Debug("stage start")
		if err := stage.run(); err != nil {
			return nil, fmt.Errorf("decomposer: %s: %w", stage.name, err)
		}
	}

	if d.Reconcile && !d.DryRun {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := &reconciler.Reconciler{AllowDuplicate: d.AllowDuplicate, Logger: parser.ForStage(d.log(), "reconcile")}
		rr, err := rec.Reconcile(ctx, rootPath)
		result.Reconcile = rr
		if rr != nil {
			result.Issues = append(result.Issues, rr.Issues...)
		}
		if err != nil {
			return result, fmt.Errorf("decomposer: reconcile: %w", err)
		}
	}

	d.log().Info("decomposition complete",
		"source", res.SourcePath,
		"schemas", result.SchemaCount(),
		"categories", len(result.Categories),
		"paths", len(result.Routes),
		"inline", len(result.InlinePaths),
		"files", len(result.Files),
		"dryRun", d.DryRun,
	)
	return result, nil
}

// isMiss reports whether err is a recoverable extraction miss.
func isMiss(err error) bool {
	return errors.Is(err, oaserrors.ErrExtractionMiss)
}
