package decomposer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/erraggy/oasplit/fragment"
	"github.com/erraggy/oasplit/internal/pathutil"
	"github.com/erraggy/oasplit/oaserrors"
	"github.com/erraggy/oasplit/parser"
	"github.com/erraggy/oasplit/rewriter"
)

// RegenerateResult contains the results of rebuilding a root document from
// the fragment tree on disk.
type RegenerateResult struct {
	// RootPath is the root document that was rebuilt
	RootPath string `json:"rootPath"`
	// Schemas is the number of schemas found in category files
	Schemas int `json:"schemas"`
	// Paths is the number of path fragments found
	Paths int `json:"paths"`
	// Components is the number of component fragments found
	Components int `json:"components"`
	// Changed is true when the root bytes on disk changed
	Changed bool `json:"changed"`
	// Root is the encoded root document
	Root []byte `json:"-"`
	// DryRun is true when nothing was written
	DryRun bool `json:"dryRun"`
}

// Regenerate rebuilds the schema, path and component references of the root
// document in dir from the fragments found below it. Every other section of
// the existing root is kept as it is.
func (d *Decomposer) Regenerate(ctx context.Context, dir string) (*RegenerateResult, error) {
	dir, err := pathutil.SanitizeOutputPath(dir)
	if err != nil {
		return nil, &oaserrors.ConfigError{Option: "dir", Value: dir, Cause: err}
	}
	rootName := d.RootName
	if rootName == "" {
		rootName = DefaultRootName
	}
	if !fragment.ValidFileName(rootName) {
		return nil, &oaserrors.ConfigError{Option: "root-name", Value: rootName, Message: "root name must be a plain file name"}
	}
	rootPath := filepath.Join(dir, rootName)

	existing, err := (&parser.Parser{Logger: d.log()}).Parse(rootPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	plan, err := rewriter.Scan(dir, d.Prefix, d.Ext)
	if err != nil {
		return nil, fmt.Errorf("decomposer: scan: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := rewriter.Regenerate(existing.Root, plan)
	if existing.SourceFormat == parser.SourceFormatJSON {
		parser.BlockStyle(root)
	}
	data, err := parser.Encode(root)
	if err != nil {
		return nil, &oaserrors.WriteError{Path: rootPath, Op: "encode", Cause: err}
	}
	w, err := fragment.New(fragment.Config{Dir: dir, Ext: d.Ext, DryRun: d.DryRun, Logger: d.log()})
	if err != nil {
		return nil, err
	}
	if err := w.WriteDocument(rootName, root); err != nil {
		return nil, fmt.Errorf("decomposer: write: %w", err)
	}

	result := &RegenerateResult{
		RootPath:   rootPath,
		Schemas:    len(plan.Schemas),
		Paths:      len(plan.Paths),
		Components: len(plan.Components),
		Changed:    len(w.Changed()) > 0,
		Root:       data,
		DryRun:     d.DryRun,
	}
	d.log().Info("root regenerated",
		"root", rootPath,
		"schemas", result.Schemas,
		"paths", result.Paths,
		"components", result.Components,
		"changed", result.Changed,
	)
	return result, nil
}
