package mcpserver

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/erraggy/oasplit/classifier"
	"github.com/erraggy/oasplit/decomposer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type decomposeInput struct {
	Spec              specInput `json:"spec"                         jsonschema:"The OAS 3.x document to decompose"`
	OutputDir         string    `json:"output_dir,omitempty"         jsonschema:"Directory for the root document and fragments. Defaults to the directory of the source file; required for inline content."`
	RootName          string    `json:"root_name,omitempty"          jsonschema:"File name of the root document (default openapi.yaml)"`
	Prefix            string    `json:"prefix,omitempty"             jsonschema:"API path prefix stripped before splitting paths (default /farcaster)"`
	Ext               string    `json:"ext,omitempty"                jsonschema:"Fragment extension: yaml or yml"`
	CatchAll          string    `json:"catch_all,omitempty"          jsonschema:"Category for schemas no rule matches"`
	Rules             []string  `json:"rules,omitempty"              jsonschema:"Classification rules as category=pattern, tried in order. Replaces the configured table."`
	ExtractComponents *bool     `json:"extract_components,omitempty" jsonschema:"Write parameters, responses and security schemes to their own fragments"`
	SynthesizeTags    *bool     `json:"synthesize_tags,omitempty"    jsonschema:"Add one tag per path resource when the document has no tags"`
	Reconcile         *bool     `json:"reconcile,omitempty"          jsonschema:"Check and repair references after writing (default true)"`
	AllowDuplicate    *bool     `json:"allow_duplicate,omitempty"    jsonschema:"Let the reference check copy a sibling fragment into a missing path fragment"`
	DryRun            bool      `json:"dry_run,omitempty"            jsonschema:"Compute the file list without writing anything"`
	IncludeRoot       bool      `json:"include_root,omitempty"       jsonschema:"Include the generated root document in the output"`
	Offset            int       `json:"offset,omitempty"             jsonschema:"Skip the first N files (for pagination)"`
	Limit             int       `json:"limit,omitempty"              jsonschema:"Maximum number of files to return (default 100)"`
}

type categoryOutput struct {
	Category string   `json:"category"`
	File     string   `json:"file"`
	Schemas  []string `json:"schemas"`
}

type decomposeOutput struct {
	RootPath        string           `json:"root_path"`
	SchemaCount     int              `json:"schema_count"`
	Categories      []categoryOutput `json:"categories,omitempty"`
	RouteCount      int              `json:"route_count"`
	InlinePaths     []string         `json:"inline_paths,omitempty"`
	Components      map[string]int   `json:"components,omitempty"`
	Fallbacks       []string         `json:"fallbacks,omitempty"`
	TagsSynthesized bool             `json:"tags_synthesized,omitempty"`
	FileCount       int              `json:"file_count"`
	Returned        int              `json:"returned"`
	Files           []string         `json:"files,omitempty"`
	ChangedCount    int              `json:"changed_count"`
	Issues          []issueOutput    `json:"issues,omitempty"`
	DryRun          bool             `json:"dry_run,omitempty"`
	Root            string           `json:"root,omitempty"`
}

func handleDecompose(ctx context.Context, _ *mcp.CallToolRequest, input decomposeInput) (*mcp.CallToolResult, decomposeOutput, error) {
	opts, err := buildDecomposeOptions(input)
	if err != nil {
		return errResult(err), decomposeOutput{}, nil
	}

	result, err := decomposer.DecomposeWithOptions(ctx, opts...)
	if result == nil {
		return errResult(err), decomposeOutput{}, nil
	}

	output := decomposeOutput{
		RootPath:        result.RootPath,
		SchemaCount:     result.SchemaCount(),
		RouteCount:      len(result.Routes),
		InlinePaths:     result.InlinePaths,
		Components:      result.Components,
		Fallbacks:       result.Fallbacks,
		TagsSynthesized: result.TagsSynthesized,
		FileCount:       len(result.Files),
		ChangedCount:    len(result.Changed),
		Issues:          toIssueOutputs(result.Issues),
		DryRun:          result.DryRun,
	}
	output.Categories = makeSlice[categoryOutput](len(result.Categories))
	for _, c := range result.Categories {
		output.Categories = append(output.Categories, categoryOutput{Category: c.Category, File: c.File, Schemas: c.Schemas})
	}
	output.Files = paginate(result.Files, input.Offset, input.Limit)
	output.Returned = len(output.Files)
	if input.IncludeRoot {
		output.Root = string(result.Root)
	}

	// references still broken after the post-pass
	if err != nil {
		return errResult(err), output, nil
	}
	return nil, output, nil
}

// buildDecomposeOptions layers tool arguments over the project defaults.
func buildDecomposeOptions(input decomposeInput) ([]decomposer.Option, error) {
	c := pipelineDefaults()
	if input.RootName != "" {
		c.RootName = input.RootName
	}
	if input.Prefix != "" {
		c.Prefix = input.Prefix
	}
	if input.Ext != "" {
		c.Ext = input.Ext
	}
	if input.CatchAll != "" {
		c.CatchAll = input.CatchAll
	}
	if len(input.Rules) > 0 {
		rules := make(classifier.RuleTable, 0, len(input.Rules))
		for _, s := range input.Rules {
			rule, err := classifier.ParseRule(s)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		}
		c.Rules = rules
	}
	if input.ExtractComponents != nil {
		c.ExtractComponents = *input.ExtractComponents
	}
	if input.SynthesizeTags != nil {
		c.SynthesizeTags = *input.SynthesizeTags
	}
	if input.AllowDuplicate != nil {
		c.AllowDuplicate = *input.AllowDuplicate
	}
	reconcile := input.Reconcile == nil || *input.Reconcile
	if !reconcile {
		c.AllowDuplicate = false
	}

	outputDir := input.OutputDir
	if outputDir == "" && input.Spec.File != "" {
		outputDir = filepath.Dir(input.Spec.File)
	}
	if outputDir == "" {
		return nil, fmt.Errorf("output_dir is required for inline content")
	}
	c.OutputDir = outputDir

	parsed, err := input.Spec.resolve()
	if err != nil {
		return nil, err
	}

	opts := c.DecomposerOptions()
	opts = append(opts,
		decomposer.WithParsed(parsed),
		decomposer.WithReconcile(reconcile),
		decomposer.WithDryRun(input.DryRun),
	)
	return opts, nil
}
