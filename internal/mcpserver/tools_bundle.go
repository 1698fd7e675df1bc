package mcpserver

import (
	"context"

	"github.com/erraggy/oasplit/bundler"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type bundleInput struct {
	Root            string `json:"root"                       jsonschema:"Path to the decomposed root document"`
	Format          string `json:"format,omitempty"           jsonschema:"Output format: yaml (default) or json"`
	Validate        bool   `json:"validate,omitempty"         jsonschema:"Validate the bundled document as OpenAPI 3"`
	Output          string `json:"output,omitempty"           jsonschema:"File path to write the bundled document to"`
	IncludeDocument *bool  `json:"include_document,omitempty" jsonschema:"Return the bundled document inline (default true unless output is set)"`
}

type bundleOutput struct {
	RootPath  string   `json:"root_path"`
	Format    string   `json:"format"`
	FileCount int      `json:"file_count"`
	Files     []string `json:"files,omitempty"`
	Inlined   int      `json:"inlined"`
	Mapped    int      `json:"mapped"`
	Validated bool     `json:"validated,omitempty"`
	WrittenTo string   `json:"written_to,omitempty"`
	Document  string   `json:"document,omitempty"`
}

func handleBundle(ctx context.Context, _ *mcp.CallToolRequest, input bundleInput) (*mcp.CallToolResult, bundleOutput, error) {
	format, err := bundler.ParseFormat(input.Format)
	if err != nil {
		return errResult(err), bundleOutput{}, nil
	}
	opts := []bundler.Option{
		bundler.WithRootPath(input.Root),
		bundler.WithFormat(format),
		bundler.WithValidate(input.Validate),
	}
	if input.Output != "" {
		opts = append(opts, bundler.WithOutputPath(input.Output))
	}

	result, err := bundler.Bundle(ctx, opts...)
	if err != nil {
		return errResult(err), bundleOutput{}, nil
	}

	output := bundleOutput{
		RootPath:  result.RootPath,
		Format:    string(result.Format),
		FileCount: len(result.Files),
		Files:     paginate(result.Files, 0, 0),
		Inlined:   result.Inlined,
		Mapped:    result.Mapped,
		Validated: result.Validated,
		WrittenTo: result.OutputPath,
	}
	include := input.Output == ""
	if input.IncludeDocument != nil {
		include = *input.IncludeDocument
	}
	if include {
		output.Document = string(result.Data)
	}
	return nil, output, nil
}
