// Package mcpserver implements an MCP (Model Context Protocol) server
// that exposes oasplit capabilities as MCP tools over stdio.
package mcpserver

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/erraggy/oasplit"
	"github.com/erraggy/oasplit/internal/config"
	"github.com/erraggy/oasplit/internal/issues"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `oasplit MCP server: decomposes OpenAPI 3.x documents into fragment trees, repairs broken fragment references, bundles trees back into one document, and previews schema classification.

Configuration: pipeline defaults (prefix, extension, rules, catch-all, component extraction, tag synthesis, duplicate repair) come from the project config file (oasplit.toml, .yaml, .yml or .json) in the server's working directory and the OASPLIT_* environment variables. Tool arguments override both.

Server settings:
- OASPLIT_MCP_CACHE_ENABLED (default: true): cache parsed documents per session
- OASPLIT_MCP_CACHE_FILE_TTL (default: 15m): cache TTL for file inputs
- OASPLIT_MCP_LIST_LIMIT (default: 100): default page size for result lists
- OASPLIT_MCP_MAX_INLINE_SIZE (default: 10MiB): largest accepted inline content

Typical flow: classify to check the rule table, decompose with dry_run=true to preview, decompose to write, reconcile after hand edits, bundle to publish.`

// Run starts the MCP server over stdio and blocks until the client disconnects
// or the context is cancelled.
func Run(ctx context.Context) error {
	if cfg.Cache.Enabled {
		documents.startSweeper(ctx, cfg.Cache.SweepInterval)
	}

	server := mcp.NewServer(
		&mcp.Implementation{Name: "oasplit", Version: oasplit.Version()},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)
	registerAllTools(server)
	return server.Run(ctx, &mcp.StdioTransport{})
}

func registerAllTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "decompose",
		Description: "Split an OpenAPI 3.x document into a root document plus fragment files: components/schemas/<category>.yaml, components/<kind>/<Name>.yaml and paths/<resource>/<action>.yaml. Requires output_dir for inline content. Use dry_run=true to preview the file list without writing. References are checked and repaired after writing unless reconcile=false.",
	}, handleDecompose)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reconcile",
		Description: "Check every schema, path and component reference of a decomposed root document. Broken references whose content lives in another fragment are re-pointed there; with allow_duplicate=true a missing path fragment is filled with a sibling's copy (flagged for review). Returns the non-valid checks by default; use all=true for every check.",
	}, handleReconcile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bundle",
		Description: "Inline a decomposed fragment tree back into a single OpenAPI document. Fragment references are replaced by their content or mapped to local #/components pointers. Use format=json for JSON output, validate=true to validate the result as OpenAPI 3, and output to write to a file instead of returning the document inline.",
	}, handleBundle)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "classify",
		Description: "Preview which category file each schema would be written to. Rules are category=pattern regular expressions tried in order; the first match wins and unmatched schemas fall back to the catch-all category. Nothing is written.",
	}, handleClassify)
}

// pipelineDefaults returns the project configuration the tools start from.
func pipelineDefaults() *config.Config {
	c, err := config.LoadDir(".")
	if err != nil {
		slog.Warn("invalid project config, using defaults", "error", err)
		c = config.Default()
	}
	c.ApplyEnv()
	return c
}

// paginate applies offset/limit pagination to a slice, returning the
// requested page. A non-positive limit defaults to cfg.PageSize.
func paginate[T any](items []T, offset, limit int) []T {
	if limit <= 0 {
		limit = cfg.PageSize
	}
	if limit > cfg.MaxPageSize {
		limit = cfg.MaxPageSize
	}
	if offset < 0 || offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end < offset || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// makeSlice returns nil when n is 0 (preserving omitempty JSON semantics),
// otherwise returns make([]T, 0, n) for pre-allocated appending.
func makeSlice[T any](n int) []T {
	if n == 0 {
		return nil
	}
	return make([]T, 0, n)
}

// issueOutput is the wire form of an issues.Issue.
type issueOutput struct {
	Stage    string `json:"stage"`
	Severity string `json:"severity"`
	Path     string `json:"path,omitempty"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

func toIssueOutputs(list issues.List) []issueOutput {
	out := makeSlice[issueOutput](len(list))
	for _, i := range list {
		out = append(out, issueOutput{
			Stage:    i.Stage,
			Severity: i.Severity.String(),
			Path:     i.Path,
			File:     i.File,
			Line:     i.Line,
			Message:  i.Message,
		})
	}
	return out
}

// sanitizeError strips absolute filesystem paths from error messages
// to prevent leaking internal directory structure to MCP clients.
var pathPattern = regexp.MustCompile(`(?:/(?:home|tmp|var|Users|etc|opt|usr|private|root|mnt|srv|run|snap|nix)[a-zA-Z0-9._/-]*)`)

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return pathPattern.ReplaceAllString(err.Error(), "<path>")
}

// errResult creates an MCP error result from an error.
func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: sanitizeError(err)}},
	}
}
