package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erraggy/oasplit/internal/testutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

// decomposeHub decomposes HubSpec into a fresh directory and returns the root path.
func decomposeHub(t *testing.T) string {
	t.Helper()
	out := t.TempDir()
	res, output, err := handleDecompose(context.Background(), &mcp.CallToolRequest{}, decomposeInput{
		Spec:      specInput{Content: testutil.HubSpec},
		OutputDir: out,
	})
	require.NoError(t, err)
	require.Nil(t, res, "unexpected tool error")
	return output.RootPath
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestDecomposeTool_Content(t *testing.T) {
	documents.reset()
	out := t.TempDir()
	res, output, err := handleDecompose(context.Background(), &mcp.CallToolRequest{}, decomposeInput{
		Spec:        specInput{Content: testutil.HubSpec},
		OutputDir:   out,
		IncludeRoot: true,
	})
	require.NoError(t, err)
	require.Nil(t, res)

	assert.Equal(t, filepath.Join(out, "openapi.yaml"), output.RootPath)
	assert.Equal(t, 7, output.SchemaCount)
	assert.Equal(t, 3, output.RouteCount)
	assert.Equal(t, []string{"/healthz"}, output.InlinePaths)
	assert.Equal(t, []string{"WidgetConfig"}, output.Fallbacks)
	assert.True(t, output.TagsSynthesized)
	assert.Equal(t, 12, output.FileCount)
	assert.Equal(t, 12, output.Returned)
	assert.Equal(t, 12, output.ChangedCount)
	assert.Len(t, output.Categories, 5)
	assert.Contains(t, output.Root, "$ref: ./paths/user/index.yaml")
	assert.Equal(t, output.Files, testutil.ListFiles(t, out))
}

func TestDecomposeTool_FileDefaultsToSourceDir(t *testing.T) {
	documents.reset()
	dir := t.TempDir()
	src := testutil.WriteFile(t, dir, "hub.yaml", testutil.HubSpec)

	res, output, err := handleDecompose(context.Background(), &mcp.CallToolRequest{}, decomposeInput{
		Spec:              specInput{File: src},
		ExtractComponents: boolPtr(false),
		SynthesizeTags:    boolPtr(false),
	})
	require.NoError(t, err)
	require.Nil(t, res)
	assert.Equal(t, filepath.Join(dir, "openapi.yaml"), output.RootPath)
	assert.Empty(t, output.Components)
	assert.False(t, output.TagsSynthesized)
	assert.FileExists(t, filepath.Join(dir, "components", "schemas", "user.yaml"))
	assert.NoDirExists(t, filepath.Join(dir, "components", "parameters"))
}

func TestDecomposeTool_DryRunAndPagination(t *testing.T) {
	documents.reset()
	out := t.TempDir()
	res, output, err := handleDecompose(context.Background(), &mcp.CallToolRequest{}, decomposeInput{
		Spec:      specInput{Content: testutil.HubSpec},
		OutputDir: out,
		DryRun:    true,
		Offset:    10,
		Limit:     5,
	})
	require.NoError(t, err)
	require.Nil(t, res)
	assert.True(t, output.DryRun)
	assert.Equal(t, 12, output.FileCount)
	assert.Equal(t, []string{"paths/channel/invite_accept.yaml", "paths/user/index.yaml"}, output.Files)
	assert.Equal(t, 2, output.Returned)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDecomposeTool_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input decomposeInput
		want  string
	}{
		{
			name:  "inline content without output_dir",
			input: decomposeInput{Spec: specInput{Content: testutil.HubSpec}},
			want:  "output_dir is required",
		},
		{
			name:  "no spec",
			input: decomposeInput{OutputDir: "out"},
			want:  "exactly one of file or content",
		},
		{
			name:  "malformed rule",
			input: decomposeInput{Spec: specInput{Content: testutil.HubSpec}, OutputDir: "out", Rules: []string{"user"}},
			want:  "category=pattern",
		},
		{
			name:  "bad extension",
			input: decomposeInput{Spec: specInput{Content: testutil.HubSpec}, OutputDir: "out", Ext: "json"},
			want:  "yaml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.input.OutputDir != "" {
				tt.input.OutputDir = filepath.Join(t.TempDir(), tt.input.OutputDir)
			}
			res, _, err := handleDecompose(context.Background(), &mcp.CallToolRequest{}, tt.input)
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.want)
		})
	}
}

func TestReconcileTool_Valid(t *testing.T) {
	root := decomposeHub(t)

	res, output, err := handleReconcile(context.Background(), &mcp.CallToolRequest{}, reconcileInput{Root: root})
	require.NoError(t, err)
	require.Nil(t, res)
	assert.Equal(t, 13, output.Valid)
	assert.Zero(t, output.Irreparable)
	assert.False(t, output.RootChanged)
	assert.Empty(t, output.Checks, "valid checks are hidden by default")

	_, output, err = handleReconcile(context.Background(), &mcp.CallToolRequest{}, reconcileInput{Root: root, All: true, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, output.Returned)
	assert.Equal(t, "valid", output.Checks[0].State)
}

func TestReconcileTool_Irreparable(t *testing.T) {
	root := decomposeHub(t)
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(root), "paths", "cast", "index.yaml")))

	res, output, err := handleReconcile(context.Background(), &mcp.CallToolRequest{}, reconcileInput{Root: root})
	require.NoError(t, err)
	require.Nil(t, res, "irreparable references are data, not a tool error")
	assert.Equal(t, 1, output.Irreparable)
	require.Len(t, output.Checks, 1)
	assert.Equal(t, "irreparable", output.Checks[0].State)
	assert.Equal(t, "/farcaster/cast", output.Checks[0].Subject)
	assert.NotEmpty(t, output.Issues)
}

func TestReconcileTool_MissingRoot(t *testing.T) {
	res, _, err := handleReconcile(context.Background(), &mcp.CallToolRequest{}, reconcileInput{Root: filepath.Join(t.TempDir(), "openapi.yaml")})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsError)
}

func TestBundleTool(t *testing.T) {
	root := decomposeHub(t)

	t.Run("yaml inline", func(t *testing.T) {
		res, output, err := handleBundle(context.Background(), &mcp.CallToolRequest{}, bundleInput{Root: root})
		require.NoError(t, err)
		require.Nil(t, res)
		assert.Equal(t, "yaml", output.Format)
		assert.Equal(t, 11, output.FileCount)
		assert.True(t, strings.HasPrefix(output.Document, "openapi: 3.0.3\n"))
		assert.NotContains(t, output.Document, "./components/")
	})

	t.Run("json to file", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "dist", "openapi.json")
		res, output, err := handleBundle(context.Background(), &mcp.CallToolRequest{}, bundleInput{Root: root, Format: "json", Output: dest})
		require.NoError(t, err)
		require.Nil(t, res)
		assert.Equal(t, dest, output.WrittenTo)
		assert.Empty(t, output.Document)
		assert.True(t, strings.HasPrefix(testutil.ReadFile(t, dest), "{"))
	})

	t.Run("bad format", func(t *testing.T) {
		res, _, err := handleBundle(context.Background(), &mcp.CallToolRequest{}, bundleInput{Root: root, Format: "xml"})
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.True(t, res.IsError)
	})
}

func TestClassifyTool(t *testing.T) {
	documents.reset()

	t.Run("default rules", func(t *testing.T) {
		res, output, err := handleClassify(context.Background(), &mcp.CallToolRequest{}, classifyInput{Spec: specInput{Content: testutil.HubSpec}})
		require.NoError(t, err)
		require.Nil(t, res)
		assert.Equal(t, 7, output.SchemaCount)
		assert.Equal(t, "misc", output.CatchAll)
		assert.Equal(t, []string{"WidgetConfig"}, output.Fallbacks)
		require.Len(t, output.Categories, 5)
		assert.Equal(t, "cast", output.Categories[0].Category)
	})

	t.Run("custom rules", func(t *testing.T) {
		res, output, err := handleClassify(context.Background(), &mcp.CallToolRequest{}, classifyInput{
			Spec:     specInput{Content: testutil.HubSpec},
			Rules:    []string{"widget=^Widget"},
			CatchAll: "other",
		})
		require.NoError(t, err)
		require.Nil(t, res)
		assert.Equal(t, []string{"widget=^Widget"}, output.Rules)
		require.Len(t, output.Categories, 2)
		assert.Equal(t, classifyGroup{Category: "widget", Schemas: []string{"WidgetConfig"}}, output.Categories[1])
		assert.Len(t, output.Fallbacks, 6)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		res, _, err := handleClassify(context.Background(), &mcp.CallToolRequest{}, classifyInput{
			Spec:  specInput{Content: testutil.HubSpec},
			Rules: []string{"bad=("},
		})
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.True(t, res.IsError)
	})
}
