package decomposer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erraggy/oasplit/classifier"
	"github.com/erraggy/oasplit/internal/pathutil"
	"github.com/erraggy/oasplit/internal/severity"
	"github.com/erraggy/oasplit/internal/testutil"
	"github.com/erraggy/oasplit/oaserrors"
	"github.com/erraggy/oasplit/parser"
	"github.com/erraggy/oasplit/reconciler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v4"
)

// decompose writes spec to spec.yaml in a temp dir and decomposes it into
// <dir>/out.
func decompose(t *testing.T, spec string, opts ...Option) (*DecomposeResult, string) {
	t.Helper()
	dir := t.TempDir()
	src := testutil.WriteFile(t, dir, "spec.yaml", spec)
	out := filepath.Join(dir, "out")
	all := append([]Option{WithFilePath(src), WithOutputDir(out)}, opts...)
	res, err := DecomposeWithOptions(context.Background(), all...)
	require.NoError(t, err)
	return res, out
}

func loadNode(t *testing.T, path string) *yaml.Node {
	t.Helper()
	node, err := parser.ParseFragment([]byte(testutil.ReadFile(t, path)), path)
	require.NoError(t, err)
	return node
}

func valueAt(t *testing.T, node *yaml.Node, pointer string) string {
	t.Helper()
	n, ok := parser.ResolvePointer(node, pointer)
	require.True(t, ok, "pointer %s not found", pointer)
	return n.Value
}

func pathKey(template string) string {
	return "/paths/" + pathutil.EscapePointerToken(template)
}

func TestDecomposeHubSpec(t *testing.T) {
	res, out := decompose(t, testutil.HubSpec)

	assert.Equal(t, []string{
		"components/parameters/Fid.yaml",
		"components/responses/NotFound.yaml",
		"components/schemas/cast.yaml",
		"components/schemas/channel.yaml",
		"components/schemas/error.yaml",
		"components/schemas/misc.yaml",
		"components/schemas/user.yaml",
		"components/securitySchemes/ApiKeyAuth.yaml",
		"openapi.yaml",
		"paths/cast/index.yaml",
		"paths/channel/invite_accept.yaml",
		"paths/user/index.yaml",
	}, res.Files)
	assert.Equal(t, res.Files, testutil.ListFiles(t, out))
	assert.Equal(t, res.Files, res.Changed)

	assert.Equal(t, filepath.Join(out, "openapi.yaml"), res.RootPath)
	assert.Equal(t, 7, res.SchemaCount())
	assert.Equal(t, []string{"WidgetConfig"}, res.Fallbacks)
	assert.Equal(t, []string{"/healthz"}, res.InlinePaths)
	assert.Equal(t, map[string]int{"securitySchemes": 1, "parameters": 1, "responses": 1}, res.Components)
	assert.True(t, res.TagsSynthesized)
	assert.False(t, res.DryRun)

	var categories []string
	for _, c := range res.Categories {
		categories = append(categories, c.Category)
	}
	assert.Equal(t, []string{"cast", "channel", "error", "misc", "user"}, categories)
	assert.Equal(t, []string{"Fid", "User", "UserResponse"}, res.Categories[4].Schemas)

	require.Len(t, res.Routes, 3)
	assert.Equal(t, RouteSummary{
		Template: "/farcaster/channel/invite/accept",
		Resource: "channel",
		Action:   "invite_accept",
		File:     "paths/channel/invite_accept.yaml",
	}, res.Routes[1])

	require.NotNil(t, res.Reconcile)
	assert.NotEmpty(t, res.Reconcile.Checks)
	assert.Equal(t, len(res.Reconcile.Checks), res.Reconcile.Count(reconciler.StateValid))
	assert.False(t, res.Reconcile.RootChanged)

	assert.Equal(t, 1, res.Issues.Count(severity.SeverityWarning), "only the inline path warns: %v", res.Issues)
}

func TestDecomposeRootDocument(t *testing.T) {
	_, out := decompose(t, testutil.HubSpec)
	root := loadNode(t, filepath.Join(out, "openapi.yaml"))

	assert.Equal(t, []string{"openapi", "info", "servers", "security", "tags", "paths", "components"}, parser.MappingKeys(root))

	paths, ok := parser.ResolvePointer(root, "/paths")
	require.True(t, ok)
	assert.Equal(t, []string{
		"/farcaster/cast",
		"/farcaster/channel/invite/accept",
		"/farcaster/user",
		"/healthz",
	}, parser.MappingKeys(paths))
	assert.Equal(t, "./paths/channel/invite_accept.yaml", valueAt(t, root, pathKey("/farcaster/channel/invite/accept")+"/$ref"))
	assert.Equal(t, "./paths/user/index.yaml", valueAt(t, root, pathKey("/farcaster/user")+"/$ref"))
	assert.Equal(t, "health", valueAt(t, root, pathKey("/healthz")+"/get/operationId"))

	components, ok := parser.ResolvePointer(root, "/components")
	require.True(t, ok)
	assert.Equal(t, []string{"securitySchemes", "parameters", "responses", "schemas"}, parser.MappingKeys(components))

	schemas, ok := parser.ResolvePointer(root, "/components/schemas")
	require.True(t, ok)
	assert.Equal(t, []string{"Cast", "Channel", "ErrorRes", "WidgetConfig", "Fid", "User", "UserResponse"}, parser.MappingKeys(schemas))
	assert.Equal(t, "./components/schemas/user.yaml#/Fid", valueAt(t, root, "/components/schemas/Fid/$ref"))
	assert.Equal(t, "./components/schemas/misc.yaml#/WidgetConfig", valueAt(t, root, "/components/schemas/WidgetConfig/$ref"))
	assert.Equal(t, "./components/parameters/Fid.yaml", valueAt(t, root, "/components/parameters/Fid/$ref"))
	assert.Equal(t, "./components/securitySchemes/ApiKeyAuth.yaml", valueAt(t, root, "/components/securitySchemes/ApiKeyAuth/$ref"))

	assert.Equal(t, "Cast", valueAt(t, root, "/tags/0/name"))
	assert.Equal(t, "Channel", valueAt(t, root, "/tags/1/name"))
	assert.Equal(t, "User", valueAt(t, root, "/tags/2/name"))
	assert.Equal(t, "Operations related to user", valueAt(t, root, "/tags/2/description"))
}

func TestDecomposeRelocatesReferences(t *testing.T) {
	_, out := decompose(t, testutil.HubSpec)
	file := func(rel string) *yaml.Node {
		return loadNode(t, filepath.Join(out, filepath.FromSlash(rel)))
	}

	users := file("components/schemas/user.yaml")
	assert.Equal(t, []string{"Fid", "User", "UserResponse"}, parser.MappingKeys(users))
	assert.Equal(t, "./user.yaml#/Fid", valueAt(t, users, "/User/properties/fid/$ref"))
	assert.Equal(t, "./user.yaml#/User", valueAt(t, users, "/UserResponse/properties/user/$ref"))

	casts := file("components/schemas/cast.yaml")
	assert.Equal(t, "./user.yaml#/User", valueAt(t, casts, "/Cast/properties/author/$ref"))

	lookup := file("paths/user/index.yaml")
	assert.Equal(t, "lookup-user", valueAt(t, lookup, "/get/operationId"))
	assert.Equal(t, "../../components/parameters/Fid.yaml", valueAt(t, lookup, "/get/parameters/0/$ref"))
	assert.Equal(t, "../../components/schemas/user.yaml#/UserResponse",
		valueAt(t, lookup, "/get/responses/200/content/application~1json/schema/$ref"))
	assert.Equal(t, "../../components/responses/NotFound.yaml", valueAt(t, lookup, "/get/responses/404/$ref"))

	param := file("components/parameters/Fid.yaml")
	assert.Equal(t, "../schemas/user.yaml#/Fid", valueAt(t, param, "/schema/$ref"))

	notFound := file("components/responses/NotFound.yaml")
	assert.Equal(t, "../schemas/error.yaml#/ErrorRes", valueAt(t, notFound, "/content/application~1json/schema/$ref"))
}

func TestDecomposeDoesNotModifyParsedSource(t *testing.T) {
	res, err := parser.New().ParseBytes([]byte(testutil.HubSpec))
	require.NoError(t, err)
	before, err := parser.Encode(res.Root)
	require.NoError(t, err)

	_, err = DecomposeWithOptions(context.Background(), WithParsed(res), WithOutputDir(t.TempDir()))
	require.NoError(t, err)

	after, err := parser.Encode(res.Root)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestDecomposeIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteFile(t, dir, "spec.yaml", testutil.HubSpec)
	out := filepath.Join(dir, "out")
	run := func() *DecomposeResult {
		res, err := DecomposeWithOptions(context.Background(), WithFilePath(src), WithOutputDir(out))
		require.NoError(t, err)
		return res
	}

	first := run()
	snapshot := make(map[string]string)
	for _, rel := range first.Files {
		snapshot[rel] = testutil.ReadFile(t, filepath.Join(out, filepath.FromSlash(rel)))
	}

	second := run()
	assert.Equal(t, first.Files, second.Files)
	assert.Empty(t, second.Changed, "a second run must not change any file")
	assert.Equal(t, string(first.Root), string(second.Root))
	for rel, content := range snapshot {
		assert.Equal(t, content, testutil.ReadFile(t, filepath.Join(out, filepath.FromSlash(rel))), rel)
	}
}

func TestDecomposeDryRun(t *testing.T) {
	res, out := decompose(t, testutil.HubSpec, WithDryRun(true))

	assert.True(t, res.DryRun)
	assert.Len(t, res.Files, 12)
	assert.Empty(t, res.Changed)
	assert.Nil(t, res.Reconcile)
	assert.Contains(t, string(res.Root), "./paths/user/index.yaml")
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "dry run must not create the output directory")
}

func TestDecomposeCollisionsAbortBeforeWriting(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{
			name: "duplicate schema",
			spec: "openapi: 3.0.3\ncomponents:\n  schemas:\n    User:\n      type: object\n    User:\n      type: string\n",
		},
		{
			name: "duplicate path",
			spec: "openapi: 3.0.3\npaths:\n  /farcaster/cast:\n    get: {}\n  /farcaster/cast:\n    post: {}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := testutil.WriteFile(t, dir, "spec.yaml", tt.spec)
			out := filepath.Join(dir, "out")

			_, err := DecomposeWithOptions(context.Background(), WithFilePath(src), WithOutputDir(out))
			require.Error(t, err)
			assert.True(t, errors.Is(err, oaserrors.ErrNameCollision), "got %v", err)

			_, statErr := os.Stat(out)
			assert.True(t, os.IsNotExist(statErr), "nothing may be written on collision")
		})
	}
}

func TestDecomposeMissingSections(t *testing.T) {
	spec := "openapi: 3.0.3\ninfo:\n  title: Paths only\n  version: 1.0.0\npaths:\n  /farcaster/cast:\n    get: {}\n"
	res, out := decompose(t, spec)

	assert.Equal(t, []string{"openapi.yaml", "paths/cast/index.yaml"}, testutil.ListFiles(t, out))
	assert.Zero(t, res.SchemaCount())
	assert.Empty(t, res.Components)

	var missed []string
	for _, issue := range res.Issues {
		if issue.Stage == "extract" {
			assert.Equal(t, severity.SeverityInfo, issue.Severity)
			missed = append(missed, issue.Path)
		}
	}
	assert.Equal(t, []string{"components.schemas", "components.securitySchemes", "components.parameters", "components.responses"}, missed)

	root := loadNode(t, res.RootPath)
	assert.Equal(t, []string{"openapi", "info", "tags", "paths"}, parser.MappingKeys(root))
}

func TestDecomposeWithoutComponentExtraction(t *testing.T) {
	res, out := decompose(t, testutil.HubSpec, WithExtractComponents(false))

	assert.Nil(t, res.Components)
	assert.NotContains(t, res.Files, "components/parameters/Fid.yaml")

	root := loadNode(t, filepath.Join(out, "openapi.yaml"))
	assert.Equal(t, "fid", valueAt(t, root, "/components/parameters/Fid/name"))
	assert.Equal(t, "#/components/schemas/Fid", valueAt(t, root, "/components/parameters/Fid/schema/$ref"))

	lookup := loadNode(t, filepath.Join(out, "paths", "user", "index.yaml"))
	assert.Equal(t, "../../openapi.yaml#/components/parameters/Fid", valueAt(t, lookup, "/get/parameters/0/$ref"))
}

func TestDecomposeKeepsExistingTags(t *testing.T) {
	res, out := decompose(t, testutil.HubSpecTagged)

	assert.False(t, res.TagsSynthesized)
	root := loadNode(t, filepath.Join(out, "openapi.yaml"))
	tags, ok := parser.ResolvePointer(root, "/tags")
	require.True(t, ok)
	require.Len(t, tags.Content, 1)
	assert.Equal(t, "Users", valueAt(t, root, "/tags/0/name"))
}

func TestDecomposeTagSynthesisDisabled(t *testing.T) {
	res, out := decompose(t, testutil.HubSpec, WithSynthesizeTags(false))

	assert.False(t, res.TagsSynthesized)
	root := loadNode(t, filepath.Join(out, "openapi.yaml"))
	assert.NotContains(t, parser.MappingKeys(root), "tags")
}

func TestDecomposeCustomRulesAndPrefix(t *testing.T) {
	spec := strings.ReplaceAll(testutil.HubSpec, "/farcaster/", "/v2/hub/")
	res, out := decompose(t, spec,
		WithPrefix("/v2/hub"),
		WithRules(classifier.RuleTable{{Category: "people", Pattern: "User|Fid"}}),
		WithCatchAll("other"),
		WithExt("yml"),
	)

	assert.Contains(t, res.Files, "components/schemas/people.yml")
	assert.Contains(t, res.Files, "components/schemas/other.yml")
	assert.Contains(t, res.Files, "paths/channel/invite_accept.yml")
	assert.Contains(t, res.Files, "openapi.yaml")
	assert.ElementsMatch(t, []string{"Cast", "Channel", "ErrorRes", "WidgetConfig"}, res.Fallbacks)

	root := loadNode(t, filepath.Join(out, "openapi.yaml"))
	assert.Equal(t, "./components/schemas/people.yml#/User", valueAt(t, root, "/components/schemas/User/$ref"))
}

func TestDecomposeJSONBytes(t *testing.T) {
	spec := `{
  "openapi": "3.1.0",
  "info": {"title": "JSON", "version": "1"},
  "paths": {"/farcaster/cast/search": {"get": {"responses": {"200": {"$ref": "#/components/responses/Ok"}}}}},
  "components": {
    "responses": {"Ok": {"description": "OK"}},
    "schemas": {"CastId": {"type": "string"}}
  }
}`
	out := t.TempDir()
	res, err := DecomposeWithOptions(context.Background(), WithBytes([]byte(spec)), WithOutputDir(out))
	require.NoError(t, err)

	assert.Equal(t, parser.SourceFormatJSON, res.SourceFormat)
	assert.Equal(t, []string{
		"components/responses/Ok.yaml",
		"components/schemas/cast.yaml",
		"openapi.yaml",
		"paths/cast/search.yaml",
	}, testutil.ListFiles(t, out))

	search := loadNode(t, filepath.Join(out, "paths", "cast", "search.yaml"))
	assert.Equal(t, "../../components/responses/Ok.yaml", valueAt(t, search, "/get/responses/200/$ref"))
	assert.NotContains(t, testutil.ReadFile(t, filepath.Join(out, "paths", "cast", "search.yaml")), "{",
		"JSON input is written as block YAML")
}

func TestDecomposeRefusesToOverwriteSource(t *testing.T) {
	src := testutil.WriteTempYAML(t, testutil.HubSpec)

	_, err := DecomposeWithOptions(context.Background(), WithFilePath(src))
	require.Error(t, err)
	assert.True(t, errors.Is(err, oaserrors.ErrConfig), "got %v", err)
	assert.Equal(t, testutil.HubSpec, testutil.ReadFile(t, src))
}

func TestDecomposeInvalidConfiguration(t *testing.T) {
	src := testutil.WriteTempYAML(t, testutil.HubSpecTagged)
	tests := []struct {
		name string
		opts []Option
	}{
		{"no source", []Option{WithOutputDir(t.TempDir())}},
		{"two sources", []Option{WithFilePath(src), WithBytes([]byte("openapi: 3.0.3\n"))}},
		{"bytes without output dir", []Option{WithBytes([]byte("openapi: 3.0.3\n"))}},
		{"empty file path", []Option{WithFilePath("")}},
		{"duplicate without reconcile", []Option{WithFilePath(src), WithReconcile(false), WithAllowDuplicate(true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecomposeWithOptions(context.Background(), tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid options")
		})
	}

	configErrors := []struct {
		name string
		opts []Option
	}{
		{"bad prefix", []Option{WithPrefix("farcaster")}},
		{"bad extension", []Option{WithExt("json")}},
		{"bad catch-all", []Option{WithCatchAll("a/b")}},
		{"bad root name", []Option{WithRootName("sub/openapi.yaml")}},
	}
	for _, tt := range configErrors {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithFilePath(src), WithOutputDir(t.TempDir())}, tt.opts...)
			_, err := DecomposeWithOptions(context.Background(), opts...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, oaserrors.ErrConfig), "got %v", err)
		})
	}
}

func TestDecomposeCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := testutil.WriteTempYAML(t, testutil.HubSpec)
	out := filepath.Join(t.TempDir(), "out")
	_, err := DecomposeWithOptions(ctx, WithFilePath(src), WithOutputDir(out))
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDecomposeParseError(t *testing.T) {
	_, err := DecomposeWithOptions(context.Background(),
		WithBytes([]byte("openapi: [unclosed")), WithOutputDir(t.TempDir()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, oaserrors.ErrParse))
}
