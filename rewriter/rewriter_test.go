package rewriter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/erraggy/oasplit/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v4"
)

const source = `openapi: 3.0.3
info:
  title: Hub API
  version: 1.0.0
paths:
  /farcaster/user:
    get:
      operationId: lookup-user
  /health:
    get:
      operationId: health
  /farcaster/cast/search:
    get:
      operationId: search-casts
components:
  securitySchemes:
    ApiKeyAuth:
      type: apiKey
      in: header
      name: x-api-key
  schemas:
    WidgetConfig:
      type: object
    User:
      type: object
    Cast:
      type: object
      properties:
        author:
          $ref: '#/components/schemas/User'
security:
  - ApiKeyAuth: []
`

func parse(t *testing.T, src string) *parser.ParseResult {
	t.Helper()
	res, err := parser.New().ParseBytes([]byte(src))
	require.NoError(t, err)
	return res
}

func samplePlan(t *testing.T, res *parser.ParseResult) *Plan {
	t.Helper()
	schemas, err := res.Schemas()
	require.NoError(t, err)
	categories := map[string]string{"WidgetConfig": "misc", "User": "user", "Cast": "cast"}
	for i := range schemas {
		schemas[i].Category = categories[schemas[i].Name]
	}
	paths, err := res.Paths()
	require.NoError(t, err)
	plan := &Plan{Schemas: schemas}
	for _, p := range paths {
		switch p.Template {
		case "/farcaster/user":
			p.Resource, p.Action = "user", "index"
			plan.Paths = append(plan.Paths, p)
		case "/farcaster/cast/search":
			p.Resource, p.Action = "cast", "search"
			plan.Paths = append(plan.Paths, p)
		default:
			plan.Inline = append(plan.Inline, p)
		}
	}
	components, err := res.Components(parser.ComponentSecuritySchemes)
	require.NoError(t, err)
	plan.Components = components
	return plan
}

func encode(t *testing.T, node *yaml.Node) string {
	t.Helper()
	out, err := parser.Encode(node)
	require.NoError(t, err)
	return string(out)
}

func TestBuild(t *testing.T) {
	res := parse(t, source)
	before := encode(t, res.Root)

	root, err := Build(res.Root, samplePlan(t, res))
	require.NoError(t, err)

	assert.Equal(t, `openapi: 3.0.3
info:
  title: Hub API
  version: 1.0.0
paths:
  /farcaster/cast/search:
    $ref: ./paths/cast/search.yaml
  /farcaster/user:
    $ref: ./paths/user/index.yaml
  /health:
    get:
      operationId: health
components:
  securitySchemes:
    ApiKeyAuth:
      $ref: ./components/securitySchemes/ApiKeyAuth.yaml
  schemas:
    Cast:
      $ref: ./components/schemas/cast.yaml#/Cast
    WidgetConfig:
      $ref: ./components/schemas/misc.yaml#/WidgetConfig
    User:
      $ref: ./components/schemas/user.yaml#/User
security:
  - ApiKeyAuth: []
`, encode(t, root))
	assert.Equal(t, before, encode(t, res.Root), "source must not change")
}

func TestBuildTags(t *testing.T) {
	res := parse(t, source)
	plan := samplePlan(t, res)
	plan.Tags = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: []*yaml.Node{parser.StringNode("cast")}}

	root, err := Build(res.Root, plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"openapi", "info", "tags", "paths", "components", "security"}, parser.MappingKeys(root))

	withTags := parse(t, "openapi: 3.0.3\ntags:\n  - name: existing\npaths: {}\n")
	root, err = Build(withTags.Root, &Plan{Tags: plan.Tags})
	require.NoError(t, err)
	tags, err := parser.Lookup(root, "tags")
	require.NoError(t, err)
	assert.Equal(t, yaml.MappingNode, tags.Content[0].Kind, "existing tags are kept")
}

func TestBuildMismatch(t *testing.T) {
	res := parse(t, source)

	t.Run("schema missing from plan", func(t *testing.T) {
		plan := samplePlan(t, res)
		plan.Schemas = plan.Schemas[1:]
		_, err := Build(res.Root, plan)
		assert.ErrorIs(t, err, ErrPlanMismatch)
	})

	t.Run("schema placed twice", func(t *testing.T) {
		plan := samplePlan(t, res)
		plan.Schemas = append(plan.Schemas, plan.Schemas[0])
		_, err := Build(res.Root, plan)
		require.ErrorIs(t, err, ErrPlanMismatch)
		assert.Contains(t, err.Error(), "referenced 2 times")
	})

	t.Run("unknown path", func(t *testing.T) {
		plan := samplePlan(t, res)
		plan.Paths = append(plan.Paths, parser.PathEntity{Template: "/farcaster/ghost", Resource: "ghost", Action: "index"})
		_, err := Build(res.Root, plan)
		require.ErrorIs(t, err, ErrPlanMismatch)
		assert.Contains(t, err.Error(), "not defined")
	})

	t.Run("component missing", func(t *testing.T) {
		plan := samplePlan(t, res)
		plan.Components = append(plan.Components, parser.ComponentEntity{Kind: parser.ComponentParameters, Name: "ApiKey"})
		_, err := Build(res.Root, plan)
		assert.ErrorIs(t, err, ErrPlanMismatch)
	})
}

func TestRelocate(t *testing.T) {
	res := parse(t, source)
	plan := samplePlan(t, res)
	ix := NewIndex(plan, "openapi.yaml")

	body := parse(t, `properties:
  author:
    $ref: '#/components/schemas/User'
  self:
    $ref: '#/components/schemas/Cast'
  deep:
    $ref: '#/components/schemas/User/properties/fid'
  auth:
    $ref: '#/components/securitySchemes/ApiKeyAuth'
  info:
    $ref: '#/info'
  external:
    $ref: './other.yaml'
  items:
    - $ref: '#/components/examples/Sample'
`).Root

	moved, n := ix.Relocate(body, "components/schemas/cast.yaml")
	assert.Equal(t, 6, n)

	got := map[string]string{}
	WalkRefs(moved, func(pointer string, ref *yaml.Node) { got[pointer] = ref.Value })
	assert.Equal(t, map[string]string{
		"/properties/author":   "./user.yaml#/User",
		"/properties/self":     "./cast.yaml#/Cast",
		"/properties/deep":     "./user.yaml#/User/properties/fid",
		"/properties/auth":     "../securitySchemes/ApiKeyAuth.yaml",
		"/properties/info":     "../../openapi.yaml#/info",
		"/properties/external": "./other.yaml",
		"/properties/items/0":  "../../openapi.yaml#/components/examples/Sample",
	}, got)

	var orig []string
	WalkRefs(body, func(_ string, ref *yaml.Node) { orig = append(orig, ref.Value) })
	assert.Contains(t, orig, "#/components/schemas/User", "body must not change")

	ref, ok := ix.Locate(parser.ComponentSchemas, "WidgetConfig")
	require.True(t, ok)
	assert.Equal(t, "./components/schemas/misc.yaml#/WidgetConfig", ref.String())
	assert.Equal(t, "openapi.yaml", ix.RootFile())
}

func TestTranslateFromPath(t *testing.T) {
	res := parse(t, source)
	ix := NewIndex(samplePlan(t, res), "openapi.yaml")
	assert.Equal(t, "../../components/schemas/user.yaml#/User",
		ix.Translate("#/components/schemas/User", "paths/user/index.yaml"))
}

func TestParseReference(t *testing.T) {
	ref, err := ParseReference("./components/schemas/cast.yaml#/Cast")
	require.NoError(t, err)
	assert.Equal(t, Reference{File: "components/schemas/cast.yaml", Anchor: "/Cast"}, ref)
	assert.Equal(t, "./components/schemas/cast.yaml#/Cast", ref.String())

	ref, err = ParseReference("./paths/cast/%7Bhash%7D.yaml")
	require.NoError(t, err)
	assert.Equal(t, Reference{File: "paths/cast/{hash}.yaml"}, ref)
	assert.Equal(t, "./paths/cast/%7Bhash%7D.yaml", ref.String())

	for _, bad := range []string{"#/components/schemas/Cast", "https://x/y.yaml", "/abs/y.yaml"} {
		_, err := ParseReference(bad)
		assert.Error(t, err, bad)
	}
}

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func TestScanAndRegenerate(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"components/schemas/user.yaml":      "User:\n  type: object\nFid:\n  type: integer\n",
		"components/schemas/cast.yaml":      "Cast:\n  type: object\n",
		"components/schemas/notes.txt":      "ignored",
		"components/parameters/ApiKey.yaml": "name: x-api-key\nin: header\n",
		"paths/user/index.yaml":             "get: {}\n",
		"paths/channel/invite_accept.yaml":  "post: {}\n",
		"paths/user/by~1username.yaml":      "get: {}\n",
	})

	plan, err := Scan(dir, "/farcaster", "yaml")
	require.NoError(t, err)
	require.Len(t, plan.Schemas, 3)
	assert.Equal(t, "cast", plan.Schemas[0].Category)
	require.Len(t, plan.Paths, 3)
	assert.Equal(t, "/farcaster/channel/invite/accept", plan.Paths[0].Template)
	assert.Equal(t, "/farcaster/user/by_username", plan.Paths[1].Template)
	assert.Equal(t, "/farcaster/user", plan.Paths[2].Template)
	require.Len(t, plan.Components, 1)
	assert.Equal(t, "ApiKey", plan.Components[0].Name)

	existing := parse(t, `openapi: 3.0.3
info:
  title: Hub API
paths:
  /farcaster/user:
    $ref: ./paths/user/index.yaml
  /farcaster/stale:
    $ref: ./paths/stale/index.yaml
  /health:
    get: {}
components:
  schemas:
    Old:
      $ref: ./components/schemas/old.yaml#/Old
`)
	root := Regenerate(existing.Root, plan)
	assert.Equal(t, `openapi: 3.0.3
info:
  title: Hub API
paths:
  /farcaster/channel/invite/accept:
    $ref: ./paths/channel/invite_accept.yaml
  /farcaster/user/by_username:
    $ref: ./paths/user/by~1username.yaml
  /farcaster/user:
    $ref: ./paths/user/index.yaml
  /health:
    get: {}
components:
  schemas:
    Cast:
      $ref: ./components/schemas/cast.yaml#/Cast
    Fid:
      $ref: ./components/schemas/user.yaml#/Fid
    User:
      $ref: ./components/schemas/user.yaml#/User
  parameters:
    ApiKey:
      $ref: ./components/parameters/ApiKey.yaml
`, encode(t, root))
}

func TestScanDuplicateSchema(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"components/schemas/a.yaml": "User:\n  type: object\n",
		"components/schemas/b.yaml": "User:\n  type: string\n",
	})
	_, err := Scan(dir, "/farcaster", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "User")
}

func TestScanEmpty(t *testing.T) {
	plan, err := Scan(t.TempDir(), "/farcaster", "")
	require.NoError(t, err)
	assert.Empty(t, plan.Schemas)
	assert.Empty(t, plan.Paths)
	assert.Equal(t, "yaml", plan.Ext)
}
