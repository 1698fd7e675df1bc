package fragment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/erraggy/oasplit/oaserrors"
	"github.com/erraggy/oasplit/parser"
	"github.com/erraggy/oasplit/pathsplit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v4"
)

func node(t *testing.T, src string) *yaml.Node {
	t.Helper()
	n, err := parser.ParseFragment([]byte(src), "test.yaml")
	require.NoError(t, err)
	return n
}

func newWriter(t *testing.T, dir string) *Writer {
	t.Helper()
	w, err := New(Config{Dir: dir})
	require.NoError(t, err)
	return w
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestWriteSchemas(t *testing.T) {
	dir := t.TempDir()
	w := newWriter(t, dir)

	rel, err := w.WriteSchemas("user", []parser.SchemaEntity{
		{Name: "User", Body: node(t, "type: object\nproperties:\n    fid:\n        type: integer\n")},
		{Name: "Fid", Body: node(t, "type: integer\n")},
	})
	require.NoError(t, err)
	assert.Equal(t, "components/schemas/user.yaml", rel)
	assert.Equal(t, `User:
  type: object
  properties:
    fid:
      type: integer
Fid:
  type: integer
`, readFile(t, filepath.Join(dir, "components", "schemas", "user.yaml")))
}

func TestWritePath(t *testing.T) {
	dir := t.TempDir()
	w := newWriter(t, dir)

	route := pathsplit.Route{Template: "/farcaster/channel/invite/accept", Resource: "channel", Action: "invite_accept"}
	rel, err := w.WritePath(route, node(t, "post:\n  operationId: accept-channel-invite\n"))
	require.NoError(t, err)
	assert.Equal(t, "paths/channel/invite_accept.yaml", rel)
	assert.Equal(t, "post:\n  operationId: accept-channel-invite\n",
		readFile(t, filepath.Join(dir, "paths", "channel", "invite_accept.yaml")))
}

func TestWriteComponent(t *testing.T) {
	dir := t.TempDir()
	w := newWriter(t, dir)

	rel, err := w.WriteComponent(parser.ComponentParameters, "ApiKey", node(t, "name: x-api-key\nin: header\n"))
	require.NoError(t, err)
	assert.Equal(t, "components/parameters/ApiKey.yaml", rel)
	assert.FileExists(t, filepath.Join(dir, "components", "parameters", "ApiKey.yaml"))

	_, err = w.WriteComponent(parser.ComponentParameters, "a/b", node(t, "x: 1\n"))
	assert.ErrorIs(t, err, oaserrors.ErrWrite)
}

func TestWriteTwiceCollides(t *testing.T) {
	w := newWriter(t, t.TempDir())
	route := pathsplit.Route{Template: "/farcaster/user", Resource: "user", Action: "index"}
	_, err := w.WritePath(route, node(t, "get: {}\n"))
	require.NoError(t, err)

	other := pathsplit.Route{Template: "/farcaster/user/index", Resource: "user", Action: "index"}
	_, err = w.WritePath(other, node(t, "get: {}\n"))
	require.Error(t, err)
	var collision *oaserrors.CollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "paths/user/index.yaml", collision.Name)
	assert.Equal(t, "/farcaster/user", collision.First)
	assert.Equal(t, "/farcaster/user/index", collision.Second)
}

func TestIdempotentBytes(t *testing.T) {
	dir := t.TempDir()
	body := node(t, "get:\n  responses:\n    \"200\":\n      description: OK\n")
	route := pathsplit.Route{Template: "/farcaster/cast", Resource: "cast", Action: "index"}

	w1 := newWriter(t, dir)
	_, err := w1.WritePath(route, body)
	require.NoError(t, err)
	first := readFile(t, filepath.Join(dir, "paths", "cast", "index.yaml"))
	assert.Equal(t, []string{"paths/cast/index.yaml"}, w1.Changed())

	w2 := newWriter(t, dir)
	_, err = w2.WritePath(route, body)
	require.NoError(t, err)
	assert.Equal(t, first, readFile(t, filepath.Join(dir, "paths", "cast", "index.yaml")))
	assert.Empty(t, w2.Changed(), "second run must not rewrite identical bytes")
	assert.Equal(t, []string{"paths/cast/index.yaml"}, w2.Written())
}

func TestDryRun(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Dir: dir, DryRun: true})
	require.NoError(t, err)

	_, err = w.WriteSchemas("cast", []parser.SchemaEntity{{Name: "Cast", Body: node(t, "type: object\n")}})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "components", "schemas", "cast.yaml"))
	assert.Equal(t, []string{"components/schemas/cast.yaml"}, w.Written())
}

func TestNewErrors(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, oaserrors.ErrConfig)
	_, err = New(Config{Dir: "out", Ext: "json"})
	assert.ErrorIs(t, err, oaserrors.ErrConfig)

	w, err := New(Config{Dir: "out", Ext: "yml"})
	require.NoError(t, err)
	assert.Equal(t, "yml", w.Ext())
	assert.Equal(t, "components/schemas/misc.yml", SchemaFile("misc", w.Ext()))
}

func TestWriteFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paths"), []byte("x"), 0o600))

	w := newWriter(t, dir)
	_, err := w.WritePath(pathsplit.Route{Template: "/farcaster/cast", Resource: "cast", Action: "index"}, node(t, "get: {}\n"))
	assert.ErrorIs(t, err, oaserrors.ErrWrite)
}
