package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erraggy/oasplit/internal/options"
	"github.com/erraggy/oasplit/oaserrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v4"
)

const sampleSpec = `openapi: 3.0.3
info:
  title: Hub API
  version: 1.0.0
paths:
  /farcaster/user/bulk:
    get:
      operationId: fetch-bulk-users
      responses:
        "200":
          description: OK
  /farcaster/cast:
    get:
      operationId: lookup-cast
      responses:
        "200":
          description: OK
components:
  schemas:
    User:
      type: object
    CastHash:
      type: string
  parameters:
    ApiKey:
      name: x-api-key
      in: header
      schema:
        type: string
`

func TestParseBytes(t *testing.T) {
	res, err := New().ParseBytes([]byte(sampleSpec))
	require.NoError(t, err)

	assert.Equal(t, "ParseBytes.yaml", res.SourcePath)
	assert.Equal(t, SourceFormatYAML, res.SourceFormat)
	assert.Equal(t, int64(len(sampleSpec)), res.SourceSize)
	assert.Equal(t, []string{"openapi", "info", "paths", "components"}, res.Sections())
	assert.Equal(t, "3.0.3", res.OpenAPIVersion())
}

func TestParseJSON(t *testing.T) {
	res, err := New().ParseBytes([]byte(`{"openapi": "3.1.0", "paths": {}}`))
	require.NoError(t, err)
	assert.Equal(t, SourceFormatJSON, res.SourceFormat)
	assert.Equal(t, "ParseBytes.json", res.SourcePath)
	assert.Equal(t, "3.1.0", res.OpenAPIVersion())
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openapi.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSpec), 0o600))

	res, err := New().Parse(path)
	require.NoError(t, err)
	assert.Equal(t, path, res.SourcePath)
	assert.Equal(t, SourceFormatYAML, res.SourceFormat)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"invalid yaml", "openapi: [unclosed", oaserrors.ErrParse},
		{"empty document", "", oaserrors.ErrParse},
		{"top-level sequence", "- a\n- b\n", oaserrors.ErrParse},
		{"top-level scalar", "just text\n", oaserrors.ErrParse},
		{"duplicate section", "openapi: 3.0.0\npaths: {}\npaths: {}\n", oaserrors.ErrNameCollision},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().ParseBytes([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := New().Parse(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	var perr *oaserrors.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Path, "missing.yaml")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseReader(t *testing.T) {
	res, err := New().ParseReader(strings.NewReader(sampleSpec))
	require.NoError(t, err)
	assert.Equal(t, "ParseReader.yaml", res.SourcePath)
}

func TestParseFragment(t *testing.T) {
	node, err := ParseFragment([]byte("- one\n- two\n"), "list.yaml")
	require.NoError(t, err)
	assert.Equal(t, yaml.SequenceNode, node.Kind)
	assert.Len(t, node.Content, 2)

	_, err = ParseFragment([]byte("  \n"), "blank.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, oaserrors.ErrParse)
}

func TestParseWithOptions(t *testing.T) {
	t.Run("bytes with source name", func(t *testing.T) {
		res, err := ParseWithOptions(WithBytes([]byte(sampleSpec)), WithSourceName("hub.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "hub.yaml", res.SourcePath)
	})

	t.Run("no source", func(t *testing.T) {
		_, err := ParseWithOptions()
		require.Error(t, err)
		assert.ErrorIs(t, err, options.ErrNoSource)
	})

	t.Run("two sources", func(t *testing.T) {
		_, err := ParseWithOptions(WithBytes([]byte(sampleSpec)), WithReader(strings.NewReader(sampleSpec)))
		require.Error(t, err)
		assert.ErrorIs(t, err, options.ErrMultipleSources)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := ParseWithOptions(WithFilePath(""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file path cannot be empty")
	})
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 MiB", FormatBytes(1024*1024*3/2))
	assert.Equal(t, "-1 B", FormatBytes(-1))
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want SourceFormat
	}{
		{"json extension", "hub.json", "openapi: 3.0.3", SourceFormatJSON},
		{"yml extension", "hub.YML", `{"openapi": "3.0.3"}`, SourceFormatYAML},
		{"json content", "", "\n  {\"openapi\": \"3.0.3\"}", SourceFormatJSON},
		{"yaml content", "", "openapi: 3.0.3\n", SourceFormatYAML},
		{"unknown extension", "hub.txt", "openapi: 3.0.3\n", SourceFormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.file, []byte(tt.data)))
		})
	}
}
