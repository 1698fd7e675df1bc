package oaserrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseError(t *testing.T) {
	t.Run("Error message with all fields", func(t *testing.T) {
		err := &ParseError{
			Path:    "/path/to/file.yaml",
			Line:    42,
			Column:  10,
			Message: "invalid syntax",
			Cause:   errors.New("underlying error"),
		}
		assert.Equal(t, "parse error in /path/to/file.yaml at line 42, column 10: invalid syntax: underlying error", err.Error())
	})

	t.Run("Error message with minimal fields", func(t *testing.T) {
		assert.Equal(t, "parse error", (&ParseError{}).Error())
	})

	t.Run("Is matches ErrParse only", func(t *testing.T) {
		err := &ParseError{Message: "test"}
		assert.ErrorIs(t, err, ErrParse)
		assert.NotErrorIs(t, err, ErrBrokenReference)
	})
}

func TestExtractionError(t *testing.T) {
	missing := &ExtractionError{Section: "schemas", Parent: "components"}
	assert.Equal(t, "extraction miss: components.schemas not found", missing.Error())

	empty := &ExtractionError{Section: "paths", Empty: true}
	assert.Equal(t, "extraction miss: paths is empty", empty.Error())

	wrapped := fmt.Errorf("schemas stage: %w", missing)
	assert.ErrorIs(t, wrapped, ErrExtractionMiss)
	assert.NotErrorIs(t, wrapped, ErrNameCollision)
}

func TestCollisionError(t *testing.T) {
	tests := []struct {
		name string
		err  *CollisionError
		want string
	}{
		{
			name: "two claimants",
			err:  &CollisionError{Kind: "path", Name: "paths/user/index.yaml", First: "/farcaster/user", Second: "/farcaster/user/index"},
			want: "name collision: path paths/user/index.yaml claimed by both /farcaster/user and /farcaster/user/index",
		},
		{
			name: "duplicate definition",
			err:  &CollisionError{Kind: "schema", Name: "User", First: "components.schemas"},
			want: "name collision: schema User defined more than once (components.schemas)",
		},
		{
			name: "bare",
			err:  &CollisionError{},
			want: "name collision",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.ErrorIs(t, tt.err, ErrNameCollision)
		})
	}
}

func TestReferenceError(t *testing.T) {
	t.Run("broken", func(t *testing.T) {
		err := &ReferenceError{Ref: "./paths/cast/delete.yaml", Pointer: "paths./farcaster/cast/delete", Message: "no candidate fragment"}
		assert.Equal(t, "broken reference: ./paths/cast/delete.yaml at paths./farcaster/cast/delete: no candidate fragment", err.Error())
		assert.ErrorIs(t, err, ErrBrokenReference)
		assert.NotErrorIs(t, err, ErrCircularReference)
	})

	t.Run("circular", func(t *testing.T) {
		err := &ReferenceError{Ref: "a.yaml", IsCircular: true}
		assert.Equal(t, "circular reference: a.yaml", err.Error())
		assert.ErrorIs(t, err, ErrCircularReference)
		assert.ErrorIs(t, err, ErrBrokenReference)
	})

	t.Run("traversal", func(t *testing.T) {
		err := &ReferenceError{Ref: "../../etc/passwd", IsPathTraversal: true}
		assert.ErrorIs(t, err, ErrPathTraversal)
	})

	t.Run("joined errors keep their kind", func(t *testing.T) {
		joined := errors.Join(&ReferenceError{Ref: "a"}, &ReferenceError{Ref: "b"})
		var refErr *ReferenceError
		require.ErrorAs(t, joined, &refErr)
		assert.Equal(t, "a", refErr.Ref)
	})
}

func TestWriteError(t *testing.T) {
	cause := errors.New("permission denied")
	err := &WriteError{Path: "out/paths/user", Op: "mkdir", Cause: cause}
	assert.Equal(t, "write failure (mkdir) out/paths/user: permission denied", err.Error())
	assert.ErrorIs(t, err, ErrWrite)
	assert.ErrorIs(t, err, cause)
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Path: "bundle.yaml", Cause: errors.New("invalid info")}
	assert.Equal(t, "validation error in bundle.yaml: invalid info", err.Error())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Option: "rules[0]", Value: ".*", Message: "catch-all pattern must be last"}
	assert.Equal(t, "configuration error for rules[0] (value: .*): catch-all pattern must be last", err.Error())
	assert.ErrorIs(t, err, ErrConfig)
	assert.NotErrorIs(t, err, ErrParse)
}
