package commands

import (
	"bytes"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erraggy/oasplit/internal/issues"
	"github.com/erraggy/oasplit/internal/severity"
	"github.com/erraggy/oasplit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects Stdout and Stderr for the rest of the test.
func captureOutput(t *testing.T) (stdout, stderr *bytes.Buffer) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr := Stdout, Stderr
	Stdout, Stderr = stdout, stderr
	t.Cleanup(func() { Stdout, Stderr = prevOut, prevErr })
	return stdout, stderr
}

// clearEnv blanks every OASPLIT_* override so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OASPLIT_SOURCE", "OASPLIT_OUTPUT_DIR", "OASPLIT_ROOT_NAME", "OASPLIT_PREFIX",
		"OASPLIT_EXT", "OASPLIT_CATCH_ALL", "OASPLIT_EXTRACT_COMPONENTS",
		"OASPLIT_SYNTHESIZE_TAGS", "OASPLIT_ALLOW_DUPLICATE", "OASPLIT_RULES",
	} {
		t.Setenv(key, "")
	}
}

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"valid text", FormatText, false},
		{"valid json", FormatJSON, false},
		{"valid yaml", FormatYAML, false},
		{"invalid format", "xml", true},
		{"empty format", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOutputStructured(t *testing.T) {
	data := map[string]int{"schemas": 7}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, OutputStructured(&buf, data, FormatJSON))
		assert.Equal(t, "{\n  \"schemas\": 7\n}\n", buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, OutputStructured(&buf, data, FormatYAML))
		assert.Equal(t, "schemas: 7\n", buf.String())
	})

	t.Run("text is not structured", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, OutputStructured(&buf, data, FormatText))
		assert.Empty(t, buf.String())
	})
}

func TestRuleFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	var rules ruleFlag
	fs.Var(&rules, "rule", "")

	require.NoError(t, fs.Parse([]string{"--rule", "user=^User", "--rule", "cast=Cast"}))
	require.Len(t, rules.rules, 2)
	assert.Equal(t, "user", rules.rules[0].Category)
	assert.Equal(t, "Cast", rules.rules[1].Pattern)

	err := fs.Parse([]string{"--rule", "no-separator"})
	assert.Error(t, err)
}

func TestSetFlags(t *testing.T) {
	fs, _ := SetupDecomposeFlags()
	require.NoError(t, fs.Parse([]string{"--prefix", "/v2", "-q", "src.yaml"}))

	set := setFlags(fs)
	assert.True(t, set["prefix"])
	assert.True(t, set["q"])
	assert.False(t, set["ext"])
}

func TestPrintIssues(t *testing.T) {
	var buf bytes.Buffer
	PrintIssues(&buf, nil)
	assert.Empty(t, buf.String())

	PrintIssues(&buf, issues.List{
		{Stage: "paths", Path: "/healthz", Severity: severity.SeverityWarning, Message: "kept inline"},
		{Stage: "reconcile", Path: "/paths/x", Severity: severity.SeverityWarning, Message: "duplicated", File: "paths/x/index.yaml"},
	})
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Issues (2):\n"))
	assert.Contains(t, out, "kept inline")
	assert.Contains(t, out, "[paths/x/index.yaml")
}

func TestValidateOutputPath(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "openapi.yaml")

	assert.NoError(t, ValidateOutputPath(filepath.Join(dir, "bundled.yaml"), root))
	assert.Error(t, ValidateOutputPath(root, root))
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	t.Run("explicit file", func(t *testing.T) {
		path := testutil.WriteFile(t, t.TempDir(), "oasplit.toml", "prefix = \"/v2\"\n")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/v2", cfg.Prefix)
		assert.Equal(t, path, cfg.Path)
	})

	t.Run("environment wins over file", func(t *testing.T) {
		path := testutil.WriteFile(t, t.TempDir(), "oasplit.toml", "prefix = \"/v2\"\n")
		t.Setenv("OASPLIT_PREFIX", "/v3")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/v3", cfg.Prefix)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	_, stderr := captureOutput(t)

	NewLogger(false).Info("info-quiet")
	NewLogger(false).Warn("warn-loud")
	NewLogger(true).Debug("debug-verbose")

	out := stderr.String()
	assert.NotContains(t, out, "info-quiet")
	assert.Contains(t, out, "warn-loud")
	assert.Contains(t, out, "debug-verbose")
}
