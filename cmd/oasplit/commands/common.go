// Package commands provides CLI command handlers for oasplit.
package commands

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/erraggy/oasplit"
	"github.com/erraggy/oasplit/classifier"
	"github.com/erraggy/oasplit/internal/cliutil"
	"github.com/erraggy/oasplit/internal/config"
	"github.com/erraggy/oasplit/internal/issues"
	"github.com/erraggy/oasplit/parser"
	"go.yaml.in/yaml/v4"
)

// Output format constants
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Stdout and Stderr receive command output. Tests replace them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// CommonFlags are shared by every command that runs a pipeline stage.
type CommonFlags struct {
	Config  string
	Format  string
	Quiet   bool
	Verbose bool
}

func (c *CommonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.Config, "config", "", "project config file (default: oasplit.toml, .yaml, .yml or .json in the working directory)")
	fs.StringVar(&c.Format, "format", FormatText, "report format: text, json or yaml")
	fs.BoolVar(&c.Quiet, "q", false, "quiet mode: no report, errors only")
	fs.BoolVar(&c.Quiet, "quiet", false, "quiet mode: no report, errors only")
	fs.BoolVar(&c.Verbose, "verbose", false, "log pipeline progress at debug level to stderr")
}

// ValidateOutputFormat validates an output format and returns an error if invalid.
func ValidateOutputFormat(format string) error {
	if format != FormatText && format != FormatJSON && format != FormatYAML {
		return fmt.Errorf("invalid format '%s'. Valid formats: %s, %s, %s", format, FormatText, FormatJSON, FormatYAML)
	}
	return nil
}

// OutputStructured writes data in the specified format (json or yaml).
func OutputStructured(w io.Writer, data any, format string) error {
	var out []byte
	var err error

	switch format {
	case FormatJSON:
		out, err = json.MarshalIndent(data, "", "  ")
	case FormatYAML:
		out, err = yaml.Marshal(data)
	default:
		return fmt.Errorf("invalid format for structured output: %s", format)
	}
	if err != nil {
		return fmt.Errorf("marshaling to %s: %w", format, err)
	}

	cliutil.Writef(w, "%s\n", strings.TrimRight(string(out), "\n"))
	return nil
}

// NewLogger returns the logger handed to the pipeline: a slog text handler
// on Stderr at warn level, or debug level when verbose.
func NewLogger(verbose bool) parser.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return parser.NewTextLogger(Stderr, level)
}

// LoadConfig reads the project config (explicit path, or the first project
// file in the working directory) and applies OASPLIT_* overrides.
func LoadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadDir(".")
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// setFlags returns the names of the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// ruleFlag collects repeated --rule category=pattern flags.
type ruleFlag struct {
	rules classifier.RuleTable
}

func (r *ruleFlag) String() string {
	parts := make([]string, len(r.rules))
	for i, rule := range r.rules {
		parts[i] = rule.String()
	}
	return strings.Join(parts, ";")
}

func (r *ruleFlag) Set(s string) error {
	rule, err := classifier.ParseRule(s)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, rule)
	return nil
}

// PrintIssues writes issues one per line in the order raised.
func PrintIssues(w io.Writer, list issues.List) {
	if len(list) == 0 {
		return
	}
	cliutil.Writef(w, "Issues (%d):\n", len(list))
	for _, issue := range list {
		if loc := issue.Location(); issue.File != "" {
			cliutil.Writef(w, "  %s [%s]\n", issue.String(), loc)
			continue
		}
		cliutil.Writef(w, "  %s\n", issue.String())
	}
	cliutil.Writef(w, "\n")
}

func writeHeader(w io.Writer, title string) {
	cliutil.Writef(w, "%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	cliutil.Writef(w, "oasplit version: %s\n", oasplit.Version())
}

// ValidateOutputPath checks that outputPath would not overwrite any input.
func ValidateOutputPath(outputPath string, inputPaths ...string) error {
	absOutputPath, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	for _, inputPath := range inputPaths {
		absInputPath, err := filepath.Abs(inputPath)
		if err != nil {
			return fmt.Errorf("invalid input path %s: %w", inputPath, err)
		}
		if absOutputPath == absInputPath {
			return fmt.Errorf("output file %s would overwrite input file %s", outputPath, inputPath)
		}
	}
	return nil
}
