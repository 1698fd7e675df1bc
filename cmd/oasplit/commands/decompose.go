package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/erraggy/oasplit/decomposer"
	"github.com/erraggy/oasplit/internal/cliutil"
	"github.com/erraggy/oasplit/internal/config"
	"github.com/erraggy/oasplit/reconciler"
)

// DecomposeFlags contains flags for the decompose command
type DecomposeFlags struct {
	CommonFlags
	Output         string
	RootName       string
	Prefix         string
	Ext            string
	CatchAll       string
	Rules          ruleFlag
	NoComponents   bool
	NoTags         bool
	NoReconcile    bool
	AllowDuplicate bool
	DryRun         bool
}

// SetupDecomposeFlags creates and configures a FlagSet for the decompose command.
// Returns the FlagSet and a DecomposeFlags struct with bound flag variables.
func SetupDecomposeFlags() (*flag.FlagSet, *DecomposeFlags) {
	fs := flag.NewFlagSet("decompose", flag.ContinueOnError)
	flags := &DecomposeFlags{}
	flags.register(fs)

	fs.StringVar(&flags.Output, "o", "", "output directory (default: directory of the source)")
	fs.StringVar(&flags.Output, "output", "", "output directory (default: directory of the source)")
	fs.StringVar(&flags.RootName, "root-name", decomposer.DefaultRootName, "file name of the generated root document")
	fs.StringVar(&flags.Prefix, "prefix", "", "API path prefix stripped before splitting (default: /farcaster)")
	fs.StringVar(&flags.Ext, "ext", "", "fragment extension: yaml or yml (default: yaml)")
	fs.StringVar(&flags.CatchAll, "catch-all", "", "category for schemas no rule matches (default: misc)")
	fs.Var(&flags.Rules, "rule", "classification rule category=pattern (repeatable, replaces the default table)")
	fs.BoolVar(&flags.NoComponents, "no-components", false, "keep parameters, responses and security schemes inline")
	fs.BoolVar(&flags.NoTags, "no-tags", false, "do not synthesize a tags section")
	fs.BoolVar(&flags.NoReconcile, "no-reconcile", false, "skip the reference check after writing")
	fs.BoolVar(&flags.AllowDuplicate, "allow-duplicate", false, "repair missing path fragments by copying a sibling (review the result)")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "report what would be written without touching the filesystem")

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: oasplit decompose [flags] [source]\n\n")
		cliutil.Writef(fs.Output(), "Split an OpenAPI 3.x document into a root document and fragment files.\n\n")
		cliutil.Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		cliutil.Writef(fs.Output(), "\nLayout:\n")
		cliutil.Writef(fs.Output(), "  <output>/openapi.yaml                     root document, references only\n")
		cliutil.Writef(fs.Output(), "  <output>/components/schemas/<cat>.yaml    schemas grouped by category\n")
		cliutil.Writef(fs.Output(), "  <output>/components/<kind>/<Name>.yaml    parameters, responses, security schemes\n")
		cliutil.Writef(fs.Output(), "  <output>/paths/<resource>/<action>.yaml   one file per path item\n")
		cliutil.Writef(fs.Output(), "\nExamples:\n")
		cliutil.Writef(fs.Output(), "  oasplit decompose -o spec openapi.yaml\n")
		cliutil.Writef(fs.Output(), "  oasplit decompose --prefix /v2 --rule user=^User --rule cast=Cast openapi.json\n")
		cliutil.Writef(fs.Output(), "  oasplit decompose --dry-run --format json openapi.yaml\n")
		cliutil.Writef(fs.Output(), "\nThe source may come from the project config file instead of the command line.\n")
		cliutil.Writef(fs.Output(), "\nExit Codes:\n")
		cliutil.Writef(fs.Output(), "  0    Decomposition succeeded\n")
		cliutil.Writef(fs.Output(), "  1    Decomposition failed or references are still broken\n")
	}

	return fs, flags
}

// HandleDecompose executes the decompose command
func HandleDecompose(ctx context.Context, args []string) error {
	fs, flags := SetupDecomposeFlags()

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := ValidateOutputFormat(flags.Format); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return fmt.Errorf("decompose command accepts at most one source file")
	}

	cfg, err := LoadConfig(flags.Config)
	if err != nil {
		return err
	}
	flags.apply(cfg, setFlags(fs))
	if fs.NArg() == 1 {
		cfg.Source = fs.Arg(0)
	}
	if cfg.Source == "" {
		fs.Usage()
		return fmt.Errorf("decompose command requires a source file (argument or config)")
	}

	logger := NewLogger(flags.Verbose)
	logger.Debug("configuration loaded", "config", cfg.String())

	opts := append(cfg.DecomposerOptions(),
		decomposer.WithFilePath(cfg.Source),
		decomposer.WithReconcile(!flags.NoReconcile),
		decomposer.WithDryRun(flags.DryRun),
		decomposer.WithLogger(logger),
	)

	start := time.Now()
	result, err := decomposer.DecomposeWithOptions(ctx, opts...)
	if result == nil {
		return fmt.Errorf("decomposing %s: %w", cfg.Source, err)
	}
	if !flags.Quiet {
		if flags.Format != FormatText {
			if outErr := OutputStructured(Stdout, result, flags.Format); outErr != nil {
				return outErr
			}
		} else {
			printDecompose(result, time.Since(start))
		}
	}
	if err != nil {
		return fmt.Errorf("decomposing %s: %w", cfg.Source, err)
	}
	return nil
}

// apply copies the flags given on the command line over the configuration.
func (f *DecomposeFlags) apply(cfg *config.Config, set map[string]bool) {
	if set["o"] || set["output"] {
		cfg.OutputDir = f.Output
	}
	if set["root-name"] {
		cfg.RootName = f.RootName
	}
	if set["prefix"] {
		cfg.Prefix = f.Prefix
	}
	if set["ext"] {
		cfg.Ext = f.Ext
	}
	if set["catch-all"] {
		cfg.CatchAll = f.CatchAll
	}
	if set["rule"] {
		cfg.Rules = f.Rules.rules
	}
	if set["no-components"] {
		cfg.ExtractComponents = !f.NoComponents
	}
	if set["no-tags"] {
		cfg.SynthesizeTags = !f.NoTags
	}
	if set["allow-duplicate"] {
		cfg.AllowDuplicate = f.AllowDuplicate
	}
	if f.NoReconcile {
		cfg.AllowDuplicate = false
	}
}

func printDecompose(result *decomposer.DecomposeResult, elapsed time.Duration) {
	w := Stdout
	writeHeader(w, "OpenAPI Decomposer")
	cliutil.Writef(w, "Source: %s (%s)\n", result.SourcePath, result.SourceFormat)
	cliutil.Writef(w, "Root: %s\n", result.RootPath)
	cliutil.Writef(w, "Schemas: %d in %d categories\n", result.SchemaCount(), len(result.Categories))
	cliutil.Writef(w, "Paths: %d split, %d inline\n", len(result.Routes), len(result.InlinePaths))
	total := 0
	for _, n := range result.Components {
		total += n
	}
	cliutil.Writef(w, "Components: %d\n", total)
	cliutil.Writef(w, "Total Time: %v\n\n", elapsed)

	for _, c := range result.Categories {
		cliutil.Writef(w, "  %-40s %d schema(s)\n", c.File, len(c.Schemas))
	}
	for _, r := range result.Routes {
		cliutil.Writef(w, "  %-40s %s\n", r.File, r.Template)
	}
	cliutil.Writef(w, "\n")

	PrintIssues(w, result.Issues)

	switch {
	case result.DryRun:
		cliutil.Writef(w, "✓ Dry run: %d file(s) would be written\n", len(result.Files))
	case result.Reconcile != nil && result.Reconcile.Count(reconciler.StateIrreparable) > 0:
		cliutil.Writef(w, "✗ %d reference(s) could not be repaired\n", result.Reconcile.Count(reconciler.StateIrreparable))
	default:
		cliutil.Writef(w, "✓ Wrote %d file(s), %d changed\n", len(result.Files), len(result.Changed))
	}
}
