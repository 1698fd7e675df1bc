package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/erraggy/oasplit/bundler"
	"github.com/erraggy/oasplit/internal/cliutil"
)

// BundleFlags contains flags for the bundle command
type BundleFlags struct {
	Config   string
	Output   string
	Format   string
	Validate bool
	Quiet    bool
	Verbose  bool
}

// SetupBundleFlags creates and configures a FlagSet for the bundle command.
func SetupBundleFlags() (*flag.FlagSet, *BundleFlags) {
	fs := flag.NewFlagSet("bundle", flag.ContinueOnError)
	flags := &BundleFlags{}

	fs.StringVar(&flags.Config, "config", "", "project config file (default: oasplit.toml, .yaml, .yml or .json in the working directory)")
	fs.StringVar(&flags.Output, "o", "", "output file path (default: stdout)")
	fs.StringVar(&flags.Output, "output", "", "output file path (default: stdout)")
	fs.StringVar(&flags.Format, "format", string(bundler.FormatYAML), "document format: yaml or json")
	fs.BoolVar(&flags.Validate, "validate", false, "validate the bundled document as OpenAPI 3")
	fs.BoolVar(&flags.Quiet, "q", false, "quiet mode: only output the document, no diagnostic messages")
	fs.BoolVar(&flags.Quiet, "quiet", false, "quiet mode: only output the document, no diagnostic messages")
	fs.BoolVar(&flags.Verbose, "verbose", false, "log progress at debug level to stderr")

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: oasplit bundle [flags] [root]\n\n")
		cliutil.Writef(fs.Output(), "Inline a decomposed fragment tree back into a single OpenAPI document.\n\n")
		cliutil.Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		cliutil.Writef(fs.Output(), "\nExamples:\n")
		cliutil.Writef(fs.Output(), "  oasplit bundle spec/openapi.yaml > openapi.yaml\n")
		cliutil.Writef(fs.Output(), "  oasplit bundle --format json -o dist/openapi.json spec/openapi.yaml\n")
		cliutil.Writef(fs.Output(), "  oasplit bundle --validate -q spec/openapi.yaml\n")
		cliutil.Writef(fs.Output(), "\nThe root defaults to <output_dir>/<root_name> from the project config.\n")
		cliutil.Writef(fs.Output(), "\nExit Codes:\n")
		cliutil.Writef(fs.Output(), "  0    Bundle succeeded\n")
		cliutil.Writef(fs.Output(), "  1    A reference could not be resolved or validation failed\n")
	}

	return fs, flags
}

// HandleBundle executes the bundle command
func HandleBundle(ctx context.Context, args []string) error {
	fs, flags := SetupBundleFlags()

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	format, err := bundler.ParseFormat(flags.Format)
	if err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return fmt.Errorf("bundle command accepts at most one root document")
	}

	rootPath := fs.Arg(0)
	if rootPath == "" {
		cfg, err := LoadConfig(flags.Config)
		if err != nil {
			return err
		}
		if cfg.OutputDir == "" {
			fs.Usage()
			return fmt.Errorf("bundle command requires a root document (argument or config output_dir)")
		}
		rootPath = filepath.Join(cfg.OutputDir, cfg.RootName)
	}

	opts := []bundler.Option{
		bundler.WithRootPath(rootPath),
		bundler.WithFormat(format),
		bundler.WithValidate(flags.Validate),
		bundler.WithLogger(NewLogger(flags.Verbose)),
	}
	if flags.Output != "" {
		if err := ValidateOutputPath(flags.Output, rootPath); err != nil {
			return err
		}
		opts = append(opts, bundler.WithOutputPath(flags.Output))
	}

	result, err := bundler.Bundle(ctx, opts...)
	if err != nil {
		return fmt.Errorf("bundling %s: %w", rootPath, err)
	}

	if flags.Output == "" {
		if _, err := Stdout.Write(result.Data); err != nil {
			return fmt.Errorf("writing bundled document to stdout: %w", err)
		}
	}
	if !flags.Quiet {
		cliutil.Writef(Stderr, "Bundled %s: %d fragment file(s), %d reference(s) inlined, %d mapped\n",
			result.RootPath, len(result.Files), result.Inlined, result.Mapped)
		if result.Validated {
			cliutil.Writef(Stderr, "✓ Bundled document is valid OpenAPI\n")
		}
		if result.OutputPath != "" {
			cliutil.Writef(Stderr, "Output written to: %s\n", result.OutputPath)
		}
	}
	return nil
}
