package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/erraggy/oasplit/decomposer"
	"github.com/erraggy/oasplit/internal/cliutil"
)

// RegenerateFlags contains flags for the regenerate command
type RegenerateFlags struct {
	CommonFlags
	RootName string
	Prefix   string
	Ext      string
	DryRun   bool
}

// SetupRegenerateFlags creates and configures a FlagSet for the regenerate command.
func SetupRegenerateFlags() (*flag.FlagSet, *RegenerateFlags) {
	fs := flag.NewFlagSet("regenerate", flag.ContinueOnError)
	flags := &RegenerateFlags{}
	flags.register(fs)

	fs.StringVar(&flags.RootName, "root-name", decomposer.DefaultRootName, "file name of the root document")
	fs.StringVar(&flags.Prefix, "prefix", "", "API path prefix the path fragments live under (default: /farcaster)")
	fs.StringVar(&flags.Ext, "ext", "", "fragment extension: yaml or yml (default: yaml)")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "report the rebuilt root without writing it")

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: oasplit regenerate [flags] [dir]\n\n")
		cliutil.Writef(fs.Output(), "Rebuild the schema, path and component references of a root document\n")
		cliutil.Writef(fs.Output(), "from the fragment files found below it. Other sections are kept.\n\n")
		cliutil.Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		cliutil.Writef(fs.Output(), "\nExamples:\n")
		cliutil.Writef(fs.Output(), "  oasplit regenerate spec\n")
		cliutil.Writef(fs.Output(), "  oasplit regenerate --dry-run --prefix /v2 spec\n")
		cliutil.Writef(fs.Output(), "\nThe directory defaults to output_dir from the project config.\n")
	}

	return fs, flags
}

// HandleRegenerate executes the regenerate command
func HandleRegenerate(ctx context.Context, args []string) error {
	fs, flags := SetupRegenerateFlags()

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
		return fmt.Errorf("regenerate command accepts at most one directory")
	}

	cfg, err := LoadConfig(flags.Config)
	if err != nil {
		return err
	}
	set := setFlags(fs)
	if set["root-name"] {
		cfg.RootName = flags.RootName
	}
	if set["prefix"] {
		cfg.Prefix = flags.Prefix
	}
	if set["ext"] {
		cfg.Ext = flags.Ext
	}
	dir := fs.Arg(0)
	if dir == "" {
		dir = cfg.OutputDir
	}
	if dir == "" {
		fs.Usage()
		return fmt.Errorf("regenerate command requires a directory (argument or config output_dir)")
	}

	d := decomposer.New()
	d.RootName = cfg.RootName
	d.Prefix = cfg.Prefix
	d.Ext = cfg.Ext
	d.DryRun = flags.DryRun
	d.Logger = NewLogger(flags.Verbose)

	result, err := d.Regenerate(ctx, dir)
	if err != nil {
		return fmt.Errorf("regenerating %s: %w", dir, err)
	}
	if flags.Quiet {
		return nil
	}
	if flags.Format != FormatText {
		return OutputStructured(Stdout, result, flags.Format)
	}

	w := Stdout
	writeHeader(w, "OpenAPI Root Regenerator")
	cliutil.Writef(w, "Root: %s\n", result.RootPath)
	cliutil.Writef(w, "Schemas: %d\n", result.Schemas)
	cliutil.Writef(w, "Paths: %d\n", result.Paths)
	cliutil.Writef(w, "Components: %d\n\n", result.Components)
	switch {
	case result.DryRun:
		cliutil.Writef(w, "%s", result.Root)
	case result.Changed:
		cliutil.Writef(w, "✓ Root document rewritten\n")
	default:
		cliutil.Writef(w, "✓ Root document already up to date\n")
	}
	return nil
}
