package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/erraggy/oasplit/internal/cliutil"
	"github.com/erraggy/oasplit/reconciler"
)

// ReconcileFlags contains flags for the reconcile command
type ReconcileFlags struct {
	CommonFlags
	AllowDuplicate bool
	DryRun         bool
}

// SetupReconcileFlags creates and configures a FlagSet for the reconcile command.
func SetupReconcileFlags() (*flag.FlagSet, *ReconcileFlags) {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	flags := &ReconcileFlags{}
	flags.register(fs)

	fs.BoolVar(&flags.AllowDuplicate, "allow-duplicate", false, "repair missing path fragments by copying a sibling (review the result)")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "report repairs without writing them")

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: oasplit reconcile [flags] [root]\n\n")
		cliutil.Writef(fs.Output(), "Check every reference of a decomposed root document and repair the broken ones.\n\n")
		cliutil.Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		cliutil.Writef(fs.Output(), "\nRepairs:\n")
		cliutil.Writef(fs.Output(), "  - A schema or path whose content lives in another fragment is re-pointed there\n")
		cliutil.Writef(fs.Output(), "  - With --allow-duplicate, a missing path fragment is filled with a sibling's copy\n")
		cliutil.Writef(fs.Output(), "\nThe root defaults to <output_dir>/<root_name> from the project config.\n")
		cliutil.Writef(fs.Output(), "\nExamples:\n")
		cliutil.Writef(fs.Output(), "  oasplit reconcile spec/openapi.yaml\n")
		cliutil.Writef(fs.Output(), "  oasplit reconcile --dry-run --format json spec/openapi.yaml\n")
		cliutil.Writef(fs.Output(), "\nExit Codes:\n")
		cliutil.Writef(fs.Output(), "  0    Every reference is valid or was repaired\n")
		cliutil.Writef(fs.Output(), "  1    At least one reference is irreparable\n")
	}

	return fs, flags
}

// HandleReconcile executes the reconcile command
func HandleReconcile(ctx context.Context, args []string) error {
	fs, flags := SetupReconcileFlags()

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
		return fmt.Errorf("reconcile command accepts at most one root document")
	}

	cfg, err := LoadConfig(flags.Config)
	if err != nil {
		return err
	}
	rootPath := fs.Arg(0)
	if rootPath == "" {
		if cfg.OutputDir == "" {
			fs.Usage()
			return fmt.Errorf("reconcile command requires a root document (argument or config output_dir)")
		}
		rootPath = filepath.Join(cfg.OutputDir, cfg.RootName)
	}
	allowDuplicate := cfg.AllowDuplicate
	if setFlags(fs)["allow-duplicate"] {
		allowDuplicate = flags.AllowDuplicate
	}

	result, err := reconciler.ReconcileWithOptions(ctx,
		reconciler.WithRootPath(rootPath),
		reconciler.WithAllowDuplicate(allowDuplicate),
		reconciler.WithDryRun(flags.DryRun),
		reconciler.WithLogger(NewLogger(flags.Verbose)),
	)
	if result == nil {
		return fmt.Errorf("reconciling %s: %w", rootPath, err)
	}
	if !flags.Quiet {
		if flags.Format != FormatText {
			if outErr := OutputStructured(Stdout, result, flags.Format); outErr != nil {
				return outErr
			}
		} else {
			printReconcile(result)
		}
	}
	if err != nil {
		return fmt.Errorf("reconciling %s: %w", rootPath, err)
	}
	return nil
}

func printReconcile(result *reconciler.Result) {
	w := Stdout
	writeHeader(w, "OpenAPI Reference Reconciler")
	cliutil.Writef(w, "Root: %s\n", result.RootPath)
	cliutil.Writef(w, "References: %d\n", len(result.Checks))
	cliutil.Writef(w, "  valid:       %d\n", result.Count(reconciler.StateValid))
	cliutil.Writef(w, "  repaired:    %d\n", result.Count(reconciler.StateRepaired))
	cliutil.Writef(w, "  duplicated:  %d\n", result.Count(reconciler.StateDuplicated))
	cliutil.Writef(w, "  irreparable: %d\n", result.Count(reconciler.StateIrreparable))
	cliutil.Writef(w, "  external:    %d\n\n", result.Count(reconciler.StateExternal))

	for _, c := range result.Checks {
		switch c.State {
		case reconciler.StateRepaired:
			cliutil.Writef(w, "  ~ %s %s: %s -> %s\n", c.Kind, c.Subject, c.Ref, c.NewRef)
		case reconciler.StateDuplicated:
			cliutil.Writef(w, "  ⚠ %s %s: copied %s to %s\n", c.Kind, c.Subject, c.Source, c.Ref)
		case reconciler.StateIrreparable:
			cliutil.Writef(w, "  ✗ %s %s: %s\n", c.Kind, c.Subject, c.Description)
		case reconciler.StateExternal:
			cliutil.Writef(w, "  - %s %s: %s not checked (%s)\n", c.Kind, c.Subject, c.Ref, c.Description)
		}
	}
	cliutil.Writef(w, "\n")

	switch {
	case result.Count(reconciler.StateIrreparable) > 0:
		cliutil.Writef(w, "✗ %d reference(s) could not be repaired\n", result.Count(reconciler.StateIrreparable))
	case result.DryRun && result.RootChanged:
		cliutil.Writef(w, "✓ Dry run: root document would be rewritten\n")
	case result.RootChanged:
		cliutil.Writef(w, "✓ Root document rewritten\n")
	default:
		cliutil.Writef(w, "✓ All references valid\n")
	}
}
