package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/erraggy/oasplit/classifier"
	"github.com/erraggy/oasplit/internal/cliutil"
	"github.com/erraggy/oasplit/parser"
)

// ClassifyFlags contains flags for the classify command
type ClassifyFlags struct {
	CommonFlags
	CatchAll string
	Rules    ruleFlag
}

// SetupClassifyFlags creates and configures a FlagSet for the classify command.
func SetupClassifyFlags() (*flag.FlagSet, *ClassifyFlags) {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	flags := &ClassifyFlags{}
	flags.register(fs)

	fs.StringVar(&flags.CatchAll, "catch-all", "", "category for schemas no rule matches (default: misc)")
	fs.Var(&flags.Rules, "rule", "classification rule category=pattern (repeatable, replaces the default table)")

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: oasplit classify [flags] [source]\n\n")
		cliutil.Writef(fs.Output(), "Show which category file each schema would be written to, without writing anything.\n\n")
		cliutil.Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		cliutil.Writef(fs.Output(), "\nRules are tried in order; the first matching pattern wins.\n")
		cliutil.Writef(fs.Output(), "\nExamples:\n")
		cliutil.Writef(fs.Output(), "  oasplit classify openapi.yaml\n")
		cliutil.Writef(fs.Output(), "  oasplit classify --rule reaction=Reaction --catch-all other openapi.yaml\n")
	}

	return fs, flags
}

// ClassifyReport is the structured output of the classify command.
type ClassifyReport struct {
	Source     string              `json:"source" yaml:"source"`
	Rules      []string            `json:"rules" yaml:"rules"`
	CatchAll   string              `json:"catchAll" yaml:"catchAll"`
	Categories map[string][]string `json:"categories" yaml:"categories"`
	Fallbacks  []string            `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
}

// HandleClassify executes the classify command
func HandleClassify(_ context.Context, args []string) error {
	fs, flags := SetupClassifyFlags()

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
		return fmt.Errorf("classify command accepts at most one source file")
	}

	cfg, err := LoadConfig(flags.Config)
	if err != nil {
		return err
	}
	set := setFlags(fs)
	if set["catch-all"] {
		cfg.CatchAll = flags.CatchAll
	}
	if set["rule"] {
		cfg.Rules = flags.Rules.rules
	}
	source := fs.Arg(0)
	if source == "" {
		source = cfg.Source
	}
	if source == "" {
		fs.Usage()
		return fmt.Errorf("classify command requires a source file (argument or config)")
	}

	logger := NewLogger(flags.Verbose)
	res, err := (&parser.Parser{Logger: logger}).Parse(source)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", source, err)
	}
	schemas, err := res.Schemas()
	if err != nil {
		return fmt.Errorf("extracting schemas from %s: %w", source, err)
	}
	c, err := classifier.New(cfg.Rules, cfg.CatchAll)
	if err != nil {
		return err
	}
	c.SetLogger(logger)
	groups := c.ClassifyAll(schemas)

	report := ClassifyReport{
		Source:     source,
		CatchAll:   c.CatchAll(),
		Categories: make(map[string][]string, len(groups)),
		Fallbacks:  c.Fallbacks(),
	}
	for _, rule := range c.Rules() {
		report.Rules = append(report.Rules, rule.String())
	}
	for _, g := range groups {
		for _, s := range g.Schemas {
			report.Categories[g.Category] = append(report.Categories[g.Category], s.Name)
		}
	}

	if flags.Quiet {
		return nil
	}
	if flags.Format != FormatText {
		return OutputStructured(Stdout, report, flags.Format)
	}

	w := Stdout
	writeHeader(w, "OpenAPI Schema Classifier")
	cliutil.Writef(w, "Source: %s\n", source)
	cliutil.Writef(w, "Schemas: %d in %d categories\n\n", len(schemas), len(groups))
	for _, g := range groups {
		cliutil.Writef(w, "%s (%d):\n", g.Category, len(g.Schemas))
		for _, s := range g.Schemas {
			cliutil.Writef(w, "  %s\n", s.Name)
		}
	}
	if len(report.Fallbacks) > 0 {
		cliutil.Writef(w, "\n⚠ %d schema(s) matched no rule and fell back to %q\n", len(report.Fallbacks), report.CatchAll)
	}
	return nil
}
