package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/erraggy/oasplit"
	"github.com/erraggy/oasplit/cmd/oasplit/commands"
	"github.com/erraggy/oasplit/internal/cliutil"
)

// handler runs one subcommand with the remaining arguments.
type handler func(ctx context.Context, args []string) error

var handlers = map[string]handler{
	"decompose":  commands.HandleDecompose,
	"reconcile":  commands.HandleReconcile,
	"bundle":     commands.HandleBundle,
	"regenerate": commands.HandleRegenerate,
	"classify":   commands.HandleClassify,
	"mcp":        commands.HandleMCP,
}

// validCommands lists every command name, in usage order, for typo suggestions.
var validCommands = []string{
	"decompose", "reconcile", "bundle", "regenerate", "classify", "mcp", "version", "help",
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := os.Args[1]

	switch command {
	case "version", "-v", "--version":
		cliutil.Writef(os.Stdout, "oasplit\n%s\n", oasplit.BuildInfo())
		return
	case "help", "-h", "--help":
		printUsage()
		return
	}

	handle, ok := handlers[command]
	if !ok {
		cliutil.Writef(os.Stderr, "Unknown command: %s\n", command)
		if suggestion := suggestCommand(command); suggestion != "" {
			cliutil.Writef(os.Stderr, "Did you mean: %s?\n", suggestion)
		}
		cliutil.Writef(os.Stderr, "\n")
		printUsage()
		os.Exit(1)
	}

	if err := handle(ctx, os.Args[2:]); err != nil {
		cliutil.Writef(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// suggestCommand returns the closest valid command to input, or "" when
// nothing is within a couple of edits.
func suggestCommand(input string) string {
	return cliutil.Suggest(input, validCommands)
}

func printUsage() {
	cliutil.Writeln(os.Stdout, usage)
}

const usage = `oasplit - OpenAPI document decomposer

Usage:
  oasplit <command> [options]

Commands:
  decompose   Split an OpenAPI 3.x document into a root document and fragments
  reconcile   Check and repair the references of a decomposed root document
  bundle      Inline a decomposed tree back into a single document
  regenerate  Rebuild the root document from the fragments on disk
  classify    Show the category file each schema would be written to
  mcp         Serve the pipeline as MCP tools over stdio
  version     Show version information
  help        Show this help message

Examples:
  oasplit decompose -o spec openapi.yaml
  oasplit reconcile --allow-duplicate spec/openapi.yaml
  oasplit bundle -o openapi.bundled.json --format json spec/openapi.yaml
  oasplit regenerate spec
  oasplit classify --rule reaction=Reaction openapi.yaml

Configuration:
  Defaults are read from oasplit.toml, oasplit.yaml, oasplit.yml or
  oasplit.json in the working directory, then from OASPLIT_* variables.
  Command-line flags override both.

Run 'oasplit <command> --help' for more information on a command.`
