package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/erraggy/oasplit/internal/cliutil"
	"github.com/erraggy/oasplit/internal/mcpserver"
)

// SetupMCPFlags creates the FlagSet for the mcp command. The server is
// configured through environment variables, so the set only carries help.
func SetupMCPFlags() *flag.FlagSet {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: oasplit mcp\n\n")
		cliutil.Writef(fs.Output(), "Serve the decompose, reconcile, bundle and classify tools over MCP on stdin/stdout.\n\n")
		cliutil.Writef(fs.Output(), "Environment:\n")
		cliutil.Writef(fs.Output(), "  OASPLIT_MCP_CACHE_ENABLED          cache parsed documents (default true)\n")
		cliutil.Writef(fs.Output(), "  OASPLIT_MCP_CACHE_MAX_SIZE         cached documents kept (default 10)\n")
		cliutil.Writef(fs.Output(), "  OASPLIT_MCP_CACHE_FILE_TTL         lifetime of a cached file parse (default 15m)\n")
		cliutil.Writef(fs.Output(), "  OASPLIT_MCP_CACHE_CONTENT_TTL      lifetime of a cached inline parse (default 15m)\n")
		cliutil.Writef(fs.Output(), "  OASPLIT_MCP_CACHE_SWEEP_INTERVAL   cache sweep period (default 60s)\n")
		cliutil.Writef(fs.Output(), "  OASPLIT_MCP_LIST_LIMIT             default page size of file lists (default 100)\n")
		cliutil.Writef(fs.Output(), "  OASPLIT_MCP_MAX_LIMIT              largest page size accepted (default 1000)\n")
		cliutil.Writef(fs.Output(), "  OASPLIT_MCP_MAX_INLINE_SIZE        largest inline document in bytes (default 10485760)\n")
		cliutil.Writef(fs.Output(), "\nPipeline defaults come from the project config in the working directory\n")
		cliutil.Writef(fs.Output(), "and the OASPLIT_* variables, as for the other commands.\n")
	}

	return fs
}

// HandleMCP runs the MCP server until ctx is canceled or the client hangs up.
func HandleMCP(ctx context.Context, args []string) error {
	fs := SetupMCPFlags()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return fmt.Errorf("mcp command takes no arguments")
	}
	return mcpserver.Run(ctx)
}
