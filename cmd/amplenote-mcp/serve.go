package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikekwright/amplenote-cache-mcp/internal/tools"
	"github.com/mikekwright/amplenote-cache-mcp/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "server",
	Short:   "Serve the query tools over MCP",
	Long: `Start an MCP server exposing the note and task tools.

By default the server speaks MCP over stdin/stdout, which is what desktop
MCP hosts launch. Logs go to stderr (or --log-file) so they never mix with
the protocol stream.

Example usage:
  amplenote-mcp serve                   # stdio
  amplenote-mcp serve --http :8080      # streamable HTTP on port 8080`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("http")

		srv, err := tools.NewServer(newRegistry(), "amplenote-cache-mcp", Version, logger)
		if err != nil {
			fatal(err)
		}

		if addr != "" {
			fmt.Fprintf(os.Stderr, "%s Serving MCP on http://%s/mcp\n", ui.RenderAccent("→"), strings.TrimPrefix(addr, "http://"))
			err = srv.ServeHTTP(cmd.Context(), addr)
		} else {
			err = srv.ServeStdio(cmd.Context(), os.Stdin, os.Stdout)
		}
		if err != nil {
			fatal(err)
		}
	},
}

var toolsCmd = &cobra.Command{
	Use:     "tools",
	GroupID: "server",
	Short:   "List the MCP tools and their input schemas",
	Run: func(cmd *cobra.Command, args []string) {
		render(cmd, newRegistry().Specs())
	},
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <tool> [json-arguments]",
	Short: "Invoke one tool the way an MCP host would",
	Long: `Invoke a tool by name with JSON arguments and print its result.

Example usage:
  amplenote-mcp tools call list_tasks '{"limit": 5, "include_done": true}'
  amplenote-mcp tools call query_tasks '{"query": {"flags_filter": "urgent"}}'`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		var input json.RawMessage
		if len(args) == 2 {
			input = json.RawMessage(args[1])
		}

		out, err := newRegistry().Execute(cmd.Context(), args[0], input)
		var toolErr *tools.ToolError
		if errors.As(err, &toolErr) {
			fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderWarn("Tool error:"), toolErr.Message)
			if toolErr.Suggest != "" {
				fmt.Fprintf(os.Stderr, "%s\n", ui.RenderMuted(toolErr.Suggest))
			}
			closeLog()
			os.Exit(2)
		}
		if err != nil {
			fatal(err)
		}
		render(cmd, out)
	},
}

func init() {
	serveCmd.Flags().String("http", "", "Serve the streamable HTTP transport on this address instead of stdio")

	toolsCmd.AddCommand(toolsCallCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolsCmd)
}
