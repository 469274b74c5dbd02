package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/bugless/internal/history"
	"github.com/joescharf/bugless/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for editor and agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets MCP clients request code reviews from bugless. Configure a
client with:

  {
    "mcpServers": {
      "bugless": { "command": "bugless", "args": ["mcp"] }
    }
  }

Available tools: bugless_analyze_code, bugless_list_history,
bugless_list_languages`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, stopSignals()...)
		defer stop()

		srv, err := newMCPServer()
		if err != nil {
			return err
		}
		return srv.ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// newMCPServer wires the configured model and the history store into
// the MCP tool server. stdout carries the protocol, so logs go to stderr.
func newMCPServer() (*mcp.Server, error) {
	requester, err := newRequester(nil)
	if err != nil {
		return nil, err
	}
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return mcp.NewServer(requester, history.New(s, logger, nil), buildVersion), nil
}
