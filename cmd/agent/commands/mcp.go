// ABOUTME: MCP command starts the Model Context Protocol server
// ABOUTME: Lets LLM agents talk to the local agent over stdio
package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harper/local-agent-core/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs the agent as an MCP (Model Context Protocol) server over stdio,
exposing the respond and list_routes tools to LLM agents.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  agent mcp

  # Configure in the client's config file:
  # {
  #   "mcpServers": {
  #     "agent": {
  #       "command": "agent",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcpserver.NewMCPServer(
		"Local Agent Core",
		currentBuild().Version,
	)
	mcp.RegisterTools(server, a.pipeline, a.router, a.cfg.DefaultRoute)

	log.Info().Msg("MCP server starting on stdio")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}
