// ABOUTME: Interactive REPL: one turn per input line
// ABOUTME: Continuity accumulates across lines because the pipeline lives for the whole session
package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/local-agent-core/internal/core"
	"github.com/harper/local-agent-core/internal/models"
)

var (
	chatRoute  string
	chatRender bool
)

// Responder runs one turn
type Responder interface {
	Respond(ctx context.Context, req core.TurnRequest) (*core.TurnResult, error)
}

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with the agent.

Each line is one turn on the chosen route. Type "exit" or "quit", or
send EOF (Ctrl-D), to leave.

Examples:
  agent chat
  agent chat --route agent`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}

	cmd.Flags().StringVar(&chatRoute, "route", "", "Route alias (default: AGENT_DEFAULT_ROUTE)")
	cmd.Flags().BoolVar(&chatRender, "render", false, "Render replies as markdown on a terminal")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	routeName := chatRoute
	if routeName == "" {
		routeName = a.cfg.DefaultRoute
	}
	if !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "Chatting on route %q. Type exit to quit.\n", routeName)
	}
	return chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a.pipeline, routeName, chatRender)
}

// chatLoop reads lines from in and answers each on out. Turn errors are printed and the loop continues.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, responder Responder, routeName string, render bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		res, err := responder.Respond(ctx, core.TurnRequest{
			Text:    line,
			Route:   routeName,
			Channel: models.ChannelInteractive,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		if err := writeOutput(out, res.Output, render); err != nil {
			return err
		}
	}
}
