// ABOUTME: CLI command to run a single turn
// ABOUTME: Streams, renders or prints the reply and optionally hands it to the speaker
package commands

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harper/local-agent-core/internal/core"
)

var (
	askRoute   string
	askChannel string
	askSpeak   bool
	askRender  bool
)

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [text]",
		Short: "Send one message to the agent",
		Long: `Send one message to the agent and print the reply.

The message is taken from the arguments, or from stdin when none are
given. Routes with stream enabled print the reply as it is generated.

Examples:
  agent ask "what's on my plate today?"
  agent ask --route agent "save a note about the standup"
  echo "nightly summary" | agent ask --channel automation --route agent
  agent ask --render --speak "explain the plan"`,
		Args: cobra.ArbitraryArgs,
		RunE: runAsk,
	}

	cmd.Flags().StringVar(&askRoute, "route", "", "Route alias (default: AGENT_DEFAULT_ROUTE)")
	cmd.Flags().StringVar(&askChannel, "channel", "interactive", "Turn channel: interactive or automation")
	cmd.Flags().BoolVar(&askSpeak, "speak", false, "Hand the reply to the speaker")
	cmd.Flags().BoolVar(&askRender, "render", false, "Render the reply as markdown on a terminal")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	channel, err := parseChannel(askChannel)
	if err != nil {
		return err
	}
	text, err := readText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	routeName := askRoute
	if routeName == "" {
		routeName = a.cfg.DefaultRoute
	}
	req := core.TurnRequest{Text: text, Route: routeName, Channel: channel}
	out := cmd.OutOrStdout()

	// stream only when nothing needs the whole reply first
	route, routeErr := a.router.Resolve(routeName)
	stream := routeErr == nil && route.Stream && !askRender && outputFormat != "json"

	var res *core.TurnResult
	if stream {
		res, err = a.pipeline.RespondStream(ctx, req, func(chunk string) error {
			_, werr := io.WriteString(out, chunk)
			return werr
		})
		if err == nil {
			fmt.Fprintln(out)
		}
	} else {
		res, err = a.pipeline.Respond(ctx, req)
	}
	if err != nil {
		return err
	}
	for _, d := range res.Degraded {
		log.Warn().Err(d).Str("turn_id", res.TurnID).Msg("turn degraded")
	}

	switch {
	case outputFormat == "json":
		if err := writeTurnJSON(out, res); err != nil {
			return err
		}
	case !stream:
		if err := writeOutput(out, res.Output, askRender); err != nil {
			return err
		}
	}

	if askSpeak {
		return newTextSpeaker(cmd.ErrOrStderr()).Speak(route.Speaker, res.Output)
	}
	return nil
}
