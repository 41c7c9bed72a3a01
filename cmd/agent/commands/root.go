// ABOUTME: Root command, global flags and logging setup for the agent CLI
// ABOUTME: Loads .env before any subcommand runs
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

const banner = `
 █████╗  ██████╗ ███████╗███╗   ██╗████████╗
██╔══██╗██╔════╝ ██╔════╝████╗  ██║╚══██╔══╝
███████║██║  ███╗█████╗  ██╔██╗ ██║   ██║
██╔══██║██║   ██║██╔══╝  ██║╚██╗██║   ██║
██║  ██║╚██████╔╝███████╗██║ ╚████║   ██║
╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝  ╚═══╝   ╚═╝`

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Local conversational agent over self-hosted models",
		Long: banner + `

A local conversational agent that routes each message to a configured
model alias. Routes with orchestration interpret the request, plan and
run actions, then narrate the outcome. Calls to the model backend are
serialized process-wide.

Routes are read from router.yaml (or router.example.yaml) in the
current directory, or from AGENT_ROUTER_PATH.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			switch outputFormat {
			case "auto", "text", "json":
			default:
				return fmt.Errorf("--format must be auto, text or json, got %q", outputFormat)
			}
			// .env never overrides variables already set
			_ = godotenv.Load()
			setupLogging()
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, text or json")

	cmd.AddCommand(
		NewAskCmd(),
		NewChatCmd(),
		NewServeCmd(),
		NewMCPCmd(),
		NewRoutesCmd(),
		NewMemoryCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// setupLogging configures the global zerolog logger. Logs go to stderr so stdout stays clean.
func setupLogging() {
	level := zerolog.InfoLevel
	switch {
	case verbose:
		level = zerolog.DebugLevel
	case quiet:
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("LOG_FORMAT") == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}
