// ABOUTME: Serve command starts the HTTP chat surface
// ABOUTME: Shuts down gracefully on SIGINT/SIGTERM
package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harper/local-agent-core/internal/server"
)

var (
	serveHost string
	servePort int
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP chat server",
		Long: `Start the HTTP chat server.

Endpoints:
  POST /chat     {"input": "...", "alias": "...", "channel": "..."}
  GET  /routes   configured route aliases
  GET  /healthz  liveness

The router file is reloaded when it changes on disk.`,
		Example: `  # Listen on LAC_WEB_HOST:LAC_WEB_PORT (default 127.0.0.1:5001)
  agent serve

  # Custom address
  agent serve --host 0.0.0.0 --port 8000`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default: LAC_WEB_HOST)")
	cmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default: LAC_WEB_PORT)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	host := serveHost
	if host == "" {
		host = a.cfg.WebHost
	}
	port := servePort
	if port == 0 {
		port = a.cfg.WebPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(a.pipeline, a.router, a.cfg.DefaultRoute).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", addr).Msg("http server listening")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}
