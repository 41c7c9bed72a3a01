// ABOUTME: Composition root wiring config, router, gate, backends, memory and actions
// ABOUTME: Every subcommand that runs turns builds its app here
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/harper/local-agent-core/internal/actions"
	"github.com/harper/local-agent-core/internal/config"
	"github.com/harper/local-agent-core/internal/core"
	"github.com/harper/local-agent-core/internal/gate"
	"github.com/harper/local-agent-core/internal/llm"
	"github.com/harper/local-agent-core/internal/memory"
)

// app holds the process-wide collaborators. There is exactly one gate per app.
type app struct {
	cfg      *config.Config
	router   *config.Router
	pipeline *core.Pipeline
	memory   memory.Store
	closers  []io.Closer
}

// loadRouter finds and parses the router file named by cfg
func loadRouter(cfg *config.Config) (*config.Router, error) {
	path := cfg.RouterPath
	if path == "" {
		found, err := config.FindRouterFile(".")
		if err != nil {
			return nil, err
		}
		path = found
	}
	router, err := config.LoadRouter(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Strs("aliases", router.Names()).Msg("router loaded")
	return router, nil
}

// openMemory selects the long-term memory backend. A nil store disables memory.
func openMemory(cfg *config.Config) (memory.Store, io.Closer, error) {
	switch cfg.MemoryBackend {
	case config.MemoryOpenMemory:
		return memory.NewOpenMemoryStore(cfg.OpenMemoryURL, cfg.OpenMemoryAPIKey, cfg.MemoryTimeout), nil, nil
	case config.MemorySQLite:
		store, err := memory.OpenSQLiteStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, nil
	}
}

// newApp builds the pipeline. With watch set, the router file is reloaded on change until ctx ends.
func newApp(ctx context.Context, watch bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	router, err := loadRouter(cfg)
	if err != nil {
		return nil, err
	}
	if watch {
		if _, err := router.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("router hot reload disabled")
		}
	}

	a := &app{cfg: cfg, router: router}

	store, closer, err := openMemory(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening memory store: %w", err)
	}
	a.memory = store
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	registry, err := actions.NewDefaultRegistry(cfg.NotesVaultPath, cfg.NotesSubdir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("registering actions: %w", err)
	}

	runner := gate.Runner{
		Gate:         gate.NewSemaphore(),
		Mode:         gate.Mode(cfg.GateMode),
		PollInterval: cfg.GatePollInterval,
	}
	dispatcher := llm.NewDispatcher(runner, llm.Options{
		Timeout:    cfg.BackendTimeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}, cfg.OpenAIKey)

	userID := cfg.UserID
	if userID == "" {
		userID = core.DefaultUserKey
	}

	deps := core.Deps{
		Routes:   router,
		Backends: dispatcher,
		Memory:   store,
		Tracker:  core.NewContinuityTracker(cfg.HistoryWindow),
		Executor: actions.NewExecutor(registry),
	}
	a.pipeline = core.NewPipeline(deps, core.Options{
		DefaultRoute: cfg.DefaultRoute,
		UserID:       userID,
		MemoryDomain: cfg.MemoryDomain,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
	})

	log.Debug().
		Str("gate_mode", cfg.GateMode).
		Str("memory", cfg.MemoryBackend).
		Str("default_route", cfg.DefaultRoute).
		Msg("agent ready")
	return a, nil
}

// Close releases stores opened by newApp
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}
