// ABOUTME: Hands out one backend client per resolved route target
// ABOUTME: All clients share a single gate so at most one generation is in flight per process
package llm

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/harper/local-agent-core/internal/config"
	"github.com/harper/local-agent-core/internal/gate"
	"github.com/harper/local-agent-core/internal/models"
)

// Dispatcher caches backend clients and wraps each with the shared gate
type Dispatcher struct {
	runner    gate.Runner
	opts      Options
	openAIKey string

	mu      sync.Mutex
	clients map[string]Backend
}

// NewDispatcher creates a dispatcher. openAIKey is the fallback key for openai routes
// that do not name their own key variable.
func NewDispatcher(runner gate.Runner, opts Options, openAIKey string) *Dispatcher {
	return &Dispatcher{
		runner:    runner,
		opts:      opts,
		openAIKey: openAIKey,
		clients:   make(map[string]Backend),
	}
}

// Runner returns the gate runner shared by every client
func (d *Dispatcher) Runner() gate.Runner {
	return d.runner
}

// ForRoute returns the gated backend for route, creating it on first use
func (d *Dispatcher) ForRoute(route config.Route) (Backend, error) {
	key := route.BackendAPI + "|" + route.BackendURL + "|" + route.BackendModel

	d.mu.Lock()
	defer d.mu.Unlock()

	if b, ok := d.clients[key]; ok {
		return b, nil
	}

	var client Backend
	switch route.BackendAPI {
	case config.APICompletion, "":
		client = NewCompletionClient(route.BackendURL, d.opts)
	case config.APIOpenAI:
		apiKey := route.APIKey
		if apiKey == "" {
			apiKey = d.openAIKey
		}
		c, err := NewOpenAIClient(apiKey, route.BackendURL, route.BackendModel, d.opts)
		if err != nil {
			return nil, models.NewError(models.KindConfiguration, "create backend", err)
		}
		client = c
	default:
		return nil, models.NewError(models.KindConfiguration, "create backend",
			fmt.Errorf("unknown backend api %q", route.BackendAPI))
	}

	log.Debug().Str("api", route.BackendAPI).Str("url", route.BackendURL).Str("route", route.Name).Msg("backend: client created")

	gated := &GatedBackend{Backend: client, Runner: d.runner}
	d.clients[key] = gated
	return gated, nil
}
