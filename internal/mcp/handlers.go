// ABOUTME: MCP tool handler implementations for the agent server
// ABOUTME: Tool failures are reported as tool errors, never as protocol errors
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"

	"github.com/harper/local-agent-core/internal/config"
	"github.com/harper/local-agent-core/internal/core"
	"github.com/harper/local-agent-core/internal/models"
)

// Responder runs one turn
type Responder interface {
	Respond(ctx context.Context, req core.TurnRequest) (*core.TurnResult, error)
}

// RouteLister exposes the configured routes
type RouteLister interface {
	Names() []string
	Resolve(name string) (config.Route, error)
}

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	responder    Responder
	routes       RouteLister
	defaultRoute string
}

// NewHandlers creates the tool handlers
func NewHandlers(responder Responder, routes RouteLister, defaultRoute string) *Handlers {
	return &Handlers{responder: responder, routes: routes, defaultRoute: defaultRoute}
}

// Respond handles the respond tool
func (h *Handlers) Respond(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}

	channel := models.Channel(request.GetString("channel", string(models.ChannelInteractive)))
	if channel != models.ChannelInteractive && channel != models.ChannelAutomation {
		return mcp.NewToolResultError(fmt.Sprintf("unknown channel %q", channel)), nil
	}

	result, err := h.responder.Respond(ctx, core.TurnRequest{
		Text:    text,
		Route:   request.GetString("route", h.defaultRoute),
		Channel: channel,
	})
	if err != nil {
		log.Warn().Err(err).Str("kind", string(models.KindOf(err))).Msg("mcp: respond failed")
		return mcp.NewToolResultError(err.Error()), nil
	}
	for _, d := range result.Degraded {
		log.Debug().Err(d).Str("turn_id", result.TurnID).Msg("mcp: turn degraded")
	}

	return mcp.NewToolResultText(result.Output), nil
}

// ListRoutes handles the list_routes tool
func (h *Handlers) ListRoutes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := h.routes.Names()
	routes := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		route, err := h.routes.Resolve(name)
		if err != nil {
			routes = append(routes, map[string]interface{}{
				"name":  name,
				"error": err.Error(),
			})
			continue
		}
		routes = append(routes, map[string]interface{}{
			"name":          route.Name,
			"model":         route.Model,
			"format":        route.Format,
			"orchestration": route.OrchestrationEnabled,
			"memory":        route.MemoryEnabled,
			"framing":       route.ResponseFraming,
		})
	}

	response := map[string]interface{}{
		"default_route": h.defaultRoute,
		"routes":        routes,
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}
