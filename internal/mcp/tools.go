// ABOUTME: MCP tool definitions and registration for the agent server
// ABOUTME: Exposes respond and list_routes over the Model Context Protocol
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, responder Responder, routes RouteLister, defaultRoute string) *Handlers {
	handlers := NewHandlers(responder, routes, defaultRoute)

	// 1. respond - run one turn through the pipeline
	server.AddTool(mcp.Tool{
		Name:        "respond",
		Description: "Send a message to the local agent and get its reply. Routes with orchestration interpret the request, may plan actions, and narrate the result.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "User message",
				},
				"route": map[string]interface{}{
					"type":        "string",
					"description": "Route alias to use (default: the configured default route)",
				},
				"channel": map[string]interface{}{
					"type":        "string",
					"description": "Channel of the turn: interactive or automation (default: interactive)",
					"enum":        []string{"interactive", "automation"},
				},
			},
			Required: []string{"text"},
		},
	}, handlers.Respond)

	// 2. list_routes - list configured route aliases
	server.AddTool(mcp.Tool{
		Name:        "list_routes",
		Description: "List the configured route aliases with their prompt format and whether orchestration and memory are enabled.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ListRoutes)

	return handlers
}
