// ABOUTME: Tests for the MCP tool handlers
// ABOUTME: Uses a fake responder and route list, no stdio transport
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/local-agent-core/internal/config"
	"github.com/harper/local-agent-core/internal/core"
	"github.com/harper/local-agent-core/internal/models"
)

type fakeResponder struct {
	output string
	err    error
	got    []core.TurnRequest
}

func (f *fakeResponder) Respond(ctx context.Context, req core.TurnRequest) (*core.TurnResult, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return &core.TurnResult{TurnID: "turn_1", Route: req.Route, Output: f.output}, nil
}

type fakeRoutes map[string]config.Route

func (f fakeRoutes) Names() []string {
	return []string{"agent", "broken", "general"}
}

func (f fakeRoutes) Resolve(name string) (config.Route, error) {
	r, ok := f[name]
	if !ok {
		return config.Route{}, errors.New("unknown model")
	}
	return r, nil
}

var testRoutes = fakeRoutes{
	"agent":   {Name: "agent", Model: "oss", Format: "gpt-oss-harmony", OrchestrationEnabled: true, ResponseFraming: config.FramingHarmony},
	"general": {Name: "general", Model: "local", Format: "llama-chat", MemoryEnabled: true},
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestRespond(t *testing.T) {
	responder := &fakeResponder{output: "hello there"}
	h := NewHandlers(responder, testRoutes, "general")

	result, err := h.Respond(context.Background(), callRequest(map[string]interface{}{"text": "hi"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "hello there", resultText(t, result))

	require.Len(t, responder.got, 1)
	assert.Equal(t, core.TurnRequest{Text: "hi", Route: "general", Channel: models.ChannelInteractive}, responder.got[0])
}

func TestRespond_RouteAndChannel(t *testing.T) {
	responder := &fakeResponder{output: "ok"}
	h := NewHandlers(responder, testRoutes, "general")

	_, err := h.Respond(context.Background(), callRequest(map[string]interface{}{
		"text":    "file this",
		"route":   "agent",
		"channel": "automation",
	}))
	require.NoError(t, err)
	require.Len(t, responder.got, 1)
	assert.Equal(t, "agent", responder.got[0].Route)
	assert.Equal(t, models.ChannelAutomation, responder.got[0].Channel)
}

func TestRespond_ToolErrors(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]interface{}
		err       error
		wantCalls int
	}{
		{name: "missing text", args: map[string]interface{}{}},
		{name: "text not a string", args: map[string]interface{}{"text": 42}},
		{name: "bad channel", args: map[string]interface{}{"text": "hi", "channel": "pager"}},
		{
			name:      "pipeline error",
			args:      map[string]interface{}{"text": "hi"},
			err:       models.NewError(models.KindBackend, "respond", errors.New("connection refused")),
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responder := &fakeResponder{err: tt.err}
			h := NewHandlers(responder, testRoutes, "general")

			result, err := h.Respond(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Len(t, responder.got, tt.wantCalls)
		})
	}
}

func TestListRoutes(t *testing.T) {
	h := NewHandlers(&fakeResponder{}, testRoutes, "general")

	result, err := h.ListRoutes(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var body struct {
		DefaultRoute string                   `json:"default_route"`
		Routes       []map[string]interface{} `json:"routes"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))

	assert.Equal(t, "general", body.DefaultRoute)
	require.Len(t, body.Routes, 3)
	assert.Equal(t, "agent", body.Routes[0]["name"])
	assert.Equal(t, true, body.Routes[0]["orchestration"])
	assert.Equal(t, "gpt-oss-harmony", body.Routes[0]["framing"])
	assert.Equal(t, "unknown model", body.Routes[1]["error"])
	assert.Equal(t, true, body.Routes[2]["memory"])
}

func TestRegisterTools(t *testing.T) {
	server := mcpserver.NewMCPServer("test", "0.0.0")
	h := RegisterTools(server, &fakeResponder{output: "ok"}, testRoutes, "general")
	require.NotNil(t, h)

	result, err := h.Respond(context.Background(), callRequest(map[string]interface{}{"text": "ping"}))
	require.NoError(t, err)
	assert.Equal(t, "ok", resultText(t, result))
}
