// ABOUTME: HTTP surface for the agent: chat, route listing and health endpoints
// ABOUTME: Maps turn error kinds onto status codes with a uniform {ok, response|error} body
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/harper/local-agent-core/internal/config"
	"github.com/harper/local-agent-core/internal/core"
	"github.com/harper/local-agent-core/internal/models"
)

// NoResponse replaces an empty model reply
const NoResponse = "[No response from model]"

// Responder runs one turn
type Responder interface {
	Respond(ctx context.Context, req core.TurnRequest) (*core.TurnResult, error)
}

// RouteLister exposes the configured routes
type RouteLister interface {
	Names() []string
	Resolve(name string) (config.Route, error)
}

// Server serves the chat API
type Server struct {
	responder    Responder
	routes       RouteLister
	defaultRoute string
}

// New creates a server
func New(responder Responder, routes RouteLister, defaultRoute string) *Server {
	return &Server{responder: responder, routes: routes, defaultRoute: defaultRoute}
}

// RegisterMux installs the handlers on mux
func (s *Server) RegisterMux(mux *http.ServeMux) {
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/routes", s.handleRoutes)
	mux.HandleFunc("/healthz", s.handleHealth)
}

// Handler returns a mux with all handlers registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterMux(mux)
	return mux
}

type chatRequest struct {
	Input   string `json:"input"`
	Alias   string `json:"alias"`
	Channel string `json:"channel"`
}

type chatResponse struct {
	OK       bool   `json:"ok"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, chatResponse{Error: "invalid request body"})
		return
	}

	alias := strings.TrimSpace(payload.Alias)
	if alias == "" {
		alias = s.defaultRoute
	}
	if strings.TrimSpace(payload.Input) == "" {
		writeJSON(w, http.StatusBadRequest, chatResponse{Error: "Empty input."})
		return
	}
	channel := models.Channel(payload.Channel)
	if channel == "" {
		channel = models.ChannelInteractive
	}
	if channel != models.ChannelInteractive && channel != models.ChannelAutomation {
		writeJSON(w, http.StatusBadRequest, chatResponse{Error: fmt.Sprintf("Unknown channel '%s'", channel)})
		return
	}

	result, err := s.responder.Respond(r.Context(), core.TurnRequest{
		Text:    payload.Input,
		Route:   alias,
		Channel: channel,
	})
	if err != nil {
		status, msg := errorResponse(err, alias)
		log.Warn().Err(err).Int("status", status).Str("alias", alias).Msg("chat: turn failed")
		writeJSON(w, status, chatResponse{Error: msg})
		return
	}

	response := strings.TrimSpace(result.Output)
	if response == "" {
		response = NoResponse
	}
	writeJSON(w, http.StatusOK, chatResponse{OK: true, Response: response})
}

// errorResponse maps a turn error to a status code and a client-safe message
func errorResponse(err error, alias string) (int, string) {
	switch models.KindOf(err) {
	case models.KindInput:
		return http.StatusBadRequest, "Empty input."
	case models.KindConfiguration:
		var turnErr *models.TurnError
		if errors.As(err, &turnErr) && turnErr.Op == config.OpResolveRoute {
			return http.StatusBadRequest, fmt.Sprintf("Unknown alias '%s'", alias)
		}
		return http.StatusBadRequest, "Route misconfigured."
	case models.KindBackend:
		return http.StatusBadGateway, "Model endpoint not reachable."
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable, "Request canceled."
	}
	return http.StatusInternalServerError, "Internal error."
}

type routeInfo struct {
	Name          string `json:"name"`
	Model         string `json:"model,omitempty"`
	Format        string `json:"format,omitempty"`
	Orchestration bool   `json:"orchestration"`
	Memory        bool   `json:"memory"`
	Error         string `json:"error,omitempty"`
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	names := s.routes.Names()
	out := make([]routeInfo, 0, len(names))
	for _, name := range names {
		route, err := s.routes.Resolve(name)
		if err != nil {
			out = append(out, routeInfo{Name: name, Error: err.Error()})
			continue
		}
		out = append(out, routeInfo{
			Name:          route.Name,
			Model:         route.Model,
			Format:        route.Format,
			Orchestration: route.OrchestrationEnabled,
			Memory:        route.MemoryEnabled,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"default": s.defaultRoute,
		"routes":  out,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
