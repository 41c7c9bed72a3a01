// ABOUTME: Turn pipeline running Interpret, Act and Narrate for one user utterance
// ABOUTME: Backend calls go through the shared gate; memory and action failures degrade the turn
package core

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/harper/local-agent-core/internal/actions"
	"github.com/harper/local-agent-core/internal/config"
	"github.com/harper/local-agent-core/internal/llm"
	"github.com/harper/local-agent-core/internal/memory"
	"github.com/harper/local-agent-core/internal/models"
	"github.com/harper/local-agent-core/internal/prompts"
)

// RouteResolver resolves a route name into its configuration
type RouteResolver interface {
	Resolve(name string) (config.Route, error)
}

// PromptBuilder renders a user message in the route's prompt format
type PromptBuilder interface {
	Build(route config.Route, userText, longTermContext string) (string, error)
}

// BackendProvider hands out the (gated) backend for a route
type BackendProvider interface {
	ForRoute(route config.Route) (llm.Backend, error)
}

// Options are process-level turn defaults
type Options struct {
	DefaultRoute string
	UserID       string
	MemoryDomain string
	MemoryTopK   int
	Temperature  float64
	MaxTokens    int
}

// Deps are the pipeline's collaborators. Memory may be nil.
type Deps struct {
	Routes   RouteResolver
	Prompts  PromptBuilder
	Backends BackendProvider
	Memory   memory.Store
	Tracker  *ContinuityTracker
	Planner  *Planner
	Executor *actions.Executor
}

// TurnRequest is one incoming utterance
type TurnRequest struct {
	Text    string
	Route   string
	Channel models.Channel
	UserID  string
}

// TurnResult is the outcome of a completed turn
type TurnResult struct {
	TurnID         string
	Route          string
	Channel        models.Channel
	SessionKind    models.SessionKind
	Output         string
	Interpretation *models.InterpreterResult
	Plan           *models.ActionPlan
	ActionResults  []models.ActionResult
	// Degraded holds recovered collaborator and action failures
	Degraded []error
}

// Pipeline orchestrates turns. Safe for concurrent use; the backend gate is the only serialization point.
type Pipeline struct {
	deps Deps
	opts Options
}

// NewPipeline creates a pipeline, filling in defaults for optional collaborators
func NewPipeline(deps Deps, opts Options) *Pipeline {
	if deps.Prompts == nil {
		deps.Prompts = prompts.NewBuilder()
	}
	if deps.Tracker == nil {
		deps.Tracker = NewContinuityTracker(DefaultHistoryWindow)
	}
	if deps.Planner == nil {
		deps.Planner = NewPlanner(nil)
	}
	if deps.Executor == nil {
		deps.Executor = actions.NewExecutor(nil)
	}
	if opts.MemoryTopK <= 0 {
		opts.MemoryTopK = memory.DefaultLimit
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	return &Pipeline{deps: deps, opts: opts}
}

// Tracker exposes the continuity tracker
func (p *Pipeline) Tracker() *ContinuityTracker {
	return p.deps.Tracker
}

// Respond runs one turn and returns the user-visible output
func (p *Pipeline) Respond(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	return p.RespondStream(ctx, req, nil)
}

// RespondStream runs one turn, streaming the final backend phase to sink when sink is non-nil.
// Harmony-framed routes emit the extracted final segment once instead of raw chunks.
func (p *Pipeline) RespondStream(ctx context.Context, req TurnRequest, sink llm.ChunkFunc) (*TurnResult, error) {
	routeName := req.Route
	if routeName == "" {
		routeName = p.opts.DefaultRoute
	}

	// RECEIVED
	state, err := models.NewTurnState(req.Text, routeName, req.Channel)
	if err != nil {
		return nil, err
	}
	state.UserID = req.UserID
	if state.UserID == "" {
		state.UserID = p.opts.UserID
	}
	logger := log.With().
		Str("turn_id", state.TurnID).
		Str("route", routeName).
		Str("channel", string(state.Channel)).
		Logger()

	route, backend, err := p.resolve(routeName)
	if err != nil {
		logger.Warn().Err(err).Msg("turn: route rejected")
		return nil, err
	}

	result := &TurnResult{TurnID: state.TurnID, Route: routeName, Channel: state.Channel}

	// CONTEXT_ATTACHED
	state.SessionKind = p.deps.Tracker.Classify(state.UserID, routeName, state.Channel)
	result.SessionKind = state.SessionKind
	if err := p.attachContext(ctx, state, route, &logger); err != nil {
		result.Degraded = append(result.Degraded, err)
	}
	p.advance(state, models.StageContextAttached, &logger)

	if route.OrchestrationEnabled {
		err = p.orchestrate(ctx, state, route, backend, sink, result, &logger)
	} else {
		err = p.single(ctx, state, route, backend, sink, result, &logger)
	}
	if err != nil {
		logger.Warn().Err(err).Str("stage", state.Stage.String()).Msg("turn: aborted")
		return nil, err
	}

	// DONE
	recent := p.deps.Tracker.Record(state.UserID, routeName, state.Text)
	if err := p.storeInteraction(ctx, state, route, result.Output, recent, &logger); err != nil {
		result.Degraded = append(result.Degraded, err)
	}
	p.advance(state, models.StageDone, &logger)

	return result, nil
}

func (p *Pipeline) resolve(routeName string) (config.Route, llm.Backend, error) {
	route, err := p.deps.Routes.Resolve(routeName)
	if err != nil {
		return config.Route{}, nil, asKind(models.KindConfiguration, config.OpResolveRoute, err)
	}
	if err := llm.ValidateFraming(route.ResponseFraming); err != nil {
		return config.Route{}, nil, err
	}
	backend, err := p.deps.Backends.ForRoute(route)
	if err != nil {
		return config.Route{}, nil, asKind(models.KindConfiguration, "select backend", err)
	}
	return route, backend, nil
}

// single is the collapsed flow for routes without orchestration: one call, output returned directly
func (p *Pipeline) single(ctx context.Context, state *models.TurnState, route config.Route, backend llm.Backend, sink llm.ChunkFunc, result *TurnResult, logger *zerolog.Logger) error {
	prompt, err := p.deps.Prompts.Build(route, state.Text, state.LongTermContext)
	if err != nil {
		return asKind(models.KindConfiguration, "build prompt", err)
	}
	out, err := p.generate(ctx, backend, route, prompt, sink)
	if err != nil {
		return models.NewError(models.KindBackend, "respond", err)
	}
	p.advance(state, models.StageInterpreted, logger)
	result.Output = out
	return nil
}

func (p *Pipeline) orchestrate(ctx context.Context, state *models.TurnState, route config.Route, backend llm.Backend, sink llm.ChunkFunc, result *TurnResult, logger *zerolog.Logger) error {
	// INTERPRETED
	interpPrompt, err := p.deps.Prompts.Build(route, prompts.InterpreterMessage(state.Text, state.LongTermContext), "")
	if err != nil {
		return asKind(models.KindConfiguration, "build prompt", err)
	}
	interpRaw, err := p.generate(ctx, backend, route, interpPrompt, nil)
	if err != nil {
		return models.NewError(models.KindBackend, "interpret", err)
	}
	interp := ParseInterpreterOutput(interpRaw)
	state.Interpretation = &interp
	result.Interpretation = &interp
	p.advance(state, models.StageInterpreted, logger)

	// PLANNED
	plan := p.deps.Planner.Plan(interp)
	state.Plan = plan
	result.Plan = plan
	p.advance(state, models.StagePlanned, logger)
	if plan.NeedsActions {
		logger.Debug().Strs("categories", plan.Categories).Msg("turn: actions planned")
	}

	// ACTED
	results := p.deps.Executor.Execute(ctx, state, plan, route.InteractiveActionAllowlist)
	result.ActionResults = results
	for _, r := range results {
		if r.Succeeded {
			continue
		}
		logger.Warn().Str("action", r.ActionName).Str("summary", r.Summary).Msg("turn: action failed")
		if r.Err != nil {
			result.Degraded = append(result.Degraded, r.Err)
		}
	}
	p.advance(state, models.StageActed, logger)

	// NARRATED
	narrPrompt, err := p.deps.Prompts.Build(route, prompts.NarratorMessage(prompts.NarratorInput{
		Text:            state.Text,
		LongTermContext: state.LongTermContext,
		Interpretation:  interpRaw,
		Plan:            plan,
		Results:         results,
	}), "")
	if err != nil {
		return asKind(models.KindConfiguration, "build prompt", err)
	}
	out, err := p.generate(ctx, backend, route, narrPrompt, sink)
	if err != nil {
		return models.NewError(models.KindBackend, "narrate", err)
	}
	result.Output = out
	p.advance(state, models.StageNarrated, logger)
	return nil
}

// generate makes one gated backend call and applies the route's framing.
// With a sink, unframed output is forwarded chunk by chunk as it arrives.
func (p *Pipeline) generate(ctx context.Context, backend llm.Backend, route config.Route, prompt string, sink llm.ChunkFunc) (string, error) {
	req := llm.Request{Prompt: prompt, Temperature: p.opts.Temperature, MaxTokens: p.opts.MaxTokens}

	var raw string
	switch {
	case sink == nil:
		out, err := backend.Complete(ctx, req)
		if err != nil {
			return "", err
		}
		raw = out
	case route.ResponseFraming == config.FramingHarmony:
		var buf strings.Builder
		if err := backend.Stream(ctx, req, func(chunk string) error {
			buf.WriteString(chunk)
			return nil
		}); err != nil {
			return "", err
		}
		final, err := llm.ApplyFraming(route.ResponseFraming, llm.CleanOutput(buf.String()))
		if err != nil {
			return "", err
		}
		final = strings.TrimSpace(final)
		if err := sink(final); err != nil {
			return "", err
		}
		return final, nil
	default:
		var buf strings.Builder
		if err := backend.Stream(ctx, req, func(chunk string) error {
			buf.WriteString(chunk)
			return sink(chunk)
		}); err != nil {
			return "", err
		}
		raw = llm.CleanOutput(buf.String())
	}

	out, err := llm.ApplyFraming(route.ResponseFraming, raw)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// attachContext fetches long-term memory into the turn. A failure leaves the context empty.
func (p *Pipeline) attachContext(ctx context.Context, state *models.TurnState, route config.Route, logger *zerolog.Logger) error {
	if !route.MemoryEnabled || p.deps.Memory == nil {
		return nil
	}
	limit := route.MemoryTopK
	if limit <= 0 {
		limit = p.opts.MemoryTopK
	}
	items, err := p.deps.Memory.Search(ctx, memory.Query{
		Text:   state.Text,
		UserID: state.UserID,
		Route:  state.RouteName,
		Limit:  limit,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("turn: memory search failed, continuing without context")
		return models.NewError(models.KindCollaborator, "memory search", err)
	}
	state.LongTermContext = memory.FormatContext(items)
	logger.Debug().Int("memories", len(items)).Msg("turn: context attached")
	return nil
}

func (p *Pipeline) storeInteraction(ctx context.Context, state *models.TurnState, route config.Route, output string, recent []string, logger *zerolog.Logger) error {
	if !route.MemoryEnabled || p.deps.Memory == nil {
		return nil
	}
	domain := route.MemoryDomain
	if domain == "" {
		domain = p.opts.MemoryDomain
	}
	err := p.deps.Memory.AddInteraction(ctx, memory.Interaction{
		UserText:      state.Text,
		AssistantText: output,
		UserID:        state.UserID,
		Route:         state.RouteName,
		Metadata: map[string]interface{}{
			memory.KeyMemoryDomain:     domain,
			memory.KeyChannel:          string(state.Channel),
			memory.KeySessionKind:      string(state.SessionKind),
			memory.KeyRecentUserInputs: recent,
		},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("turn: memory write failed")
		return models.NewError(models.KindCollaborator, "memory write", err)
	}
	return nil
}

func (p *Pipeline) advance(state *models.TurnState, stage models.Stage, logger *zerolog.Logger) {
	state.Advance(stage)
	logger.Debug().Str("stage", stage.String()).Msg("turn: stage")
}

// asKind keeps an existing error kind and wraps untyped errors as kind
func asKind(kind models.ErrorKind, op string, err error) error {
	var turnErr *models.TurnError
	if errors.As(err, &turnErr) {
		return err
	}
	return models.NewError(kind, op, err)
}
