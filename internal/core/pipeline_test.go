// ABOUTME: Tests for the turn pipeline against a scripted backend
// ABOUTME: Covers both flows, error kinds, degradation, streaming and gate exclusivity
package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/harper/local-agent-core/internal/actions"
	"github.com/harper/local-agent-core/internal/config"
	"github.com/harper/local-agent-core/internal/gate"
	"github.com/harper/local-agent-core/internal/llm"
	"github.com/harper/local-agent-core/internal/memory"
	"github.com/harper/local-agent-core/internal/models"
	"github.com/harper/local-agent-core/internal/prompts"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	goleak.VerifyTestMain(m)
}

// scriptedBackend answers interpreter prompts with interpretation and everything else with narration
type scriptedBackend struct {
	interpretation string
	narration      string
	err            error
	delay          time.Duration

	mu         sync.Mutex
	prompts    []string
	inFlight   int
	maxOverlap int
}

func (b *scriptedBackend) reply(prompt string) (string, error) {
	b.mu.Lock()
	b.prompts = append(b.prompts, prompt)
	b.inFlight++
	if b.inFlight > b.maxOverlap {
		b.maxOverlap = b.inFlight
	}
	b.mu.Unlock()

	if b.delay > 0 {
		time.Sleep(b.delay)
	}

	b.mu.Lock()
	b.inFlight--
	b.mu.Unlock()

	if b.err != nil {
		return "", b.err
	}
	if strings.Contains(prompt, prompts.InterpreterInstructions) {
		return b.interpretation, nil
	}
	return b.narration, nil
}

func (b *scriptedBackend) Complete(ctx context.Context, req llm.Request) (string, error) {
	return b.reply(req.Prompt)
}

func (b *scriptedBackend) Stream(ctx context.Context, req llm.Request, onChunk llm.ChunkFunc) error {
	out, err := b.reply(req.Prompt)
	if err != nil {
		return err
	}
	for _, word := range strings.SplitAfter(out, " ") {
		if err := onChunk(word); err != nil {
			return err
		}
	}
	return nil
}

func (b *scriptedBackend) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.prompts...)
}

type staticProvider struct{ backend llm.Backend }

func (s staticProvider) ForRoute(config.Route) (llm.Backend, error) { return s.backend, nil }

type mapRoutes map[string]config.Route

func (m mapRoutes) Resolve(name string) (config.Route, error) {
	r, ok := m[name]
	if !ok {
		return config.Route{}, errors.New("unknown alias " + name)
	}
	return r, nil
}

var testRoutes = mapRoutes{
	"general":  {Name: "general", Format: "plain", SystemPrompt: "sys"},
	"agent":    {Name: "agent", Format: "plain", SystemPrompt: "sys", OrchestrationEnabled: true},
	"notes":    {Name: "notes", Format: "plain", OrchestrationEnabled: true, InteractiveActionAllowlist: []string{"notes"}},
	"oss":      {Name: "oss", Format: "gpt-oss-harmony", ResponseFraming: config.FramingHarmony},
	"ossagent": {Name: "ossagent", Format: "gpt-oss-harmony", ResponseFraming: config.FramingHarmony, OrchestrationEnabled: true},
	"remember": {Name: "remember", Format: "plain", MemoryEnabled: true, MemoryTopK: 2, MemoryDomain: "social"},
	"badframe": {Name: "badframe", Format: "plain", ResponseFraming: "xml"},
}

const notesInterpretation = "Intent: save a note\nCategory: notes\nNeeds_tools: yes, obsidian note\nThread: new\nSummary: User wants this written down."

type recordingAction struct {
	panics bool
	mu     sync.Mutex
	runs   int
}

func (a *recordingAction) Name() string         { return "recorder" }
func (a *recordingAction) Categories() []string { return []string{"notes"} }
func (a *recordingAction) Run(ctx context.Context, state *models.TurnState) (models.ActionResult, error) {
	a.mu.Lock()
	a.runs++
	a.mu.Unlock()
	if a.panics {
		panic("vault exploded")
	}
	return models.ActionResult{ActionName: "recorder", Succeeded: true, Summary: "noted"}, nil
}

func newTestPipeline(t *testing.T, backend llm.Backend, deps Deps) *Pipeline {
	t.Helper()
	deps.Routes = testRoutes
	deps.Backends = staticProvider{backend: backend}
	return NewPipeline(deps, Options{DefaultRoute: "general", UserID: "dana", MemoryDomain: "professional", Temperature: 0.8, MaxTokens: 256})
}

func TestRespond_SinglePhase(t *testing.T) {
	backend := &scriptedBackend{narration: "  plain answer  "}
	p := newTestPipeline(t, backend, Deps{})

	res, err := p.Respond(context.Background(), TurnRequest{Text: "  hello  "})
	require.NoError(t, err)

	assert.Equal(t, "plain answer", res.Output)
	assert.Equal(t, "general", res.Route)
	assert.Equal(t, models.ChannelInteractive, res.Channel)
	assert.Nil(t, res.Interpretation)
	assert.Nil(t, res.Plan)

	calls := backend.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "System: sys\n\nUser: hello\nAssistant:", calls[0])
}

func TestRespond_SinglePhaseHarmony(t *testing.T) {
	backend := &scriptedBackend{narration: "<|channel|>analysis<|message|>hmm<|end|><|start|>assistant<|channel|>final<|message|>Final words<|return|>"}
	p := newTestPipeline(t, backend, Deps{})

	res, err := p.Respond(context.Background(), TurnRequest{Text: "hi", Route: "oss"})
	require.NoError(t, err)
	assert.Equal(t, "Final words", res.Output)
	assert.Len(t, backend.calls(), 1)
}

func TestRespond_Orchestrated(t *testing.T) {
	backend := &scriptedBackend{interpretation: notesInterpretation, narration: "I can write that down once notes are enabled."}
	p := newTestPipeline(t, backend, Deps{})

	res, err := p.Respond(context.Background(), TurnRequest{Text: "remember to buy milk", Route: "agent"})
	require.NoError(t, err)

	assert.Equal(t, "I can write that down once notes are enabled.", res.Output)
	require.NotNil(t, res.Interpretation)
	assert.Equal(t, "save a note", res.Interpretation.Intent)
	require.NotNil(t, res.Plan)
	assert.Equal(t, []string{"notes"}, res.Plan.Categories)

	// interactive with no allowlist: planning only
	require.Len(t, res.ActionResults, 1)
	assert.Equal(t, actions.PlanningOnlyName, res.ActionResults[0].ActionName)

	calls := backend.calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0], "--- CURRENT USER INPUT ---\nremember to buy milk")
	assert.Contains(t, calls[1], "--- INTERPRETER ANALYSIS (INTERNAL) ---\n"+notesInterpretation)
	assert.Contains(t, calls[1], "--- TOOL PLAN (INTERNAL) ---")
	assert.Contains(t, calls[1], "--- TOOL RESULTS (INTERNAL) ---\n__planning_only__:")

	for _, marker := range []string{"INTERNAL", "Needs_tools", "__planning_only__"} {
		assert.NotContains(t, res.Output, marker)
	}
}

func TestRespond_OrchestratedHarmonyExtractsBothPhases(t *testing.T) {
	backend := &scriptedBackend{
		interpretation: "<|channel|>analysis<|message|>x<|end|><|channel|>final<|message|>Intent: greet\nNeeds_tools: no<|end|>",
		narration:      "<|channel|>analysis<|message|>y<|end|><|channel|>final<|message|>Hello!<|return|>",
	}
	p := newTestPipeline(t, backend, Deps{})

	res, err := p.Respond(context.Background(), TurnRequest{Text: "hi", Route: "ossagent"})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", res.Output)
	assert.Equal(t, "greet", res.Interpretation.Intent)
	assert.Empty(t, res.ActionResults)

	calls := backend.calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1], "--- INTERPRETER ANALYSIS (INTERNAL) ---\nIntent: greet\nNeeds_tools: no")
	assert.NotContains(t, calls[1], "TOOL PLAN")
}

func TestRespond_AutomationExecutesActions(t *testing.T) {
	action := &recordingAction{}
	registry := actions.NewRegistry()
	require.NoError(t, registry.Register(action))

	backend := &scriptedBackend{interpretation: notesInterpretation, narration: "Saved."}
	p := newTestPipeline(t, backend, Deps{Executor: actions.NewExecutor(registry)})

	res, err := p.Respond(context.Background(), TurnRequest{Text: "remember to buy milk", Route: "agent", Channel: models.ChannelAutomation})
	require.NoError(t, err)

	assert.Equal(t, models.SessionAutomation, res.SessionKind)
	require.Len(t, res.ActionResults, 1)
	assert.Equal(t, "recorder", res.ActionResults[0].ActionName)
	assert.Equal(t, 1, action.runs)
	assert.Contains(t, backend.calls()[1], "recorder: noted")
}

func TestRespond_InteractiveAllowlistExecutes(t *testing.T) {
	action := &recordingAction{}
	registry := actions.NewRegistry()
	require.NoError(t, registry.Register(action))

	backend := &scriptedBackend{interpretation: notesInterpretation, narration: "Saved."}
	p := newTestPipeline(t, backend, Deps{Executor: actions.NewExecutor(registry)})

	res, err := p.Respond(context.Background(), TurnRequest{Text: "note this", Route: "notes"})
	require.NoError(t, err)
	require.Len(t, res.ActionResults, 1)
	assert.Equal(t, "recorder", res.ActionResults[0].ActionName)
	assert.Equal(t, 1, action.runs)
}

func TestRespond_PanickingActionStillNarrates(t *testing.T) {
	registry := actions.NewRegistry()
	require.NoError(t, registry.Register(&recordingAction{panics: true}))

	backend := &scriptedBackend{interpretation: notesInterpretation, narration: "Something went wrong saving, but here is your answer."}
	p := newTestPipeline(t, backend, Deps{Executor: actions.NewExecutor(registry)})

	res, err := p.Respond(context.Background(), TurnRequest{Text: "note this", Route: "agent", Channel: models.ChannelAutomation})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Output)
	require.Len(t, res.ActionResults, 1)
	assert.False(t, res.ActionResults[0].Succeeded)
	require.Len(t, res.Degraded, 1)
	assert.True(t, models.IsKind(res.Degraded[0], models.KindAction))
	assert.Len(t, backend.calls(), 2)
}

func TestRespond_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      TurnRequest
		backend  *scriptedBackend
		wantKind models.ErrorKind
	}{
		{name: "empty input", req: TurnRequest{Text: "   "}, backend: &scriptedBackend{}, wantKind: models.KindInput},
		{name: "unknown route", req: TurnRequest{Text: "hi", Route: "nope"}, backend: &scriptedBackend{}, wantKind: models.KindConfiguration},
		{name: "unknown framing", req: TurnRequest{Text: "hi", Route: "badframe"}, backend: &scriptedBackend{}, wantKind: models.KindConfiguration},
		{name: "backend down single", req: TurnRequest{Text: "hi"}, backend: &scriptedBackend{err: errors.New("connection refused")}, wantKind: models.KindBackend},
		{name: "backend down orchestrated", req: TurnRequest{Text: "hi", Route: "agent"}, backend: &scriptedBackend{err: errors.New("503")}, wantKind: models.KindBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, tt.backend, Deps{})
			res, err := p.Respond(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.wantKind, models.KindOf(err))
			assert.True(t, tt.wantKind.Fatal())

			if tt.wantKind != models.KindBackend {
				assert.Empty(t, tt.backend.calls(), "no backend call before a fatal input or configuration error")
			}
		})
	}
}

func TestRespond_FailedTurnDoesNotRecordContinuity(t *testing.T) {
	backend := &scriptedBackend{err: errors.New("down")}
	p := newTestPipeline(t, backend, Deps{})

	_, err := p.Respond(context.Background(), TurnRequest{Text: "hi"})
	require.Error(t, err)
	assert.Empty(t, p.Tracker().Recent("dana", "general"))
}

func TestRespond_Continuity(t *testing.T) {
	p := newTestPipeline(t, &scriptedBackend{narration: "ok"}, Deps{})
	ctx := context.Background()

	first, err := p.Respond(ctx, TurnRequest{Text: "one"})
	require.NoError(t, err)
	second, err := p.Respond(ctx, TurnRequest{Text: "two"})
	require.NoError(t, err)
	other, err := p.Respond(ctx, TurnRequest{Text: "three", UserID: "sam"})
	require.NoError(t, err)
	auto, err := p.Respond(ctx, TurnRequest{Text: "four", Channel: models.ChannelAutomation})
	require.NoError(t, err)

	assert.Equal(t, models.SessionNew, first.SessionKind)
	assert.Equal(t, models.SessionContinuation, second.SessionKind)
	assert.Equal(t, models.SessionNew, other.SessionKind)
	assert.Equal(t, models.SessionAutomation, auto.SessionKind)
	assert.Equal(t, []string{"one", "two", "four"}, p.Tracker().Recent("dana", "general"))
}

// fakeMemory records calls and can fail either direction
type fakeMemory struct {
	items     []models.MemoryItem
	searchErr error
	addErr    error

	mu      sync.Mutex
	queries []memory.Query
	added   []memory.Interaction
}

func (f *fakeMemory) Search(ctx context.Context, q memory.Query) ([]models.MemoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.items, f.searchErr
}

func (f *fakeMemory) AddInteraction(ctx context.Context, in memory.Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, in)
	return f.addErr
}

func TestRespond_MemoryContextAndWrite(t *testing.T) {
	mem := &fakeMemory{items: []models.MemoryItem{{Content: "User: I like tea\nAssistant: noted"}}}
	backend := &scriptedBackend{narration: "Tea it is."}
	p := newTestPipeline(t, backend, Deps{Memory: mem})

	res, err := p.Respond(context.Background(), TurnRequest{Text: "what do I drink?", Route: "remember"})
	require.NoError(t, err)
	assert.Empty(t, res.Degraded)

	require.Len(t, mem.queries, 1)
	assert.Equal(t, memory.Query{Text: "what do I drink?", UserID: "dana", Route: "remember", Limit: 2}, mem.queries[0])
	assert.Contains(t, backend.calls()[0], "--- RELEVANT PAST CONTEXT ---\n[1] User: I like tea")

	require.Len(t, mem.added, 1)
	added := mem.added[0]
	assert.Equal(t, "what do I drink?", added.UserText)
	assert.Equal(t, "Tea it is.", added.AssistantText)
	assert.Equal(t, "social", added.Metadata[memory.KeyMemoryDomain])
	assert.Equal(t, "interactive", added.Metadata[memory.KeyChannel])
	assert.Equal(t, "new", added.Metadata[memory.KeySessionKind])
	assert.Equal(t, []string{"what do I drink?"}, added.Metadata[memory.KeyRecentUserInputs])
}

func TestRespond_MemoryFailuresDegrade(t *testing.T) {
	mem := &fakeMemory{searchErr: errors.New("search down"), addErr: errors.New("write down")}
	backend := &scriptedBackend{narration: "still here"}
	p := newTestPipeline(t, backend, Deps{Memory: mem})

	res, err := p.Respond(context.Background(), TurnRequest{Text: "hi", Route: "remember"})
	require.NoError(t, err)
	assert.Equal(t, "still here", res.Output)
	assert.NotContains(t, backend.calls()[0], "RELEVANT PAST CONTEXT")

	require.Len(t, res.Degraded, 2)
	for _, d := range res.Degraded {
		assert.True(t, models.IsKind(d, models.KindCollaborator))
	}
}

func TestRespond_MemoryDisabledRouteSkipsStore(t *testing.T) {
	mem := &fakeMemory{}
	p := newTestPipeline(t, &scriptedBackend{narration: "ok"}, Deps{Memory: mem})

	_, err := p.Respond(context.Background(), TurnRequest{Text: "hi"})
	require.NoError(t, err)
	assert.Empty(t, mem.queries)
	assert.Empty(t, mem.added)
}

func TestRespondStream(t *testing.T) {
	backend := &scriptedBackend{interpretation: "Intent: chat\nNeeds_tools: no", narration: "streamed reply here"}
	p := newTestPipeline(t, backend, Deps{})

	var chunks []string
	res, err := p.RespondStream(context.Background(), TurnRequest{Text: "hi", Route: "agent"}, func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"streamed ", "reply ", "here"}, chunks)
	assert.Equal(t, "streamed reply here", res.Output)
}

func TestRespondStream_HarmonyEmitsFinalOnce(t *testing.T) {
	backend := &scriptedBackend{narration: "<|channel|>analysis<|message|>private thoughts<|end|><|channel|>final<|message|>public answer<|return|>"}
	p := newTestPipeline(t, backend, Deps{})

	var chunks []string
	res, err := p.RespondStream(context.Background(), TurnRequest{Text: "hi", Route: "oss"}, func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"public answer"}, chunks)
	assert.Equal(t, "public answer", res.Output)
}

func TestRespond_ConcurrentTurnsNeverOverlapBackend(t *testing.T) {
	for _, mode := range []gate.Mode{gate.ModeBlocking, gate.ModePolling} {
		t.Run(string(mode), func(t *testing.T) {
			inner := &scriptedBackend{interpretation: notesInterpretation, narration: "done", delay: time.Millisecond}
			gated := &llm.GatedBackend{
				Backend: inner,
				Runner:  gate.Runner{Gate: gate.NewSemaphore(), Mode: mode, PollInterval: time.Millisecond},
			}
			p := newTestPipeline(t, gated, Deps{})

			routes := []string{"general", "agent"}
			var g errgroup.Group
			for i := 0; i < 16; i++ {
				route := routes[i%2]
				g.Go(func() error {
					res, err := p.Respond(context.Background(), TurnRequest{Text: "go", Route: route})
					if err == nil && res.Output != "done" {
						return errors.New("unexpected output " + res.Output)
					}
					return err
				})
			}
			require.NoError(t, g.Wait())

			assert.Equal(t, 1, inner.maxOverlap)
			assert.Len(t, inner.calls(), 8+16)
		})
	}
}
