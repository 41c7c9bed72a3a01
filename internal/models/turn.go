// ABOUTME: TurnState carries one user turn through the interpret, act and narrate stages
// ABOUTME: Owned by the pipeline invocation processing the turn, never shared across turns
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stage is a step of the per-turn state machine. Stages only move forward.
type Stage int

const (
	StageReceived Stage = iota
	StageContextAttached
	StageInterpreted
	StagePlanned
	StageActed
	StageNarrated
	StageDone
)

var stageNames = [...]string{
	"received",
	"context_attached",
	"interpreted",
	"planned",
	"acted",
	"narrated",
	"done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// TurnState is the shared state of a single turn across pipeline stages
type TurnState struct {
	TurnID          string
	Text            string
	RouteName       string
	Channel         Channel
	UserID          string
	SessionKind     SessionKind
	LongTermContext string
	Interpretation  *InterpreterResult
	Plan            *ActionPlan
	Stage           Stage
	ReceivedAt      time.Time
}

// NewTurnState creates a TurnState from raw user input.
// The text is trimmed; blank input is an input error.
func NewTurnState(text, routeName string, channel Channel) (*TurnState, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, NewError(KindInput, "receive", ErrEmptyInput)
	}
	if channel == "" {
		channel = ChannelInteractive
	}
	return &TurnState{
		TurnID:     generateTurnID(),
		Text:       trimmed,
		RouteName:  routeName,
		Channel:    channel,
		Stage:      StageReceived,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// Advance moves the turn to the next stage. Moving backwards or staying put is a programming error.
func (t *TurnState) Advance(next Stage) {
	if next <= t.Stage {
		panic(fmt.Sprintf("turn %s: illegal stage transition %s -> %s", t.TurnID, t.Stage, next))
	}
	t.Stage = next
}

// generateTurnID generates a unique turn identifier
func generateTurnID() string {
	return fmt.Sprintf("turn_%s_%s", time.Now().Format("20060102_150405"), uuid.New().String()[:8])
}

// InterpreterResult is the structured view of the interpreter phase output.
// Every field defaults to empty; parsing never fails.
type InterpreterResult struct {
	Intent       string `json:"intent"`
	Category     string `json:"category"`
	NeedsActions bool   `json:"needs_actions"`
	ActionHint   string `json:"action_hint"`
	ThreadHint   string `json:"thread_hint"`
	Summary      string `json:"summary"`
	RawText      string `json:"raw_text"`
}

// ActionPlan is derived from an InterpreterResult and never mutated afterwards
type ActionPlan struct {
	NeedsActions bool     `json:"needs_actions"`
	Categories   []string `json:"categories"`
	Reason       string   `json:"reason"`
}

// HasCategories reports whether the plan names at least one category
func (p *ActionPlan) HasCategories() bool {
	return p != nil && len(p.Categories) > 0
}

// ActionResult is the outcome of one executed (or planning-only) action
type ActionResult struct {
	ActionName string                 `json:"action_name"`
	Succeeded  bool                   `json:"succeeded"`
	Summary    string                 `json:"summary"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}
