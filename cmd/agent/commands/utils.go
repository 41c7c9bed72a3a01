// ABOUTME: Shared utility functions for CLI commands
// ABOUTME: Input reading, channel parsing and JSON output
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/harper/local-agent-core/internal/core"
	"github.com/harper/local-agent-core/internal/models"
)

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// readText takes the text from args, or all of in when no args are given
func readText(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

// parseChannel validates a --channel value
func parseChannel(s string) (models.Channel, error) {
	switch c := models.Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case "", models.ChannelInteractive:
		return models.ChannelInteractive, nil
	case models.ChannelAutomation:
		return c, nil
	}
	return "", fmt.Errorf("channel must be interactive or automation, got %q", s)
}

type turnJSON struct {
	TurnID         string                    `json:"turn_id"`
	Route          string                    `json:"route"`
	Channel        models.Channel            `json:"channel"`
	SessionKind    models.SessionKind        `json:"session_kind"`
	Output         string                    `json:"output"`
	Interpretation *models.InterpreterResult `json:"interpretation,omitempty"`
	Plan           *models.ActionPlan        `json:"plan,omitempty"`
	Actions        []models.ActionResult     `json:"actions,omitempty"`
	Degraded       []string                  `json:"degraded,omitempty"`
}

// writeTurnJSON prints a turn result as indented JSON
func writeTurnJSON(w io.Writer, res *core.TurnResult) error {
	out := turnJSON{
		TurnID:         res.TurnID,
		Route:          res.Route,
		Channel:        res.Channel,
		SessionKind:    res.SessionKind,
		Output:         res.Output,
		Interpretation: res.Interpretation,
		Plan:           res.Plan,
		Actions:        res.ActionResults,
	}
	for _, d := range res.Degraded {
		out.Degraded = append(out.Degraded, d.Error())
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
