// ABOUTME: Parses the labelled interpreter output into an InterpreterResult
// ABOUTME: Unknown labels and lines without a separator are skipped
package core

import (
	"strings"

	"github.com/harper/local-agent-core/internal/models"
)

// Labels recognised in interpreter output
const (
	LabelIntent     = "intent"
	LabelCategory   = "category"
	LabelNeedsTools = "needs_tools"
	LabelThread     = "thread"
	LabelSummary    = "summary"
)

// ParseInterpreterOutput extracts labelled fields from text. It never fails;
// missing labels leave fields empty and a repeated label keeps its last value.
func ParseInterpreterOutput(text string) models.InterpreterResult {
	result := models.InterpreterResult{RawText: text}

	for _, rawLine := range strings.Split(text, "\n") {
		label, value, ok := strings.Cut(strings.TrimSpace(rawLine), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(label)) {
		case LabelIntent:
			result.Intent = value
		case LabelCategory:
			result.Category = value
		case LabelNeedsTools:
			result.NeedsActions = parseNeedsTools(value)
			result.ActionHint = value
		case LabelThread:
			result.ThreadHint = value
		case LabelSummary:
			result.Summary = value
		}
	}

	return result
}

// parseNeedsTools is true for values starting with "y" or containing "true"
func parseNeedsTools(value string) bool {
	lowered := strings.ToLower(value)
	return strings.HasPrefix(lowered, "y") || strings.Contains(lowered, "true")
}
