// ABOUTME: Instruction text for the interpreter and narrator phases of a turn
// ABOUTME: Internal analysis, plan and action results go into labelled internal sections
package prompts

import (
	"strings"

	"github.com/harper/local-agent-core/internal/models"
)

// InterpreterInstructions asks the model for the labelled classification the parser reads
const InterpreterInstructions = "You are the interpreter and planner for this agent. Given the user's " +
	"latest input and any relevant past context, produce a SHORT, " +
	"readable classification using the following exact fields:\n\n" +
	"Intent: <one-line description of what the user wants>\n" +
	"Category: <high-level area, e.g. planning / coding / research / ops>\n" +
	"Needs_tools: <yes/no and which kinds if yes>\n" +
	"Thread: <new/continuation>\n" +
	"Summary: <2-3 short sentences with key details for execution>\n\n" +
	"Write plain text with these labels exactly, no JSON, no bullet " +
	"lists, no markdown headings."

// NarratorInstructions frames the internal analysis as guidance only
const NarratorInstructions = "You are the narrator for this agent. Your job is to turn the " +
	"interpreter's internal analysis into a clear, concise response for " +
	"the user. Use the analysis only as internal guidance.\n\n" +
	"You are given:\n" +
	"- The latest user input.\n" +
	"- Any relevant past context.\n" +
	"- The interpreter's analysis.\n\n" +
	"Write the final answer to the user. Do NOT include the " +
	"interpreter analysis itself; only return the answer the user " +
	"should see."

// InterpreterMessage builds the user message for the interpreter phase
func InterpreterMessage(text, longTermContext string) string {
	var b strings.Builder
	b.WriteString(InterpreterInstructions)
	b.WriteString("\n\n")
	if strings.TrimSpace(longTermContext) != "" {
		b.WriteString("--- RELEVANT PAST CONTEXT ---\n")
		b.WriteString(longTermContext)
		b.WriteString("\n\n")
	}
	b.WriteString("--- CURRENT USER INPUT ---\n")
	b.WriteString(text)
	return b.String()
}

// NarratorInput carries everything the narrator phase sees
type NarratorInput struct {
	Text            string
	LongTermContext string
	Interpretation  string
	Plan            *models.ActionPlan
	Results         []models.ActionResult
}

// NarratorMessage builds the user message for the narrator phase
func NarratorMessage(in NarratorInput) string {
	var b strings.Builder
	b.WriteString(NarratorInstructions)
	b.WriteString("\n\n")
	if strings.TrimSpace(in.LongTermContext) != "" {
		b.WriteString("--- RELEVANT PAST CONTEXT ---\n")
		b.WriteString(in.LongTermContext)
		b.WriteString("\n\n")
	}
	b.WriteString("--- USER INPUT ---\n")
	b.WriteString(in.Text)
	b.WriteString("\n\n--- INTERPRETER ANALYSIS (INTERNAL) ---\n")
	b.WriteString(in.Interpretation)

	if block := actionBlock(in.Plan, in.Results); block != "" {
		b.WriteString("\n")
		b.WriteString(block)
	}
	return b.String()
}

func actionBlock(plan *models.ActionPlan, results []models.ActionResult) string {
	var lines []string
	if plan != nil && plan.NeedsActions {
		lines = append(lines, "--- TOOL PLAN (INTERNAL) ---", "Needs_tools: yes")
		if len(plan.Categories) > 0 {
			lines = append(lines, "Categories: "+strings.Join(plan.Categories, ", "))
		}
		if plan.Reason != "" {
			lines = append(lines, "Reason: "+plan.Reason)
		}
	}
	if len(results) > 0 {
		lines = append(lines, "--- TOOL RESULTS (INTERNAL) ---")
		for _, r := range results {
			lines = append(lines, r.ActionName+": "+r.Summary)
		}
	}
	return strings.Join(lines, "\n")
}
