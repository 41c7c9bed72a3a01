// ABOUTME: Tests for prompt formats and the interpreter/narrator messages
// ABOUTME: Checks format selection, system prompt fallback and internal sections
package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/local-agent-core/internal/config"
	"github.com/harper/local-agent-core/internal/models"
)

func TestBuild_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"", "<s><|start_header_id|>system<|end_header_id|>\n\nsys<|eot_id|><|start_header_id|>user<|end_header_id|>\n\nhi<|eot_id|><|start_header_id|>assistant<|end_header_id|>\n"},
		{"codellama", "[INST] <<SYS>> sys <</SYS>>\n\nhi\n[/INST]"},
		{"code", "[INST] <<SYS>> sys <</SYS>>\n\nhi\n[/INST]"},
		{"phind", "### System Prompt\nsys\n\n### User Message\nhi\n\n### Assistant\n"},
		{"phi4", "<|system|>sys<|end|><|user|>hi<|end|><|assistant|>"},
		{"plain", "System: sys\n\nUser: hi\nAssistant:"},
		{"gpt-oss-harmony", "<|start|>system<|message|>sys<|end|><|start|>user<|message|>hi<|end|><|start|>assistant"},
	}

	b := NewBuilder()
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := b.Build(config.Route{Format: tt.format, SystemPrompt: "sys"}, "hi", "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild_DefaultSystemPrompt(t *testing.T) {
	got, err := NewBuilder().Build(config.Route{Format: "plain"}, "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "System: "+DefaultSystemPrompt+"\n\nUser: hi\nAssistant:", got)
}

func TestBuild_UnknownFormat(t *testing.T) {
	_, err := NewBuilder().Build(config.Route{Format: "chatml-9000"}, "hi", "")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindConfiguration))
}

func TestBuild_EmbedsContext(t *testing.T) {
	got, err := NewBuilder().Build(config.Route{Format: "plain", SystemPrompt: "sys"}, "hi", "[1] earlier")
	require.NoError(t, err)
	assert.Contains(t, got, "--- RELEVANT PAST CONTEXT ---\n[1] earlier\n\n--- CURRENT USER INPUT ---\nhi")
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []string{"code", "codellama", "gpt-oss-harmony", "llama-chat", "phi4", "phind", "plain"}, Formats())
}

func TestInterpreterMessage(t *testing.T) {
	msg := InterpreterMessage("fix the build", "")
	assert.Contains(t, msg, "Needs_tools: <yes/no")
	assert.NotContains(t, msg, "RELEVANT PAST CONTEXT")
	assert.Contains(t, msg, "--- CURRENT USER INPUT ---\nfix the build")

	withCtx := InterpreterMessage("fix the build", "[1] ci is flaky")
	assert.Contains(t, withCtx, "--- RELEVANT PAST CONTEXT ---\n[1] ci is flaky\n\n--- CURRENT USER INPUT ---")
}

func TestNarratorMessage(t *testing.T) {
	msg := NarratorMessage(NarratorInput{
		Text:           "write this down",
		Interpretation: "Intent: take a note",
		Plan:           &models.ActionPlan{NeedsActions: true, Categories: []string{"notes"}, Reason: "user wants a note"},
		Results:        []models.ActionResult{{ActionName: "obsidian_note", Summary: "Created note"}},
	})

	assert.Contains(t, msg, "--- USER INPUT ---\nwrite this down")
	assert.Contains(t, msg, "--- INTERPRETER ANALYSIS (INTERNAL) ---\nIntent: take a note\n--- TOOL PLAN (INTERNAL) ---")
	assert.Contains(t, msg, "Categories: notes")
	assert.Contains(t, msg, "Reason: user wants a note")
	assert.Contains(t, msg, "--- TOOL RESULTS (INTERNAL) ---\nobsidian_note: Created note")
}

func TestNarratorMessage_NoActions(t *testing.T) {
	msg := NarratorMessage(NarratorInput{
		Text:           "hello",
		Interpretation: "Intent: greet",
		Plan:           &models.ActionPlan{},
	})
	assert.NotContains(t, msg, "TOOL PLAN")
	assert.NotContains(t, msg, "TOOL RESULTS")
	assert.True(t, len(msg) > 0)
}
