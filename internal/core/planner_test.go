// ABOUTME: Tests for keyword-based action category derivation
// ABOUTME: Categories are deduplicated and ordered by the rule table
package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harper/local-agent-core/internal/models"
)

func TestPlan_Categories(t *testing.T) {
	tests := []struct {
		hint string
		want []string
	}{
		{"send an email via smtp", []string{"email"}},
		{"check the workflow dag and also the api", []string{"workflow", "http"}},
		{"unrelated text", nil},
		{"", nil},
		{"Write it to my Obsidian journal and POST a webhook", []string{"http", "notes"}},
		{"save the notes file to disk", []string{"filesystem", "notes"}},
	}

	p := NewPlanner(nil)
	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			plan := p.Plan(models.InterpreterResult{ActionHint: tt.hint, NeedsActions: true})
			assert.Equal(t, tt.want, plan.Categories)
		})
	}
}

func TestPlan_MirrorsInterpretation(t *testing.T) {
	plan := NewPlanner(nil).Plan(models.InterpreterResult{NeedsActions: false, ActionHint: "no email", Summary: "why"})
	assert.False(t, plan.NeedsActions)
	assert.Equal(t, "why", plan.Reason)
	assert.Equal(t, []string{"email"}, plan.Categories)
}

func TestPlan_CustomRulesDeduplicate(t *testing.T) {
	p := NewPlanner([]CategoryRule{
		{Category: "chat", Keywords: []string{"Slack"}},
		{Category: "chat", Keywords: []string{"discord"}},
	})
	plan := p.Plan(models.InterpreterResult{ActionHint: "post to slack and discord"})
	assert.Equal(t, []string{"chat"}, plan.Categories)
}
