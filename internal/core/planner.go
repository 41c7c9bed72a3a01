// ABOUTME: Derives an ActionPlan from the interpreter's action hint
// ABOUTME: Categories come from an ordered keyword table matched by substring
package core

import (
	"strings"

	"github.com/harper/local-agent-core/internal/models"
)

// CategoryRule maps any of Keywords (matched as lowercase substrings) to Category
type CategoryRule struct {
	Category string
	Keywords []string
}

// DefaultCategoryRules is the built-in keyword table, in check order
var DefaultCategoryRules = []CategoryRule{
	{Category: "email", Keywords: []string{"email", "smtp", "sendgrid", "mailgun", "mail"}},
	{Category: "workflow", Keywords: []string{"workflow", "airflow", "prefect", "dag"}},
	{Category: "filesystem", Keywords: []string{"file", "filesystem", "disk"}},
	{Category: "http", Keywords: []string{"http", "api", "request", "webhook"}},
	{Category: "notes", Keywords: []string{"note", "notes", "obsidian", "journal"}},
}

// Planner turns interpretations into plans
type Planner struct {
	rules []CategoryRule
}

// NewPlanner creates a planner over rules; nil uses DefaultCategoryRules
func NewPlanner(rules []CategoryRule) *Planner {
	if rules == nil {
		rules = DefaultCategoryRules
	}
	return &Planner{rules: rules}
}

// Plan matches the action hint against every rule. Each category appears at most once, in rule order.
func (p *Planner) Plan(interp models.InterpreterResult) *models.ActionPlan {
	hint := strings.ToLower(interp.ActionHint)

	var categories []string
	seen := make(map[string]bool)
	for _, rule := range p.rules {
		if seen[rule.Category] || !containsAny(hint, rule.Keywords) {
			continue
		}
		seen[rule.Category] = true
		categories = append(categories, rule.Category)
	}

	return &models.ActionPlan{
		NeedsActions: interp.NeedsActions,
		Categories:   categories,
		Reason:       interp.Summary,
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
