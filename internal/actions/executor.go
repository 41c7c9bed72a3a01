// ABOUTME: Decides which planned categories may run on a channel and runs their actions
// ABOUTME: Interactive turns need an allowlist; automation turns run every planned category
package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/harper/local-agent-core/internal/models"
)

// PlanningOnlyName names the synthetic result returned when nothing was allowed to run
const PlanningOnlyName = "__planning_only__"

// Decision is the gating outcome for one plan
type Decision struct {
	// Categories to execute, in plan order
	Categories []string
	// PlanningOnly is set when actions were planned but none may run
	PlanningOnly *models.ActionResult
}

// Executor runs registered actions under the channel gating policy
type Executor struct {
	registry *Registry
}

// NewExecutor creates an executor over registry
func NewExecutor(registry *Registry) *Executor {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Executor{registry: registry}
}

// Registry returns the registry the executor draws from
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Decide applies the gating policy without running anything
func (e *Executor) Decide(plan *models.ActionPlan, channel models.Channel, allowlist []string) Decision {
	if plan == nil || !plan.NeedsActions {
		return Decision{}
	}
	categories := append([]string(nil), plan.Categories...)
	if channel.IsAutomation() {
		return Decision{Categories: categories}
	}

	var allowed []string
	for _, c := range categories {
		for _, a := range allowlist {
			if strings.EqualFold(c, a) {
				allowed = append(allowed, c)
				break
			}
		}
	}
	if len(allowed) > 0 {
		return Decision{Categories: allowed}
	}

	return Decision{PlanningOnly: &models.ActionResult{
		ActionName: PlanningOnlyName,
		Succeeded:  true,
		Summary:    fmt.Sprintf("Tools planned but not executed for non-automation channel '%s'.", channel),
		Details:    map[string]interface{}{"categories": categories},
	}}
}

// Execute decides and then runs every action for each eligible category.
// A failing action never stops its siblings.
func (e *Executor) Execute(ctx context.Context, state *models.TurnState, plan *models.ActionPlan, allowlist []string) []models.ActionResult {
	decision := e.Decide(plan, state.Channel, allowlist)
	if decision.PlanningOnly != nil {
		return []models.ActionResult{*decision.PlanningOnly}
	}

	var results []models.ActionResult
	for _, category := range decision.Categories {
		for _, action := range e.registry.ByCategory(category) {
			res := runAction(ctx, action, category, state)
			log.Debug().
				Str("turn_id", state.TurnID).
				Str("action", res.ActionName).
				Str("category", category).
				Bool("succeeded", res.Succeeded).
				Msg("action: finished")
			results = append(results, res)
		}
	}
	return results
}

func runAction(ctx context.Context, action Action, category string, state *models.TurnState) (res models.ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failedResult(action.Name(), category, fmt.Errorf("panic: %v", r))
		}
	}()

	res, err := action.Run(ctx, state)
	if err != nil {
		return failedResult(action.Name(), category, err)
	}
	if res.ActionName == "" {
		res.ActionName = action.Name()
	}
	return res
}

func failedResult(name, category string, err error) models.ActionResult {
	return models.ActionResult{
		ActionName: name,
		Succeeded:  false,
		Summary:    fmt.Sprintf("Tool raised exception: %v", err),
		Details:    map[string]interface{}{"category": category, "error": err.Error()},
		Err:        models.NewError(models.KindAction, name, err),
	}
}
