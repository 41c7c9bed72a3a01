// ABOUTME: Named side-effecting actions indexed by category
// ABOUTME: Built explicitly by the composition root; read-only once turns start
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harper/local-agent-core/internal/models"
)

// Action is a side-effecting capability the executor can run for a category.
// Run should be conservative; errors and panics are turned into failed results by the executor.
type Action interface {
	Name() string
	Categories() []string
	Run(ctx context.Context, state *models.TurnState) (models.ActionResult, error)
}

// Registry holds actions in registration order
type Registry struct {
	actions []Action
	byName  map[string]Action
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Action)}
}

// Register adds an action. Names must be unique and categories non-empty.
func (r *Registry) Register(a Action) error {
	name := a.Name()
	if strings.TrimSpace(name) == "" {
		return errors.New("action name is required")
	}
	if len(a.Categories()) == 0 {
		return fmt.Errorf("action %q declares no categories", name)
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("action %q already registered", name)
	}
	r.byName[name] = a
	r.actions = append(r.actions, a)
	return nil
}

// Get returns the action registered under name
func (r *Registry) Get(name string) (Action, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// All returns every action in registration order
func (r *Registry) All() []Action {
	return append([]Action(nil), r.actions...)
}

// ByCategory returns the actions declaring category (case-insensitive), in registration order
func (r *Registry) ByCategory(category string) []Action {
	var out []Action
	for _, a := range r.actions {
		for _, c := range a.Categories() {
			if strings.EqualFold(c, category) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}
