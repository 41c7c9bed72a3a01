// ABOUTME: Builds the registry of actions available to the agent
// ABOUTME: The composition root calls this once at startup
package actions

// NewDefaultRegistry registers every built-in action
func NewDefaultRegistry(notesVault, notesSubdir string) (*Registry, error) {
	r := NewRegistry()
	if err := r.Register(NewNoteAction(notesVault, notesSubdir)); err != nil {
		return nil, err
	}
	return r, nil
}
