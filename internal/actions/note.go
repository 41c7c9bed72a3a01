// ABOUTME: Action that writes a Markdown note into an Obsidian vault
// ABOUTME: Create-only: it never modifies or deletes existing files
package actions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harper/local-agent-core/internal/models"
)

// NoteActionName is the registered name of the note action
const NoteActionName = "obsidian_note"

// NoteAction writes one note per run under <VaultPath>/<Subdir>
type NoteAction struct {
	VaultPath string
	Subdir    string
	Now       func() time.Time
}

// NewNoteAction creates a note action. An empty vault path makes every run a non-fatal failure.
func NewNoteAction(vaultPath, subdir string) *NoteAction {
	if subdir == "" {
		subdir = "local-agent-core"
	}
	return &NoteAction{VaultPath: vaultPath, Subdir: subdir, Now: time.Now}
}

func (n *NoteAction) Name() string { return NoteActionName }

func (n *NoteAction) Categories() []string {
	return []string{"notes", "knowledge", "filesystem"}
}

// Run writes the note
func (n *NoteAction) Run(ctx context.Context, state *models.TurnState) (models.ActionResult, error) {
	if n.VaultPath == "" {
		return models.ActionResult{
			ActionName: NoteActionName,
			Succeeded:  false,
			Summary:    "OBSIDIAN_VAULT_PATH not set; skipping Obsidian note creation.",
			Details:    map[string]interface{}{"env_var": "OBSIDIAN_VAULT_PATH"},
		}, nil
	}

	dir := filepath.Join(n.VaultPath, n.Subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.ActionResult{}, fmt.Errorf("creating note directory: %w", err)
	}

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	stamp := now().Format("2006-01-02_15-04-05")

	path, f, err := createExclusive(dir, "agent-note-"+stamp)
	if err != nil {
		return models.ActionResult{}, err
	}
	_, writeErr := f.WriteString(renderNote(state))
	closeErr := f.Close()
	if writeErr != nil {
		return models.ActionResult{}, fmt.Errorf("writing note: %w", writeErr)
	}
	if closeErr != nil {
		return models.ActionResult{}, fmt.Errorf("closing note: %w", closeErr)
	}

	return models.ActionResult{
		ActionName: NoteActionName,
		Succeeded:  true,
		Summary:    fmt.Sprintf("Wrote Obsidian note %s.", filepath.Base(path)),
		Details:    map[string]interface{}{"path": path},
	}, nil
}

// createExclusive creates base.md, or base-<id>.md if that name is taken
func createExclusive(dir, base string) (string, *os.File, error) {
	path := filepath.Join(dir, base+".md")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		path = filepath.Join(dir, base+"-"+uuid.New().String()[:8]+".md")
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", nil, fmt.Errorf("creating note: %w", err)
	}
	return path, f, nil
}

func renderNote(state *models.TurnState) string {
	route := state.RouteName
	if route == "" {
		route = "unknown"
	}
	text := state.Text
	if text == "" {
		text = "[empty]"
	}

	lines := []string{
		fmt.Sprintf("# Local Agent Note (%s)", route),
		"",
		"## User Input",
		text,
		"",
	}
	if in := state.Interpretation; in != nil {
		lines = append(lines, "## Interpreter Summary")
		if in.Intent != "" {
			lines = append(lines, "**Intent:** "+in.Intent)
		}
		if in.Summary != "" {
			lines = append(lines, "", in.Summary)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
