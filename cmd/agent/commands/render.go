// ABOUTME: Terminal output helpers: markdown rendering when stdout is a TTY
// ABOUTME: Falls back to plain text for pipes, files and render failures
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
)

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// writeOutput prints a turn's output, rendered as markdown when asked and w is a terminal
func writeOutput(w io.Writer, text string, render bool) error {
	if render && isTerminal(w) {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			styled, err := renderer.Render(text)
			if err == nil {
				_, err = fmt.Fprint(w, styled)
				return err
			}
			log.Debug().Err(err).Msg("markdown render failed, printing plain text")
		}
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
