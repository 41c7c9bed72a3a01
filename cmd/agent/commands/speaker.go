// ABOUTME: Speech hook for --speak: hands the final output to a Speaker
// ABOUTME: The built-in speaker writes to stderr; a TTS engine can replace it
package commands

import (
	"fmt"
	"io"
	"strings"
)

// Speaker voices a finished turn
type Speaker interface {
	Speak(voice, text string) error
}

// textSpeaker prints what would be spoken
type textSpeaker struct {
	w io.Writer
}

func newTextSpeaker(w io.Writer) *textSpeaker {
	return &textSpeaker{w: w}
}

func (s *textSpeaker) Speak(voice, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if voice == "" {
		voice = "default"
	}
	_, err := fmt.Fprintf(s.w, "[speak:%s] %s\n", voice, text)
	return err
}
