// ABOUTME: Extracts the user-facing segment from multi-channel (harmony) model output
// ABOUTME: Only the text after the last final-channel marker is kept
package llm

import (
	"fmt"
	"strings"

	"github.com/harper/local-agent-core/internal/config"
	"github.com/harper/local-agent-core/internal/models"
)

// FinalMarker opens the final channel in harmony output
const FinalMarker = "<|channel|>final<|message|>"

// stopTokens end the final segment; the first one present in this order wins
var stopTokens = []string{"<|return|>", "<|end|>"}

// ExtractFinal returns the trimmed content after the last final-channel marker.
// ok is false when there is no marker or the segment is empty.
func ExtractFinal(raw string) (string, bool) {
	idx := strings.LastIndex(raw, FinalMarker)
	if idx == -1 {
		return "", false
	}
	content := raw[idx+len(FinalMarker):]
	for _, stop := range stopTokens {
		if i := strings.Index(content, stop); i != -1 {
			content = content[:i]
			break
		}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", false
	}
	return content, true
}

// ValidateFraming reports a configuration error for unknown framing modes
func ValidateFraming(framing string) error {
	switch framing {
	case "", config.FramingNone, config.FramingHarmony:
		return nil
	}
	return models.NewError(models.KindConfiguration, "apply framing", fmt.Errorf("unknown response framing %q", framing))
}

// ApplyFraming post-processes raw output for the route's framing mode.
// When extraction finds nothing the raw text is returned unmodified.
func ApplyFraming(framing, raw string) (string, error) {
	switch framing {
	case "", config.FramingNone:
		return raw, nil
	case config.FramingHarmony:
		if final, ok := ExtractFinal(raw); ok {
			return final, nil
		}
		return raw, nil
	default:
		return "", ValidateFraming(framing)
	}
}
