// ABOUTME: Long-term memory collaborator contract used by the turn pipeline
// ABOUTME: Implementations: OpenMemory over HTTP and a local SQLite store
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/local-agent-core/internal/models"
)

// DefaultLimit is the search limit when a query does not set one
const DefaultLimit = 5

// Metadata keys projected into tags and the rendered context
const (
	KeyMemoryDomain     = "memory_domain"
	KeyChannel          = "channel"
	KeySessionKind      = "session_kind"
	KeyAlias            = "alias"
	KeyRecentUserInputs = "recent_user_inputs"
)

// Query is a memory search request
type Query struct {
	Text   string
	UserID string
	Route  string
	Limit  int
}

// Interaction is one exchange handed to the store after a turn
type Interaction struct {
	UserText      string
	AssistantText string
	UserID        string
	Route         string
	Metadata      map[string]interface{}
}

// Store retrieves and records long-term memories
type Store interface {
	Search(ctx context.Context, q Query) ([]models.MemoryItem, error)
	AddInteraction(ctx context.Context, in Interaction) error
}

// Content renders the stored text for an interaction
func (in Interaction) Content() string {
	return "User: " + in.UserText + "\nAssistant: " + in.AssistantText
}

// mergedMetadata copies the metadata and fills in the route alias
func (in Interaction) mergedMetadata() map[string]interface{} {
	out := make(map[string]interface{}, len(in.Metadata)+1)
	for k, v := range in.Metadata {
		out[k] = v
	}
	if in.Route != "" {
		if _, ok := out[KeyAlias]; !ok {
			out[KeyAlias] = in.Route
		}
	}
	return out
}

// ProjectTags lifts domain, channel, session kind and alias out of metadata, in that order
func ProjectTags(metadata map[string]interface{}) []string {
	var tags []string
	for _, key := range []string{KeyMemoryDomain, KeyChannel, KeySessionKind, KeyAlias} {
		v, ok := metadata[key]
		if !ok || v == nil {
			continue
		}
		s := fmt.Sprint(v)
		if s != "" {
			tags = append(tags, s)
		}
	}
	return tags
}

// FormatContext renders retrieved memories as numbered lines for a prompt.
// No items renders as the empty string.
func FormatContext(items []models.MemoryItem) string {
	if len(items) == 0 {
		return ""
	}

	lines := make([]string, 0, len(items))
	for i, item := range items {
		var b strings.Builder
		fmt.Fprintf(&b, "[%d]", i+1)
		if item.Score != nil {
			fmt.Fprintf(&b, " (score=%.3f)", *item.Score)
		}

		var tags []string
		for _, key := range []string{KeyMemoryDomain, KeyChannel, KeySessionKind} {
			if v := item.MetadataString(key); v != "" {
				tags = append(tags, v)
			}
		}
		if len(tags) > 0 {
			b.WriteString(" [" + strings.Join(tags, " | ") + "]")
		}

		b.WriteString(" " + item.Content)
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}
