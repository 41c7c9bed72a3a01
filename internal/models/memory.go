// ABOUTME: Long-term memory records exchanged with the memory collaborator
// ABOUTME: Backend-agnostic; extra backend fields live in Metadata
package models

import "fmt"

// MemoryItem represents a single retrieved memory record
type MemoryItem struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Score    *float64               `json:"score,omitempty"`
	Tags     []string               `json:"tags,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// MetadataString returns a metadata value rendered as a string, or "" when absent
func (m MemoryItem) MetadataString(key string) string {
	if m.Metadata == nil {
		return ""
	}
	v, ok := m.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
