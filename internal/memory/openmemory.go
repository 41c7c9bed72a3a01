// ABOUTME: Memory store backed by an OpenMemory HTTP server
// ABOUTME: Talks to /memory/add and /memory/query and tolerates several response shapes
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harper/local-agent-core/internal/models"
)

// OpenMemoryStore talks to an OpenMemory server
type OpenMemoryStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewOpenMemoryStore creates a store for baseURL. apiKey may be empty.
func NewOpenMemoryStore(baseURL, apiKey string, timeout time.Duration) *OpenMemoryStore {
	return &OpenMemoryStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AddInteraction stores a user/assistant exchange
func (s *OpenMemoryStore) AddInteraction(ctx context.Context, in Interaction) error {
	payload := map[string]interface{}{
		"content": in.Content(),
	}
	if in.UserID != "" {
		payload["user_id"] = in.UserID
	}
	metadata := in.mergedMetadata()
	if len(metadata) > 0 {
		payload["metadata"] = metadata
	}
	if tags := ProjectTags(metadata); len(tags) > 0 {
		payload["tags"] = tags
	}

	_, err := s.post(ctx, "/memory/add", payload)
	return err
}

// Search queries for memories relevant to q.Text
func (s *OpenMemoryStore) Search(ctx context.Context, q Query) ([]models.MemoryItem, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	payload := map[string]interface{}{
		"query": q.Text,
		"k":     limit,
	}
	filters := map[string]interface{}{}
	if q.UserID != "" {
		filters["user_id"] = q.UserID
	}
	if q.Route != "" {
		filters["alias"] = q.Route
	}
	if len(filters) > 0 {
		payload["filters"] = filters
	}

	data, err := s.post(ctx, "/memory/query", payload)
	if err != nil {
		return nil, err
	}
	return parseQueryResponse(data), nil
}

func (s *OpenMemoryStore) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := s.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openmemory request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading openmemory response: %w", err)
	}
	if resp.StatusCode >= 400 {
		log.Debug().Int("status", resp.StatusCode).Str("url", url).Msg("openmemory: request failed")
		return nil, fmt.Errorf("openmemory request to %s failed with status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// parseQueryResponse accepts a list, an object wrapping a list, or a single memory object
func parseQueryResponse(data []byte) []models.MemoryItem {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		log.Debug().Err(err).Msg("openmemory: ignoring non-JSON query response")
		return nil
	}

	var raw []interface{}
	switch v := decoded.(type) {
	case []interface{}:
		raw = v
	case map[string]interface{}:
		found := false
		for _, key := range []string{"memories", "results", "items", "data"} {
			if list, ok := v[key].([]interface{}); ok {
				raw = list
				found = true
				break
			}
		}
		if !found {
			if _, ok := v["content"]; ok {
				raw = []interface{}{v}
			} else if _, ok := v["text"]; ok {
				raw = []interface{}{v}
			}
		}
	}

	var items []models.MemoryItem
	for _, entry := range raw {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		content := strings.TrimSpace(firstString(obj, "content", "text"))
		if content == "" {
			continue
		}

		item := models.MemoryItem{
			ID:      firstString(obj, "id", "memory_id"),
			Content: content,
			Score:   firstNumber(obj, "score", "salience"),
		}
		switch md := obj["metadata"].(type) {
		case map[string]interface{}:
			item.Metadata = md
		case nil:
			item.Metadata = map[string]interface{}{}
		default:
			item.Metadata = map[string]interface{}{"raw_metadata": md}
		}
		if tags, ok := obj["tags"].([]interface{}); ok {
			for _, t := range tags {
				if s, ok := t.(string); ok {
					item.Tags = append(item.Tags, s)
				}
			}
		}
		items = append(items, item)
	}
	return items
}

func firstString(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func firstNumber(obj map[string]interface{}, keys ...string) *float64 {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case float64:
			if v != 0 {
				return &v
			}
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil && f != 0 {
				return &f
			}
		}
	}
	return nil
}
