// ABOUTME: Local long-term memory kept in SQLite under the data directory
// ABOUTME: Search ranks stored exchanges by keyword overlap with the query
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/harper/local-agent-core/internal/models"
	"github.com/harper/local-agent-core/internal/storage/sqlite"
)

// scanWindow bounds how many recent interactions a search scores
const scanWindow = 500

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "all": true, "can": true, "was": true, "one": true, "our": true,
	"has": true, "have": true, "with": true, "this": true, "that": true, "from": true,
	"what": true, "when": true, "how": true, "about": true, "into": true, "your": true,
	"user": true, "assistant": true,
}

// SQLiteStore implements Store on a local SQLite database
type SQLiteStore struct {
	db           *sqlite.DB
	interactions *sqlite.InteractionStore
}

// OpenSQLiteStore opens (or creates) the store in dataDir
func OpenSQLiteStore(dataDir string) (*SQLiteStore, error) {
	db, err := sqlite.Open(sqlite.DBPath(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}
	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an open database
func NewSQLiteStore(db *sqlite.DB) *SQLiteStore {
	return &SQLiteStore{
		db:           db,
		interactions: sqlite.NewInteractionStore(db),
	}
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddInteraction persists the exchange with projected tags
func (s *SQLiteStore) AddInteraction(ctx context.Context, in Interaction) error {
	metadata := in.mergedMetadata()
	return s.interactions.Save(ctx, &sqlite.Interaction{
		ID:            uuid.New().String(),
		UserID:        in.UserID,
		Route:         in.Route,
		UserText:      in.UserText,
		AssistantText: in.AssistantText,
		Content:       in.Content(),
		Metadata:      metadata,
		Tags:          ProjectTags(metadata),
	})
}

// Search scores recent interactions for the user and route by the share of
// query keywords they contain. Ties keep recency order.
func (s *SQLiteStore) Search(ctx context.Context, q Query) ([]models.MemoryItem, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	terms := Keywords(q.Text)
	if len(terms) == 0 {
		return nil, nil
	}

	rows, err := s.interactions.List(ctx, sqlite.ListFilter{UserID: q.UserID, Route: q.Route, Limit: scanWindow})
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}

	type scored struct {
		row   sqlite.Interaction
		score float64
	}
	var hits []scored
	for _, row := range rows {
		words := make(map[string]bool)
		for _, w := range Keywords(row.Content) {
			words[w] = true
		}
		matched := 0
		for _, term := range terms {
			if words[term] {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		hits = append(hits, scored{row: row, score: float64(matched) / float64(len(terms))})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	items := make([]models.MemoryItem, 0, len(hits))
	for _, h := range hits {
		score := h.score
		items = append(items, models.MemoryItem{
			ID:       h.row.ID,
			Content:  h.row.Content,
			Score:    &score,
			Tags:     h.row.Tags,
			Metadata: h.row.Metadata,
		})
	}
	return items, nil
}

// Keywords lowercases text and returns its distinct words of three or more
// letters or digits, minus stop words, in first-seen order
func Keywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		if len(f) < 3 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
