// ABOUTME: Interaction storage operations for SQLite
// ABOUTME: Saves exchanges and lists them newest first with optional user/route filters
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Interaction is one persisted user/assistant exchange
type Interaction struct {
	ID            string
	UserID        string
	Route         string
	UserText      string
	AssistantText string
	Content       string
	Metadata      map[string]interface{}
	Tags          []string
	CreatedAt     time.Time
}

// InteractionStore handles interaction persistence
type InteractionStore struct {
	db *DB
}

// NewInteractionStore creates a new InteractionStore
func NewInteractionStore(db *DB) *InteractionStore {
	return &InteractionStore{db: db}
}

// Save inserts an interaction
func (s *InteractionStore) Save(ctx context.Context, in *Interaction) error {
	metadataJSON, err := json.Marshal(in.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	tagsJSON, err := json.Marshal(in.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.conn.ExecContext(ctx, `
		INSERT INTO interactions (id, user_id, route, user_text, assistant_text, content, metadata, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.ID, in.UserID, in.Route, in.UserText, in.AssistantText, in.Content,
		string(metadataJSON), string(tagsJSON), createdAt.UnixNano())
	return err
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	UserID string
	Route  string
	Limit  int
}

// List returns interactions newest first
func (s *InteractionStore) List(ctx context.Context, f ListFilter) ([]Interaction, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Route != "" {
		where = append(where, "route = ?")
		args = append(args, f.Route)
	}

	query := `SELECT id, user_id, route, user_text, assistant_text, content, metadata, tags, created_at FROM interactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Interaction
	for rows.Next() {
		var (
			in           Interaction
			metadataJSON sql.NullString
			tagsJSON     sql.NullString
			createdAt    int64
		)
		if err := rows.Scan(&in.ID, &in.UserID, &in.Route, &in.UserText, &in.AssistantText,
			&in.Content, &metadataJSON, &tagsJSON, &createdAt); err != nil {
			return nil, err
		}

		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &in.Metadata); err != nil {
				in.Metadata = nil
			}
		}
		if tagsJSON.Valid && tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &in.Tags); err != nil {
				in.Tags = nil
			}
		}
		in.CreatedAt = time.Unix(0, createdAt)
		out = append(out, in)
	}
	return out, rows.Err()
}

// Count returns the number of stored interactions
func (s *InteractionStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM interactions").Scan(&n)
	return n, err
}
