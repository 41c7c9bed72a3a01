// ABOUTME: SQLite database schema for long-term memory storage
// ABOUTME: One row per stored user/assistant interaction
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Interactions table (one stored exchange per row)
CREATE TABLE IF NOT EXISTS interactions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL DEFAULT '',
    route TEXT NOT NULL DEFAULT '',
    user_text TEXT NOT NULL,
    assistant_text TEXT NOT NULL,
    content TEXT NOT NULL,
    metadata TEXT,
    tags TEXT,
    created_at INTEGER NOT NULL
);

-- Indexes for efficient querying
CREATE INDEX IF NOT EXISTS idx_interactions_user_route ON interactions(user_id, route);
CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at);
`

// SchemaVersion is stamped into PRAGMA user_version by migrate
const SchemaVersion = 2
