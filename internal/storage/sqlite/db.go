// ABOUTME: Connection lifecycle for the interactions database behind memory.SQLiteStore
// ABOUTME: Opens file or in-memory SQLite via modernc.org/sqlite and migrates by user_version
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DBFileName is the interactions database created inside the agent's data directory
const DBFileName = "memory.db"

const (
	memoryPath = ":memory:"
	// WAL lets a reader search while a turn is persisting its exchange
	fileDSN = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
)

// DB holds the connection the interaction store queries through
type DB struct {
	conn *sql.DB
	path string
}

// DBPath places the interactions database inside dataDir
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFileName)
}

// Open opens the interactions database at path, creating parent directories
// and migrating the schema as needed.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return open(path+fileDSN, path)
}

// OpenInMemory opens a throwaway interactions database. Tests use it.
func OpenInMemory() (*DB, error) {
	return open(memoryPath, memoryPath)
}

func open(dsn, path string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening interactions database %s: %w", path, err)
	}
	if path == memoryPath {
		// each pooled connection would otherwise see its own empty database
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connecting to interactions database %s: %w", path, err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// migrate creates the interactions table and stamps user_version.
// A database written by a newer build is refused rather than downgraded.
func (db *DB) migrate() error {
	version, err := db.Version()
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("interactions database %s has schema version %d, this build supports %d", db.path, version, SchemaVersion)
	}
	if _, err := db.conn.Exec(Schema); err != nil {
		return fmt.Errorf("creating interactions schema: %w", err)
	}
	if version == SchemaVersion {
		return nil
	}
	// PRAGMA does not accept bound parameters
	if _, err := db.conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}

// Version reports the schema version stamped on the database
func (db *DB) Version() (int, error) {
	var version int
	if err := db.conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Conn exposes the pool to InteractionStore
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path is the database file, or ":memory:"
func (db *DB) Path() string {
	return db.path
}
