package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for schedule documents.
type DB struct {
	*sql.DB
	path string
}

// NewDB opens database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	// DSN pragmas apply to every pooled connection, foreign_keys included.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{DB: db, path: path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func createTables(db *sql.DB) error {
	queries := []string{
		// One availability document per professional
		`CREATE TABLE IF NOT EXISTS schedule_documents (
            professional_id TEXT PRIMARY KEY,
            rules TEXT NOT NULL DEFAULT '[]',
            exceptions TEXT NOT NULL DEFAULT '[]',
            time_zone TEXT NOT NULL DEFAULT '',
            buffer_minutes INTEGER NOT NULL DEFAULT 0,
            revision INTEGER NOT NULL DEFAULT 1,
            updated_by TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		// Edit history
		`CREATE TABLE IF NOT EXISTS schedule_edits (
            id TEXT PRIMARY KEY,
            professional_id TEXT NOT NULL,
            revision INTEGER NOT NULL,
            actor_id TEXT NOT NULL,
            rules TEXT NOT NULL,
            exceptions TEXT NOT NULL,
            time_zone TEXT NOT NULL DEFAULT '',
            buffer_minutes INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY (professional_id) REFERENCES schedule_documents(professional_id) ON DELETE CASCADE
        )`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_schedule_edits_professional ON schedule_edits(professional_id, revision)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
