package storage

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/chatflow-dev/chatflow/utils"
	_ "modernc.org/sqlite"
)

// SqliteStorage implements Storage using SQLite as the backend.
type SqliteStorage struct {
	sqlStorage
}

var _ Storage = (*SqliteStorage)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS projects (
	workspace_id TEXT NOT NULL,
	project_id TEXT NOT NULL,
	name TEXT,
	flowchart_data JSON,
	updated_at INTEGER,
	PRIMARY KEY (workspace_id, project_id)
);
CREATE TABLE IF NOT EXISTS conversations (
	workspace_id TEXT NOT NULL,
	block_id TEXT NOT NULL,
	conversation_id INTEGER NOT NULL,
	messages JSON,
	updated_at INTEGER,
	PRIMARY KEY (workspace_id, block_id, conversation_id)
);
`

func NewSqliteStorage(dsn string) (*SqliteStorage, error) {
	// Only create parent directories if not using in-memory SQLite (":memory:").
	if dsn != ":memory:" && dsn != "" {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, utils.Errorf("failed to create db directory %q: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// An in-memory database exists per connection.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, utils.Errorf("failed to create sqlite schema: %w", err)
	}
	return &SqliteStorage{sqlStorage{db: db, bind: questionMarks}}, nil
}
