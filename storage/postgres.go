package storage

import (
	"database/sql"
	"errors"

	"github.com/chatflow-dev/chatflow/utils"
	_ "github.com/lib/pq"
)

// PostgresStorage implements Storage on PostgreSQL.
type PostgresStorage struct {
	sqlStorage
}

var _ Storage = (*PostgresStorage)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS projects (
	workspace_id TEXT NOT NULL,
	project_id TEXT NOT NULL,
	name TEXT,
	flowchart_data JSONB,
	updated_at BIGINT,
	PRIMARY KEY (workspace_id, project_id)
);
CREATE TABLE IF NOT EXISTS conversations (
	workspace_id TEXT NOT NULL,
	block_id TEXT NOT NULL,
	conversation_id INTEGER NOT NULL,
	messages JSONB,
	updated_at BIGINT,
	PRIMARY KEY (workspace_id, block_id, conversation_id)
);
`

func NewPostgresStorage(dsn string) (*PostgresStorage, error) {
	if dsn == "" {
		return nil, errors.New("postgres storage requires a dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, utils.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, utils.Errorf("failed to create postgres schema: %w", err)
	}
	return &PostgresStorage{sqlStorage{db: db, bind: dollarPlaceholders}}, nil
}
