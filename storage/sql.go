package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/chatflow-dev/chatflow/model"
)

// sqlStorage holds the queries shared by the SQL drivers. Queries are written with
// '?' placeholders and rewritten by bind for drivers that number them.
type sqlStorage struct {
	db   *sql.DB
	bind func(string) string
}

func questionMarks(q string) string { return q }

// dollarPlaceholders rewrites '?' placeholders to $1, $2, ...
func dollarPlaceholders(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStorage) SaveProject(ctx context.Context, workspaceID string, project model.Project) error {
	data, err := json.Marshal(project.FlowchartData)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.bind(`
INSERT INTO projects (workspace_id, project_id, name, flowchart_data, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(workspace_id, project_id) DO UPDATE SET
	name=excluded.name,
	flowchart_data=excluded.flowchart_data,
	updated_at=excluded.updated_at`),
		workspaceID, project.ID, project.Name, string(data), time.Now().Unix())
	return err
}

func (s *sqlStorage) GetProject(ctx context.Context, workspaceID, projectID string) (*model.Project, error) {
	row := s.db.QueryRowContext(ctx, s.bind(`
SELECT project_id, name, flowchart_data FROM projects WHERE workspace_id=? AND project_id=?`),
		workspaceID, projectID)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *sqlStorage) ListProjects(ctx context.Context, workspaceID string) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`
SELECT project_id, name, flowchart_data FROM projects WHERE workspace_id=? ORDER BY project_id`),
		workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *sqlStorage) NextProjectID(ctx context.Context, workspaceID string) (string, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`SELECT project_id FROM projects WHERE workspace_id=?`), workspaceID)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return nextProjectID(ids), nil
}

func (s *sqlStorage) SaveConversation(ctx context.Context, workspaceID, blockID string, conversationID int, messages []model.ChatMessage) error {
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.bind(`
INSERT INTO conversations (workspace_id, block_id, conversation_id, messages, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(workspace_id, block_id, conversation_id) DO UPDATE SET
	messages=excluded.messages,
	updated_at=excluded.updated_at`),
		workspaceID, blockID, conversationID, string(data), time.Now().Unix())
	return err
}

func (s *sqlStorage) ListConversations(ctx context.Context, workspaceID string) ([]model.BlockChat, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`
SELECT block_id, conversation_id, messages FROM conversations
WHERE workspace_id=? ORDER BY block_id, conversation_id`), workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var convs []conversationRow
	for rows.Next() {
		var r conversationRow
		var data []byte
		if err := rows.Scan(&r.blockID, &r.conversationID, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &r.messages); err != nil {
			return nil, err
		}
		convs = append(convs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groupConversations(convs), nil
}

func (s *sqlStorage) DeleteConversations(ctx context.Context, workspaceID, blockID string) (int, error) {
	res, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM conversations WHERE workspace_id=? AND block_id=?`),
		workspaceID, blockID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *sqlStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*model.Project, error) {
	var p model.Project
	var name sql.NullString
	var data []byte
	if err := row.Scan(&p.ID, &name, &data); err != nil {
		return nil, err
	}
	p.Name = name.String
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p.FlowchartData); err != nil {
			return nil, err
		}
	}
	return &p, nil
}
