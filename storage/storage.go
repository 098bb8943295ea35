package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chatflow-dev/chatflow/config"
	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage persists what the backend serves: each workspace's projects and the
// conversations attached to its blocks.
type Storage interface {
	// SaveProject inserts or replaces a project of a workspace.
	SaveProject(ctx context.Context, workspaceID string, project model.Project) error
	// GetProject returns one project or ErrNotFound.
	GetProject(ctx context.Context, workspaceID, projectID string) (*model.Project, error)
	// ListProjects returns a workspace's projects ordered by id.
	ListProjects(ctx context.Context, workspaceID string) ([]model.Project, error)
	// NextProjectID returns the id a newly saved project should get.
	NextProjectID(ctx context.Context, workspaceID string) (string, error)
	// SaveConversation stores one exchange of a block. Every message is stored with
	// ID set to conversationID; saving the same conversation again replaces it.
	SaveConversation(ctx context.Context, workspaceID, blockID string, conversationID int, messages []model.ChatMessage) error
	// ListConversations returns the chats of a workspace grouped by block, blocks
	// ordered by id and messages ordered by conversation id.
	ListConversations(ctx context.Context, workspaceID string) ([]model.BlockChat, error)
	// DeleteConversations removes every conversation of a block and reports how many
	// were removed.
	DeleteConversations(ctx context.Context, workspaceID, blockID string) (int, error)
	Close() error
}

// NewStorageFromConfig returns the storage driver named by cfg. Empty means memory.
func NewStorageFromConfig(cfg config.StorageConfig) (Storage, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", constants.StorageDriverMemory:
		return NewMemoryStorage(), nil
	case constants.StorageDriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = constants.DefaultSQLiteDSN
		}
		return NewSqliteStorage(dsn)
	case constants.StorageDriverPostgres:
		return NewPostgresStorage(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// nextProjectID returns "project-<n+1>" where n is the largest numeric suffix among
// ids of the form "project-<n>". Other ids are ignored.
func nextProjectID(ids []string) string {
	maxID := 0
	for _, id := range ids {
		idx := strings.LastIndex(id, "-")
		if idx < 0 {
			continue
		}
		n, err := strconv.Atoi(id[idx+1:])
		if err != nil {
			continue
		}
		maxID = max(maxID, n)
	}
	return constants.ProjectIDPrefix + strconv.Itoa(maxID+1)
}

// conversationRow is one stored exchange.
type conversationRow struct {
	blockID        string
	conversationID int
	messages       []model.ChatMessage
}

// groupConversations turns rows into block chats. Rows may arrive in any order.
func groupConversations(rows []conversationRow) []model.BlockChat {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].blockID != rows[j].blockID {
			return rows[i].blockID < rows[j].blockID
		}
		return rows[i].conversationID < rows[j].conversationID
	})
	out := []model.BlockChat{}
	for _, r := range rows {
		if len(out) == 0 || out[len(out)-1].BlockID != r.blockID {
			out = append(out, model.BlockChat{BlockID: r.blockID, Messages: []model.ChatMessage{}})
		}
		last := &out[len(out)-1]
		for _, m := range r.messages {
			m.ID = r.conversationID
			last.Messages = append(last.Messages, m)
		}
	}
	return out
}
