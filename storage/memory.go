package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/chatflow-dev/chatflow/model"
)

// MemoryStorage implements Storage in-memory (for fallback/dev mode)
type MemoryStorage struct {
	mu            sync.Mutex
	projects      map[string]map[string]model.Project      // workspace -> project id -> project
	conversations map[string]map[convKey][]model.ChatMessage // workspace -> (block, conversation) -> messages
}

type convKey struct {
	blockID        string
	conversationID int
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		projects:      make(map[string]map[string]model.Project),
		conversations: make(map[string]map[convKey][]model.ChatMessage),
	}
}

func (m *MemoryStorage) SaveProject(ctx context.Context, workspaceID string, project model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.projects[workspaceID]
	if !ok {
		ws = make(map[string]model.Project)
		m.projects[workspaceID] = ws
	}
	ws[project.ID] = project.Clone()
	return nil
}

func (m *MemoryStorage) GetProject(ctx context.Context, workspaceID, projectID string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[workspaceID][projectID]
	if !ok {
		return nil, ErrNotFound
	}
	return model.CloneProject(&p), nil
}

func (m *MemoryStorage) ListProjects(ctx context.Context, workspaceID string) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Project{}
	for _, p := range m.projects[workspaceID] {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStorage) NextProjectID(ctx context.Context, workspaceID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.projects[workspaceID]))
	for id := range m.projects[workspaceID] {
		ids = append(ids, id)
	}
	return nextProjectID(ids), nil
}

func (m *MemoryStorage) SaveConversation(ctx context.Context, workspaceID, blockID string, conversationID int, messages []model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.conversations[workspaceID]
	if !ok {
		ws = make(map[convKey][]model.ChatMessage)
		m.conversations[workspaceID] = ws
	}
	ws[convKey{blockID, conversationID}] = append([]model.ChatMessage(nil), messages...)
	return nil
}

func (m *MemoryStorage) ListConversations(ctx context.Context, workspaceID string) ([]model.BlockChat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]conversationRow, 0, len(m.conversations[workspaceID]))
	for k, msgs := range m.conversations[workspaceID] {
		rows = append(rows, conversationRow{
			blockID:        k.blockID,
			conversationID: k.conversationID,
			messages:       append([]model.ChatMessage(nil), msgs...),
		})
	}
	return groupConversations(rows), nil
}

func (m *MemoryStorage) DeleteConversations(ctx context.Context, workspaceID, blockID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.conversations[workspaceID] {
		if k.blockID == blockID {
			delete(m.conversations[workspaceID], k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
