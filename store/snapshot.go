package store

import (
	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/model"
	"github.com/chatflow-dev/chatflow/utils"
)

// Snapshot is a point-in-time copy of every container.
type Snapshot struct {
	WorkspaceID    string            `json:"workspaceId"`
	Documents      []model.Document  `json:"documents"`
	FileNames      []string          `json:"fileNames"`
	CurrentProject *model.Project    `json:"currentProject"`
	Projects       []model.Project   `json:"projects"`
	BlockChats     []model.BlockChat `json:"blockChats"`
}

// Snapshot copies the whole store. Documents and file names are read together, so a
// concurrent LoadDocuments is seen either entirely or not at all.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		WorkspaceID:    s.WorkspaceID.Get(),
		Documents:      s.Documents.Get(),
		FileNames:      s.FileNames.Get(),
		CurrentProject: s.CurrentProject.Get(),
		Projects:       s.Projects.Get(),
		BlockChats:     s.BlockChats.Get(),
	}
}

// Change describes one container write.
type Change struct {
	Container string `json:"container"`
	Value     any    `json:"value"`
}

// Watch subscribes fn to every container. The returned function removes all of the
// subscriptions.
func (s *Store) Watch(fn func(Change)) (unsubscribe func()) {
	unsubs := []func(){
		watch(s.Documents, fn),
		watch(s.FileNames, fn),
		watch(s.WorkspaceID, fn),
		watch(s.CurrentProject, fn),
		watch(s.Projects, fn),
		watch(s.BlockChats, fn),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func watch[T any](c *Container[T], fn func(Change)) func() {
	return c.Subscribe(func(v T) {
		fn(Change{Container: c.Name(), Value: v})
	})
}

// Publisher is the part of an event bus that PublishChanges needs.
type Publisher interface {
	Publish(topic string, payload any) error
}

// PublishChanges forwards every store change to pub on topic "store.<container>".
// Publish failures are logged and do not affect the store.
func PublishChanges(s *Store, pub Publisher) (stop func()) {
	return s.Watch(func(c Change) {
		payload := map[string]any{
			"container":   c.Container,
			"workspaceId": s.WorkspaceID.Get(),
			"value":       c.Value,
		}
		if err := pub.Publish(constants.EventTopicStorePrefix+c.Container, payload); err != nil {
			utils.Warn("store: failed to publish %s change: %v", c.Container, err)
		}
	})
}
