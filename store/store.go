// Package store holds the client session state: loaded documents, the active
// workspace and project, the project list and per-block chat threads.
//
// Every piece of state lives in its own Container so that any number of views can
// follow it. The store never talks to the network; the client package writes the
// results of backend calls into it.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/model"
	"github.com/chatflow-dev/chatflow/utils"
)

// ErrInvalidStateUpdate is returned in strict mode when an update would leave the
// store inconsistent. The store is unchanged when it is returned.
var ErrInvalidStateUpdate = errors.New("invalid state update")

// Options configures a Store.
type Options struct {
	// Strict rejects malformed updates with ErrInvalidStateUpdate instead of
	// storing them as given.
	Strict bool
	// WorkspaceID is the initial workspace. Empty means constants.DefaultWorkspaceID.
	WorkspaceID string
}

// Store is one session's state. Build one per session with New.
type Store struct {
	strict bool
	// mu keeps multi-container writes and Snapshot atomic with respect to each other.
	mu sync.Mutex

	Documents      *Container[[]model.Document]
	FileNames      *Container[[]string]
	WorkspaceID    *Container[string]
	CurrentProject *Container[*model.Project]
	Projects       *Container[[]model.Project]
	BlockChats     *Container[[]model.BlockChat]
}

// New returns an empty store: no documents, no projects, no chats and no current
// project.
func New(opts Options) *Store {
	ws := opts.WorkspaceID
	if ws == "" {
		ws = constants.DefaultWorkspaceID
	}
	return &Store{
		strict:         opts.Strict,
		Documents:      NewContainerWithClone(constants.ContainerDocuments, []model.Document{}, slices.Clone[[]model.Document]),
		FileNames:      NewContainerWithClone(constants.ContainerFileNames, []string{}, slices.Clone[[]string]),
		WorkspaceID:    NewContainer(constants.ContainerWorkspaceID, ws),
		CurrentProject: NewContainerWithClone(constants.ContainerCurrentProject, (*model.Project)(nil), model.CloneProject),
		Projects:       NewContainerWithClone(constants.ContainerProjects, []model.Project{}, model.CloneProjects),
		BlockChats:     NewContainerWithClone(constants.ContainerBlockChats, []model.BlockChat{}, model.CloneBlockChats),
	}
}

// Strict reports whether malformed updates are rejected.
func (s *Store) Strict() bool {
	return s.strict
}

func invalid(format string, args ...any) error {
	err := fmt.Errorf("%w: %s", ErrInvalidStateUpdate, fmt.Sprintf(format, args...))
	utils.Debug("store: rejected update: %v", err)
	return err
}

// ============================================================================
// DOCUMENTS
// ============================================================================

// LoadDocuments replaces the document list and the file name list together. Observers
// of either container run only after both hold their new values.
//
// names[i] is expected to be docs[i].Name. Outside strict mode this is not checked:
// a mismatched pair is stored as given and reads back mismatched.
func (s *Store) LoadDocuments(docs []model.Document, names []string) error {
	if s.strict {
		if len(docs) != len(names) {
			return invalid("%d documents but %d file names", len(docs), len(names))
		}
		for i := range docs {
			if docs[i].Name != names[i] {
				return invalid("file name %q at index %d does not match document %q", names[i], i, docs[i].Name)
			}
		}
	}
	if docs == nil {
		docs = []model.Document{}
	}
	if names == nil {
		names = []string{}
	}

	s.mu.Lock()
	pd := s.Documents.swap(docs)
	pn := s.FileNames.swap(names)
	s.mu.Unlock()

	pd.dispatch()
	pn.dispatch()
	return nil
}

// SetDocuments replaces the documents and derives the file names from them, so the
// two lists always line up.
func (s *Store) SetDocuments(docs []model.Document) error {
	return s.LoadDocuments(docs, model.DocumentNames(docs))
}

// ============================================================================
// WORKSPACE & PROJECTS
// ============================================================================

// SetWorkspaceID switches the active workspace. The id format is not checked; strict
// mode only rejects the empty string.
func (s *Store) SetWorkspaceID(id string) error {
	if s.strict && id == "" {
		return invalid("empty workspace id")
	}
	s.WorkspaceID.Set(id)
	return nil
}

// SetCurrentProject makes p the active project; nil closes the current one. The
// project does not have to be in the project list.
func (s *Store) SetCurrentProject(p *model.Project) error {
	if s.strict && p != nil && p.ID == "" {
		return invalid("current project has empty id")
	}
	s.CurrentProject.Set(p)
	return nil
}

// SetProjectList replaces the list of known projects. The current project is left
// alone.
func (s *Store) SetProjectList(list []model.Project) error {
	if s.strict {
		seen := make(map[string]struct{}, len(list))
		for i, p := range list {
			if p.ID == "" {
				return invalid("project at index %d has empty id", i)
			}
			if _, dup := seen[p.ID]; dup {
				return invalid("duplicate project id %q", p.ID)
			}
			seen[p.ID] = struct{}{}
		}
	}
	if list == nil {
		list = []model.Project{}
	}
	s.Projects.Set(list)
	return nil
}

// AddProject appends p to the project list. It never changes the current project;
// switching to p is a separate SetCurrentProject call.
func (s *Store) AddProject(p model.Project) error {
	pend, err := s.Projects.tryUpdate(func(old []model.Project) ([]model.Project, error) {
		if s.strict {
			if p.ID == "" {
				return nil, invalid("project has empty id")
			}
			if indexOfProject(old, p.ID) >= 0 {
				return nil, invalid("duplicate project id %q", p.ID)
			}
		}
		next := make([]model.Project, 0, len(old)+1)
		next = append(next, old...)
		return append(next, p), nil
	})
	if err != nil {
		return err
	}
	pend.dispatch()
	return nil
}

// ReplaceProject swaps the first project with p.ID for p, or appends p when no such
// project exists. It reports whether an existing entry was replaced.
func (s *Store) ReplaceProject(p model.Project) (bool, error) {
	if s.strict && p.ID == "" {
		return false, invalid("project has empty id")
	}
	var replaced bool
	pend, _ := s.Projects.tryUpdate(func(old []model.Project) ([]model.Project, error) {
		next := slices.Clone(old)
		if i := indexOfProject(next, p.ID); i >= 0 {
			next[i] = p
			replaced = true
			return next, nil
		}
		return append(next, p), nil
	})
	pend.dispatch()
	return replaced, nil
}

// Project returns the first project in the list with the given id.
func (s *Store) Project(id string) (model.Project, bool) {
	list := s.Projects.peek()
	if i := indexOfProject(list, id); i >= 0 {
		return list[i].Clone(), true
	}
	return model.Project{}, false
}

func indexOfProject(list []model.Project, id string) int {
	return slices.IndexFunc(list, func(p model.Project) bool { return p.ID == id })
}

// ============================================================================
// BLOCK CHATS
// ============================================================================

// AppendMessage adds msg to the chat of blockID, creating the chat on first use.
// Message ids are stored as given.
//
// Because chats are created implicitly, a mistyped block id silently starts a new
// chat. Strict mode only guards against the empty id.
func (s *Store) AppendMessage(blockID string, msg model.ChatMessage) error {
	if s.strict && blockID == "" {
		return invalid("empty block id")
	}
	pend, _ := s.BlockChats.tryUpdate(func(old []model.BlockChat) ([]model.BlockChat, error) {
		return appendToChat(old, blockID, msg), nil
	})
	pend.dispatch()
	return nil
}

// AppendNextMessage is AppendMessage with msg.ID set to one more than the highest id
// already in the chat. The id is chosen under the same lock as the append, so
// concurrent callers never share an id. Loaded chats repeat ids, one pair per
// conversation, so the message count is not a safe next id.
func (s *Store) AppendNextMessage(blockID string, msg model.ChatMessage) (model.ChatMessage, error) {
	if s.strict && blockID == "" {
		return model.ChatMessage{}, invalid("empty block id")
	}
	pend, _ := s.BlockChats.tryUpdate(func(old []model.BlockChat) ([]model.BlockChat, error) {
		msg.ID = 1
		if i := indexOfChat(old, blockID); i >= 0 {
			msg.ID = nextMessageID(old[i].Messages)
		}
		return appendToChat(old, blockID, msg), nil
	})
	pend.dispatch()
	return msg, nil
}

func nextMessageID(msgs []model.ChatMessage) int {
	high := 0
	for _, m := range msgs {
		high = max(high, m.ID)
	}
	return high + 1
}

func appendToChat(old []model.BlockChat, blockID string, msg model.ChatMessage) []model.BlockChat {
	next := slices.Clone(old)
	if i := indexOfChat(next, blockID); i >= 0 {
		msgs := make([]model.ChatMessage, 0, len(next[i].Messages)+1)
		msgs = append(msgs, next[i].Messages...)
		next[i].Messages = append(msgs, msg)
		return next
	}
	return append(next, model.BlockChat{BlockID: blockID, Messages: []model.ChatMessage{msg}})
}

// GetMessages returns the messages of blockID in append order. Unknown blocks yield an
// empty slice.
func (s *Store) GetMessages(blockID string) []model.ChatMessage {
	chats := s.BlockChats.peek()
	if i := indexOfChat(chats, blockID); i >= 0 {
		return append([]model.ChatMessage{}, chats[i].Messages...)
	}
	return []model.ChatMessage{}
}

// HasChat reports whether blockID has a chat entry.
func (s *Store) HasChat(blockID string) bool {
	return indexOfChat(s.BlockChats.peek(), blockID) >= 0
}

// SetBlockChats replaces the whole chat registry, as after loading a workspace.
func (s *Store) SetBlockChats(chats []model.BlockChat) error {
	if s.strict {
		seen := make(map[string]struct{}, len(chats))
		for i, c := range chats {
			if c.BlockID == "" {
				return invalid("chat at index %d has empty block id", i)
			}
			if _, dup := seen[c.BlockID]; dup {
				return invalid("duplicate chat for block %q", c.BlockID)
			}
			seen[c.BlockID] = struct{}{}
		}
	}
	if chats == nil {
		chats = []model.BlockChat{}
	}
	s.BlockChats.Set(chats)
	return nil
}

// RemoveBlockChat drops the chat of blockID. Observers are only notified when a chat
// was actually removed.
func (s *Store) RemoveBlockChat(blockID string) bool {
	errNoChat := errors.New("no chat")
	pend, err := s.BlockChats.tryUpdate(func(old []model.BlockChat) ([]model.BlockChat, error) {
		i := indexOfChat(old, blockID)
		if i < 0 {
			return nil, errNoChat
		}
		return slices.Delete(slices.Clone(old), i, i+1), nil
	})
	if err != nil {
		return false
	}
	pend.dispatch()
	return true
}

func indexOfChat(chats []model.BlockChat, blockID string) int {
	return slices.IndexFunc(chats, func(c model.BlockChat) bool { return c.BlockID == blockID })
}
