package chat

import (
	"context"
	"errors"
	"sort"
	"sync"

	"llmchatd/pkg/types"
)

// ErrNotFound is returned when a conversation id is unknown.
var ErrNotFound = errors.New("conversation not found")

// Store persists conversations. List returns the most recently active
// conversation first.
type Store interface {
	Create(ctx context.Context, c types.Conversation) error
	Get(ctx context.Context, id string) (types.Conversation, error)
	List(ctx context.Context) ([]types.Conversation, error)
	// Save replaces title and messages of an existing conversation.
	Save(ctx context.Context, c types.Conversation) error
	Rename(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	Close() error
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]types.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: map[string]types.Conversation{}}
}

func (s *MemoryStore) Create(_ context.Context, c types.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[c.ID] = clone(c)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	if !ok {
		return types.Conversation{}, ErrNotFound
	}
	return clone(c), nil
}

func (s *MemoryStore) List(_ context.Context) ([]types.Conversation, error) {
	s.mu.RLock()
	out := make([]types.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, clone(c))
	}
	s.mu.RUnlock()
	sortByActivity(out)
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, c types.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.convs[c.ID]
	if !ok {
		return ErrNotFound
	}
	old.Title = c.Title
	old.Messages = c.Messages
	s.convs[c.ID] = clone(old)
	return nil
}

func (s *MemoryStore) Rename(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return ErrNotFound
	}
	c.Title = title
	s.convs[id] = c
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[id]; !ok {
		return ErrNotFound
	}
	delete(s.convs, id)
	return nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	s.convs = map[string]types.Conversation{}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func clone(c types.Conversation) types.Conversation {
	c.Messages = append([]types.Message(nil), c.Messages...)
	return c
}

func sortByActivity(cs []types.Conversation) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i].LastActivity(), cs[j].LastActivity()
		if !a.Equal(b) {
			return a.After(b)
		}
		return cs[i].CreatedAt.After(cs[j].CreatedAt)
	})
}
