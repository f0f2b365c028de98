package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pfrederiksen/skate-feed/internal/event"
)

// ErrNotFound is returned by Store.Load when nothing is stored.
var ErrNotFound = errors.New("cache: no stored feed")

// Entry is a computed feed and the time it was computed.
type Entry struct {
	Events     []event.Event `json:"events"`
	ComputedAt time.Time     `json:"computed_at"`
}

// Store persists the most recent feed.
type Store interface {
	Load(ctx context.Context) (Entry, error)
	Save(ctx context.Context, entry Entry) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the feed in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	entry *Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return Entry{}, ErrNotFound
	}
	return *s.entry, nil
}

func (s *MemoryStore) Save(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = &entry
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = nil
	return nil
}
