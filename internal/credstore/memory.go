package credstore

import (
	"context"
	"sync"
)

// MemoryStore holds the entry in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	entry Entry
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the entry.
func (s *MemoryStore) Load(_ context.Context) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEntry(s.entry), nil
}

// Save replaces the entry.
func (s *MemoryStore) Save(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = copyEntry(entry)
	return nil
}

// Clear empties the store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = Entry{}
	return nil
}

func copyEntry(e Entry) Entry {
	out := Entry{Token: e.Token}
	if len(e.User) > 0 {
		out.User = append([]byte(nil), e.User...)
	}
	return out
}
