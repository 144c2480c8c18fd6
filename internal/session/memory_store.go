package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	userID   uint
	loggedIn bool
	flashes  []Flash
	expires  time.Time
}

// MemoryStore is an in-process session store used when Redis is unavailable
// and in tests. Entries are expired lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry), ttl: ttl}
}

// get returns a live entry, creating it when absent. Caller holds the lock.
func (s *MemoryStore) get(token string) *memoryEntry {
	entry, ok := s.entries[token]
	if ok && time.Now().After(entry.expires) {
		delete(s.entries, token)
		ok = false
	}
	if !ok {
		entry = &memoryEntry{}
		s.entries[token] = entry
	}
	entry.expires = time.Now().Add(s.ttl)
	return entry
}

func (s *MemoryStore) SetUser(_ context.Context, token string, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.get(token)
	entry.userID = userID
	entry.loggedIn = true
	return nil
}

func (s *MemoryStore) UserID(_ context.Context, token string) (uint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok || time.Now().After(entry.expires) || !entry.loggedIn {
		return 0, false, nil
	}
	entry.expires = time.Now().Add(s.ttl)
	return entry.userID, true, nil
}

func (s *MemoryStore) ClearUser(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[token]; ok {
		entry.userID = 0
		entry.loggedIn = false
	}
	return nil
}

func (s *MemoryStore) PushFlash(_ context.Context, token string, flash Flash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.get(token)
	entry.flashes = append(entry.flashes, flash)
	return nil
}

func (s *MemoryStore) PopFlashes(_ context.Context, token string) ([]Flash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok {
		return nil, nil
	}
	flashes := entry.flashes
	entry.flashes = nil
	return flashes, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}
