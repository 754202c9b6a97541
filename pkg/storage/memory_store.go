package storage

import "sync"

// MemoryStore is a mutex-guarded map implementation of VisitedStore
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

func (m *MemoryStore) MarkVisited(normalizedURL string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[normalizedURL]; ok {
		return false, nil
	}
	m.seen[normalizedURL] = struct{}{}
	return true, nil
}

func (m *MemoryStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

func (m *MemoryStore) Close() error { return nil }
