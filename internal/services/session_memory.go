package services

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local SessionStore.
// Entries are only removed when the registry evicts an expired token, so the
// map grows with every login until the process restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Identity
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Identity)}
}

func (m *MemoryStore) Put(_ context.Context, token string, identity Identity, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = identity
	return nil
}

func (m *MemoryStore) Get(_ context.Context, token string) (Identity, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.sessions[token]
	return identity, ok, nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// Len returns the number of stored sessions
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
