package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// MemoryStore keeps state in process memory. Each user has its own mutex, so
// concurrent updates for one user serialize while other users proceed.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	mu    sync.Mutex
	state analytics.PersistenceState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// getOrCreate returns the entry for userID, creating it if needed.
func (m *MemoryStore) getOrCreate(userID string) *memoryEntry {
	m.mu.RLock()
	e, ok := m.entries[userID]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Double-check after acquiring write lock
	if e, ok = m.entries[userID]; ok {
		return e
	}
	e = &memoryEntry{state: analytics.PersistenceState{UserID: userID}}
	m.entries[userID] = e
	return e
}

// Update implements StateStore.
func (m *MemoryStore) Update(ctx context.Context, userID string, fn UpdateFunc) (analytics.PersistenceState, error) {
	if err := ctx.Err(); err != nil {
		return analytics.PersistenceState{}, err
	}
	e := m.getOrCreate(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state
	if err := fn(&next); err != nil {
		return analytics.PersistenceState{}, err
	}
	next.UserID = userID
	next.UpdatedAt = m.now().UTC()
	e.state = next
	return next, nil
}

// Get implements StateStore.
func (m *MemoryStore) Get(_ context.Context, userID string) (*analytics.PersistenceState, error) {
	m.mu.RLock()
	e, ok := m.entries[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.UpdatedAt.IsZero() {
		return nil, nil
	}
	s := e.state
	return &s, nil
}

// Len returns the number of tracked users.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
