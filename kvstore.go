package account

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process ScopedStore for tests and development. The
// production side channel is cookie backed and lives outside this core; do
// not share a MemoryStore across processes.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

var _ ScopedStore = (*MemoryStore)(nil)

// NewMemoryStore will create a new MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
	}
}

// Get returns the value if present and not expired. Expired entries are
// dropped lazily on access.
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return "", false
	}

	if !entry.expiresAt.IsZero() && !time.Now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return "", false
	}

	return entry.value, true
}

// Set stores the value with a relative ttl; ttl <= 0 means no expiry
func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = entry

	return nil
}

// Delete removes the key; missing keys are not an error
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}
