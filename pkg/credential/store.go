// Package credential holds the operator's guardian password between calls.
//
// The value is an opaque bearer token. It is never validated locally; the
// server decides whether it is good on every request.
package credential

import "sync"

// Key is the fixed name the credential is stored under.
const Key = "guardian-ui-key"

// Store persists at most one credential. An empty string is treated as
// absent.
type Store interface {
	Get() (string, bool)
	Set(value string) error
	Clear() error
}

// MemoryStore keeps the credential for the life of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	value string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, m.value != ""
}

func (m *MemoryStore) Set(value string) error {
	m.mu.Lock()
	m.value = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.value = ""
	m.mu.Unlock()
	return nil
}
