package properties

import (
	"maps"
	"sync"
)

// Store is a process-wide property sink keyed by names owned by other
// subsystems.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MemoryStore keeps properties in-memory and guards access with a RWMutex.
type MemoryStore struct {
	mu    sync.RWMutex
	props map[string]string
}

var global = NewMemoryStore(nil)

// Global returns the store shared by the whole process.
func Global() *MemoryStore {
	return global
}

// NewMemoryStore initialises a store with a copy of the provided properties.
func NewMemoryStore(initial map[string]string) *MemoryStore {
	props := make(map[string]string, len(initial))
	maps.Copy(props, initial)
	return &MemoryStore{props: props}
}

// Get returns the value stored under key and whether it was present.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.props[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	s.props[key] = value
	s.mu.Unlock()
}

// Snapshot returns a defensive copy of all properties.
func (s *MemoryStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.props))
	maps.Copy(out, s.props)
	return out
}
