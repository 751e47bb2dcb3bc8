package store

import "sync"

// Memory is a process-local remote.Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]any)}
}

// Get returns the value stored at key.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]

	return v, ok
}

// Update stores value at key; a nil value deletes it.
func (m *Memory) Update(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if value == nil {
		delete(m.values, key)

		return nil
	}

	m.values[key] = value

	return nil
}

// Keys returns the stored keys in no particular order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}

	return keys
}
