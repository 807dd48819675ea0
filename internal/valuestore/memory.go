package valuestore

import "sync"

// Memory is an in-process Store backed by a map, guarded by a mutex the
// way updatemgr.UpdateManager guards its overrides map.
type Memory struct {
	mu   sync.RWMutex
	data map[uint64]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[uint64]string)}
}

func (m *Memory) Put(key uint64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = text
	return nil
}

func (m *Memory) Get(key uint64) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.data[key]
	return text, ok, nil
}

func (m *Memory) Delete(key uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error { return nil }
