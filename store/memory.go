package store

import "sync"

// Memory is a map-backed DataStore, the minimal embedder cmd/replica
// runs against out of the box. A real object model belongs to the
// embedder, not this core; this exists only so the reference binaries
// have something to Apply/Read against without requiring a real
// storage engine to be wired in first.
type Memory struct {
	mu   sync.RWMutex
	data map[Key]Value
}

func NewMemory() *Memory {
	return &Memory{data: make(map[Key]Value)}
}

func (m *Memory) Read(keys []Key) (map[Key]Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Key]Value, len(keys))
	for _, k := range keys {
		out[k] = m.data[k]
	}
	return out, nil
}

func (m *Memory) Apply(writes map[Key]Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range writes {
		m.data[k] = v
	}
	return nil
}

var _ DataStore = (*Memory)(nil)
