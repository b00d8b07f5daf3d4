package keycache

import "sync"

// Memory keeps values in process memory.
type Memory struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(namespace, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[namespace+"/"+name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(namespace, name string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[namespace+"/"+name] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(namespace, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, namespace+"/"+name)
	return nil
}
