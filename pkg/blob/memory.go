package blob

import (
	"context"
	"sync"
)

type memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() Store {
	return &memory{data: make(map[string][]byte)}
}

func (m *memory) Put(_ context.Context, key string, data []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)

	return nil
}

func (m *memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}

	return append([]byte(nil), data...), nil
}
