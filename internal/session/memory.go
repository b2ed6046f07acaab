package session

import (
	"context"
	"sync"
)

// MemoryStorage is a Storage kept in process memory.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.values, key)
	return nil
}

// Fail sets or clears the error every call returns.
func (m *MemoryStorage) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
