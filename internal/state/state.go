// Package state persists the client's named collections (tracked URLs,
// measurement log, saved records) as JSON documents.
package state

import (
	"context"
	"sync"
)

// Collection names.
const (
	URLs         = "urls"
	Measurements = "measurements"
	Records      = "records"
)

// Store is get/set over named JSON documents for one client. Get returns
// nil data when nothing was stored yet.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, data []byte) error
}

// Memory is a Store kept in process memory.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[name]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(ctx context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(data))
	copy(v, data)
	m.data[name] = v
	return nil
}
