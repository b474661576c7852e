package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Backend. Updates to one key are serialized by a
// per-key mutex; updates to different keys run concurrently.
type Memory struct {
	mu      sync.RWMutex
	data    map[string][]byte
	indexes map[string]map[string]struct{}
	locks   sync.Map
}

// NewMemory returns an empty backend
func NewMemory() *Memory {
	return &Memory{
		data:    make(map[string][]byte),
		indexes: make(map[string]map[string]struct{}),
	}
}

func (m *Memory) keyLock(key string) *sync.Mutex {
	l, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Put(ctx context.Context, key, index string, data []byte) error {
	l := m.keyLock(key)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	if index != "" {
		if m.indexes[index] == nil {
			m.indexes[index] = make(map[string]struct{})
		}
		m.indexes[index][key] = struct{}{}
	}
	return nil
}

func (m *Memory) Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error {
	l := m.keyLock(key)
	l.Lock()
	defer l.Unlock()

	old, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	next, err := fn(old)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data[key] = next
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(ctx context.Context, index string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.indexes[index]))
	for k := range m.indexes[index] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		out = append(out, append([]byte(nil), m.data[k]...))
	}
	return out, nil
}

func (m *Memory) Close(ctx context.Context) error { return nil }
