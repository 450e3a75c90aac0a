package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is the in-process Backend: a mutex-guarded map, guarded by a
// single RWMutex so reads (Retrieve/Exists/ListKeys/Info) proceed
// concurrently and writes serialize, matching the reader/writer split
// spec.md section 5 requires of the persistence manager's own state.
type Memory struct {
	mu        sync.RWMutex
	data      map[string][]byte
	lastWrite time.Time
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Store(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[key] = cp
	m.lastWrite = time.Now()
	return nil
}

func (m *Memory) Retrieve(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return ErrNotFound
	}
	delete(m.data, key)
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *Memory) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Flush(ctx context.Context) error { return nil }

func (m *Memory) Info(ctx context.Context) (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, v := range m.data {
		total += int64(len(v))
	}
	return Info{Kind: "memory", KeyCount: len(m.data), TotalBytes: total, LastWrite: m.lastWrite}, nil
}
