package kvstore

import (
	"context"
	"sync"
	"time"
)

var _ Backend = (*memoryBackend)(nil)

type memoryEntry struct {
	value []byte
	ts    time.Time
}

type memoryBackend struct {
	mu    *sync.RWMutex
	items map[string]memoryEntry
}

// NewMemory returns a process-local backend. It is the fallback tier and the
// store used by tests.
func NewMemory() Backend {
	return &memoryBackend{
		mu:    &sync.RWMutex{},
		items: make(map[string]memoryEntry),
	}
}

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, time.Time, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.items[key]
	if !ok {
		return nil, time.Time{}, ErrNotFound
	}

	return entry.value, entry.ts, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value []byte, ts time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[key] = memoryEntry{value: value, ts: ts}

	return nil
}

func (b *memoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.items, key)

	return nil
}

func (b *memoryBackend) Close() error {
	return nil
}
