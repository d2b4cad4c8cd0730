package resultcache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Cache backed by go-cache.
type Memory struct {
	store *gocache.Cache
}

// NewMemory returns a Memory cache whose entries expire after ttl.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Memory{store: gocache.New(ttl, ttl*2)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := m.store.Get(key)
	if !found {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

// Set stores a private copy of value.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.store.Set(key, append([]byte(nil), value...), gocache.DefaultExpiration)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// Len returns the number of unexpired entries.
func (m *Memory) Len() int {
	return m.store.ItemCount()
}

// Close drops every entry.
func (m *Memory) Close() error {
	m.store.Flush()
	return nil
}
