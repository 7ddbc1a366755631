package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// minSweepSize is the entry count at which Set first drops expired entries.
// After each sweep the threshold becomes twice the surviving count.
const minSweepSize = 1024

type memoryEntry struct {
	expires time.Time
	data    []byte
}

type inMemory struct {
	mu      sync.Mutex
	storage map[string]memoryEntry
	now     func() time.Time

	nextSweep int
}

// NewMemoryStore returns an in-process Store. Every entry expires after its
// own ttl.
func NewMemoryStore() Store {
	return newMemoryStore(time.Now)
}

func newMemoryStore(now func() time.Time) *inMemory {
	return &inMemory{
		storage:   make(map[string]memoryEntry),
		now:       now,
		nextSweep: minSweepSize,
	}
}

func (m *inMemory) Get(_ context.Context, key string, out any) (bool, error) {
	m.mu.Lock()
	entry, ok := m.storage[key]
	if ok && !m.now().Before(entry.expires) {
		delete(m.storage, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, out); err != nil {
		return false, errors.Wrapf(err, "failed to decode cached value for %s", key)
	}
	return true, nil
}

func (m *inMemory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to encode cache value")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if len(m.storage) >= m.nextSweep {
		m.sweep(now)
	}
	m.storage[key] = memoryEntry{
		expires: now.Add(ttl),
		data:    data,
	}
	return nil
}

// sweep drops expired entries. Callers hold mu.
func (m *inMemory) sweep(now time.Time) {
	for k, e := range m.storage {
		if !now.Before(e.expires) {
			delete(m.storage, k)
		}
	}
	m.nextSweep = max(minSweepSize, 2*len(m.storage))
}
