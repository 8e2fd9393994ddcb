package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/DoyleJ11/lol-draft-room/internal/engine"
)

type memoryEntry struct {
	doc       []byte
	version   int64
	expiresAt time.Time
}

// Memory keeps serialized drafts in process memory. Documents are stored as
// JSON so callers never share slices with the store.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type MemoryOption func(*Memory)

// WithClock replaces time.Now, mainly so tests can move time forward.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// live returns the entry for k, evicting it if it has expired. Caller holds mu.
func (m *Memory) live(k string) (memoryEntry, bool) {
	e, ok := m.entries[k]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, k)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *Memory) write(k string, d engine.Draft, ttl time.Duration) error {
	doc, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", d.ID, err)
	}
	m.entries[k] = memoryEntry{doc: doc, version: d.Version, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (engine.Draft, error) {
	m.mu.Lock()
	e, ok := m.live(key(id))
	m.mu.Unlock()
	if !ok {
		return engine.Draft{}, ErrNotFound
	}

	var d engine.Draft
	if err := json.Unmarshal(e.doc, &d); err != nil {
		return engine.Draft{}, fmt.Errorf("decode draft %s: %w", id, err)
	}
	return d, nil
}

func (m *Memory) Create(_ context.Context, d engine.Draft, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(d.ID)
	if _, ok := m.live(k); ok {
		return ErrExists
	}
	return m.write(k, d, ttl)
}

func (m *Memory) Save(_ context.Context, d engine.Draft, expected int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(d.ID)
	e, ok := m.live(k)
	if !ok {
		return ErrNotFound
	}
	if e.version != expected {
		return ErrConflict
	}
	return m.write(k, d, ttl)
}

func (m *Memory) Put(_ context.Context, d engine.Draft, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(key(d.ID), d, ttl)
}

func (m *Memory) PutIfNewer(_ context.Context, d engine.Draft, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(d.ID)
	if e, ok := m.live(k); ok && e.version >= d.Version {
		return false, nil
	}
	if err := m.write(k, d, ttl); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key(id))
	return nil
}

func (m *Memory) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k := range m.entries {
		if _, ok := m.live(k); !ok {
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
