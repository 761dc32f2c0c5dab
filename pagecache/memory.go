package pagecache

import (
	"context"
	"fmt"
	"io"
	"maps"
	"sync"
	"time"
)

// MemoryIndex keeps the index in memory (test/dev only).
type MemoryIndex struct {
	mu      sync.Mutex
	entries map[string]string
	writes  int
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]string)}
}

// Read returns a copy of the mapping.
func (m *MemoryIndex) Read(ctx context.Context) (map[string]string, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.entries), nil
}

// Write replaces the mapping.
func (m *MemoryIndex) Write(ctx context.Context, entries map[string]string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = maps.Clone(entries)
	if m.entries == nil {
		m.entries = make(map[string]string)
	}
	m.writes++
	return nil
}

// Update applies fn to a copy of the mapping and stores the result.
func (m *MemoryIndex) Update(ctx context.Context, fn func(entries map[string]string) error) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	next := maps.Clone(m.entries)
	if next == nil {
		next = make(map[string]string)
	}
	if err := fn(next); err != nil {
		return err
	}
	m.entries = next
	m.writes++
	return nil
}

// Clear empties the mapping.
func (m *MemoryIndex) Clear(ctx context.Context) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]string)
	return nil
}

// Writes reports how many times the mapping was rewritten.
func (m *MemoryIndex) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// MemoryStore keeps artifacts in memory (test/dev only).
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	ensured bool
}

// NewMemoryStore creates an in-memory artifact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// EnsureDir marks the store as initialized.
func (s *MemoryStore) EnsureDir(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	s.ensured = true
	s.mu.Unlock()
	return nil
}

// Put stores an artifact.
func (s *MemoryStore) Put(ctx context.Context, name string, r io.Reader) (Artifact, error) {
	_ = ctx
	if name == "" {
		return Artifact{}, NewError(KindValidation, "artifact name is required", nil)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Artifact{}, err
	}
	s.mu.Lock()
	s.objects[name] = data
	s.mu.Unlock()
	return Artifact{Name: name, Path: name, Size: int64(len(data)), CreatedAt: time.Now()}, nil
}

// Delete removes an artifact.
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	_ = ctx
	s.mu.Lock()
	delete(s.objects, name)
	s.mu.Unlock()
	return nil
}

// Purge removes every artifact.
func (s *MemoryStore) Purge(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := len(s.objects)
	s.objects = make(map[string][]byte)
	return removed, nil
}

// Get returns an artifact's bytes.
func (s *MemoryStore) Get(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[name]
	if !ok {
		return nil, NewError(KindNotFound, fmt.Sprintf("artifact %q not found", name), nil)
	}
	return data, nil
}

// Len reports how many artifacts are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Ensured reports whether EnsureDir was called.
func (s *MemoryStore) Ensured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ensured
}
