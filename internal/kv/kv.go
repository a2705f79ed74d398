// Package kv provides the durable key-value area used for the snapshot
// backup. Values are addressed by (collection, key); the store keeps its
// single backup entry under one well-known pair.
//
// The interface allows swapping the bbolt implementation for another
// engine without touching the rest of the codebase. MemoryArea exists for
// tests and for runtimes with no writable filesystem at all.
package kv

import (
	"context"
	"sync"
)

// Area is the abstract key-value surface.
//
// Get returns (nil, false, nil) for an absent key; absence is not an
// error. Put overwrites any existing value.
type Area interface {
	Get(ctx context.Context, collection, key string) ([]byte, bool, error)
	Put(ctx context.Context, collection, key string, value []byte) error
	Delete(ctx context.Context, collection, key string) error
	Close() error
}

// MemoryArea is a map-backed Area for tests. It survives Close so a test
// can hand the same area to a second session and observe replay.
//
// PutErr and GetErr, when set, are returned by the corresponding calls;
// tests use them to simulate backup-path failures.
type MemoryArea struct {
	mu     sync.Mutex
	data   map[string]map[string][]byte
	PutErr error
	GetErr error
}

// NewMemoryArea creates an empty in-memory area.
func NewMemoryArea() *MemoryArea {
	return &MemoryArea{data: make(map[string]map[string][]byte)}
}

// Get implements Area.
func (m *MemoryArea) Get(_ context.Context, collection, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	v, ok := m.data[collection][key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

// Put implements Area.
func (m *MemoryArea) Put(_ context.Context, collection, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	c, ok := m.data[collection]
	if !ok {
		c = make(map[string][]byte)
		m.data[collection] = c
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	c[key] = cp
	return nil
}

// Delete implements Area.
func (m *MemoryArea) Delete(_ context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[collection], key)
	return nil
}

// Close implements Area. Data is retained for session-restart tests.
func (m *MemoryArea) Close() error { return nil }
