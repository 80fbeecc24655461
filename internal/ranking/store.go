// Package ranking persists ranking snapshots and serves them over HTTP.
package ranking

import (
	"context"
	"sync"

	"ehonhub/pkg/models"
)

// Store holds the latest snapshot. Read returns a zero snapshot when nothing
// was written yet. Write replaces the snapshot atomically; last writer wins.
type Store interface {
	Read(ctx context.Context) (models.Snapshot, error)
	Write(ctx context.Context, s models.Snapshot) error
}

// MemoryStore keeps the snapshot in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	snap models.Snapshot
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Read(ctx context.Context) (models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap, nil
}

func (m *MemoryStore) Write(ctx context.Context, s models.Snapshot) error {
	m.mu.Lock()
	m.snap = s
	m.mu.Unlock()
	return nil
}
