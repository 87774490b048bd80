package activity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memKey struct {
	user uuid.UUID
	kind Kind
}

// MemoryCounter is an in-process Counter. Events older than Retention are
// pruned on write.
type MemoryCounter struct {
	mu     sync.RWMutex
	events map[memKey][]time.Time
}

// NewMemoryCounter creates an empty MemoryCounter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{events: make(map[memKey][]time.Time)}
}

// Record stores one event.
func (m *MemoryCounter) Record(_ context.Context, userID uuid.UUID, kind Kind, at time.Time) error {
	if err := validKind(kind); err != nil {
		return err
	}
	k := memKey{userID, kind}
	cutoff := at.Add(-Retention)

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[k][:0]
	for _, t := range m.events[k] {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	m.events[k] = append(kept, at)
	return nil
}

// CountSince counts events strictly after since.
func (m *MemoryCounter) CountSince(_ context.Context, userID uuid.UUID, kind Kind, since time.Time) (int, error) {
	if err := validKind(kind); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.events[memKey{userID, kind}] {
		if t.After(since) {
			n++
		}
	}
	return n, nil
}
