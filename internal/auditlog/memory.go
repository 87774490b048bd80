package auditlog

import (
	"context"
	"sync"
	"time"
)

// MemoryLog is an in-process Log.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewMemoryLog creates a MemoryLog holding only the genesis entry.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{entries: []*Entry{genesisEntry(time.Now().UTC())}}
}

// Append chains a new entry onto the log.
func (l *MemoryLog) Append(_ context.Context, subject string, event Event, actor string, payload any) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, err := next(l.entries[len(l.entries)-1], subject, event, actor, payload)
	if err != nil {
		return nil, err
	}
	l.entries = append(l.entries, e)
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (l *MemoryLog) Recent(_ context.Context, limit int) ([]*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]*Entry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *l.entries[i]
		out = append(out, &cp)
	}
	return out, nil
}

// Len returns the number of entries, genesis included.
func (l *MemoryLog) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

// Verify recomputes every hash and link in the chain.
func (l *MemoryLog) Verify(_ context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var v chainVerifier
	for _, e := range l.entries {
		if err := v.check(e); err != nil {
			return err
		}
	}
	return nil
}
