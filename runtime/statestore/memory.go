package statestore

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is an in-process Ledger. Expired entries are dropped lazily on
// lookup and swept on every Record.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	resolution Resolution
	expiresAt  time.Time
}

// MemoryOption configures a MemoryLedger.
type MemoryOption func(*MemoryLedger)

// WithMemoryTTL sets how long resolutions are kept. Zero keeps them forever.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(l *MemoryLedger) { l.ttl = ttl }
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger(opts ...MemoryOption) *MemoryLedger {
	l := &MemoryLedger{
		entries: make(map[string]memoryEntry),
		ttl:     defaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record implements Ledger.
func (l *MemoryLedger) Record(_ context.Context, r Resolution) error {
	if r.TaskID == "" {
		return ErrInvalidID
	}
	now := l.now()
	if r.ResolvedAt.IsZero() {
		r.ResolvedAt = now
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)
	entry := memoryEntry{resolution: r}
	if l.ttl > 0 {
		entry.expiresAt = now.Add(l.ttl)
	}
	l.entries[r.TaskID] = entry
	return nil
}

// Lookup implements Ledger.
func (l *MemoryLedger) Lookup(_ context.Context, taskID string) (*Resolution, error) {
	if taskID == "" {
		return nil, ErrInvalidID
	}

	l.mu.RLock()
	entry, ok := l.entries[taskID]
	l.mu.RUnlock()

	if !ok || entry.expired(l.now()) {
		return nil, ErrNotFound
	}
	r := entry.resolution
	return &r, nil
}

// Forget implements Ledger.
func (l *MemoryLedger) Forget(_ context.Context, taskID string) error {
	if taskID == "" {
		return ErrInvalidID
	}
	l.mu.Lock()
	delete(l.entries, taskID)
	l.mu.Unlock()
	return nil
}

// Len returns the number of unexpired resolutions.
func (l *MemoryLedger) Len() int {
	now := l.now()
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, e := range l.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (l *MemoryLedger) sweepLocked(now time.Time) {
	for id, e := range l.entries {
		if e.expired(now) {
			delete(l.entries, id)
		}
	}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
