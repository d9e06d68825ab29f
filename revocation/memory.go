package revocation

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	revokedAt time.Time
	// zero means no expiry
	expires time.Time
}

// MemoryStore is a process-local Store guarded by a RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore. A nil now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		now:     now,
	}
}

func (m *MemoryStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	if sessionID == "" {
		return false, ErrInvalidSessionID
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[sessionID]; ok && !entry.expired(now) {
		return false, nil
	}

	entry := memoryEntry{revokedAt: now}
	if ttl > 0 {
		entry.expires = now.Add(ttl)
	}
	m.entries[sessionID] = entry
	return true, nil
}

func (m *MemoryStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	_, ok, err := m.Lookup(ctx, sessionID)
	return ok, err
}

func (m *MemoryStore) Lookup(ctx context.Context, sessionID string) (Record, bool, error) {
	if sessionID == "" {
		return Record{}, false, ErrInvalidSessionID
	}
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	m.mu.RLock()
	entry, ok := m.entries[sessionID]
	m.mu.RUnlock()
	if !ok || entry.expired(m.now()) {
		return Record{}, false, nil
	}
	return Record{SessionID: sessionID, RevokedAt: entry.revokedAt}, true, nil
}

// Purge drops entries whose retention has elapsed and returns how many were removed.
func (m *MemoryStore) Purge() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for sid, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, sid)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including ones awaiting Purge.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// RunJanitor calls Purge every interval until ctx is done.
func (m *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Purge()
		}
	}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}
