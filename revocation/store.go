package revocation

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps backend failures and per-call timeouts.
var ErrStoreUnavailable = errors.New("revocation store unavailable")

// ErrInvalidSessionID is returned for an empty session id.
var ErrInvalidSessionID = errors.New("revocation: session id is required")

// Record describes one revoked session.
type Record struct {
	SessionID string
	RevokedAt time.Time
}

// Store is implemented by every backend in this package.
type Store interface {
	// Revoke marks sessionID revoked for ttl and reports whether this call
	// created the entry. ttl <= 0 keeps the entry without expiry.
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
	Lookup(ctx context.Context, sessionID string) (Record, bool, error)
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
