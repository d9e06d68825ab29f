package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces revocation keys.
const DefaultPrefix = "rv"

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	// Prefix namespaces keys as "<prefix>:<session id>". Empty uses DefaultPrefix.
	Prefix string
	// Timeout bounds every Redis call. Zero leaves the caller's context as is.
	Timeout time.Duration
	// Now stamps RevokedAt. Defaults to time.Now.
	Now func() time.Time
}

// RedisStore keeps one key per revoked session id, written with SET NX so
// the first revocation time wins.
type RedisStore struct {
	redis   redis.UniversalClient
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

// NewRedisStore creates a RedisStore over client.
func NewRedisStore(client redis.UniversalClient, cfg RedisConfig) *RedisStore {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RedisStore{
		redis:   client,
		prefix:  cfg.Prefix,
		timeout: cfg.Timeout,
		now:     cfg.Now,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Revoke records the revocation if no record exists yet.
//
//	Performance: 1 Redis SET NX.
func (s *RedisStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	if sessionID == "" {
		return false, ErrInvalidSessionID
	}
	if ttl < 0 {
		ttl = 0
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	revokedAt := strconv.FormatInt(s.now().UnixNano(), 10)
	created, err := s.redis.SetNX(ctx, s.key(sessionID), revokedAt, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return created, nil
}

// IsRevoked reports whether a record exists for sessionID.
//
//	Performance: 1 Redis EXISTS.
func (s *RedisStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, ErrInvalidSessionID
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.redis.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// Lookup returns the stored record for sessionID, if any.
func (s *RedisStore) Lookup(ctx context.Context, sessionID string) (Record, bool, error) {
	if sessionID == "" {
		return Record{}, false, ErrInvalidSessionID
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, err := s.redis.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Record{}, false, fmt.Errorf("revocation: corrupt record for session: %v", err)
	}
	return Record{SessionID: sessionID, RevokedAt: time.Unix(0, nanos)}, true, nil
}
