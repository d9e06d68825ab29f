package authgate

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockUserProvider struct {
	mu           sync.Mutex
	users        map[string]UserRecord
	byIdentifier map[string]string
	nextID       int

	getByIdentifierCalls int
	existsCalls          int
	createCalls          int

	getErr    error
	existsErr error
	createErr error
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		users:        map[string]UserRecord{},
		byIdentifier: map[string]string{},
	}
}

func (m *mockUserProvider) GetUserByIdentifier(_ context.Context, identifier string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByIdentifierCalls++
	if m.getErr != nil {
		return UserRecord{}, m.getErr
	}
	id, ok := m.byIdentifier[identifier]
	if !ok {
		return UserRecord{}, ErrProviderUserNotFound
	}
	return m.users[id], nil
}

func (m *mockUserProvider) IdentifierExists(_ context.Context, identifier string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsCalls++
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.byIdentifier[identifier]
	return ok, nil
}

func (m *mockUserProvider) CreateUser(_ context.Context, in CreateUserInput) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return UserRecord{}, m.createErr
	}
	if _, ok := m.byIdentifier[in.Identifier]; ok {
		return UserRecord{}, ErrProviderDuplicateIdentifier
	}
	m.nextID++
	rec := UserRecord{
		UserID:       fmt.Sprintf("u%d", m.nextID),
		Identifier:   in.Identifier,
		PasswordHash: in.PasswordHash,
		Status:       in.Status,
		Profile:      in.Profile,
	}
	m.users[rec.UserID] = rec
	m.byIdentifier[rec.Identifier] = rec.UserID
	return rec, nil
}

func (m *mockUserProvider) setStatus(identifier string, status AccountStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.byIdentifier[identifier]
	rec := m.users[id]
	rec.Status = status
	m.users[id] = rec
}

func (m *mockUserProvider) failLookups(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// testClock is a settable clock shared by the engine and its revocation store.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func testConfig(t *testing.T) Config {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.Issuer = "authgate-test"
	cfg.JWT.Leeway = 0
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Revocation.OperationTimeout = 500 * time.Millisecond
	return cfg
}

type testEngine struct {
	*Engine
	users *mockUserProvider
	clock *testClock
	mr    *miniredis.Miniredis
}

type testEngineOption func(*Builder)

func newTestEngine(t *testing.T, cfg Config, opts ...testEngineOption) *testEngine {
	t.Helper()

	mr, rdb := newTestRedis(t)
	users := newMockUserProvider()
	clock := newTestClock()

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(users).
		WithClock(clock.Now)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, users: users, clock: clock, mr: mr}
}

func (te *testEngine) mustRegister(t *testing.T, identifier, password string) Identity {
	t.Helper()
	id, err := te.Register(context.Background(), RegisterRequest{Identifier: identifier, Password: password})
	if err != nil {
		t.Fatalf("register %q failed: %v", identifier, err)
	}
	return id
}

func (te *testEngine) mustLogin(t *testing.T, identifier, password string) *LoginResult {
	t.Helper()
	res, err := te.LoginWithResult(context.Background(), identifier, password)
	if err != nil {
		t.Fatalf("login %q failed: %v", identifier, err)
	}
	return res
}

var errBackendDown = errors.New("backend down")
