package authgate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/revocation"
)

func TestAliceRegisterLoginLogoutScenario(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	ctx := context.Background()

	id, err := te.Register(ctx, RegisterRequest{Identifier: "alice", Password: "pw1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if id.UserID == "" || id.Identifier != "alice" {
		t.Fatalf("unexpected identity %+v", id)
	}

	res, err := te.LoginWithResult(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" || res.AccessToken == res.RefreshToken {
		t.Fatal("expected distinct access and refresh tokens")
	}
	if res.Session.SessionID == "" {
		t.Fatal("expected session id")
	}

	auth, err := te.ValidateAccess(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("validate before logout failed: %v", err)
	}
	if auth.SessionID != res.Session.SessionID || auth.UserID != id.UserID {
		t.Fatalf("validated claims mismatch: %+v", auth)
	}

	if _, _, err := te.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong secret, got %v", err)
	}

	te.Logout(ctx, res.RefreshToken)

	if _, err := te.ValidateAccess(ctx, res.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout, got %v", err)
	}
}

func TestRegisterDuplicateIdentifier(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	te.mustRegister(t, "bob", "secret-1")

	_, err := te.Register(context.Background(), RegisterRequest{Identifier: "bob", Password: "other"})
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("expected ErrDuplicateIdentifier, got %v", err)
	}
	if te.users.createCalls != 1 {
		t.Fatalf("expected one CreateUser call, got %d", te.users.createCalls)
	}
}

func TestRegisterDuplicateRaceMapsProviderError(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	te.users.createErr = ErrProviderDuplicateIdentifier

	_, err := te.Register(context.Background(), RegisterRequest{Identifier: "carol", Password: "pw"})
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("expected ErrDuplicateIdentifier, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	ctx := context.Background()

	cases := map[string]RegisterRequest{
		"empty identifier": {Identifier: "   ", Password: "pw"},
		"bad character":    {Identifier: "bad id!", Password: "pw"},
		"too long":         {Identifier: strings.Repeat("a", 151), Password: "pw"},
		"empty secret":     {Identifier: "dave", Password: ""},
		"oversized secret": {Identifier: "dave", Password: strings.Repeat("x", 1025)},
		"empty profile key": {
			Identifier: "dave",
			Password:   "pw",
			Profile:    map[string]string{" ": "x"},
		},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := te.Register(ctx, req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
	if te.users.createCalls != 0 {
		t.Fatalf("expected no store writes, got %d", te.users.createCalls)
	}
}

func TestRegisterTrimsIdentifierAndKeepsProfile(t *testing.T) {
	te := newTestEngine(t, testConfig(t))

	id, err := te.Register(context.Background(), RegisterRequest{
		Identifier: "  erin@example.com ",
		Password:   "pw",
		Profile:    map[string]string{"email": "erin@example.com"},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if id.Identifier != "erin@example.com" {
		t.Fatalf("expected trimmed identifier, got %q", id.Identifier)
	}
	if id.Profile["email"] != "erin@example.com" {
		t.Fatalf("expected profile to round-trip, got %+v", id.Profile)
	}

	te.mustLogin(t, "erin@example.com", "pw")
}

func TestRegisterStoreFailureIsUnavailable(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	te.users.existsErr = errBackendDown

	_, err := te.Register(context.Background(), RegisterRequest{Identifier: "frank", Password: "pw"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	te.mustRegister(t, "alice", "pw1")
	te.mustRegister(t, "mallory", "pw2")
	te.users.setStatus("mallory", AccountDisabled)
	ctx := context.Background()

	attempts := []struct{ id, secret string }{
		{"nobody", "pw1"},
		{"alice", "wrong"},
		{"mallory", "pw2"},
		{"not valid!", "pw1"},
	}
	for _, a := range attempts {
		_, _, err := te.Login(ctx, a.id, a.secret)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("login(%q): expected ErrUnauthorized, got %v", a.id, err)
		}
		if err.Error() != ErrUnauthorized.Error() {
			t.Fatalf("login(%q): error leaks cause: %v", a.id, err)
		}
	}
}

func TestLoginUserStoreFailureIsUnavailable(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	te.users.failLookups(errBackendDown)

	_, _, err := te.Login(context.Background(), "alice", "pw1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestLoginCreatesDistinctSessions(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	te.mustRegister(t, "alice", "pw1")
	ctx := context.Background()

	first := te.mustLogin(t, "alice", "pw1")
	second := te.mustLogin(t, "alice", "pw1")
	if first.Session.SessionID == second.Session.SessionID {
		t.Fatal("expected distinct session ids per login")
	}

	te.Logout(ctx, first.RefreshToken)

	if _, err := te.ValidateAccess(ctx, first.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected first session revoked, got %v", err)
	}
	if _, err := te.ValidateAccess(ctx, second.AccessToken); err != nil {
		t.Fatalf("expected second session unaffected, got %v", err)
	}
}

func TestValidateAccessSucceedsUntilExpiry(t *testing.T) {
	cfg := testConfig(t)
	te := newTestEngine(t, cfg)
	te.mustRegister(t, "alice", "pw1")
	res := te.mustLogin(t, "alice", "pw1")
	ctx := context.Background()

	te.clock.Advance(cfg.JWT.AccessTTL - time.Second)
	if _, err := te.ValidateAccess(ctx, res.AccessToken); err != nil {
		t.Fatalf("expected token valid just before expiry, got %v", err)
	}

	te.clock.Advance(2 * time.Second)
	if _, err := te.ValidateAccess(ctx, res.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateAccessRejectsRefreshTokenAsWrongType(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	te.mustRegister(t, "alice", "pw1")
	res := te.mustLogin(t, "alice", "pw1")

	_, err := te.ValidateAccess(context.Background(), res.RefreshToken)
	if !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType, got %v", err)
	}
	if errors.Is(err, ErrTokenBadSignature) {
		t.Fatal("wrong type must not be reported as bad signature")
	}
}

func TestValidateAccessRejectsForeignAndMalformedTokens(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	other := newTestEngine(t, testConfig(t))
	other.mustRegister(t, "alice", "pw1")
	foreign := other.mustLogin(t, "alice", "pw1")
	ctx := context.Background()

	if _, err := te.ValidateAccess(ctx, foreign.AccessToken); !errors.Is(err, ErrTokenBadSignature) {
		t.Fatalf("expected ErrTokenBadSignature for foreign key, got %v", err)
	}
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := te.ValidateAccess(ctx, tok); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("ValidateAccess(%q): expected ErrTokenMalformed, got %v", tok, err)
		}
	}
}

func TestValidateAccessFailsClosedWhenRevocationStoreDown(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	te.mustRegister(t, "alice", "pw1")
	res := te.mustLogin(t, "alice", "pw1")
	ctx := context.Background()

	te.mr.SetError("LOADING redis is loading")
	_, err := te.ValidateAccess(ctx, res.AccessToken)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	te.mr.SetError("")
	if _, err := te.ValidateAccess(ctx, res.AccessToken); err != nil {
		t.Fatalf("expected recovery once store is back, got %v", err)
	}
}

func TestValidateAccessSkipsUserStore(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	te.mustRegister(t, "alice", "pw1")
	res := te.mustLogin(t, "alice", "pw1")

	before := te.users.getByIdentifierCalls
	if _, err := te.ValidateAccess(context.Background(), res.AccessToken); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if te.users.getByIdentifierCalls != before {
		t.Fatal("expected validate to avoid user store lookups")
	}
}

func TestRefreshIssuesAccessForSameSession(t *testing.T) {
	cfg := testConfig(t)
	te := newTestEngine(t, cfg)
	te.mustRegister(t, "alice", "pw1")
	login := te.mustLogin(t, "alice", "pw1")
	ctx := context.Background()

	te.clock.Advance(cfg.JWT.AccessTTL + time.Minute)
	if _, err := te.ValidateAccess(ctx, login.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected original access token expired, got %v", err)
	}

	renewed, err := te.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if renewed.RefreshToken != login.RefreshToken {
		t.Fatal("expected refresh token to be returned unchanged")
	}
	if renewed.Session.SessionID != login.Session.SessionID {
		t.Fatal("expected refresh to keep the session id")
	}

	auth, err := te.ValidateAccess(ctx, renewed.AccessToken)
	if err != nil {
		t.Fatalf("renewed access token rejected: %v", err)
	}
	if auth.SessionID != login.Session.SessionID {
		t.Fatalf("expected session %s, got %s", login.Session.SessionID, auth.SessionID)
	}
}

func TestRefreshCapsAccessExpiryAtSessionEnd(t *testing.T) {
	cfg := testConfig(t)
	te := newTestEngine(t, cfg)
	te.mustRegister(t, "alice", "pw1")
	login := te.mustLogin(t, "alice", "pw1")

	te.clock.Advance(cfg.JWT.RefreshTTL - time.Minute)
	renewed, err := te.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if !renewed.Session.AccessExpiresAt.Equal(login.Session.RefreshExpiresAt) {
		t.Fatalf("expected access expiry capped at %v, got %v",
			login.Session.RefreshExpiresAt, renewed.Session.AccessExpiresAt)
	}
}

func TestRefreshRejectsAccessTokenAndRevokedSession(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	te.mustRegister(t, "alice", "pw1")
	login := te.mustLogin(t, "alice", "pw1")
	ctx := context.Background()

	if _, err := te.Refresh(ctx, login.AccessToken); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType, got %v", err)
	}

	te.Logout(ctx, login.RefreshToken)

	if _, err := te.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected refresh reuse after logout to be revoked, got %v", err)
	}
}

func TestBuildRejectsUnusableSigningKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWT.PrivateKey = []byte("not a key")

	_, err := New().
		WithConfig(cfg).
		WithRevocationStore(revocation.NewMemoryStore(nil)).
		WithUserProvider(newMockUserProvider()).
		Build()
	if !errors.Is(err, ErrSigningKey) {
		t.Fatalf("expected ErrSigningKey, got %v", err)
	}
}

func TestBuildRequiresCollaborators(t *testing.T) {
	cfg := testConfig(t)

	if _, err := New().WithConfig(cfg).WithRevocationStore(revocation.NewMemoryStore(nil)).Build(); err == nil {
		t.Fatal("expected error without user provider")
	}
	if _, err := New().WithConfig(cfg).WithUserProvider(newMockUserProvider()).Build(); err == nil {
		t.Fatal("expected error without revocation store")
	}

	b := New().WithConfig(cfg).WithRevocationStore(revocation.NewMemoryStore(nil)).WithUserProvider(newMockUserProvider())
	if _, err := b.Build(); err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on builder reuse")
	}
}

func TestEngineWithHS256AndMemoryStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")

	clock := newTestClock()
	store := revocation.NewMemoryStore(clock.Now)
	engine, err := New().
		WithConfig(cfg).
		WithRevocationStore(store).
		WithUserProvider(newMockUserProvider()).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	if _, err := engine.Register(ctx, RegisterRequest{Identifier: "alice", Password: "pw1"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	res, err := engine.LoginWithResult(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	engine.Logout(ctx, res.RefreshToken)
	if store.Len() != 1 {
		t.Fatalf("expected one revocation record, got %d", store.Len())
	}
	if _, err := engine.ValidateAccess(ctx, res.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestConcurrentValidateAndLogout(t *testing.T) {
	te := newTestEngine(t, testConfig(t))
	te.mustRegister(t, "alice", "pw1")
	res := te.mustLogin(t, "alice", "pw1")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := te.ValidateAccess(ctx, res.AccessToken)
			if err != nil && !errors.Is(err, ErrTokenRevoked) {
				t.Errorf("unexpected validate error: %v", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		te.Logout(ctx, res.RefreshToken)
	}()
	wg.Wait()

	if _, err := te.ValidateAccess(ctx, res.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout, got %v", err)
	}
}

func TestNilEngineIsNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.ValidateAccess(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, _, err := e.Login(context.Background(), "a", "b"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
