package password

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newHasher(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	hasher, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	return hasher
}

func TestHashAndVerify(t *testing.T) {
	hasher := newHasher(t, testConfig())

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("P@ssw0rd-Ascii", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification to succeed")
	}
}

func TestShortSecretAcceptedByDefault(t *testing.T) {
	hasher := newHasher(t, testConfig())

	hash, err := hasher.Hash("pw1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	ok, err := hasher.Verify("pw1", hash)
	if err != nil || !ok {
		t.Fatalf("Verify failed: ok=%v err=%v", ok, err)
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	hasher := newHasher(t, testConfig())

	hash, err := hasher.Hash("correct-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := hasher.Verify("wrong-password", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password verification to fail")
	}
}

func TestVerifyAcrossParameterChange(t *testing.T) {
	oldHasher := newHasher(t, testConfig())
	hash, err := oldHasher.Hash("rotated-params")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cfg := testConfig()
	cfg.Time = 2
	newHasher := newHasher(t, cfg)

	ok, err := newHasher.Verify("rotated-params", hash)
	if err != nil || !ok {
		t.Fatalf("expected hash from older params to verify: ok=%v err=%v", ok, err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := newHasher(t, testConfig())

	_, err := hasher.Verify("password", "not-a-phc-hash")
	if !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}

func TestVerifyWrongVersion(t *testing.T) {
	hasher := newHasher(t, testConfig())

	hash, err := hasher.Hash("version-test")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	wrongVersion := strings.Replace(hash, "$v=19$", "$v=18$", 1)
	if _, err := hasher.Verify("version-test", wrongVersion); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}

func TestHashEmptyPassword(t *testing.T) {
	hasher := newHasher(t, testConfig())

	if _, err := hasher.Hash(""); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
}

func TestHashBelowConfiguredMinimum(t *testing.T) {
	cfg := testConfig()
	cfg.MinPasswordBytes = 10
	hasher := newHasher(t, cfg)

	if _, err := hasher.Hash("short"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if err := hasher.CheckPolicy("long-enough-secret"); err != nil {
		t.Fatalf("CheckPolicy: %v", err)
	}
}

func TestHashTooLongPasswordRejected(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPasswordBytes = 64
	hasher := newHasher(t, cfg)

	if _, err := hasher.Hash(strings.Repeat("a", 65)); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}

	exact := strings.Repeat("b", 64)
	hash, err := hasher.Hash(exact)
	if err != nil {
		t.Fatalf("expected exactly-max password to be accepted: %v", err)
	}
	ok, err := hasher.Verify(exact, hash)
	if err != nil || !ok {
		t.Fatalf("Verify failed for max-length password: ok=%v err=%v", ok, err)
	}

	if _, err := hasher.Verify(strings.Repeat("c", 65), hash); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected oversized verify to fail fast, got %v", err)
	}
}

func TestDefaultMaxPasswordBytesApplied(t *testing.T) {
	hasher := newHasher(t, testConfig())

	if _, err := hasher.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1)); err == nil {
		t.Fatalf("expected password > %d bytes to be rejected", DefaultMaxPasswordBytes)
	}
	if _, err := hasher.Hash(strings.Repeat("e", DefaultMaxPasswordBytes)); err != nil {
		t.Fatalf("expected password of exactly %d bytes to be accepted: %v", DefaultMaxPasswordBytes, err)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	cfg := testConfig()
	cfg.Memory = 1024
	if _, err := NewArgon2(cfg); err == nil {
		t.Fatal("expected low memory config to fail")
	}

	cfg = testConfig()
	cfg.MinPasswordBytes = 20
	cfg.MaxPasswordBytes = 10
	if _, err := NewArgon2(cfg); err == nil {
		t.Fatal("expected max < min to fail")
	}
}

func TestVerifyDummyCostsLikeVerify(t *testing.T) {
	hasher := newHasher(t, testConfig())
	hash, err := hasher.Hash("timing-secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	const rounds = 5
	start := time.Now()
	for i := 0; i < rounds; i++ {
		_, _ = hasher.Verify("wrong", hash)
	}
	real := time.Since(start)

	start = time.Now()
	for i := 0; i < rounds; i++ {
		hasher.VerifyDummy("wrong")
	}
	dummy := time.Since(start)

	// Loose bound: the dummy path must do argon2 work, not return instantly.
	if dummy < real/10 {
		t.Fatalf("dummy verification too fast: dummy=%v real=%v", dummy, real)
	}
}
