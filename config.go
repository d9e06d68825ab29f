package authgate

import (
	"errors"
	"strings"
	"time"
)

// Config is the full engine configuration. Build it from DefaultConfig,
// adjust fields, and hand it to Builder.WithConfig. The engine keeps its own
// copy; later changes to the caller's value have no effect.
type Config struct {
	JWT        JWTConfig
	Revocation RevocationConfig
	Password   PasswordConfig
	Account    AccountConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds token lifetimes and signing key material.
//
// Key material is never logged and never returned by any engine method.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	// PrivateKey is the Ed25519 private key (raw 64 bytes or PEM) or the
	// HS256 secret.
	PrivateKey []byte
	// PublicKey is optional for Ed25519; it is derived from PrivateKey when empty.
	PublicKey []byte
	Issuer    string
	Audience  string
	// Leeway tolerates clock skew on exp/iat/nbf checks.
	Leeway time.Duration
	// KeyID is stamped into the "kid" header. With VerifyKeys set, tokens are
	// verified by kid, which allows a rotation window with several public keys.
	KeyID      string
	VerifyKeys map[string][]byte
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig controls how long revocation records are retained and
// how long the engine waits for the revocation store.
type RevocationConfig struct {
	RedisPrefix string
	// RetentionTTL bounds how long a revoked session id is remembered. It
	// must cover the longest refresh-token lifetime. Zero derives
	// JWT.RefreshTTL + JWT.Leeway.
	RetentionTTL time.Duration
	// OperationTimeout bounds every store call. Zero means no extra bound
	// beyond the caller's context.
	OperationTimeout time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id cost parameters and the secret length policy.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	MaxLength   int
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig bounds registration input.
type AccountConfig struct {
	MaxIdentifierLength int
	MaxProfileFields    int
	MaxProfileValueLen  int
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults: Ed25519 signing, 5 minute
// access tokens, 7 day refresh tokens. Key material must still be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
		},
		Revocation: RevocationConfig{
			RedisPrefix:      "rv",
			OperationTimeout: 2 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   1,
			MaxLength:   1024,
		},
		Account: AccountConfig{
			MaxIdentifierLength: 150,
			MaxProfileFields:    16,
			MaxProfileValueLen:  256,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// retentionTTL resolves the effective revocation retention.
func (c *Config) retentionTTL() time.Duration {
	if c.Revocation.RetentionTTL > 0 {
		return c.Revocation.RetentionTTL
	}
	return c.JWT.RefreshTTL + c.JWT.Leeway
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks structural consistency. It does not parse key material;
// Builder.Build does that and reports ErrSigningKey.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must be shorter than RefreshTTL")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if len(c.JWT.PrivateKey) == 0 {
		return errors.New("JWT PrivateKey is required")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}
	if c.JWT.KeyID != strings.TrimSpace(c.JWT.KeyID) {
		return errors.New("JWT KeyID must not have surrounding whitespace")
	}

	// Revocation
	if strings.TrimSpace(c.Revocation.RedisPrefix) == "" {
		return errors.New("Revocation RedisPrefix must not be empty")
	}
	if c.Revocation.RetentionTTL < 0 {
		return errors.New("Revocation RetentionTTL must be >= 0")
	}
	if c.Revocation.RetentionTTL > 0 && c.Revocation.RetentionTTL < c.JWT.RefreshTTL {
		return errors.New("Revocation RetentionTTL must be >= JWT RefreshTTL")
	}
	if c.Revocation.OperationTimeout < 0 {
		return errors.New("Revocation OperationTimeout must be >= 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}

	// Account
	if c.Account.MaxIdentifierLength <= 0 {
		return errors.New("Account MaxIdentifierLength must be > 0")
	}
	if c.Account.MaxProfileFields < 0 || c.Account.MaxProfileValueLen < 0 {
		return errors.New("Account profile limits must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
