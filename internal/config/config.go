// Package config loads server settings from the environment and an optional
// .env file using Viper, and maps them onto authgate.Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/MrEthical07/authgate"
)

// Config holds the authgate server settings.
type Config struct {
	// HTTPAddr is the listen address of the JSON API (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	// LogVerbosity is the stdr verbosity; 1 logs per-request lifecycle events.
	LogVerbosity int `mapstructure:"LOG_VERBOSITY"`

	// RedisAddr selects the Redis revocation store. Empty uses the in-process
	// store unless EmbeddedRedis is set.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	// EmbeddedRedis starts an in-process miniredis when RedisAddr is empty.
	EmbeddedRedis     bool          `mapstructure:"EMBEDDED_REDIS"`
	RevocationPrefix  string        `mapstructure:"REVOCATION_PREFIX"`
	RevocationTimeout time.Duration `mapstructure:"REVOCATION_TIMEOUT"`
	// RevocationRetention overrides how long revoked session ids are kept.
	// Zero keeps them for the refresh TTL plus leeway.
	RevocationRetention time.Duration `mapstructure:"REVOCATION_RETENTION"`

	// JWTSigningMethod is "ed25519" or "hs256".
	JWTSigningMethod string `mapstructure:"JWT_SIGNING_METHOD"`
	// JWTPrivateKey is a PEM Ed25519 private key, a path to one, or the HS256
	// secret. Never logged.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is optional for Ed25519; derived from the private key when empty.
	JWTPublicKey  string        `mapstructure:"JWT_PUBLIC_KEY"`
	JWTKeyID      string        `mapstructure:"JWT_KEY_ID"`
	JWTIssuer     string        `mapstructure:"JWT_ISSUER"`
	JWTAudience   string        `mapstructure:"JWT_AUDIENCE"`
	JWTAccessTTL  time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL time.Duration `mapstructure:"JWT_REFRESH_TTL"`
	JWTLeeway     time.Duration `mapstructure:"JWT_LEEWAY"`

	Argon2Memory      uint32 `mapstructure:"ARGON2_MEMORY"`
	Argon2Time        uint32 `mapstructure:"ARGON2_TIME"`
	Argon2Parallelism uint8  `mapstructure:"ARGON2_PARALLELISM"`
	PasswordMinLength int    `mapstructure:"PASSWORD_MIN_LENGTH"`

	// AuditSink is "none", "log" or "json" (JSON lines on stdout).
	AuditSink      string `mapstructure:"AUDIT_SINK"`
	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`

	// RefreshCookie also hands the refresh token out as an HttpOnly cookie.
	RefreshCookie bool `mapstructure:"REFRESH_COOKIE"`
	SecureCookies bool `mapstructure:"SECURE_COOKIES"`
}

// Load reads envFile (default ".env") if present, then the environment.
// Environment variables override the file.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}

	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", envFile, err)
		}
	}

	v.AutomaticEnv()

	lib := authgate.DefaultConfig()
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("LOG_VERBOSITY", 0)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("EMBEDDED_REDIS", false)
	v.SetDefault("REVOCATION_PREFIX", lib.Revocation.RedisPrefix)
	v.SetDefault("REVOCATION_TIMEOUT", lib.Revocation.OperationTimeout.String())
	v.SetDefault("REVOCATION_RETENTION", "0s")
	v.SetDefault("JWT_SIGNING_METHOD", lib.JWT.SigningMethod)
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_KEY_ID", "")
	v.SetDefault("JWT_ISSUER", "authgate")
	v.SetDefault("JWT_AUDIENCE", "")
	v.SetDefault("JWT_ACCESS_TTL", lib.JWT.AccessTTL.String())
	v.SetDefault("JWT_REFRESH_TTL", lib.JWT.RefreshTTL.String())
	v.SetDefault("JWT_LEEWAY", lib.JWT.Leeway.String())
	v.SetDefault("ARGON2_MEMORY", lib.Password.Memory)
	v.SetDefault("ARGON2_TIME", lib.Password.Time)
	v.SetDefault("ARGON2_PARALLELISM", lib.Password.Parallelism)
	v.SetDefault("PASSWORD_MIN_LENGTH", lib.Password.MinLength)
	v.SetDefault("AUDIT_SINK", "log")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("REFRESH_COOKIE", false)
	v.SetDefault("SECURE_COOKIES", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if strings.TrimSpace(c.JWTPrivateKey) == "" {
		return errors.New("config: JWT_PRIVATE_KEY must be set (see `authgate keygen`)")
	}
	switch c.AuditSink {
	case "none", "log", "json":
	default:
		return fmt.Errorf("config: AUDIT_SINK must be none, log or json, got %q", c.AuditSink)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("config: SHUTDOWN_TIMEOUT must be > 0")
	}
	return nil
}

// Engine maps the settings onto authgate.Config. Key material given as a
// file path is read here.
func (c *Config) Engine() (authgate.Config, error) {
	out := authgate.DefaultConfig()

	priv, err := loadKey(c.JWTPrivateKey)
	if err != nil {
		return authgate.Config{}, fmt.Errorf("config: JWT_PRIVATE_KEY: %w", err)
	}
	pub, err := loadKey(c.JWTPublicKey)
	if err != nil {
		return authgate.Config{}, fmt.Errorf("config: JWT_PUBLIC_KEY: %w", err)
	}

	out.JWT.SigningMethod = strings.ToLower(c.JWTSigningMethod)
	out.JWT.PrivateKey = priv
	out.JWT.PublicKey = pub
	out.JWT.KeyID = c.JWTKeyID
	out.JWT.Issuer = c.JWTIssuer
	out.JWT.Audience = c.JWTAudience
	out.JWT.AccessTTL = c.JWTAccessTTL
	out.JWT.RefreshTTL = c.JWTRefreshTTL
	out.JWT.Leeway = c.JWTLeeway

	out.Revocation.RedisPrefix = c.RevocationPrefix
	out.Revocation.OperationTimeout = c.RevocationTimeout
	out.Revocation.RetentionTTL = c.RevocationRetention

	out.Password.Memory = c.Argon2Memory
	out.Password.Time = c.Argon2Time
	out.Password.Parallelism = c.Argon2Parallelism
	out.Password.MinLength = c.PasswordMinLength

	out.Audit.Enabled = c.AuditSink != "none"
	out.Metrics.Enabled = c.MetricsEnabled
	out.Metrics.EnableLatencyHistograms = c.MetricsEnabled

	if err := out.Validate(); err != nil {
		return authgate.Config{}, fmt.Errorf("config: %w", err)
	}
	return out, nil
}

// loadKey accepts inline PEM, a path to a file, or a raw secret.
func loadKey(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if strings.HasPrefix(value, "-----BEGIN") {
		return []byte(strings.ReplaceAll(value, `\n`, "\n")), nil
	}
	if info, err := os.Stat(value); err == nil && !info.IsDir() {
		return os.ReadFile(value)
	}
	return []byte(value), nil
}
