package authgate

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/flows"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/password"
	"github.com/MrEthical07/authgate/revocation"
)

// Builder assembles an Engine. A Builder can be used for one Build only.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	revocationStore RevocationStore
	userProvider    UserProvider
	auditSink       AuditSink
	log             logr.Logger
	now             func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		log:    logr.Discard(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs revocation with a revocation.RedisStore on client, using
// Config.Revocation for key prefix and per-call timeout. It is ignored when
// WithRevocationStore is also set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRevocationStore injects a custom revocation ledger.
func (b *Builder) WithRevocationStore(store RevocationStore) *Builder {
	b.revocationStore = store
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink sets the sink behind the async audit dispatcher. Audit must
// also be enabled in Config.Audit.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(log logr.Logger) *Builder {
	b.log = log
	return b
}

// WithClock overrides the time source for issuing and validating tokens.
// Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, loads the signing key and wires every
// flow. Unusable key material fails here with ErrSigningKey so that a
// misconfigured process never starts serving.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- REVOCATION STORE --------
	store := b.revocationStore
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("revocation store or redis client required")
		}
		store = revocation.NewRedisStore(b.redis, revocation.RedisConfig{
			Prefix:  cfg.Revocation.RedisPrefix,
			Timeout: cfg.Revocation.OperationTimeout,
			Now:     now,
		})
	}

	// -------- KEYS --------
	jm, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		RequireIAT:    true,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
		Now:           now,
	})
	if err != nil {
		if errors.Is(err, jwt.ErrSigningKey) {
			return nil, fmt.Errorf("%w: %v", ErrSigningKey, err)
		}
		return nil, err
	}

	ph, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MinPasswordBytes: cfg.Password.MinLength,
		MaxPasswordBytes: cfg.Password.MaxLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		jwtManager:   jm,
		passwordHash: ph,
		revocation:   store,
		userProvider: b.userProvider,
		log:          b.log.WithName("authgate"),
		now:          now,
		metrics:      NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}
	engine.flowService = flows.New(engine.flowDeps())

	b.built = true

	engine.log.V(1).Info("engine built",
		"signing_method", cfg.JWT.SigningMethod,
		"access_ttl", cfg.JWT.AccessTTL.String(),
		"refresh_ttl", cfg.JWT.RefreshTTL.String(),
		"retention_ttl", cfg.retentionTTL().String(),
	)

	return engine, nil
}
