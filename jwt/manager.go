package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the signature scheme used for every token the
// manager mints.
type SigningMethod string

const (
	// MethodEd25519 signs with an Ed25519 key pair (EdDSA).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a shared HMAC-SHA256 secret.
	MethodHS256 SigningMethod = "hs256"
)

// TokenType is carried in the "typ" claim and distinguishes access tokens
// from refresh tokens signed with the same key.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Parse failures, in the order Parse checks them.
var (
	ErrMalformed    = errors.New("token malformed")
	ErrBadSignature = errors.New("token signature invalid")
	ErrWrongType    = errors.New("token type mismatch")
	ErrExpired      = errors.New("token expired")
)

// ErrSigningKey is returned when the configured key material cannot sign.
var ErrSigningKey = errors.New("signing key unavailable")

const minHS256KeyBytes = 16

// Config holds the immutable key material and claim policy of a Manager.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
	Now           func() time.Time
}

// Manager signs and verifies access and refresh tokens.
//
// A Manager is built once at startup and never mutated afterwards, so it is
// safe for concurrent use.
type Manager struct {
	config  Config
	signKey interface{}
}

// Claims is the payload of both token types.
type Claims struct {
	UID  string    `json:"uid"`
	SID  string    `json:"sid"`
	Type TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and resolves the signing key up front. Any key
// problem surfaces here as ErrSigningKey rather than on the first request.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{config: cfg}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < minHS256KeyBytes {
			return nil, fmt.Errorf("%w: hs256 requires a secret of at least %d bytes", ErrSigningKey, minHS256KeyBytes)
		}
		m.signKey = cfg.PrivateKey
	case MethodEd25519:
		if len(cfg.PrivateKey) == 0 {
			return nil, fmt.Errorf("%w: ed25519 requires a private key", ErrSigningKey)
		}
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSigningKey, err)
		}
		m.signKey = priv
		if len(cfg.PublicKey) == 0 {
			m.config.PublicKey = priv.Public().(ed25519.PublicKey)
		} else if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return m, nil
}

// CreateToken signs a token of the given type bound to uid and sid.
func (j *Manager) CreateToken(typ TokenType, uid, sid string, issuedAt, expiresAt time.Time) (string, error) {
	if typ != TokenAccess && typ != TokenRefresh {
		return "", fmt.Errorf("unknown token type %q", typ)
	}
	if !expiresAt.After(issuedAt) {
		return "", errors.New("token expiry must be after issue time")
	}

	claims := Claims{
		UID:  uid,
		SID:  sid,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    j.config.Issuer,
		},
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	token := jwt.NewWithClaims(j.getMethod(), claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}

	if j.signKey == nil {
		return "", ErrSigningKey
	}
	signed, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningKey, err)
	}
	return signed, nil
}

// Parse verifies tokenStr and checks it against expected.
//
// Checks run in a fixed order and stop at the first failure: signature
// (ErrMalformed / ErrBadSignature), token type (ErrWrongType), then
// time-based claims (ErrExpired). Issuer and audience mismatches are
// reported as ErrMalformed. Revocation is not consulted here.
func (j *Manager) Parse(tokenStr string, expected TokenType) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{j.getMethod().Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, j.keyFunc)
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	if claims.UID == "" || claims.SID == "" {
		return nil, fmt.Errorf("%w: missing uid or sid", ErrMalformed)
	}

	if claims.Type != expected {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongType, claims.Type, expected)
	}

	if err := j.validator().Validate(claims); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if claims.IssuedAt != nil && j.config.MaxFutureIAT > 0 {
		maxAllowed := j.config.Now().Add(j.config.MaxFutureIAT)
		if claims.IssuedAt.Time.After(maxAllowed) {
			return nil, fmt.Errorf("%w: iat too far in the future", ErrMalformed)
		}
	}

	return claims, nil
}

func (j *Manager) validator() *jwt.Validator {
	options := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.config.Now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}
	return jwt.NewValidator(options...)
}

func (j *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != j.getMethod().Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	if len(j.config.VerifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := j.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return j.keyBytesToVerifyKey(key)
	}

	if j.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		if kid != j.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}

	return j.keyBytesToVerifyKey(j.verifyKeyBytes())
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func (j *Manager) getMethod() jwt.SigningMethod {
	switch j.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (j *Manager) verifyKeyBytes() []byte {
	if j.config.SigningMethod == MethodHS256 {
		return j.config.PrivateKey
	}
	return j.config.PublicKey
}

func (j *Manager) keyBytesToVerifyKey(key []byte) (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return key, nil
	default:
		return parseEdPublicKey(key)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
