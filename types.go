package authgate

import (
	"context"
	"io"
	"time"

	"github.com/go-logr/logr"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/flows"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	AccountActive AccountStatus = iota
	AccountDisabled
)

// Identity is the caller-visible summary of a user. The user store owns it;
// the engine only reads it.
type Identity struct {
	UserID     string
	Identifier string
	Profile    map[string]string
}

// Session describes one login. It is never stored: its lifetime is carried
// by the two tokens, and its end is marked by a revocation record.
type Session struct {
	SessionID        string
	UserID           string
	IssuedAt         time.Time
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuthResult is returned by [Engine.ValidateAccess].
type AuthResult struct {
	UserID    string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LoginResult is returned by [Engine.LoginWithResult] and [Engine.Refresh].
type LoginResult struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
	Session      Session
}

// RegisterRequest is the input for [Engine.Register]. Profile is stored as
// given; keys must be non-empty.
type RegisterRequest struct {
	Identifier string
	Password   string
	Profile    map[string]string
}

// UserRecord is the full account record exchanged with [UserProvider].
type UserRecord struct {
	UserID       string
	Identifier   string
	PasswordHash string
	Status       AccountStatus
	Profile      map[string]string
}

// CreateUserInput is the input for [UserProvider.CreateUser].
type CreateUserInput struct {
	Identifier   string
	PasswordHash string
	Status       AccountStatus
	Profile      map[string]string
}

// UserProvider is the user-store collaborator. authgate never defines the
// storage schema; it only needs these three operations.
//
// GetUserByIdentifier must return an error wrapping ErrProviderUserNotFound
// for unknown identifiers. CreateUser should return an error wrapping
// ErrProviderDuplicateIdentifier when it loses a uniqueness race. Any other
// error is reported to callers as ErrUnavailable.
type UserProvider interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	IdentifierExists(ctx context.Context, identifier string) (bool, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
}

// RevocationStore is the revocation ledger collaborator. Implementations in
// package revocation satisfy it.
//
// Revoke must be idempotent and report whether this call created the record.
// Entries may disappear only after ttl. Any error from IsRevoked makes
// validation fail closed with ErrUnavailable.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// AuditEvent is the audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards audit events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// LogSink writes audit events through a logr.Logger.
type LogSink = internalaudit.LogSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewLogSink(log logr.Logger) *LogSink {
	return internalaudit.NewLogSink(log)
}

// LogoutResult reports what a logout did internally.
type LogoutResult = flows.LogoutResult

// LogoutOutcome classifies a logout.
type LogoutOutcome = flows.LogoutOutcome

// TokenFailureKind classifies why a token was rejected.
type TokenFailureKind = flows.TokenFailureKind

const (
	LogoutNoToken        = flows.LogoutNoToken
	LogoutTokenRejected  = flows.LogoutTokenRejected
	LogoutRevoked        = flows.LogoutRevoked
	LogoutAlreadyRevoked = flows.LogoutAlreadyRevoked
	LogoutStoreFailure   = flows.LogoutStoreFailure
)
