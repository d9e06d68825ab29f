package authgate

import "errors"

// Caller-facing failures. Match with errors.Is; the wrapped cause (if any)
// is for logs and audit only.
var (
	// ErrValidation reports malformed input the caller must fix.
	ErrValidation = errors.New("validation error")
	// ErrDuplicateIdentifier reports that the identifier is already registered.
	ErrDuplicateIdentifier = errors.New("identifier already registered")
	// ErrUnauthorized is the single login failure seen by callers.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable reports a transient user-store or revocation-store failure.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrSigningKey reports unusable key material. Build returns it; requests never do.
	ErrSigningKey = errors.New("signing key unavailable")
	// ErrEngineNotReady is returned by methods on a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Token validation failures.
var (
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrWrongTokenType    = errors.New("wrong token type")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenRevoked      = errors.New("session revoked")
)

// Credential verification causes. Login collapses these into ErrUnauthorized;
// they surface through audit events and LoginWithResult.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrBadCredential   = errors.New("bad credential")
	ErrAccountInactive = errors.New("account inactive")
)

// ErrProviderDuplicateIdentifier may be returned by UserProvider.CreateUser
// when it loses a uniqueness race; the engine maps it to ErrDuplicateIdentifier.
var ErrProviderDuplicateIdentifier = errors.New("provider duplicate identifier")

// ErrProviderUserNotFound is returned by UserProvider.GetUserByIdentifier for
// unknown identifiers. Any other provider error is treated as ErrUnavailable.
var ErrProviderUserNotFound = errors.New("provider user not found")
