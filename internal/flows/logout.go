package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authgate/jwt"
)

// LogoutOutcome records what logout actually did. Callers always see
// success; the outcome feeds logs, metrics and audit.
type LogoutOutcome int

const (
	LogoutNoToken LogoutOutcome = iota
	LogoutTokenRejected
	LogoutRevoked
	LogoutAlreadyRevoked
	LogoutStoreFailure
)

func (o LogoutOutcome) String() string {
	switch o {
	case LogoutNoToken:
		return "no_token"
	case LogoutTokenRejected:
		return "token_rejected"
	case LogoutRevoked:
		return "revoked"
	case LogoutAlreadyRevoked:
		return "already_revoked"
	case LogoutStoreFailure:
		return "store_failure"
	default:
		return "unknown"
	}
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Parse        func(token string, expected jwt.TokenType) (*jwt.Claims, error)
	Revoke       func(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	RetentionTTL time.Duration
}

type LogoutResult struct {
	Outcome LogoutOutcome
	// Rejection is set when Outcome is LogoutTokenRejected.
	Rejection TokenFailureKind
	Err       error
	UserID    string
	SessionID string
}

// RunLogout revokes the session named by a refresh token. Missing or
// unparseable tokens are tolerated. Revocation is keyed by session id, so
// the access tokens of that session are rejected from then on too.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	if refreshToken == "" {
		return LogoutResult{Outcome: LogoutNoToken}
	}

	claims, err := deps.Parse(refreshToken, jwt.TokenRefresh)
	if err != nil {
		return LogoutResult{Outcome: LogoutTokenRejected, Rejection: classifyParseError(err), Err: err}
	}
	if claims.SID == "" {
		return LogoutResult{Outcome: LogoutTokenRejected, Rejection: TokenFailureMalformed, Err: errors.New("missing sid")}
	}

	result := LogoutResult{UserID: claims.UID, SessionID: claims.SID}

	created, err := deps.Revoke(ctx, claims.SID, deps.RetentionTTL)
	switch {
	case err != nil:
		result.Outcome = LogoutStoreFailure
		result.Err = err
	case created:
		result.Outcome = LogoutRevoked
	default:
		result.Outcome = LogoutAlreadyRevoked
	}
	return result
}
