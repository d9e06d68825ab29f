package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authgate/jwt"
)

// TokenFailureKind classifies token validation failures in check order.
type TokenFailureKind int

const (
	TokenFailureNone TokenFailureKind = iota
	TokenFailureMalformed
	TokenFailureBadSignature
	TokenFailureWrongType
	TokenFailureExpired
	TokenFailureRevoked
	TokenFailureUnavailable
	// TokenFailureIssue is only produced by refresh, when minting the new
	// access token fails.
	TokenFailureIssue
)

func (k TokenFailureKind) String() string {
	switch k {
	case TokenFailureNone:
		return "none"
	case TokenFailureMalformed:
		return "malformed"
	case TokenFailureBadSignature:
		return "bad_signature"
	case TokenFailureWrongType:
		return "wrong_token_type"
	case TokenFailureExpired:
		return "expired"
	case TokenFailureRevoked:
		return "revoked"
	case TokenFailureUnavailable:
		return "backend_unavailable"
	case TokenFailureIssue:
		return "issue_failed"
	default:
		return "unknown"
	}
}

// ValidateDeps captures token validation dependencies.
type ValidateDeps struct {
	Parse     func(token string, expected jwt.TokenType) (*jwt.Claims, error)
	IsRevoked func(ctx context.Context, sessionID string) (bool, error)
}

type ValidateResult struct {
	Failure TokenFailureKind
	Err     error
	Claims  *jwt.Claims
}

// RunValidate checks signature, token type, expiry and then revocation,
// stopping at the first failure. A revocation store error fails closed.
func RunValidate(ctx context.Context, token string, expected jwt.TokenType, deps ValidateDeps) ValidateResult {
	if token == "" {
		return ValidateResult{Failure: TokenFailureMalformed, Err: errors.New("empty token")}
	}

	claims, err := deps.Parse(token, expected)
	if err != nil {
		return ValidateResult{Failure: classifyParseError(err), Err: err}
	}

	revoked, err := deps.IsRevoked(ctx, claims.SID)
	if err != nil {
		return ValidateResult{Failure: TokenFailureUnavailable, Err: err, Claims: claims}
	}
	if revoked {
		return ValidateResult{Failure: TokenFailureRevoked, Claims: claims}
	}

	return ValidateResult{Claims: claims}
}

func classifyParseError(err error) TokenFailureKind {
	switch {
	case errors.Is(err, jwt.ErrBadSignature):
		return TokenFailureBadSignature
	case errors.Is(err, jwt.ErrWrongType):
		return TokenFailureWrongType
	case errors.Is(err, jwt.ErrExpired):
		return TokenFailureExpired
	default:
		return TokenFailureMalformed
	}
}
