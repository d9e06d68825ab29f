package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authgate/jwt"
)

// RefreshDeps captures access-token renewal dependencies.
type RefreshDeps struct {
	Validate    ValidateDeps
	Now         func() time.Time
	AccessTTL   time.Duration
	CreateToken func(typ jwt.TokenType, uid, sid string, issuedAt, expiresAt time.Time) (string, error)
}

type RefreshResult struct {
	Failure          TokenFailureKind
	Err              error
	Claims           *jwt.Claims
	AccessToken      string
	IssuedAt         time.Time
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// RunRefresh validates a refresh token like any other token and mints a new
// access token for the same session. The access expiry never passes the
// refresh token's expiry. The refresh token itself is not rotated.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	validated := RunValidate(ctx, refreshToken, jwt.TokenRefresh, deps.Validate)
	if validated.Failure != TokenFailureNone {
		return RefreshResult{Failure: validated.Failure, Err: validated.Err, Claims: validated.Claims}
	}
	claims := validated.Claims

	now := deps.Now().Truncate(time.Second)
	refreshExp := claims.ExpiresAt.Time
	accessExp := now.Add(deps.AccessTTL)
	if accessExp.After(refreshExp) {
		accessExp = refreshExp
	}
	if !accessExp.After(now) {
		// accepted only through leeway; nothing left to hand out
		return RefreshResult{Failure: TokenFailureExpired, Err: errors.New("refresh token at end of lifetime"), Claims: claims}
	}

	access, err := deps.CreateToken(jwt.TokenAccess, claims.UID, claims.SID, now, accessExp)
	if err != nil {
		return RefreshResult{Failure: TokenFailureIssue, Err: err, Claims: claims}
	}

	return RefreshResult{
		Claims:           claims,
		AccessToken:      access,
		IssuedAt:         now,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}
}
