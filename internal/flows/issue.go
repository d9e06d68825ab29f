package flows

import (
	"errors"
	"time"

	"github.com/MrEthical07/authgate/jwt"
)

// IssueDeps captures token issuing dependencies.
type IssueDeps struct {
	Now          func() time.Time
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	NewSessionID func() (string, error)
	CreateToken  func(typ jwt.TokenType, uid, sid string, issuedAt, expiresAt time.Time) (string, error)
}

// IssuedSession is a freshly minted session and its token pair.
type IssuedSession struct {
	SessionID        string
	UserID           string
	IssuedAt         time.Time
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	AccessToken      string
	RefreshToken     string
}

// RunIssue mints a new session id and signs an access and a refresh token
// bound to it. Nothing is persisted: an un-revoked session needs no state.
func RunIssue(userID string, deps IssueDeps) (IssuedSession, error) {
	if userID == "" {
		return IssuedSession{}, errors.New("issue: empty user id")
	}

	sid, err := deps.NewSessionID()
	if err != nil {
		return IssuedSession{}, err
	}

	// Whole seconds: exp and iat are NumericDate seconds on the wire.
	now := deps.Now().Truncate(time.Second)
	sess := IssuedSession{
		SessionID:        sid,
		UserID:           userID,
		IssuedAt:         now,
		AccessExpiresAt:  now.Add(deps.AccessTTL),
		RefreshExpiresAt: now.Add(deps.RefreshTTL),
	}

	sess.AccessToken, err = deps.CreateToken(jwt.TokenAccess, userID, sid, now, sess.AccessExpiresAt)
	if err != nil {
		return IssuedSession{}, err
	}
	sess.RefreshToken, err = deps.CreateToken(jwt.TokenRefresh, userID, sid, now, sess.RefreshExpiresAt)
	if err != nil {
		return IssuedSession{}, err
	}

	return sess, nil
}
