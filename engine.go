package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/MrEthical07/authgate/internal"
	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/flows"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/password"
)

// Engine runs the session lifecycle: register, login, refresh, logout and
// access-token validation. It is safe for concurrent use once built; the
// only shared mutable state lives in the revocation store.
type Engine struct {
	config       Config
	jwtManager   *jwt.Manager
	passwordHash *password.Argon2
	revocation   RevocationStore
	userProvider UserProvider
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	log          logr.Logger
	now          func() time.Time
	flowService  flows.Service
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.flowService.Initialized()
}

/*
====================================
REGISTER
====================================
*/

// Register creates an account and returns its identity.
//
// Failures: ErrValidation for a malformed identifier, secret or profile;
// ErrDuplicateIdentifier when the identifier is taken; ErrUnavailable when
// the user store fails.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (Identity, error) {
	if !e.ready() {
		return Identity{}, ErrEngineNotReady
	}

	res := e.flowService.Register(ctx, flows.RegisterRequest{
		Identifier: req.Identifier,
		Secret:     req.Password,
		Profile:    req.Profile,
	})

	switch res.Failure {
	case flows.RegisterFailureNone:
		e.metricInc(MetricRegisterSuccess)
		e.emitAudit(ctx, auditEventRegisterSuccess, true, res.User.UserID, "", "", nil)
		return identityFromFlow(res.User), nil
	case flows.RegisterFailureInvalid:
		e.metricInc(MetricRegisterInvalid)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", auditReasonValidation, nil)
		return Identity{}, fmt.Errorf("%w: %v", ErrValidation, res.Err)
	case flows.RegisterFailureDuplicate:
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", auditReasonDuplicate, nil)
		return Identity{}, ErrDuplicateIdentifier
	default:
		e.log.Error(res.Err, "register: user store unavailable")
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", auditReasonUnavailable, nil)
		return Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, res.Err)
	}
}

/*
====================================
LOGIN
====================================
*/

// Login verifies credentials and returns a new access and refresh token pair.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (string, string, error) {
	result, err := e.LoginWithResult(ctx, identifier, secret)
	if err != nil {
		return "", "", err
	}
	return result.AccessToken, result.RefreshToken, nil
}

// LoginWithResult is Login plus the identity and session metadata.
//
// Every credential failure (unknown identifier, wrong secret, inactive
// account) is returned as ErrUnauthorized. The exact cause is recorded in
// logs and audit events only.
func (e *Engine) LoginWithResult(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flowService.Login(ctx, identifier, secret)

	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureCredentials:
		e.metricInc(MetricLoginFailure)
		e.log.V(1).Info("login rejected", "reason", res.Verify.String(), "user_id", res.User.UserID)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.User.UserID, "", res.Verify.String(), nil)
		return nil, ErrUnauthorized
	case flows.LoginFailureUnavailable:
		e.metricInc(MetricLoginUnavailable)
		e.log.Error(res.Err, "login: user store unavailable")
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", auditReasonUnavailable, nil)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, res.Err)
	default:
		e.log.Error(res.Err, "login: token issue failed", "user_id", res.User.UserID)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.User.UserID, "", auditReasonIssue, nil)
		return nil, e.issueError(res.Err)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.User.UserID, res.Session.SessionID, "", nil)

	return &LoginResult{
		Identity:     identityFromFlow(res.User),
		AccessToken:  res.Session.AccessToken,
		RefreshToken: res.Session.RefreshToken,
		Session: Session{
			SessionID:        res.Session.SessionID,
			UserID:           res.Session.UserID,
			IssuedAt:         res.Session.IssuedAt,
			AccessExpiresAt:  res.Session.AccessExpiresAt,
			RefreshExpiresAt: res.Session.RefreshExpiresAt,
		},
	}, nil
}

/*
====================================
VALIDATE
====================================
*/

// ValidateAccess verifies an access token and returns the bound user and
// session. Checks run in order: signature, token type, expiry, revocation.
//
// A revocation store failure returns ErrUnavailable; the token is never
// accepted when revocation status is unknown.
func (e *Engine) ValidateAccess(ctx context.Context, token string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	res := e.flowService.Validate(ctx, token)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	if res.Failure != flows.TokenFailureNone {
		e.metricInc(MetricValidateFailure)
		return nil, e.tokenFailure(ctx, res.Failure, res.Err, res.Claims)
	}

	e.metricInc(MetricValidateSuccess)
	return authResultFromClaims(res.Claims), nil
}

/*
====================================
REFRESH
====================================
*/

// Refresh exchanges a valid refresh token for a new access token in the
// same session. The refresh token is returned unchanged; the new access
// token never outlives it.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flowService.Refresh(ctx, refreshToken)
	if res.Failure != flows.TokenFailureNone {
		e.metricInc(MetricRefreshFailure)
		uid, sid := claimIDs(res.Claims)
		e.emitAudit(ctx, auditEventRefreshFailure, false, uid, sid, res.Failure.String(), nil)
		if res.Failure == flows.TokenFailureIssue {
			e.log.Error(res.Err, "refresh: token issue failed", "session_id", sid)
			return nil, e.issueError(res.Err)
		}
		return nil, e.tokenFailure(ctx, res.Failure, res.Err, res.Claims)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.Claims.UID, res.Claims.SID, "", nil)

	return &LoginResult{
		Identity:     Identity{UserID: res.Claims.UID},
		AccessToken:  res.AccessToken,
		RefreshToken: refreshToken,
		Session: Session{
			SessionID:        res.Claims.SID,
			UserID:           res.Claims.UID,
			IssuedAt:         res.IssuedAt,
			AccessExpiresAt:  res.AccessExpiresAt,
			RefreshExpiresAt: res.RefreshExpiresAt,
		},
	}, nil
}

/*
====================================
LOGOUT
====================================
*/

// Logout revokes the session named by refreshToken. It always succeeds from
// the caller's point of view: a missing, invalid or expired token and a
// revocation store failure are all logged and audited, never returned.
func (e *Engine) Logout(ctx context.Context, refreshToken string) {
	_ = e.LogoutWithResult(ctx, refreshToken)
}

// LogoutWithResult is Logout with the internal outcome exposed, for callers
// that want to record it. The external contract is unchanged: logout never
// fails.
func (e *Engine) LogoutWithResult(ctx context.Context, refreshToken string) LogoutResult {
	if !e.ready() {
		return LogoutResult{Outcome: LogoutStoreFailure, Err: ErrEngineNotReady}
	}

	res := e.flowService.Logout(ctx, refreshToken)

	meta := func() map[string]string {
		m := map[string]string{"outcome": res.Outcome.String()}
		if res.Outcome == flows.LogoutTokenRejected {
			m["rejection"] = res.Rejection.String()
		}
		return m
	}

	switch res.Outcome {
	case flows.LogoutRevoked:
		e.metricInc(MetricLogout)
		e.metricInc(MetricSessionRevoked)
		e.log.V(1).Info("session revoked", "session_id", res.SessionID, "user_id", res.UserID)
		e.emitAudit(ctx, auditEventSessionRevoked, true, res.UserID, res.SessionID, "", meta)
	case flows.LogoutAlreadyRevoked:
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, auditEventLogout, true, res.UserID, res.SessionID, "", meta)
	case flows.LogoutStoreFailure:
		e.metricInc(MetricLogoutStoreFailure)
		e.metricInc(MetricRevocationStoreError)
		e.log.Error(res.Err, "logout: revocation store failure, session stays active until expiry", "session_id", res.SessionID)
		e.emitAudit(ctx, auditEventLogout, false, res.UserID, res.SessionID, auditReasonUnavailable, meta)
	default:
		e.metricInc(MetricLogoutNoop)
		e.log.V(1).Info("logout without usable token", "outcome", res.Outcome.String())
		e.emitAudit(ctx, auditEventLogout, true, "", "", "", meta)
	}

	return res
}

/*
====================================
HELPERS
====================================
*/

func (e *Engine) tokenFailure(ctx context.Context, kind flows.TokenFailureKind, cause error, claims *jwt.Claims) error {
	switch kind {
	case flows.TokenFailureMalformed:
		return ErrTokenMalformed
	case flows.TokenFailureBadSignature:
		return ErrTokenBadSignature
	case flows.TokenFailureWrongType:
		return ErrWrongTokenType
	case flows.TokenFailureExpired:
		return ErrTokenExpired
	case flows.TokenFailureRevoked:
		e.metricInc(MetricValidateRevoked)
		uid, sid := claimIDs(claims)
		e.emitAudit(ctx, auditEventRevokedTokenUsed, false, uid, sid, auditReasonRevoked, nil)
		return ErrTokenRevoked
	case flows.TokenFailureUnavailable:
		e.metricInc(MetricRevocationStoreError)
		_, sid := claimIDs(claims)
		e.log.Error(cause, "revocation lookup failed, rejecting token", "session_id", sid)
		return fmt.Errorf("%w: %v", ErrUnavailable, cause)
	default:
		return ErrTokenMalformed
	}
}

func (e *Engine) issueError(err error) error {
	if errors.Is(err, jwt.ErrSigningKey) {
		return fmt.Errorf("%w: %v", ErrSigningKey, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (e *Engine) lookupUser(ctx context.Context, identifier string) (flows.UserRecord, bool, error) {
	id, err := normalizeIdentifier(identifier, e.config.Account.MaxIdentifierLength)
	if err != nil {
		// cannot exist; still costs a dummy verification upstream
		return flows.UserRecord{}, false, nil
	}
	user, err := e.userProvider.GetUserByIdentifier(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProviderUserNotFound) {
			return flows.UserRecord{}, false, nil
		}
		return flows.UserRecord{}, false, err
	}
	return flowUserFromRecord(user), true, nil
}

func (e *Engine) createUser(ctx context.Context, in flows.CreateUserInput) (flows.UserRecord, error) {
	user, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		Identifier:   in.Identifier,
		PasswordHash: in.PasswordHash,
		Status:       AccountActive,
		Profile:      in.Profile,
	})
	if err != nil {
		return flows.UserRecord{}, err
	}
	return flowUserFromRecord(user), nil
}

func (e *Engine) newSessionID() (string, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return "", err
	}
	return sid.String(), nil
}

func (e *Engine) flowDeps() flows.Deps {
	issue := flows.IssueDeps{
		Now:          e.now,
		AccessTTL:    e.config.JWT.AccessTTL,
		RefreshTTL:   e.config.JWT.RefreshTTL,
		NewSessionID: e.newSessionID,
		CreateToken:  e.jwtManager.CreateToken,
	}
	validate := flows.ValidateDeps{
		Parse:     e.jwtManager.Parse,
		IsRevoked: e.revocation.IsRevoked,
	}

	return flows.Deps{
		Register: flows.RegisterDeps{
			NormalizeIdentifier: func(s string) (string, error) {
				return normalizeIdentifier(s, e.config.Account.MaxIdentifierLength)
			},
			CheckSecret:      e.passwordHash.CheckPolicy,
			CheckProfile:     e.checkProfile,
			IdentifierExists: e.userProvider.IdentifierExists,
			HashSecret:       e.passwordHash.Hash,
			CreateUser:       e.createUser,
			ErrDuplicate:     ErrProviderDuplicateIdentifier,
		},
		Login: flows.LoginDeps{
			Verify: flows.VerifyDeps{
				LookupUser:     e.lookupUser,
				VerifyPassword: e.passwordHash.Verify,
				VerifyDummy:    e.passwordHash.VerifyDummy,
			},
			Issue: issue,
		},
		Validate: validate,
		Refresh: flows.RefreshDeps{
			Validate:    validate,
			Now:         e.now,
			AccessTTL:   e.config.JWT.AccessTTL,
			CreateToken: e.jwtManager.CreateToken,
		},
		Logout: flows.LogoutDeps{
			Parse:        e.jwtManager.Parse,
			Revoke:       e.revocation.Revoke,
			RetentionTTL: e.config.retentionTTL(),
		},
	}
}

func identityFromFlow(u flows.UserRecord) Identity {
	profile := make(map[string]string, len(u.Profile))
	for k, v := range u.Profile {
		profile[k] = v
	}
	return Identity{
		UserID:     u.UserID,
		Identifier: u.Identifier,
		Profile:    profile,
	}
}

func flowUserFromRecord(u UserRecord) flows.UserRecord {
	return flows.UserRecord{
		UserID:       u.UserID,
		Identifier:   u.Identifier,
		PasswordHash: u.PasswordHash,
		Active:       u.Status == AccountActive,
		Profile:      u.Profile,
	}
}

func authResultFromClaims(c *jwt.Claims) *AuthResult {
	out := &AuthResult{
		UserID:    c.UID,
		SessionID: c.SID,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}

func claimIDs(c *jwt.Claims) (string, string) {
	if c == nil {
		return "", ""
	}
	return c.UID, c.SID
}
