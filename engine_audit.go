package authgate

import (
	"context"
)

const (
	auditEventRegisterSuccess  = "register_success"
	auditEventRegisterFailure  = "register_failure"
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventRefreshSuccess   = "refresh_success"
	auditEventRefreshFailure   = "refresh_failure"
	auditEventLogout           = "logout"
	auditEventSessionRevoked   = "session_revoked"
	auditEventRevokedTokenUsed = "revoked_token_used"
)

const (
	auditReasonValidation  = "validation"
	auditReasonDuplicate   = "duplicate"
	auditReasonUnavailable = "backend_unavailable"
	auditReasonIssue       = "issue_failed"
	auditReasonRevoked     = "revoked"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	reason string,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	e.audit.Emit(ctx, AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Reason:    reason,
		Metadata:  metadata,
	})
}
