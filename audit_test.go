package authgate

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{events: make(chan AuditEvent, buffer)}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// next returns the next event of the given type, skipping others.
func (s *captureSink) next(t *testing.T, eventType string) AuditEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-s.events:
			if ev.EventType == eventType {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %q audit event received", eventType)
			return AuditEvent{}
		}
	}
}

func auditConfig(t *testing.T) Config {
	cfg := testConfig(t)
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	cfg.Audit.DropIfFull = false
	return cfg
}

func withSink(sink AuditSink) testEngineOption {
	return func(b *Builder) { b.WithAuditSink(sink) }
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Enabled = false

	sink := &countingSink{}
	te := newTestEngine(t, cfg, withSink(sink))
	te.mustRegister(t, "alice", "pw1")
	_, _, _ = te.Login(context.Background(), "alice", "wrong")
	te.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditLoginFailureRecordsReasonAndClientInfo(t *testing.T) {
	sink := newCaptureSink(16)
	te := newTestEngine(t, auditConfig(t), withSink(sink))
	te.mustRegister(t, "alice", "pw1")

	ctx := WithUserAgent(WithClientIP(context.Background(), "198.51.100.33"), "curl/8.0")
	_, _, _ = te.Login(ctx, "alice", "super-secret-password")

	ev := sink.next(t, auditEventLoginFailure)
	if ev.Success {
		t.Fatal("expected failure event")
	}
	if ev.Reason != "bad_credential" {
		t.Fatalf("expected reason bad_credential, got %q", ev.Reason)
	}
	if ev.IP != "198.51.100.33" || ev.UserAgent != "curl/8.0" {
		t.Fatalf("expected client info, got ip=%q ua=%q", ev.IP, ev.UserAgent)
	}
	if ev.Timestamp.IsZero() {
		t.Fatal("expected timestamp")
	}
}

func TestAuditUnknownUserReasonIsNotFound(t *testing.T) {
	sink := newCaptureSink(16)
	te := newTestEngine(t, auditConfig(t), withSink(sink))

	_, _, _ = te.Login(context.Background(), "ghost", "pw1")

	ev := sink.next(t, auditEventLoginFailure)
	if ev.Reason != "user_not_found" {
		t.Fatalf("expected reason user_not_found, got %q", ev.Reason)
	}
	if ev.UserID != "" {
		t.Fatalf("expected no user id, got %q", ev.UserID)
	}
}

func TestAuditLogoutAndRevokedTokenUse(t *testing.T) {
	sink := newCaptureSink(32)
	te := newTestEngine(t, auditConfig(t), withSink(sink))
	te.mustRegister(t, "alice", "pw1")
	login := te.mustLogin(t, "alice", "pw1")
	ctx := context.Background()

	te.Logout(ctx, login.RefreshToken)
	revoked := sink.next(t, auditEventSessionRevoked)
	if revoked.SessionID != login.Session.SessionID || revoked.UserID != login.Identity.UserID {
		t.Fatalf("unexpected session_revoked event %+v", revoked)
	}
	if revoked.Metadata["outcome"] != "revoked" {
		t.Fatalf("expected outcome metadata, got %+v", revoked.Metadata)
	}

	te.Logout(ctx, "")
	noop := sink.next(t, auditEventLogout)
	if noop.Metadata["outcome"] != "no_token" {
		t.Fatalf("expected no_token outcome, got %+v", noop.Metadata)
	}

	_, _ = te.ValidateAccess(ctx, login.AccessToken)
	used := sink.next(t, auditEventRevokedTokenUsed)
	if used.SessionID != login.Session.SessionID {
		t.Fatalf("expected session id on revoked_token_used, got %q", used.SessionID)
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	sink := newCaptureSink(32)
	te := newTestEngine(t, auditConfig(t), withSink(sink))
	const secret = "correct-password-123"
	te.mustRegister(t, "alice", secret)
	ctx := context.Background()

	login := te.mustLogin(t, "alice", secret)
	if _, err := te.Refresh(ctx, login.RefreshToken); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	te.Logout(ctx, login.RefreshToken)
	_, _, _ = te.Login(ctx, "alice", "guess-"+secret)
	te.Close()

	hash := te.users.users[login.Identity.UserID].PasswordHash
	needles := []string{secret, login.AccessToken, login.RefreshToken, hash}

	close(sink.events)
	count := 0
	for ev := range sink.events {
		count++
		fields := []string{ev.EventType, ev.UserID, ev.SessionID, ev.Reason}
		for k, v := range ev.Metadata {
			fields = append(fields, k, v)
		}
		for _, f := range fields {
			for _, n := range needles {
				if strings.Contains(f, n) {
					t.Fatalf("sensitive value leaked in %q event", ev.EventType)
				}
			}
		}
	}
	if count == 0 {
		t.Fatal("expected audit events")
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf strings.Builder
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventLoginSuccess,
		UserID:    "u1",
		IP:        "127.0.0.1",
		Success:   true,
	})

	out := buf.String()
	if !strings.Contains(out, "login_success") || !strings.Contains(out, `"user_id":"u1"`) {
		t.Fatalf("unexpected JSON line %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatal("expected newline-terminated line")
	}
}
