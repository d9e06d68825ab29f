package internaldefs

import (
	"github.com/MrEthical07/authgate"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "authgate_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: authgate.MetricRegisterSuccess, Name: "authgate_register_success_total", Help: "Accounts registered."},
	{ID: authgate.MetricRegisterDuplicate, Name: "authgate_register_duplicate_total", Help: "Registrations rejected for a taken identifier."},
	{ID: authgate.MetricRegisterInvalid, Name: "authgate_register_invalid_total", Help: "Registrations rejected by input validation."},
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Successful logins."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Logins rejected as unauthorized."},
	{ID: authgate.MetricLoginUnavailable, Name: "authgate_login_unavailable_total", Help: "Logins failed on user store errors."},
	{ID: authgate.MetricSessionCreated, Name: "authgate_session_created_total", Help: "Sessions created."},
	{ID: authgate.MetricRefreshSuccess, Name: "authgate_refresh_success_total", Help: "Access tokens renewed from a refresh token."},
	{ID: authgate.MetricRefreshFailure, Name: "authgate_refresh_failure_total", Help: "Refresh attempts rejected."},
	{ID: authgate.MetricLogout, Name: "authgate_logout_total", Help: "Logouts that revoked or found a revoked session."},
	{ID: authgate.MetricLogoutNoop, Name: "authgate_logout_noop_total", Help: "Logouts without a usable refresh token."},
	{ID: authgate.MetricLogoutStoreFailure, Name: "authgate_logout_store_failure_total", Help: "Logouts that could not write the revocation record."},
	{ID: authgate.MetricSessionRevoked, Name: "authgate_session_revoked_total", Help: "Sessions newly revoked."},
	{ID: authgate.MetricValidateSuccess, Name: "authgate_validate_success_total", Help: "Access tokens accepted."},
	{ID: authgate.MetricValidateFailure, Name: "authgate_validate_failure_total", Help: "Access tokens rejected."},
	{ID: authgate.MetricValidateRevoked, Name: "authgate_validate_revoked_total", Help: "Tokens presented for a revoked session."},
	{ID: authgate.MetricRevocationStoreError, Name: "authgate_revocation_store_error_total", Help: "Revocation store calls that failed."},
}

var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricValidateLatency, Name: "authgate_validate_latency_seconds", Help: "ValidateAccess latency."},
}

// HistogramBounds are the upper bounds of the engine's 8 latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix spells HistogramBounds for use in instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the 8 engine buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into le-style running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
