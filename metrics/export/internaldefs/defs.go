package internaldefs

import (
	eduAuth "github.com/MrEthical07/eduAuth"
)

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   eduAuth.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine histogram to its exported name.
type HistogramDef struct {
	ID   eduAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for events the audit dispatcher discarded.
const AuditDroppedName = "eduauth_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: eduAuth.MetricLoginOTPSent, Name: "eduauth_login_otp_sent_total", Help: "Logins acknowledged with OTP sent."},
	{ID: eduAuth.MetricLoginFailure, Name: "eduauth_login_failure_total", Help: "Failed login attempts."},
	{ID: eduAuth.MetricLoginRateLimited, Name: "eduauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: eduAuth.MetricOTPVerifySuccess, Name: "eduauth_otp_verify_success_total", Help: "Successful OTP verifications."},
	{ID: eduAuth.MetricOTPVerifyFailure, Name: "eduauth_otp_verify_failure_total", Help: "Failed OTP verifications."},
	{ID: eduAuth.MetricOTPRateLimited, Name: "eduauth_otp_rate_limited_total", Help: "Rate-limited OTP verifications."},
	{ID: eduAuth.MetricSessionTokenIssued, Name: "eduauth_session_token_issued_total", Help: "Issued session tokens."},
	{ID: eduAuth.MetricTempTokenIssued, Name: "eduauth_temp_token_issued_total", Help: "Issued password-reset temp tokens."},
	{ID: eduAuth.MetricRegisterSuccess, Name: "eduauth_register_success_total", Help: "Successful registrations."},
	{ID: eduAuth.MetricRegisterDuplicate, Name: "eduauth_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: eduAuth.MetricRegisterRateLimited, Name: "eduauth_register_rate_limited_total", Help: "Rate-limited registrations."},
	{ID: eduAuth.MetricForgotPasswordRequest, Name: "eduauth_forgot_password_request_total", Help: "Accepted forgot-password requests."},
	{ID: eduAuth.MetricForgotPasswordRateLimited, Name: "eduauth_forgot_password_rate_limited_total", Help: "Rate-limited forgot-password requests."},
	{ID: eduAuth.MetricPasswordResetSuccess, Name: "eduauth_password_reset_success_total", Help: "Successful password resets."},
	{ID: eduAuth.MetricPasswordChangeSuccess, Name: "eduauth_password_change_success_total", Help: "Successful password changes."},
	{ID: eduAuth.MetricPasswordChangeInvalidCurrent, Name: "eduauth_password_change_invalid_current_total", Help: "Password changes with a wrong current password."},
	{ID: eduAuth.MetricPasswordChangeReuseRejected, Name: "eduauth_password_change_reuse_rejected_total", Help: "Password changes rejected for reuse."},
	{ID: eduAuth.MetricProfileUpdated, Name: "eduauth_profile_updated_total", Help: "Admin profile updates."},
	{ID: eduAuth.MetricAccountStatusChanged, Name: "eduauth_account_status_changed_total", Help: "Activation status changes."},
	{ID: eduAuth.MetricAccountDeleted, Name: "eduauth_account_deleted_total", Help: "Soft deletions."},
	{ID: eduAuth.MetricTokenRejected, Name: "eduauth_token_rejected_total", Help: "Bearer tokens rejected by authentication."},
	{ID: eduAuth.MetricRateLimitHit, Name: "eduauth_rate_limit_hit_total", Help: "Throttle checks that denied requests."},
}

var HistogramDefs = []HistogramDef{
	{ID: eduAuth.MetricAuthenticateLatency, Name: "eduauth_authenticate_latency_seconds", Help: "Bearer token authentication latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's eight
// latency buckets.
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

// HistogramBoundValues are HistogramBounds as explicit OTel boundaries; the
// last bucket is open-ended and has no entry.
var HistogramBoundValues = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing entries.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
