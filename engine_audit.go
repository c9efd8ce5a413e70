package eduAuth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventLoginOTPSent          = "login_otp_sent"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventOTPVerifySuccess      = "otp_verify_success"
	auditEventOTPVerifyFailure      = "otp_verify_failure"
	auditEventRegisterSuccess       = "register_success"
	auditEventRegisterFailure       = "register_failure"
	auditEventForgotPasswordRequest = "forgot_password_request"
	auditEventPasswordReset         = "password_reset"
	auditEventPasswordChangeSuccess = "password_change_success"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventProfileUpdate         = "profile_update"
	auditEventAccountStatusChange   = "account_status_change"
	auditEventAccountDeleted        = "account_deleted"
	auditEventAdminSeeded           = "admin_seeded"
	auditEventTokenRejected         = "token_rejected"
	auditEventRateLimitTriggered    = "rate_limit_triggered"
)

// AuditErrorCode is the stable failure reason carried in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidOTP         AuditErrorCode = "invalid_otp"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrNotFound           AuditErrorCode = "account_not_found"
	auditErrAccountInactive    AuditErrorCode = "account_inactive"
	auditErrAccountDeleted     AuditErrorCode = "account_deleted"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidCurrent     AuditErrorCode = "invalid_current_password"
	auditErrPasswordReuse      AuditErrorCode = "password_reuse"
	auditErrRoleNotAllowed     AuditErrorCode = "role_not_allowed"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// emitAudit never records passwords, OTP codes or tokens; metadata builders
// must only return identifiers.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	role Role,
	principalID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["user_agent"] = ua
	}

	event := AuditEvent{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		Role:        string(role),
		PrincipalID: principalID,
		Email:       email,
		IP:          clientIPFromContext(ctx),
		RequestID:   requestIDFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope string, role Role, email string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, role, "", email, ErrRateLimited, func() map[string]string {
		return map[string]string{"scope": scope}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInvalidOTP):
		return auditErrInvalidOTP
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAccountNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrAccountInactive):
		return auditErrAccountInactive
	case errors.Is(err, ErrAccountDeleted):
		return auditErrAccountDeleted
	case errors.Is(err, ErrEmailExists), errors.Is(err, ErrMobileExists):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidCurrentPassword):
		return auditErrInvalidCurrent
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrRoleNotAllowed):
		return auditErrRoleNotAllowed
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrInvalidMobile):
		return auditErrValidation
	}

	var ae *AuthError
	if errors.As(err, &ae) && ae.Code == "validation" {
		return auditErrValidation
	}
	return auditErrInternal
}
