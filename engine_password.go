package eduAuth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/eduAuth/internal/limiters"
	"github.com/MrEthical07/eduAuth/password"
	"github.com/MrEthical07/eduAuth/validation"
)

// ForgetPassword checks that an active account exists for email. A nil error
// is the acknowledgement; the code itself is obtained out of band and
// submitted to VerifyOTP with type "forgotPassword".
func (e *Engine) ForgetPassword(ctx context.Context, role Role, req ForgetPasswordRequest) error {
	if err := e.ready(role); err != nil {
		return err
	}

	req.Email = normalizeEmail(req.Email)
	if err := validation.Missing(req); err != nil {
		return validationError(err)
	}

	if err := e.forgotLimiter.CheckRequest(ctx, string(role), req.Email, clientIPFromContext(ctx)); err != nil {
		err = e.limited(ctx, "limiters.forgot_password", err, limiters.ErrForgotRateLimited)
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricForgotPasswordRateLimited)
			e.emitRateLimit(ctx, "forgot_password", role, req.Email)
		}
		return err
	}

	p, err := e.findUsable(ctx, role, req.Email)
	if err != nil {
		if !errors.Is(err, ErrInternal) {
			e.emitAudit(ctx, auditEventForgotPasswordRequest, false, role, "", req.Email, err, nil)
		}
		return err
	}

	e.metricInc(MetricForgotPasswordRequest)
	e.emitAudit(ctx, auditEventForgotPasswordRequest, true, role, p.ID, p.Email, nil, nil)
	return nil
}

// ResetPassword sets a new password for the principal resolved from a temp
// token. Unlike ChangePassword it does not reject the current password.
func (e *Engine) ResetPassword(ctx context.Context, p *Principal, req ResetPasswordRequest) error {
	if p == nil {
		return ErrUnauthorized
	}
	if err := e.ready(p.Role); err != nil {
		return err
	}

	if strings.TrimSpace(req.NewPassword) == "" {
		req.NewPassword = ""
	}
	if err := validation.Missing(req); err != nil {
		return validationError(err)
	}

	if err := e.storePassword(ctx, p, req.NewPassword); err != nil {
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordReset, true, p.Role, p.ID, p.Email, nil, nil)
	return nil
}

// ChangePassword replaces the password of a session-authenticated principal.
// The current password must match, and the new one must differ from it.
func (e *Engine) ChangePassword(ctx context.Context, p *Principal, req ChangePasswordRequest) error {
	if p == nil {
		return ErrUnauthorized
	}
	if err := e.ready(p.Role); err != nil {
		return err
	}

	if strings.TrimSpace(req.CurrentPassword) == "" {
		req.CurrentPassword = ""
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		req.NewPassword = ""
	}
	if err := validation.Missing(req); err != nil {
		return validationError(err)
	}

	ok, err := e.hasher.Verify(req.CurrentPassword, p.PasswordHash)
	if err != nil {
		return e.internal(ctx, "password.verify", err)
	}
	if !ok {
		e.metricInc(MetricPasswordChangeInvalidCurrent)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, p.Role, p.ID, p.Email, ErrInvalidCurrentPassword, nil)
		return ErrInvalidCurrentPassword
	}
	if req.NewPassword == req.CurrentPassword {
		e.metricInc(MetricPasswordChangeReuseRejected)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, p.Role, p.ID, p.Email, ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	if err := e.storePassword(ctx, p, req.NewPassword); err != nil {
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, p.Role, p.ID, p.Email, nil, nil)
	return nil
}

func (e *Engine) storePassword(ctx context.Context, p *Principal, plain string) error {
	hash, err := e.hashPassword(ctx, plain)
	if err != nil {
		return err
	}
	updated := p.Clone()
	updated.PasswordHash = hash
	updated.UpdatedAt = e.now().UTC()
	if err := e.directory.Save(ctx, updated); err != nil {
		return e.internal(ctx, "directory.save", err)
	}
	p.PasswordHash = updated.PasswordHash
	p.UpdatedAt = updated.UpdatedAt
	return nil
}

// hashPassword maps input the hasher refuses to a client error; anything else
// is internal.
func (e *Engine) hashPassword(ctx context.Context, plain string) (string, error) {
	hash, err := e.hasher.Hash(plain)
	switch {
	case err == nil:
		return hash, nil
	case errors.Is(err, password.ErrPasswordTooLong):
		return "", ErrPasswordTooLong
	default:
		return "", e.internal(ctx, "password.hash", err)
	}
}
