package eduAuth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/MrEthical07/eduAuth/internal/rate"
	"github.com/MrEthical07/eduAuth/validation"
)

// Login checks credentials for role. A nil error is the "OTP Sent
// Successfully" acknowledgement: no token is issued until VerifyOTP, and no
// code is generated or delivered here.
//
// Errors, in evaluation order: missing fields, ErrRateLimited, account not
// found, ErrAccountDeleted, ErrAccountInactive, ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, role Role, req LoginRequest) error {
	if err := e.ready(role); err != nil {
		return err
	}

	req.Email = normalizeEmail(req.Email)
	if strings.TrimSpace(req.Password) == "" {
		req.Password = ""
	}
	if err := validation.Missing(req); err != nil {
		return validationError(err)
	}

	ip := clientIPFromContext(ctx)

	if err := e.loginLimiter.CheckLogin(ctx, string(role), req.Email, ip); err != nil {
		return e.loginRateLimited(ctx, role, req.Email, err)
	}

	p, err := e.findUsable(ctx, role, req.Email)
	if err != nil {
		return e.loginFailed(ctx, role, p, req.Email, ip, err)
	}

	ok, err := e.hasher.Verify(req.Password, p.PasswordHash)
	if err != nil {
		return e.internal(ctx, "password.verify", err)
	}
	if !ok {
		return e.loginFailed(ctx, role, p, req.Email, ip, ErrInvalidCredentials)
	}

	if err := e.loginLimiter.ResetLogin(ctx, string(role), req.Email); err != nil {
		e.Logger().Warn("login limiter reset failed", zap.Error(err))
	}
	e.upgradeHash(ctx, p, req.Password)

	e.metricInc(MetricLoginOTPSent)
	e.emitAudit(ctx, auditEventLoginOTPSent, true, role, p.ID, p.Email, nil, nil)
	return nil
}

func (e *Engine) loginFailed(ctx context.Context, role Role, p *Principal, email, ip string, cause error) error {
	if errors.Is(cause, ErrInternal) {
		return cause
	}
	if err := e.loginLimiter.IncrementLogin(ctx, string(role), email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		return e.internal(ctx, "rate.increment_login", err)
	}

	var id string
	if p != nil {
		id = p.ID
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, role, id, email, cause, nil)
	return cause
}

func (e *Engine) loginRateLimited(ctx context.Context, role Role, email string, err error) error {
	err = e.limited(ctx, "rate.check_login", err, rate.ErrRateLimited)
	if errors.Is(err, ErrRateLimited) {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, role, "", email, err, nil)
		e.emitRateLimit(ctx, "login", role, email)
	}
	return err
}

// upgradeHash rehashes with the configured algorithm after a successful
// password check. Failures are logged; the login still succeeds.
func (e *Engine) upgradeHash(ctx context.Context, p *Principal, plain string) {
	needs, err := e.hasher.NeedsUpgrade(p.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := e.hasher.Hash(plain)
	if err != nil {
		e.Logger().Warn("password rehash failed", zap.String("principal_id", p.ID), zap.Error(err))
		return
	}
	updated := p.Clone()
	updated.PasswordHash = hash
	updated.UpdatedAt = e.now().UTC()
	if err := e.directory.Save(ctx, updated); err != nil {
		e.Logger().Warn("password rehash save failed", zap.String("principal_id", p.ID), zap.Error(err))
	}
}
