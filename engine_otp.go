package eduAuth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/MrEthical07/eduAuth/internal/limiters"
	"github.com/MrEthical07/eduAuth/validation"
)

// VerifyOTP checks the submitted code against the shared time-based secret.
// Type defaults to "login". "forgotPassword" yields a temp token that is only
// accepted by the reset endpoint; anything else yields a session token.
//
// The same code succeeds any number of times inside its window.
func (e *Engine) VerifyOTP(ctx context.Context, role Role, req VerifyOTPRequest) (*OTPResult, error) {
	if err := e.ready(role); err != nil {
		return nil, err
	}

	req.Email = normalizeEmail(req.Email)
	req.OTP = strings.TrimSpace(req.OTP)
	req.Type = strings.TrimSpace(req.Type)
	if req.Type == "" {
		req.Type = OTPTypeLogin
	}
	if err := validation.Missing(req); err != nil {
		return nil, validationError(err)
	}

	if err := e.otpLimiter.Check(ctx, string(role), req.Email); err != nil {
		err = e.limited(ctx, "limiters.otp_check", err, limiters.ErrOTPRateLimited)
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricOTPRateLimited)
			e.emitRateLimit(ctx, "otp", role, req.Email)
		}
		return nil, err
	}

	p, err := e.findUsable(ctx, role, req.Email)
	if err != nil {
		e.otpFailed(ctx, role, p, req.Email, req.Type, err)
		return nil, err
	}

	if !e.otp.Verify(req.OTP, e.now()) {
		if lerr := e.otpLimiter.RecordFailure(ctx, string(role), req.Email); lerr != nil && !errors.Is(lerr, limiters.ErrOTPRateLimited) {
			e.Logger().Warn("otp limiter record failed", zap.Error(lerr))
		}
		e.otpFailed(ctx, role, p, req.Email, req.Type, ErrInvalidOTP)
		return nil, ErrInvalidOTP
	}

	if err := e.otpLimiter.Reset(ctx, string(role), req.Email); err != nil {
		e.Logger().Warn("otp limiter reset failed", zap.Error(err))
	}

	tier := TierSession
	if req.Type == OTPTypeForgotPassword {
		tier = TierTemp
	}
	token, err := e.issueToken(p, tier)
	if err != nil {
		return nil, e.internal(ctx, "jwt.issue", err)
	}

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventOTPVerifySuccess, true, role, p.ID, p.Email, nil, func() map[string]string {
		return map[string]string{"type": req.Type, "tier": tier.String()}
	})

	return &OTPResult{
		Token:     token,
		Tier:      tier,
		Principal: p,
		Details:   Project(p),
	}, nil
}

func (e *Engine) otpFailed(ctx context.Context, role Role, p *Principal, email, otpType string, cause error) {
	if errors.Is(cause, ErrInternal) {
		return
	}
	var id string
	if p != nil {
		id = p.ID
	}
	e.metricInc(MetricOTPVerifyFailure)
	e.emitAudit(ctx, auditEventOTPVerifyFailure, false, role, id, email, cause, func() map[string]string {
		return map[string]string{"type": otpType}
	})
}
