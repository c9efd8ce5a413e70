package eduAuth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	internalaudit "github.com/MrEthical07/eduAuth/internal/audit"
	"github.com/MrEthical07/eduAuth/internal/limiters"
	"github.com/MrEthical07/eduAuth/internal/rate"
	"github.com/MrEthical07/eduAuth/jwt"
	"github.com/MrEthical07/eduAuth/password"
)

// Engine runs every authentication flow for admins and users. Build it with
// New().With...().Build(). An Engine is safe for concurrent use.
type Engine struct {
	config              Config
	directory           Directory
	files               FileStore
	hasher              *password.Manager
	tokens              *jwt.Manager
	otp                 *otpVerifier
	loginLimiter        *rate.Limiter
	otpLimiter          *limiters.OTPLimiter
	forgotLimiter       *limiters.ForgotPasswordLimiter
	registrationLimiter *limiters.RegistrationLimiter
	audit               *internalaudit.Dispatcher
	metrics             *Metrics
	logger              *zap.Logger
	now                 func() time.Time
}

// Close flushes queued audit events. Call it once on shutdown.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped is the number of audit events discarded because the
// dispatcher queue was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
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

// Logger returns the engine logger so transports can share it.
func (e *Engine) Logger() *zap.Logger {
	if e == nil || e.logger == nil {
		return zap.NewNop()
	}
	return e.logger
}

// OTPCode returns the code accepted at t. Login never sends it anywhere; it
// exists for development tooling and load tests.
func (e *Engine) OTPCode(t time.Time) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	return e.otp.Generate(t)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready(role Role) error {
	if e == nil || e.directory == nil || e.hasher == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	if !role.Valid() {
		return ErrRoleNotAllowed
	}
	return nil
}

// internal logs an unexpected failure and hides it behind ErrInternal.
func (e *Engine) internal(ctx context.Context, op string, err error) error {
	e.Logger().Error("auth operation failed",
		zap.String("op", op),
		zap.String("request_id", requestIDFromContext(ctx)),
		zap.Error(err),
	)
	return ErrInternal
}

// findUsable loads the principal for email and rejects missing, deleted and
// inactive accounts with their distinct errors.
func (e *Engine) findUsable(ctx context.Context, role Role, email string) (*Principal, error) {
	p, err := e.directory.FindByEmail(ctx, role, email)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, notFoundFor(role)
		}
		return nil, e.internal(ctx, "directory.find_by_email", err)
	}
	if err := statusError(p); err != nil {
		return p, err
	}
	return p, nil
}

func statusError(p *Principal) error {
	switch {
	case p.IsDeleted:
		return ErrAccountDeleted
	case !p.IsActive:
		return ErrAccountInactive
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// limited maps a throttle error: the limiter's own "limited" sentinel becomes
// ErrRateLimited, a backend failure becomes ErrInternal.
func (e *Engine) limited(ctx context.Context, op string, err error, limitedErr error) error {
	if errors.Is(err, limitedErr) {
		return ErrRateLimited
	}
	return e.internal(ctx, op, err)
}
