package eduAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/eduAuth/jwt"
)

func (e *Engine) issueToken(p *Principal, tier TokenTier) (string, error) {
	claims := jwt.Claims{Email: p.Email}
	ttl := e.config.JWT.SessionTTL

	switch tier {
	case TierTemp:
		claims.TempID = p.ID
		ttl = e.config.JWT.TempTTL
	default:
		if p.Role == RoleAdmin {
			claims.AdminID = p.ID
		} else {
			claims.UserID = p.ID
		}
	}

	if tier == TierTemp {
		e.metricInc(MetricTempTokenIssued)
	} else {
		e.metricInc(MetricSessionTokenIssued)
	}
	return e.tokens.Issue(claims, ttl)
}

// AuthenticateSession resolves a session token for role. The token must
// carry role's id claim and no temp claim, and the principal must still be
// active and not deleted. Every failure is ErrUnauthorized.
func (e *Engine) AuthenticateSession(ctx context.Context, role Role, token string) (*Principal, error) {
	return e.authenticate(ctx, role, token, TierSession)
}

// AuthenticateTemp resolves a reset-only temp token for role.
func (e *Engine) AuthenticateTemp(ctx context.Context, role Role, token string) (*Principal, error) {
	return e.authenticate(ctx, role, token, TierTemp)
}

func (e *Engine) authenticate(ctx context.Context, role Role, token string, tier TokenTier) (*Principal, error) {
	if err := e.ready(role); err != nil {
		return nil, ErrUnauthorized
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()
	}

	claims := e.tokens.Verify(token)
	if claims == nil {
		return nil, e.rejectToken(ctx, role, tier, "invalid_token")
	}

	id, ok := tierSubject(claims, role, tier)
	if !ok {
		return nil, e.rejectToken(ctx, role, tier, "wrong_tier")
	}

	p, err := e.directory.FindByID(ctx, role, id)
	if err != nil {
		if !errors.Is(err, ErrPrincipalNotFound) {
			_ = e.internal(ctx, "directory.find_by_id", err)
		}
		return nil, e.rejectToken(ctx, role, tier, "principal_missing")
	}
	if !p.Usable() {
		return nil, e.rejectToken(ctx, role, tier, "principal_disabled")
	}
	return p, nil
}

// tierSubject returns the principal id for the required tier. A session
// token never carries temp_id and a temp token never carries a session id
// claim; a token with the wrong key is rejected outright.
func tierSubject(claims *jwt.Claims, role Role, tier TokenTier) (string, bool) {
	_, hasTemp := claims.Lookup(jwt.TempIDKey)
	_, hasAdmin := claims.Lookup(jwt.AdminIDKey)
	_, hasUser := claims.Lookup(jwt.UserIDKey)

	if tier == TierTemp {
		if hasAdmin || hasUser {
			return "", false
		}
		return claims.Lookup(jwt.TempIDKey)
	}
	if hasTemp {
		return "", false
	}
	return claims.Lookup(role.IDClaim())
}

func (e *Engine) rejectToken(ctx context.Context, role Role, tier TokenTier, reason string) error {
	e.metricInc(MetricTokenRejected)
	e.emitAudit(ctx, auditEventTokenRejected, false, role, "", "", ErrUnauthorized, func() map[string]string {
		return map[string]string{"tier": tier.String(), "reason": reason}
	})
	return ErrUnauthorized
}
