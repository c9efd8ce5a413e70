package middleware

import (
	"context"
	"net/http"
	"strings"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/response"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal stored by a guard.
func PrincipalFromContext(ctx context.Context) (*eduAuth.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*eduAuth.Principal)
	return p, ok && p != nil
}

// WithPrincipal stores p in ctx the way the guards do.
func WithPrincipal(ctx context.Context, p *eduAuth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Guard authenticates the bearer token for role at tier.
func Guard(engine *eduAuth.Engine, role eduAuth.Role, tier eduAuth.TokenTier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				response.Unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				response.Unauthorized(w)
				return
			}

			var (
				p   *eduAuth.Principal
				err error
			)
			if tier == eduAuth.TierTemp {
				p, err = engine.AuthenticateTemp(r.Context(), role, token)
			} else {
				p, err = engine.AuthenticateSession(r.Context(), role, token)
			}
			if err != nil {
				response.Unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func RequireSession(engine *eduAuth.Engine, role eduAuth.Role) func(http.Handler) http.Handler {
	return Guard(engine, role, eduAuth.TierSession)
}

// RequireTemp admits only temp tokens minted by a forgotPassword OTP.
func RequireTemp(engine *eduAuth.Engine, role eduAuth.Role) func(http.Handler) http.Handler {
	return Guard(engine, role, eduAuth.TierTemp)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
