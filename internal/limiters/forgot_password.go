package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrForgotRateLimited      = errors.New("forgot password rate limited")
	ErrForgotRedisUnavailable = errors.New("forgot password redis unavailable")
)

type ForgotPasswordConfig struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	Window                   time.Duration
	MaxRequests              int
}

type ForgotPasswordLimiter struct {
	redis  redis.UniversalClient
	config ForgotPasswordConfig
}

func NewForgotPasswordLimiter(redisClient redis.UniversalClient, cfg ForgotPasswordConfig) *ForgotPasswordLimiter {
	return &ForgotPasswordLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckRequest counts one forgot-password request. Every call consumes budget
// whether or not the email exists, so the response never reveals existence.
func (l *ForgotPasswordLimiter) CheckRequest(ctx context.Context, role, email, ip string) error {
	if l == nil {
		return nil
	}
	if l.config.EnableIdentifierThrottle {
		if err := l.enforce(ctx, "afp:"+role+":"+normalizeEmail(email)); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforce(ctx, "afpip:"+ip); err != nil {
			return err
		}
	}
	return nil
}

func (l *ForgotPasswordLimiter) Window() time.Duration {
	if l == nil {
		return 0
	}
	return l.config.Window
}

func (l *ForgotPasswordLimiter) enforce(ctx context.Context, key string) error {
	count, err := fixedWindow(ctx, l.redis, key, l.config.Window)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForgotRedisUnavailable, err)
	}
	if count > int64(l.config.MaxRequests) {
		return ErrForgotRateLimited
	}
	return nil
}
