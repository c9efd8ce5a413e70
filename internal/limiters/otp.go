package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOTPMaxAttempts = 5
	defaultOTPCooldown    = time.Minute
)

var (
	ErrOTPRateLimited = errors.New("otp rate limited")
	ErrOTPUnavailable = errors.New("otp limiter unavailable")
)

type OTPLimiterConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// OTPLimiter counts failed OTP submissions. Zero-value config fields fall
// back to 5 attempts per minute.
type OTPLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int64
	cooldown    time.Duration
}

func NewOTPLimiter(redisClient redis.UniversalClient, cfg OTPLimiterConfig) *OTPLimiter {
	max := cfg.MaxAttempts
	if max <= 0 {
		max = defaultOTPMaxAttempts
	}
	cd := cfg.Cooldown
	if cd <= 0 {
		cd = defaultOTPCooldown
	}
	return &OTPLimiter{redis: redisClient, maxAttempts: int64(max), cooldown: cd}
}

func (l *OTPLimiter) key(role, email string) string {
	return "aotp:" + role + ":" + normalizeEmail(email)
}

func (l *OTPLimiter) Check(ctx context.Context, role, email string) error {
	if l == nil {
		return nil
	}
	count, err := l.redis.Get(ctx, l.key(role, email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}
	if count >= l.maxAttempts {
		return ErrOTPRateLimited
	}
	return nil
}

func (l *OTPLimiter) RecordFailure(ctx context.Context, role, email string) error {
	if l == nil {
		return nil
	}
	count, err := fixedWindow(ctx, l.redis, l.key(role, email), l.cooldown)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}
	if count >= l.maxAttempts {
		return ErrOTPRateLimited
	}
	return nil
}

func (l *OTPLimiter) Reset(ctx context.Context, role, email string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(role, email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}
	return nil
}
