package eduAuth

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	internalaudit "github.com/MrEthical07/eduAuth/internal/audit"
	"github.com/MrEthical07/eduAuth/internal/limiters"
	"github.com/MrEthical07/eduAuth/internal/rate"
	"github.com/MrEthical07/eduAuth/jwt"
	"github.com/MrEthical07/eduAuth/password"
)

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory Directory
	files     FileStore
	auditSink AuditSink
	logger    *zap.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client used by the throttles. It is only required
// when a Security throttle is enabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithDirectory(d Directory) *Builder {
	b.directory = d
	return b
}

// WithFileStore enables profile picture uploads.
func (b *Builder) WithFileStore(fs FileStore) *Builder {
	b.files = fs
	return b
}

// WithAuditSink routes audit events to sink. With auditing enabled and no
// sink, events go to the engine logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for OTP verification.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.directory == nil {
		return nil, errors.New("directory required")
	}
	if cfg.Security.needsRedis() && b.redis == nil {
		return nil, errors.New("Security throttles require redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		directory: b.directory,
		files:     b.files,
		logger:    logger,
		now:       clock,
		metrics:   NewMetrics(cfg.Metrics),
		otp:       newOTPVerifier(cfg.OTP),
	}

	// -------- THROTTLES --------
	if cfg.Security.EnableLoginThrottle {
		engine.loginLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}
	if cfg.Security.EnableOTPThrottle {
		engine.otpLimiter = limiters.NewOTPLimiter(b.redis, limiters.OTPLimiterConfig{
			MaxAttempts: cfg.Security.MaxOTPAttempts,
			Cooldown:    cfg.Security.OTPCooldownDuration,
		})
	}
	if cfg.Security.EnableForgotPasswordThrottle {
		engine.forgotLimiter = limiters.NewForgotPasswordLimiter(b.redis, limiters.ForgotPasswordConfig{
			EnableIdentifierThrottle: true,
			EnableIPThrottle:         cfg.Security.EnableIPThrottle,
			Window:                   cfg.Security.ForgotPasswordWindow,
			MaxRequests:              cfg.Security.MaxForgotPasswordRequests,
		})
	}
	if cfg.Security.EnableRegistrationThrottle {
		engine.registrationLimiter = limiters.NewRegistrationLimiter(b.redis, limiters.RegistrationConfig{
			EnableIdentifierThrottle: true,
			EnableIPThrottle:         cfg.Security.EnableIPThrottle,
			MaxAttempts:              cfg.Security.MaxRegistrations,
			Cooldown:                 cfg.Security.RegistrationCooldown,
		})
	}

	// -------- CREDENTIALS --------
	hasher, err := password.NewManager(password.Config{
		Algorithm:  cfg.Password.Algorithm,
		BcryptCost: cfg.Password.BcryptCost,
		Argon2:     cfg.Password.Argon2,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	tokens, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		DefaultTTL:    cfg.JWT.SessionTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tokens

	// -------- AUDIT --------
	sink := b.auditSink
	if sink == nil && cfg.Audit.Enabled {
		sink = NewZapSink(logger)
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	b.built = true

	return engine, nil
}
