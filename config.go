package eduAuth

import (
	"encoding/base32"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/eduAuth/password"
)

// Config is the complete engine configuration. Build it from DefaultConfig,
// adjust fields, then hand it to Builder.WithConfig. It is cloned at build
// time and treated as immutable afterwards.
type Config struct {
	JWT      JWTConfig
	OTP      OTPConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing. SessionTTL applies to tokens issued by a
// login OTP, TempTTL to the reset-only tokens issued by a forgot-password OTP.
type JWTConfig struct {
	SigningMethod string // "hs256" (default), "ed25519" optional
	PrivateKey    []byte
	PublicKey     []byte
	SessionTTL    time.Duration
	TempTTL       time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig describes the single process-wide TOTP secret every principal's
// code is derived from.
type OTPConfig struct {
	Secret    string // base32
	Period    uint
	Skew      uint
	Digits    int
	Algorithm string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Algorithm  string // "bcrypt" (default) or "argon2id"
	BcryptCost int
	Argon2     password.Argon2Config
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig turns on Redis-backed throttles. Every throttle is off by
// default; enabling any of them makes a Redis client mandatory.
type SecurityConfig struct {
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration

	EnableOTPThrottle   bool
	MaxOTPAttempts      int
	OTPCooldownDuration time.Duration

	EnableForgotPasswordThrottle bool
	MaxForgotPasswordRequests    int
	ForgotPasswordWindow         time.Duration

	EnableRegistrationThrottle bool
	MaxRegistrations           int
	RegistrationCooldown       time.Duration
}

func (s SecurityConfig) needsRedis() bool {
	return s.EnableLoginThrottle ||
		s.EnableOTPThrottle ||
		s.EnableForgotPasswordThrottle ||
		s.EnableRegistrationThrottle
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. JWT.PrivateKey and
// OTP.Secret have no defaults and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "hs256",
			SessionTTL:    24 * time.Hour,
			TempTTL:       15 * time.Minute,
			Issuer:        "eduauth",
			Leeway:        30 * time.Second,
		},
		OTP: OTPConfig{
			Period:    30,
			Skew:      1,
			Digits:    6,
			Algorithm: "SHA1",
		},
		Password: PasswordConfig{
			Algorithm:  password.AlgorithmBcrypt,
			BcryptCost: password.DefaultBcryptCost,
			Argon2:     password.DefaultArgon2Config(),
		},
		Security: SecurityConfig{
			EnableLoginThrottle:          false,
			EnableIPThrottle:             false,
			MaxLoginAttempts:             5,
			LoginCooldownDuration:        15 * time.Minute,
			EnableOTPThrottle:            false,
			MaxOTPAttempts:               5,
			OTPCooldownDuration:          time.Minute,
			EnableForgotPasswordThrottle: false,
			MaxForgotPasswordRequests:    3,
			ForgotPasswordWindow:         15 * time.Minute,
			EnableRegistrationThrottle:   false,
			MaxRegistrations:             5,
			RegistrationCooldown:         15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.SessionTTL <= 0 {
		return errors.New("JWT SessionTTL must be > 0")
	}
	if c.JWT.TempTTL <= 0 {
		return errors.New("JWT TempTTL must be > 0")
	}
	if c.JWT.TempTTL > c.JWT.SessionTTL {
		return errors.New("JWT TempTTL must not exceed SessionTTL")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("hs256 requires PrivateKey")
		}
	case "ed25519":
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// OTP
	if strings.TrimSpace(c.OTP.Secret) == "" {
		return errors.New("OTP Secret must be set")
	}
	if _, err := decodeOTPSecret(c.OTP.Secret); err != nil {
		return errors.New("OTP Secret must be base32")
	}
	if c.OTP.Period == 0 {
		return errors.New("OTP Period must be > 0")
	}
	if c.OTP.Skew > 10 {
		return errors.New("OTP Skew must be <= 10")
	}
	if c.OTP.Digits != 6 && c.OTP.Digits != 8 {
		return errors.New("OTP Digits must be 6 or 8")
	}
	switch strings.ToUpper(c.OTP.Algorithm) {
	case "", "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("OTP Algorithm must be SHA1, SHA256 or SHA512")
	}

	// Password
	switch strings.ToLower(c.Password.Algorithm) {
	case "", password.AlgorithmBcrypt, password.AlgorithmArgon2id:
	default:
		return errors.New("Password Algorithm must be bcrypt or argon2id")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableOTPThrottle {
		if c.Security.MaxOTPAttempts <= 0 {
			return errors.New("Security MaxOTPAttempts must be > 0")
		}
		if c.Security.OTPCooldownDuration <= 0 {
			return errors.New("Security OTPCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableForgotPasswordThrottle {
		if c.Security.MaxForgotPasswordRequests <= 0 {
			return errors.New("Security MaxForgotPasswordRequests must be > 0")
		}
		if c.Security.ForgotPasswordWindow <= 0 {
			return errors.New("Security ForgotPasswordWindow must be > 0")
		}
	}
	if c.Security.EnableRegistrationThrottle {
		if c.Security.MaxRegistrations <= 0 {
			return errors.New("Security MaxRegistrations must be > 0")
		}
		if c.Security.RegistrationCooldown <= 0 {
			return errors.New("Security RegistrationCooldown must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}

// decodeOTPSecret accepts padded or unpadded base32, in either case.
func decodeOTPSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	s = strings.TrimRight(s, "=")
	return base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(s)
}
