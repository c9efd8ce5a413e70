// Package config loads server settings from defaults, an optional YAML file
// and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/eduAuth"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	Env       string          `yaml:"env"`
	Port      string          `yaml:"port"`
	Log       LogConfig       `yaml:"log"`
	JWT       JWTConfig       `yaml:"jwt"`
	OTPSecret string          `yaml:"otp_secret"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	CORS      CORSConfig      `yaml:"cors"`
	SeedAdmin SeedAdminConfig `yaml:"seed_admin"`
	Metrics   bool            `yaml:"metrics_enabled"`
	Audit     bool            `yaml:"audit_enabled"`
	Throttle  bool            `yaml:"throttle_enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// JWTConfig durations accept Go syntax ("36h") or whole days ("7d").
type JWTConfig struct {
	Secret        string `yaml:"secret"`
	ExpiresIn     string `yaml:"expires_in"`
	TempExpiresIn string `yaml:"temp_expires_in"`
}

type StoreConfig struct {
	Driver        string `yaml:"driver"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
	SQLitePath    string `yaml:"sqlite_path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type UploadsConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SeedAdminConfig describes the bootstrap admin. Seeding is skipped when
// Email is empty.
type SeedAdminConfig struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Mobile   string `yaml:"mobile"`
}

func defaults() Config {
	return Config{
		Env:  "development",
		Port: "8080",
		Log:  LogConfig{Level: "info"},
		JWT: JWTConfig{
			ExpiresIn:     "1d",
			TempExpiresIn: "15m",
		},
		Store: StoreConfig{
			Driver:        DriverMongo,
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "eduauth",
			SQLitePath:    "eduauth.db",
		},
		Uploads: UploadsConfig{Dir: "uploads", Prefix: "/uploads"},
		CORS:    CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Load reads .env (if present) into the process environment, then builds the
// configuration. path may be empty.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	c.Env = getEnv("APP_ENV", c.Env)
	c.Port = getEnv("PORT", c.Port)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)
	c.JWT.ExpiresIn = getEnv("JWT_EXPIRES_IN", c.JWT.ExpiresIn)
	c.JWT.TempExpiresIn = getEnv("JWT_TEMP_EXPIRES_IN", c.JWT.TempExpiresIn)
	c.OTPSecret = getEnv("OTP_SECRET", c.OTPSecret)

	c.Store.Driver = strings.ToLower(getEnv("STORE_DRIVER", c.Store.Driver))
	c.Store.MongoURI = getEnv("MONGO_URI", c.Store.MongoURI)
	c.Store.MongoDatabase = getEnv("MONGO_DATABASE", c.Store.MongoDatabase)
	c.Store.SQLitePath = getEnv("SQLITE_PATH", c.Store.SQLitePath)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Redis.DB = db
	}

	c.Uploads.Dir = getEnv("UPLOAD_DIR", c.Uploads.Dir)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORS.AllowedOrigins = splitList(v)
	}

	c.SeedAdmin.Name = getEnv("SEED_ADMIN_NAME", c.SeedAdmin.Name)
	c.SeedAdmin.Email = getEnv("SEED_ADMIN_EMAIL", c.SeedAdmin.Email)
	c.SeedAdmin.Password = getEnv("SEED_ADMIN_PASSWORD", c.SeedAdmin.Password)
	c.SeedAdmin.Mobile = getEnv("SEED_ADMIN_MOBILE", c.SeedAdmin.Mobile)

	for key, dst := range map[string]*bool{
		"METRICS_ENABLED":  &c.Metrics,
		"AUDIT_ENABLED":    &c.Audit,
		"THROTTLE_ENABLED": &c.Throttle,
	} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}
	return nil
}

// Validate checks server-level settings. Engine settings are validated by
// eduAuth.Config.Validate when the engine is built.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT must be set")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.OTPSecret == "" {
		return errors.New("OTP_SECRET must be set")
	}
	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			return errors.New("mongo driver requires MONGO_URI and MONGO_DATABASE")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("sqlite driver requires SQLITE_PATH")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Throttle && c.Redis.Addr == "" {
		return errors.New("THROTTLE_ENABLED requires REDIS_ADDR")
	}
	if _, err := ParseExpiry(c.JWT.ExpiresIn); err != nil {
		return fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	if _, err := ParseExpiry(c.JWT.TempExpiresIn); err != nil {
		return fmt.Errorf("JWT_TEMP_EXPIRES_IN: %w", err)
	}
	return nil
}

// Engine maps the server settings onto an engine configuration.
func (c *Config) Engine() (eduAuth.Config, error) {
	cfg := eduAuth.DefaultConfig()

	session, err := ParseExpiry(c.JWT.ExpiresIn)
	if err != nil {
		return cfg, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	temp, err := ParseExpiry(c.JWT.TempExpiresIn)
	if err != nil {
		return cfg, fmt.Errorf("JWT_TEMP_EXPIRES_IN: %w", err)
	}
	if temp > session {
		temp = session
	}

	cfg.JWT.PrivateKey = []byte(c.JWT.Secret)
	cfg.JWT.SessionTTL = session
	cfg.JWT.TempTTL = temp
	cfg.OTP.Secret = c.OTPSecret

	cfg.Metrics.Enabled = c.Metrics
	cfg.Metrics.EnableLatencyHistograms = c.Metrics
	cfg.Audit.Enabled = c.Audit

	if c.Throttle {
		cfg.Security.EnableLoginThrottle = true
		cfg.Security.EnableIPThrottle = true
		cfg.Security.EnableOTPThrottle = true
		cfg.Security.EnableForgotPasswordThrottle = true
		cfg.Security.EnableRegistrationThrottle = true
	}

	return cfg, cfg.Validate()
}

// Seed returns the bootstrap admin request, or false when none is configured.
func (c *Config) Seed() (eduAuth.SeedRequest, bool) {
	if c.SeedAdmin.Email == "" {
		return eduAuth.SeedRequest{}, false
	}
	return eduAuth.SeedRequest{
		Name:     c.SeedAdmin.Name,
		Email:    c.SeedAdmin.Email,
		Password: c.SeedAdmin.Password,
		Mobile:   c.SeedAdmin.Mobile,
	}, true
}

func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// ParseExpiry accepts a Go duration or a whole number of days such as "7d".
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
