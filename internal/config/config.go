// Package config loads daemon settings from defaults, an optional YAML file
// and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"walletd/go-backend/internal/challenge"
	"walletd/go-backend/internal/platform/ratelimiter"
	"walletd/go-backend/internal/session"
	"walletd/go-backend/internal/signing"
	"walletd/go-backend/internal/vault"
)

const DefaultListenAddr = "127.0.0.1:8787"

const (
	envSeed              = "WALLET_SEED"
	envPassphrase        = "WALLET_PASSPHRASE"
	envEnvironment       = "WALLETD_ENV"
	envTestMode          = "WALLETD_TEST_MODE"
	envListenAddr        = "WALLETD_ADDR"
	envCookieName        = "WALLETD_COOKIE_NAME"
	envCookieSecure      = "WALLETD_COOKIE_SECURE"
	envSessionMaxAge     = "WALLETD_SESSION_MAX_AGE"
	envChallengeTTL      = "WALLETD_CHALLENGE_TTL"
	envCredentialsPath   = "WALLETD_CREDENTIALS_PATH"
	envCredentialsSecret = "WALLETD_CREDENTIALS_SECRET"
	envRateLimitEnabled  = "WALLETD_RATE_LIMIT_ENABLED"
	envRateLimitRPS      = "WALLETD_RATE_LIMIT_RPS"
	envRateLimitBurst    = "WALLETD_RATE_LIMIT_BURST"
	envLogLevel          = "WALLETD_LOG_LEVEL"
	envLogFormat         = "WALLETD_LOG_FORMAT"
)

var (
	ErrMissingSeed            = errors.New("WALLET_SEED is required unless test mode is enabled")
	ErrMissingCredentialsPath = errors.New("WALLETD_CREDENTIALS_PATH is required unless test mode is enabled")
	ErrTestModeInProd         = errors.New("test mode is only allowed when WALLETD_ENV is test, dev or local")
	ErrInvalidListenAddr      = errors.New("invalid listen address")
)

// Config is the resolved daemon configuration. Seed and passphrase come only
// from the environment.
type Config struct {
	Environment string
	TestMode    bool
	Seed        string
	Passphrase  string

	ListenAddr        string
	CookieName        string
	CookieSecure      bool
	SessionMaxAge     time.Duration
	ChallengeTTL      time.Duration
	CredentialsPath   string
	CredentialsSecret string
	RateLimit         ratelimiter.Config
	LogLevel          slog.Level
	LogFormat         string
}

type fileConfig struct {
	Server    serverFileConfig    `yaml:"server"`
	Session   sessionFileConfig   `yaml:"session"`
	Challenge challengeFileConfig `yaml:"challenge"`
	RateLimit rateLimitFileConfig `yaml:"rateLimit"`
	Log       logFileConfig       `yaml:"log"`
}

type serverFileConfig struct {
	Listen string `yaml:"listen"`
}

type sessionFileConfig struct {
	CookieName   string        `yaml:"cookieName"`
	CookieSecure *bool         `yaml:"cookieSecure"`
	MaxAge       time.Duration `yaml:"maxAge"`
}

type challengeFileConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	CredentialsPath string        `yaml:"credentialsPath"`
}

type rateLimitFileConfig struct {
	Enabled *bool   `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

type logFileConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Environment:   "production",
		ListenAddr:    DefaultListenAddr,
		CookieName:    session.DefaultCookieName,
		CookieSecure:  true,
		SessionMaxAge: signing.DefaultSessionMaxAge,
		ChallengeTTL:  challenge.DefaultTTL,
		RateLimit: ratelimiter.Config{
			Enabled: true,
			RPS:     ratelimiter.DefaultRPS,
			Burst:   ratelimiter.DefaultBurst,
		},
		LogLevel:  slog.LevelInfo,
		LogFormat: "json",
	}
}

// Load reads path when given, then applies environment overrides. A named
// file that cannot be read or parsed is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		merge(&cfg, parsed)
	}
	ApplyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func merge(dst *Config, src fileConfig) {
	if src.Server.Listen != "" {
		dst.ListenAddr = src.Server.Listen
	}
	if src.Session.CookieName != "" {
		dst.CookieName = src.Session.CookieName
	}
	if src.Session.CookieSecure != nil {
		dst.CookieSecure = *src.Session.CookieSecure
	}
	if src.Session.MaxAge > 0 {
		dst.SessionMaxAge = src.Session.MaxAge
	}
	if src.Challenge.TTL > 0 {
		dst.ChallengeTTL = src.Challenge.TTL
	}
	if src.Challenge.CredentialsPath != "" {
		dst.CredentialsPath = src.Challenge.CredentialsPath
	}
	if src.RateLimit.Enabled != nil {
		dst.RateLimit.Enabled = *src.RateLimit.Enabled
	}
	if src.RateLimit.RPS > 0 {
		dst.RateLimit.RPS = src.RateLimit.RPS
	}
	if src.RateLimit.Burst > 0 {
		dst.RateLimit.Burst = src.RateLimit.Burst
	}
	if level, ok := parseLevel(src.Log.Level); ok {
		dst.LogLevel = level
	}
	if src.Log.Format != "" {
		dst.LogFormat = src.Log.Format
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if v := envString(envEnvironment); v != "" {
		cfg.Environment = strings.ToLower(v)
	}
	cfg.TestMode = envBoolWithFallback(envTestMode, cfg.TestMode)
	if v := envString(envSeed); v != "" {
		cfg.Seed = v
	}
	// The passphrase is used verbatim; surrounding spaces may be significant.
	if v, ok := os.LookupEnv(envPassphrase); ok {
		cfg.Passphrase = v
	}
	if v := envString(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := envString(envCookieName); v != "" {
		cfg.CookieName = v
	}
	cfg.CookieSecure = envBoolWithFallback(envCookieSecure, cfg.CookieSecure)
	cfg.SessionMaxAge = envDurationWithFallback(envSessionMaxAge, cfg.SessionMaxAge)
	cfg.ChallengeTTL = envDurationWithFallback(envChallengeTTL, cfg.ChallengeTTL)
	if v := envString(envCredentialsPath); v != "" {
		cfg.CredentialsPath = v
	}
	if v := envString(envCredentialsSecret); v != "" {
		cfg.CredentialsSecret = v
	}
	if _, ok := os.LookupEnv(envRateLimitEnabled); ok {
		cfg.RateLimit.Enabled = envBoolWithFallback(envRateLimitEnabled, cfg.RateLimit.Enabled)
	} else if cfg.isNonProd() && cfg.TestMode {
		cfg.RateLimit.Enabled = false
	}
	cfg.RateLimit.RPS = envPositiveFloatWithFallback(envRateLimitRPS, cfg.RateLimit.RPS)
	cfg.RateLimit.Burst = envPositiveIntWithFallback(envRateLimitBurst, cfg.RateLimit.Burst)
	if level, ok := parseLevel(envString(envLogLevel)); ok {
		cfg.LogLevel = level
	}
	if v := envString(envLogFormat); v != "" {
		cfg.LogFormat = v
	}
}

// Validate rejects configurations the daemon must not start with.
func (c *Config) Validate() error {
	if c.TestMode && !c.isNonProd() {
		return ErrTestModeInProd
	}
	if c.Seed == "" && !c.TestMode {
		return ErrMissingSeed
	}
	// User keys outlive the process, so the credential binding has to as well.
	if strings.TrimSpace(c.CredentialsPath) == "" && !c.TestMode {
		return ErrMissingCredentialsPath
	}
	if _, err := ResolveListenAddr(c.ListenAddr); err != nil {
		return err
	}
	return nil
}

// RootSeed returns the configured seed, or the well-known test seed when
// test mode is enabled and no seed was given.
func (c *Config) RootSeed() (string, error) {
	if c.Seed != "" {
		return c.Seed, nil
	}
	if c.TestMode && c.isNonProd() {
		return vault.TestSeed, nil
	}
	return "", ErrMissingSeed
}

func (c *Config) isNonProd() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "test", "testing", "dev", "development", "local":
		return true
	default:
		return false
	}
}

func parseLevel(raw string) (slog.Level, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, false
	}
	return level, true
}
