package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"walletd/go-backend/internal/vault"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		envSeed, envPassphrase, envEnvironment, envTestMode, envListenAddr,
		envCookieName, envCookieSecure, envSessionMaxAge, envChallengeTTL,
		envCredentialsPath, envCredentialsSecret, envRateLimitEnabled,
		envRateLimitRPS, envRateLimitBurst, envLogLevel, envLogFormat,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "walletd.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRequiresSeedOutsideTestMode(t *testing.T) {
	clearEnv(t)
	if _, err := Load(""); !errors.Is(err, ErrMissingSeed) {
		t.Fatalf("expected ErrMissingSeed, got %v", err)
	}
}

func TestLoadRequiresCredentialsPathOutsideTestMode(t *testing.T) {
	clearEnv(t)
	t.Setenv(envSeed, vault.TestSeed)
	if _, err := Load(""); !errors.Is(err, ErrMissingCredentialsPath) {
		t.Fatalf("expected ErrMissingCredentialsPath, got %v", err)
	}

	t.Setenv(envCredentialsPath, filepath.Join(t.TempDir(), "credentials.json"))
	if _, err := Load(""); err != nil {
		t.Fatalf("load failed: %v", err)
	}
}

func TestTestModeAllowsMemoryCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv(envEnvironment, "dev")
	t.Setenv(envTestMode, "true")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.CredentialsPath != "" {
		t.Fatalf("unexpected credentials path %q", cfg.CredentialsPath)
	}
}

func TestTestModeIsRefusedInProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv(envTestMode, "true")
	if _, err := Load(""); !errors.Is(err, ErrTestModeInProd) {
		t.Fatalf("expected ErrTestModeInProd, got %v", err)
	}
}

func TestTestModeUsesTestSeed(t *testing.T) {
	clearEnv(t)
	t.Setenv(envEnvironment, "test")
	t.Setenv(envTestMode, "1")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	seed, err := cfg.RootSeed()
	if err != nil || seed != vault.TestSeed {
		t.Fatalf("expected test seed, got %q, %v", seed, err)
	}
	if cfg.RateLimit.Enabled {
		t.Fatal("rate limiting defaults off in test mode")
	}
}

func TestConfiguredSeedWins(t *testing.T) {
	clearEnv(t)
	t.Setenv(envEnvironment, "dev")
	t.Setenv(envTestMode, "true")
	t.Setenv(envSeed, "//Alice")
	t.Setenv(envPassphrase, " spaced ")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if seed, _ := cfg.RootSeed(); seed != "//Alice" {
		t.Fatalf("unexpected seed %q", seed)
	}
	if cfg.Passphrase != " spaced " {
		t.Fatalf("passphrase must be kept verbatim, got %q", cfg.Passphrase)
	}
}

func TestFileThenEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  listen: /ip4/0.0.0.0/tcp/9000
session:
  cookieName: wallet_session
  cookieSecure: false
  maxAge: 1h
challenge:
  ttl: 30s
  credentialsPath: /var/lib/walletd/credentials.json
rateLimit:
  rps: 2
  burst: 4
log:
  level: debug
  format: text
`)
	t.Setenv(envSeed, vault.TestSeed)
	t.Setenv(envChallengeTTL, "45")
	t.Setenv(envRateLimitBurst, "9")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.CookieName != "wallet_session" || cfg.CookieSecure {
		t.Fatalf("unexpected cookie settings: %q secure=%v", cfg.CookieName, cfg.CookieSecure)
	}
	if cfg.SessionMaxAge != time.Hour {
		t.Fatalf("unexpected session max age %s", cfg.SessionMaxAge)
	}
	if cfg.ChallengeTTL != 45*time.Second {
		t.Fatalf("env must override file ttl, got %s", cfg.ChallengeTTL)
	}
	if cfg.RateLimit.RPS != 2 || cfg.RateLimit.Burst != 9 || !cfg.RateLimit.Enabled {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != "text" {
		t.Fatalf("unexpected log settings %v %q", cfg.LogLevel, cfg.LogFormat)
	}
	addr, err := ResolveListenAddr(cfg.ListenAddr)
	if err != nil || addr != "0.0.0.0:9000" {
		t.Fatalf("unexpected listen addr %q: %v", addr, err)
	}
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(envSeed, vault.TestSeed)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "server: [")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestInvalidEnvValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv(envSeed, vault.TestSeed)
	t.Setenv(envCredentialsPath, filepath.Join(t.TempDir(), "credentials.json"))
	t.Setenv(envSessionMaxAge, "forever")
	t.Setenv(envRateLimitRPS, "-3")
	t.Setenv(envCookieSecure, "maybe")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	def := Default()
	if cfg.SessionMaxAge != def.SessionMaxAge || cfg.RateLimit.RPS != def.RateLimit.RPS || !cfg.CookieSecure {
		t.Fatalf("invalid values must fall back to defaults: %+v", cfg)
	}
}

func TestResolveListenAddr(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"", DefaultListenAddr, true},
		{"127.0.0.1:8080", "127.0.0.1:8080", true},
		{"/ip4/127.0.0.1/tcp/8787", "127.0.0.1:8787", true},
		{"/ip6/::1/tcp/8787", "[::1]:8787", true},
		{"/ip4/127.0.0.1/udp/8787", "", false},
		{"/not/a/multiaddr", "", false},
		{"localhost", "", false},
	}
	for _, tc := range cases {
		got, err := ResolveListenAddr(tc.raw)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: got %q, %v; want %q", tc.raw, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidListenAddr) {
			t.Fatalf("%q: expected ErrInvalidListenAddr, got %v", tc.raw, err)
		}
	}
}
