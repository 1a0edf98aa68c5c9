// Package walletserver wires the vault, ceremony and signing services to the
// HTTP transport.
package walletserver

import (
	"fmt"
	"log/slog"

	"walletd/go-backend/internal/adapters/httpapi"
	"walletd/go-backend/internal/challenge"
	"walletd/go-backend/internal/config"
	"walletd/go-backend/internal/platform/ratelimiter"
	"walletd/go-backend/internal/signing"
	"walletd/go-backend/internal/vault"
)

// New unlocks the root vault from cfg and builds the HTTP server. Vault errors
// stay matchable with errors.Is.
func New(cfg config.Config, logger *slog.Logger) (*httpapi.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	seed, err := cfg.RootSeed()
	if err != nil {
		return nil, err
	}
	if cfg.TestMode && cfg.Seed == "" {
		logger.Warn("using the well-known test seed", "component", "walletserver", "operation", "open_vault")
	}
	v, err := vault.Open(seed, cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("open root wallet: %w", err)
	}

	credentials, err := credentialStore(cfg)
	if err != nil {
		return nil, err
	}
	addr, err := config.ResolveListenAddr(cfg.ListenAddr)
	if err != nil {
		return nil, err
	}

	signer := signing.NewService(v, cfg.CookieName, logger)
	issuer := challenge.NewIssuer(challenge.NewMemoryStore(), cfg.ChallengeTTL)
	opener := signing.NewOpener(signer, issuer, credentials, signing.OpenerConfig{
		SessionMaxAge: cfg.SessionMaxAge,
		SecureCookies: cfg.CookieSecure,
	}, logger)

	logger.Info("root wallet unlocked", "component", "walletserver", "operation", "open_vault", "state", v.State().String())
	return httpapi.NewServer(addr, httpapi.Deps{
		Vault:   v,
		Signer:  signer,
		Opener:  opener,
		Limiter: ratelimiter.New(cfg.RateLimit),
		Logger:  logger,
	}), nil
}

func credentialStore(cfg config.Config) (challenge.CredentialStore, error) {
	if cfg.CredentialsPath == "" {
		if !cfg.TestMode {
			return nil, config.ErrMissingCredentialsPath
		}
		return challenge.NewMemoryCredentialStore(), nil
	}
	store := challenge.NewFileCredentialStore(cfg.CredentialsPath, cfg.CredentialsSecret)
	if err := store.Bootstrap(); err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return store, nil
}
