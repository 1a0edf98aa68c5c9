// Package signing ties an authenticated session to the key derived for its
// user. It is the only place where the live root key meets request data.
package signing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"walletd/go-backend/internal/derivation"
	"walletd/go-backend/internal/session"
	"walletd/go-backend/internal/vault"
)

const componentName = "signing"

var (
	ErrRootWalletLocked = vault.ErrRootWalletLocked
	ErrWalletClosed     = errors.New("wallet closed")
	ErrTokenInvalid     = session.ErrTokenInvalid
	ErrDerivationFailed = derivation.ErrDerivationFailed
)

// RootAccounts is the read side of the root vault.
type RootAccounts interface {
	RootAccount() (*derivation.KeyPair, error)
}

type Service struct {
	vault      RootAccounts
	cookieName string
	logger     *slog.Logger
}

func NewService(v RootAccounts, cookieName string, logger *slog.Logger) *Service {
	if cookieName == "" {
		cookieName = session.DefaultCookieName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{vault: v, cookieName: cookieName, logger: logger}
}

// Account describes the key derived for a session.
type Account struct {
	User      string `json:"-"`
	PublicKey []byte `json:"public_key"`
	Address   string `json:"address"`
}

// Sign decodes the session carried by cookieHeader, derives its user's key
// from the root and signs payload unmodified.
func (s *Service) Sign(ctx context.Context, cookieHeader string, payload []byte) ([]byte, error) {
	account, _, err := s.userAccount(ctx, cookieHeader)
	if err != nil {
		return nil, err
	}
	sig, err := account.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("sign payload: %w", err)
	}
	return sig, nil
}

// Account returns the public side of the session's derived key.
func (s *Service) Account(ctx context.Context, cookieHeader string) (Account, error) {
	account, user, err := s.userAccount(ctx, cookieHeader)
	if err != nil {
		return Account{}, err
	}
	pub := account.Public()
	return Account{
		User:      user,
		PublicKey: pub.Bytes(),
		Address:   derivation.SS58Address(pub, derivation.GenericSS58Prefix),
	}, nil
}

// Codec returns the session codec for the current root. It fails with
// ErrRootWalletLocked while the vault is locked.
func (s *Service) Codec() (*session.Codec, error) {
	root, err := s.vault.RootAccount()
	if err != nil {
		return nil, err
	}
	return s.codecFor(root)
}

func (s *Service) codecFor(root *derivation.KeyPair) (*session.Codec, error) {
	key, err := session.KeyFor(root)
	if err != nil {
		return nil, fmt.Errorf("session key: %w", err)
	}
	return session.NewCodec(key, s.cookieName), nil
}

func (s *Service) userAccount(ctx context.Context, cookieHeader string) (*derivation.KeyPair, string, error) {
	root, err := s.vault.RootAccount()
	if err != nil {
		return nil, "", err
	}
	if cookieHeader == "" {
		return nil, "", ErrWalletClosed
	}
	codec, err := s.codecFor(root)
	if err != nil {
		return nil, "", err
	}
	user, err := codec.DecodeJar(session.ParseCookies(cookieHeader))
	if err != nil {
		s.logger.DebugContext(ctx, "session rejected", "component", componentName, "operation", "decode_session")
		return nil, "", ErrTokenInvalid
	}
	account, err := derivation.Derive(root, user)
	if err != nil {
		s.logger.DebugContext(ctx, "derivation rejected", "component", componentName, "operation", "derive", "user", user)
		return nil, "", err
	}
	return account, user, nil
}
