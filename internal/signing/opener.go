package signing

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"walletd/go-backend/internal/challenge"
	"walletd/go-backend/internal/derivation"
)

const DefaultSessionMaxAge = 12 * time.Hour

var ErrInvalidUser = errors.New("invalid user identifier")

// RegisterRequest answers a registration challenge with a new client key.
type RegisterRequest struct {
	ChallengeID string `json:"challenge_id"`
	User        string `json:"user"`
	PublicKey   []byte `json:"public_key"`
	Signature   []byte `json:"signature"`
}

// UnlockRequest answers an authentication challenge with a registered key.
type UnlockRequest struct {
	ChallengeID string `json:"challenge_id"`
	User        string `json:"user"`
	Signature   []byte `json:"signature"`
}

type OpenerConfig struct {
	SessionMaxAge time.Duration
	SecureCookies bool
}

// Opener runs the challenge ceremonies and, on success, opens the user's
// wallet by issuing a session cookie.
type Opener struct {
	signer      *Service
	issuer      *challenge.Issuer
	credentials challenge.CredentialStore
	cfg         OpenerConfig
	logger      *slog.Logger
	now         func() time.Time
}

func NewOpener(signer *Service, issuer *challenge.Issuer, credentials challenge.CredentialStore, cfg OpenerConfig, logger *slog.Logger) *Opener {
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = DefaultSessionMaxAge
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{
		signer:      signer,
		issuer:      issuer,
		credentials: credentials,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

func (o *Opener) ChallengeForRegistration(ctx context.Context, user string) (challenge.Challenge, error) {
	if err := validUser(user); err != nil {
		return challenge.Challenge{}, err
	}
	return o.issuer.ChallengeForRegistration(ctx, user)
}

func (o *Opener) ChallengeForAuthentication(ctx context.Context, user string) (challenge.Challenge, error) {
	if err := validUser(user); err != nil {
		return challenge.Challenge{}, err
	}
	return o.issuer.ChallengeForAuthentication(ctx, user)
}

// validUser rejects identifiers no session could ever be derived for.
func validUser(user string) error {
	if user == "" {
		return fmt.Errorf("%w: user", challenge.ErrMissingParameter)
	}
	if _, err := derivation.JunctionFromIdentifier(user); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	return nil
}

// Register stores the client key after it proves possession by signing the
// registration challenge.
func (o *Opener) Register(ctx context.Context, req RegisterRequest) (*http.Cookie, error) {
	if err := requireFields(req.ChallengeID, req.User, req.Signature); err != nil {
		return nil, err
	}
	if len(req.PublicKey) == 0 {
		return nil, fmt.Errorf("%w: public_key", challenge.ErrMissingParameter)
	}
	// The codec needs an unlocked root; check before burning the challenge.
	codec, err := o.signer.Codec()
	if err != nil {
		return nil, err
	}
	c, err := o.issuer.Redeem(ctx, req.ChallengeID, challenge.KindRegistration, req.User)
	if err != nil {
		return nil, err
	}
	cr := challenge.Credential{
		User:         req.User,
		PublicKey:    ed25519.PublicKey(req.PublicKey),
		RegisteredAt: o.now().UTC(),
	}
	if err := cr.Verify(c, req.Signature); err != nil {
		return nil, err
	}
	if err := o.credentials.Add(ctx, cr); err != nil {
		return nil, err
	}
	o.logger.InfoContext(ctx, "credential registered", "component", componentName, "operation", "register", "user", req.User)
	return codec.Cookie(req.User, o.cfg.SessionMaxAge, o.cfg.SecureCookies)
}

// Unlock verifies an authentication answer against the user's credential
// and returns the session cookie.
func (o *Opener) Unlock(ctx context.Context, req UnlockRequest) (*http.Cookie, error) {
	if err := requireFields(req.ChallengeID, req.User, req.Signature); err != nil {
		return nil, err
	}
	codec, err := o.signer.Codec()
	if err != nil {
		return nil, err
	}
	c, err := o.issuer.Redeem(ctx, req.ChallengeID, challenge.KindAuthentication, req.User)
	if err != nil {
		return nil, err
	}
	cr, err := o.credentials.Get(ctx, req.User)
	if err != nil {
		if errors.Is(err, challenge.ErrCredentialNotFound) {
			return nil, challenge.ErrAssertionInvalid
		}
		return nil, err
	}
	if err := cr.Verify(c, req.Signature); err != nil {
		return nil, err
	}
	o.logger.InfoContext(ctx, "wallet opened", "component", componentName, "operation", "unlock", "user", req.User)
	return codec.Cookie(req.User, o.cfg.SessionMaxAge, o.cfg.SecureCookies)
}

func requireFields(challengeID, user string, sig []byte) error {
	switch {
	case challengeID == "":
		return fmt.Errorf("%w: challenge_id", challenge.ErrMissingParameter)
	case user == "":
		return fmt.Errorf("%w: user", challenge.ErrMissingParameter)
	case len(sig) == 0:
		return fmt.Errorf("%w: signature", challenge.ErrMissingParameter)
	}
	return nil
}
