// Package challenge issues single-use, expiring challenges for the
// passwordless registration and authentication ceremonies and keeps the
// credentials those ceremonies register.
package challenge

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58/base58"
)

const (
	DefaultTTL = 2 * time.Minute
	nonceSize  = 32
	messageTag = "walletd-challenge/v1"
)

var (
	ErrMissingParameter = errors.New("missing parameter")
	ErrChallengeInvalid = errors.New("challenge invalid")
)

type Kind string

const (
	KindRegistration   Kind = "registration"
	KindAuthentication Kind = "authentication"
)

// Challenge is handed to the client, which signs Message() with its credential.
type Challenge struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	User      string    `json:"user"`
	Nonce     string    `json:"nonce"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Message is the canonical byte string a client signs to answer c.
func (c Challenge) Message() []byte {
	var b strings.Builder
	for i, part := range []string{messageTag, string(c.Kind), c.User, c.ID, c.Nonce} {
		if i > 0 {
			b.WriteByte(0)
		}
		b.WriteString(part)
	}
	return []byte(b.String())
}

func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Store keeps pending challenges until they are taken or expire.
type Store interface {
	Put(ctx context.Context, c Challenge) error
	// Take removes and returns the challenge; ok is false if it is unknown.
	Take(ctx context.Context, id string) (c Challenge, ok bool, err error)
}

type Issuer struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewIssuer(store Store, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{store: store, ttl: ttl, now: time.Now}
}

func (i *Issuer) ChallengeForRegistration(ctx context.Context, user string) (Challenge, error) {
	return i.issue(ctx, KindRegistration, user)
}

// ChallengeForAuthentication binds user into the challenge just like the
// registration variant, so an answer cannot be replayed for another user.
func (i *Issuer) ChallengeForAuthentication(ctx context.Context, user string) (Challenge, error) {
	return i.issue(ctx, KindAuthentication, user)
}

func (i *Issuer) issue(ctx context.Context, kind Kind, user string) (Challenge, error) {
	if user == "" {
		return Challenge{}, fmt.Errorf("%w: user", ErrMissingParameter)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Challenge{}, err
	}
	now := i.now().UTC()
	c := Challenge{
		ID:        uuid.NewString(),
		Kind:      kind,
		User:      user,
		Nonce:     base58.Encode(nonce),
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}
	if err := i.store.Put(ctx, c); err != nil {
		return Challenge{}, fmt.Errorf("store challenge: %w", err)
	}
	return c, nil
}

// Redeem consumes challenge id. It fails with ErrChallengeInvalid when the
// challenge is unknown, already used, expired, or issued for another kind or
// user. A mismatching attempt still burns the challenge.
func (i *Issuer) Redeem(ctx context.Context, id string, kind Kind, user string) (Challenge, error) {
	if id == "" {
		return Challenge{}, fmt.Errorf("%w: challenge_id", ErrMissingParameter)
	}
	if user == "" {
		return Challenge{}, fmt.Errorf("%w: user", ErrMissingParameter)
	}
	c, ok, err := i.store.Take(ctx, id)
	if err != nil {
		return Challenge{}, fmt.Errorf("take challenge: %w", err)
	}
	if !ok || c.Kind != kind || c.User != user || c.Expired(i.now()) {
		return Challenge{}, ErrChallengeInvalid
	}
	return c, nil
}
