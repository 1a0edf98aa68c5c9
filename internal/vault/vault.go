// Package vault holds the single root key pair every user account is derived
// from. A Vault starts locked; Unlock writes the root pair exactly once and it
// is only read afterwards.
package vault

import (
	"errors"
	"sync"
	"time"

	"walletd/go-backend/internal/derivation"
)

var (
	ErrInvalidSeed      = errors.New("invalid seed")
	ErrUnlockFailed     = errors.New("unlock failed")
	ErrUnlockThrottled  = errors.New("unlock attempts are temporarily locked")
	ErrAlreadyUnlocked  = errors.New("root wallet already unlocked")
	ErrRootWalletLocked = errors.New("root wallet is locked")
)

type State int

const (
	Locked State = iota
	Unlocked
)

func (s State) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

type Vault struct {
	mu             sync.RWMutex
	root           *derivation.KeyPair
	failedAttempts int
	lockedUntil    time.Time
	now            func() time.Time
}

func New() *Vault {
	return &Vault{now: time.Now}
}

func newVaultWithClock(now func() time.Time) *Vault {
	return &Vault{now: now}
}

// Unlock opens material with passphrase and keeps the resulting root pair for
// the lifetime of the vault. A wrong passphrase throttles further attempts on
// the same vault; Open makes a single attempt and the daemon exits on failure.
func (v *Vault) Unlock(material *Material, passphrase string) error {
	if material == nil {
		return ErrInvalidSeed
	}
	v.mu.Lock()
	if v.root != nil {
		v.mu.Unlock()
		return ErrAlreadyUnlocked
	}
	if !v.lockedUntil.IsZero() && v.now().Before(v.lockedUntil) {
		v.mu.Unlock()
		return ErrUnlockThrottled
	}
	v.mu.Unlock()

	// argon2 in sealed seeds is slow; keep it outside the lock.
	root, err := material.open(passphrase)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		if errors.Is(err, ErrUnlockFailed) {
			v.onFailedAttempt()
		}
		return err
	}
	if v.root != nil {
		return ErrAlreadyUnlocked
	}
	v.root = root
	v.failedAttempts = 0
	v.lockedUntil = time.Time{}
	return nil
}

// RootAccount returns the unlocked root pair or ErrRootWalletLocked.
func (v *Vault) RootAccount() (*derivation.KeyPair, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.root == nil {
		return nil, ErrRootWalletLocked
	}
	return v.root, nil
}

func (v *Vault) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.root == nil {
		return Locked
	}
	return Unlocked
}

func (v *Vault) onFailedAttempt() {
	v.failedAttempts++
	v.lockedUntil = v.now().Add(failedAttemptBackoff(v.failedAttempts))
}

func failedAttemptBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	// 1s, 2s, 4s... up to 32s max.
	shift := attempt - 1
	if shift > 5 {
		shift = 5
	}
	return time.Second * time.Duration(1<<shift)
}

// Open is the startup helper: load seed, unlock, return the vault.
func Open(seed, passphrase string) (*Vault, error) {
	material, err := Load(seed)
	if err != nil {
		return nil, err
	}
	v := New()
	if err := v.Unlock(material, passphrase); err != nil {
		return nil, err
	}
	return v, nil
}
