package vault

import (
	"encoding/hex"
	"fmt"
	"strings"

	"walletd/go-backend/internal/derivation"
	"walletd/go-backend/internal/securestore"

	"github.com/tyler-smith/go-bip39"
)

// DevPhrase is the well-known substrate development mnemonic. Seeds that start
// with '/' are paths on top of it.
const DevPhrase = "bottom drive obey lake curtain smoke basket hold race lonely fit walk"

// TestSeed is the fixed demo seed. It must only be used in test mode.
const TestSeed = "0x329e7f8361cd64c7a60f4e75cd273a52c42930aa9d26955e3e7111eb4136432c"

type SeedKind int

const (
	SeedHex SeedKind = iota + 1
	SeedMnemonic
	SeedSealed
)

func (k SeedKind) String() string {
	switch k {
	case SeedHex:
		return "hex"
	case SeedMnemonic:
		return "mnemonic"
	case SeedSealed:
		return "sealed"
	default:
		return "unknown"
	}
}

// Material is parsed, still locked root key material. Secret parts are kept
// out of String and fmt output.
type Material struct {
	kind   SeedKind
	secret string
	path   []derivation.Junction
}

func (m *Material) Kind() SeedKind { return m.kind }

func (m *Material) String() string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("seed(%s, %d junctions)", m.kind, len(m.path))
}

// Load parses a seed representation. An error here is a configuration error.
func Load(seed string) (*Material, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil, fmt.Errorf("%w: empty seed", ErrInvalidSeed)
	}
	if securestore.IsSealed(seed) {
		if strings.TrimPrefix(seed, securestore.SealedPrefix) == "" {
			return nil, fmt.Errorf("%w: empty sealed seed", ErrInvalidSeed)
		}
		return &Material{kind: SeedSealed, secret: seed}, nil
	}
	return parsePlainSeed(seed)
}

func parsePlainSeed(seed string) (*Material, error) {
	if strings.HasPrefix(seed, "/") {
		seed = DevPhrase + seed
	}
	phrase, rawPath := splitPath(seed)
	path, err := derivation.ParsePath(rawPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if hexPart, ok := strings.CutPrefix(phrase, "0x"); ok {
		raw, err := hex.DecodeString(hexPart)
		if err != nil || len(raw) != derivation.SecretSize {
			return nil, fmt.Errorf("%w: hex seed must be %d bytes", ErrInvalidSeed, derivation.SecretSize)
		}
		return &Material{kind: SeedHex, secret: phrase, path: path}, nil
	}
	normalized := strings.Join(strings.Fields(phrase), " ")
	if !bip39.IsMnemonicValid(normalized) {
		return nil, fmt.Errorf("%w: not a hex seed or valid mnemonic", ErrInvalidSeed)
	}
	return &Material{kind: SeedMnemonic, secret: normalized, path: path}, nil
}

func splitPath(seed string) (string, string) {
	idx := strings.IndexByte(seed, '/')
	if idx < 0 {
		return strings.TrimSpace(seed), ""
	}
	return strings.TrimSpace(seed[:idx]), seed[idx:]
}

// open turns material into the root pair, using passphrase as required by
// the material kind.
func (m *Material) open(passphrase string) (*derivation.KeyPair, error) {
	switch m.kind {
	case SeedSealed:
		plaintext, err := securestore.Open(passphrase, m.secret)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnlockFailed, err)
		}
		inner, err := parsePlainSeed(string(plaintext))
		if err != nil {
			return nil, fmt.Errorf("%w: sealed payload: %v", ErrInvalidSeed, err)
		}
		return inner.open("")
	case SeedHex:
		if passphrase != "" {
			return nil, fmt.Errorf("%w: hex seeds take no passphrase", ErrUnlockFailed)
		}
		raw, err := hex.DecodeString(strings.TrimPrefix(m.secret, "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		root, err := derivation.NewKeyPairFromSeed(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		return m.derive(root)
	case SeedMnemonic:
		root, err := derivation.NewKeyPairFromMnemonic(m.secret, passphrase)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnlockFailed, err)
		}
		return m.derive(root)
	default:
		return nil, ErrInvalidSeed
	}
}

func (m *Material) derive(root *derivation.KeyPair) (*derivation.KeyPair, error) {
	if len(m.path) == 0 {
		return root, nil
	}
	kp, err := derivation.DeriveJunctions(root, m.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return kp, nil
}
