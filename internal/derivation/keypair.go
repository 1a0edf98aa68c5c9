package derivation

import (
	"errors"
	"fmt"

	schnorrkel "github.com/ChainSafe/go-schnorrkel"
)

const (
	PublicKeySize = schnorrkel.PublicKeySize
	SignatureSize = schnorrkel.SignatureSize
	SecretSize    = schnorrkel.MiniSecretKeySize
)

// signingContext matches the context substrate nodes verify sr25519 payloads under.
var signingContext = []byte("substrate")

var ErrInvalidKey = errors.New("invalid key material")

// KeyPair is an sr25519 secret key with its public key. It is immutable after
// construction and safe for concurrent use.
type KeyPair struct {
	secret *schnorrkel.SecretKey
	public *schnorrkel.PublicKey
}

// PublicKey is an sr25519 public key.
type PublicKey struct {
	key *schnorrkel.PublicKey
}

// NewKeyPairFromSeed expands a 32-byte mini secret the way substrate does
// (ed25519-style expansion).
func NewKeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != SecretSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes", ErrInvalidKey, SecretSize)
	}
	var raw [SecretSize]byte
	copy(raw[:], seed)
	mini, err := schnorrkel.NewMiniSecretKeyFromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return newKeyPair(mini.ExpandEd25519())
}

// NewKeyPairFromMnemonic derives the root pair from a BIP39 phrase using the
// substrate-bip39 scheme; password is the BIP39 password.
func NewKeyPairFromMnemonic(mnemonic, password string) (*KeyPair, error) {
	mini, err := schnorrkel.MiniSecretKeyFromMnemonic(mnemonic, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return newKeyPair(mini.ExpandEd25519())
}

func newKeyPair(sk *schnorrkel.SecretKey) (*KeyPair, error) {
	pub, err := sk.Public()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &KeyPair{secret: sk, public: pub}, nil
}

func (k *KeyPair) Public() *PublicKey {
	return &PublicKey{key: k.public}
}

// RawSecret returns a copy of the 32-byte secret scalar. It is only meant as
// input to one-way key derivation functions.
func (k *KeyPair) RawSecret() []byte {
	enc := k.secret.Encode()
	return enc[:]
}

// Sign signs payload as-is and returns the 64-byte signature.
func (k *KeyPair) Sign(payload []byte) ([]byte, error) {
	sig, err := k.secret.Sign(schnorrkel.NewSigningContext(signingContext, payload))
	if err != nil {
		return nil, err
	}
	enc := sig.Encode()
	return enc[:], nil
}

// NewPublicKey decodes a 32-byte compressed ristretto point.
func NewPublicKey(b []byte) (*PublicKey, error) {
	if len(b) != PublicKeySize {
		return nil, fmt.Errorf("%w: public key must be %d bytes", ErrInvalidKey, PublicKeySize)
	}
	var raw [PublicKeySize]byte
	copy(raw[:], b)
	pub, err := schnorrkel.NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &PublicKey{key: pub}, nil
}

func (p *PublicKey) Bytes() []byte {
	enc := p.key.Encode()
	return enc[:]
}

func (p *PublicKey) Equal(other *PublicKey) bool {
	if p == nil || other == nil {
		return false
	}
	return p.key.Encode() == other.key.Encode()
}

// Verify reports whether sig is a valid signature of payload by p.
func (p *PublicKey) Verify(payload, sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	var raw [SignatureSize]byte
	copy(raw[:], sig)
	s := &schnorrkel.Signature{}
	if err := s.Decode(raw); err != nil {
		return false
	}
	ok, err := p.key.Verify(s, schnorrkel.NewSigningContext(signingContext, payload))
	return err == nil && ok
}
