// Package session turns a user identifier into an opaque, authenticated-
// encrypted cookie value and back. Nothing is stored server side: the key is
// derived from the root account on demand.
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"walletd/go-backend/internal/derivation"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// DefaultCookieName is the cookie that carries the session token.
const DefaultCookieName = "wallet"

const hkdfInfoSession = "walletd/session/v1"

// maxIdentifierLen mirrors the derivation bound; longer plaintexts are never issued.
const maxIdentifierLen = derivation.MaxIdentifierLen

var (
	ErrTokenInvalid  = errors.New("session token invalid")
	ErrEmptyIdentity = errors.New("session identifier is empty")
)

// Key is the symmetric session key.
type Key [chacha20poly1305.KeySize]byte

// KeyFor derives the session key from the root pair's raw secret with
// HKDF-SHA256. The result is constant for a given root.
func KeyFor(root *derivation.KeyPair) (Key, error) {
	var k Key
	if root == nil {
		return k, errors.New("session key requires a root account")
	}
	secret := root.RawSecret()
	defer zeroBytes(secret)
	reader := hkdf.New(sha256.New, secret, nil, []byte(hkdfInfoSession))
	if _, err := io.ReadFull(reader, k[:]); err != nil {
		return Key{}, err
	}
	return k, nil
}

// Codec encodes identifiers for one cookie name under one key. The cookie
// name is authenticated as associated data.
type Codec struct {
	key  Key
	name string
}

func NewCodec(key Key, cookieName string) *Codec {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Codec{key: key, name: cookieName}
}

func (c *Codec) CookieName() string { return c.name }

// Encode seals identifier under a fresh random nonce and returns the
// base64url token.
func (c *Codec) Encode(identifier string) (string, error) {
	if identifier == "" {
		return "", ErrEmptyIdentity
	}
	if len(identifier) > maxIdentifierLen {
		return "", fmt.Errorf("session identifier exceeds %d bytes", maxIdentifierLen)
	}
	aead, err := chacha20poly1305.NewX(c.key[:])
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(identifier)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(identifier), []byte(c.name))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode opens token. Every failure collapses into ErrTokenInvalid.
func (c *Codec) Decode(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrTokenInvalid
	}
	aead, err := chacha20poly1305.NewX(c.key[:])
	if err != nil {
		return "", ErrTokenInvalid
	}
	if len(raw) < aead.NonceSize()+aead.Overhead()+1 {
		return "", ErrTokenInvalid
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(c.name))
	if err != nil {
		return "", ErrTokenInvalid
	}
	return string(plaintext), nil
}

// Cookie builds the Set-Cookie value for identifier.
func (c *Codec) Cookie(identifier string, maxAge time.Duration, secure bool) (*http.Cookie, error) {
	token, err := c.Encode(identifier)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}, nil
}

// DecodeJar finds the session cookie in jar and decodes it.
func (c *Codec) DecodeJar(jar Jar) (string, error) {
	token, ok := jar.Get(c.name)
	if !ok {
		return "", ErrTokenInvalid
	}
	return c.Decode(token)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
