package derivation

import (
	"errors"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

// GenericSS58Prefix is the substrate "generic" network prefix.
const GenericSS58Prefix = 42

var ss58Pre = []byte("SS58PRE")

var ErrInvalidAddress = errors.New("invalid ss58 address")

// SS58Address renders pub as a base58 substrate address for a simple
// (single-byte, < 64) network prefix.
func SS58Address(pub *PublicKey, prefix uint8) string {
	body := make([]byte, 0, 1+PublicKeySize+2)
	body = append(body, prefix&0x3f)
	body = append(body, pub.Bytes()...)
	sum := ss58Checksum(body)
	body = append(body, sum[:2]...)
	return base58.Encode(body)
}

// ParseSS58Address decodes an address produced by SS58Address.
func ParseSS58Address(addr string) (*PublicKey, uint8, error) {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 1+PublicKeySize+2 || raw[0] >= 64 {
		return nil, 0, ErrInvalidAddress
	}
	body := raw[:1+PublicKeySize]
	sum := ss58Checksum(body)
	if sum[0] != raw[len(raw)-2] || sum[1] != raw[len(raw)-1] {
		return nil, 0, ErrInvalidAddress
	}
	pub, err := NewPublicKey(body[1:])
	if err != nil {
		return nil, 0, ErrInvalidAddress
	}
	return pub, raw[0], nil
}

func ss58Checksum(body []byte) [blake2b.Size]byte {
	buf := make([]byte, 0, len(ss58Pre)+len(body))
	buf = append(buf, ss58Pre...)
	buf = append(buf, body...)
	return blake2b.Sum512(buf)
}
