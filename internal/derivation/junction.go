package derivation

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"
)

// ChainCodeSize is the length of a junction chain code.
const ChainCodeSize = 32

// MaxIdentifierLen bounds the identifier text accepted as a junction.
const MaxIdentifierLen = 256

var (
	ErrDerivationFailed = errors.New("derivation failed")
	ErrHardJunction     = errors.New("hard junction requires a secret key")
)

// Junction is one level of a hierarchical derivation path.
type Junction struct {
	ChainCode [ChainCodeSize]byte
	Hard      bool
}

// JunctionFromIdentifier maps an opaque identifier to exactly one junction.
// A single leading '/' marks a hard junction; the rest of the text is the code.
func JunctionFromIdentifier(id string) (Junction, error) {
	if len(id) > MaxIdentifierLen {
		return Junction{}, fmt.Errorf("%w: identifier too long", ErrDerivationFailed)
	}
	if !utf8.ValidString(id) {
		return Junction{}, fmt.Errorf("%w: identifier is not valid utf-8", ErrDerivationFailed)
	}
	code, hard := strings.CutPrefix(id, "/")
	if code == "" {
		return Junction{}, fmt.Errorf("%w: empty junction", ErrDerivationFailed)
	}
	return newJunction(code, hard), nil
}

// ParsePath splits a path such as "//hard/soft//1" into junctions.
func ParsePath(path string) ([]Junction, error) {
	if path == "" {
		return nil, nil
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: path must start with '/'", ErrDerivationFailed)
	}
	out := make([]Junction, 0, 2)
	rest := path
	for rest != "" {
		rest = rest[1:]
		hard := false
		if strings.HasPrefix(rest, "/") {
			hard = true
			rest = rest[1:]
		}
		end := strings.IndexByte(rest, '/')
		if end < 0 {
			end = len(rest)
		}
		code := rest[:end]
		if code == "" {
			return nil, fmt.Errorf("%w: empty junction in %q", ErrDerivationFailed, path)
		}
		out = append(out, newJunction(code, hard))
		rest = rest[end:]
	}
	return out, nil
}

func newJunction(code string, hard bool) Junction {
	var encoded []byte
	if n, err := strconv.ParseUint(code, 10, 64); err == nil {
		encoded = binary.LittleEndian.AppendUint64(nil, n)
	} else {
		encoded = appendCompactLen(nil, uint64(len(code)))
		encoded = append(encoded, code...)
	}
	j := Junction{Hard: hard}
	if len(encoded) > ChainCodeSize {
		j.ChainCode = blake2b.Sum256(encoded)
	} else {
		copy(j.ChainCode[:], encoded)
	}
	return j
}

// appendCompactLen writes n in SCALE compact form.
func appendCompactLen(dst []byte, n uint64) []byte {
	switch {
	case n < 1<<6:
		return append(dst, byte(n<<2))
	case n < 1<<14:
		return binary.LittleEndian.AppendUint16(dst, uint16(n<<2)|0b01)
	case n < 1<<30:
		return binary.LittleEndian.AppendUint32(dst, uint32(n<<2)|0b10)
	default:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], n)
		size := 8
		for size > 4 && buf[size-1] == 0 {
			size--
		}
		dst = append(dst, byte((size-4)<<2)|0b11)
		return append(dst, buf[:size]...)
	}
}
