// Package derivation implements deterministic sr25519 hierarchical key
// derivation. A user account is never stored: it is recomputed from the root
// key pair and the user's identifier on every request.
package derivation

import (
	"fmt"

	schnorrkel "github.com/ChainSafe/go-schnorrkel"
)

// Derive returns the child key pair identified by id, treating the whole
// identifier as one junction.
func Derive(root *KeyPair, id string) (*KeyPair, error) {
	j, err := JunctionFromIdentifier(id)
	if err != nil {
		return nil, err
	}
	return DeriveJunctions(root, []Junction{j})
}

// DeriveJunctions applies each junction in order.
func DeriveJunctions(root *KeyPair, path []Junction) (*KeyPair, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil root", ErrDerivationFailed)
	}
	acc := root
	for _, j := range path {
		var (
			ek  *schnorrkel.ExtendedKey
			err error
		)
		if j.Hard {
			ek, err = schnorrkel.DeriveKeyHard(acc.secret, nil, j.ChainCode)
		} else {
			ek, err = schnorrkel.DeriveKeySimple(acc.secret, nil, j.ChainCode)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
		}
		sk, err := ek.Secret()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
		}
		next, err := newKeyPair(sk)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
		}
		acc = next
	}
	return acc, nil
}

// DerivePublic derives the child public key for a soft identifier from the
// parent public key alone. Hard identifiers need the secret and fail with
// ErrHardJunction.
func DerivePublic(parent *PublicKey, id string) (*PublicKey, error) {
	if parent == nil {
		return nil, fmt.Errorf("%w: nil public key", ErrDerivationFailed)
	}
	j, err := JunctionFromIdentifier(id)
	if err != nil {
		return nil, err
	}
	if j.Hard {
		return nil, ErrHardJunction
	}
	ek, err := schnorrkel.DeriveKeySimple(parent.key, nil, j.ChainCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	pub, err := ek.Public()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	return &PublicKey{key: pub}, nil
}
