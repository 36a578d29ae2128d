// Package token issues the opaque, single-use tokens that identify
// invitations externally.
package token

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
)

const (
	// tokenBytes is the amount of raw entropy per token before encoding.
	tokenBytes = 48
	// maxAttempts bounds the collision-retry loop. Hitting it means the
	// entropy source or the store is broken, not that the space is full.
	maxAttempts = 100
)

// ErrTokenSpaceExhausted is returned after the retry bound is exceeded. It is
// fatal by contract: callers must not treat it as a business outcome.
var ErrTokenSpaceExhausted = errors.New("token: exhausted unique token attempts")

// ExistenceChecker answers whether a token is already bound to any
// invitation, soft-deleted ones included.
type ExistenceChecker interface {
	TokenExists(token string) (bool, error)
}

// Issuer generates collision-free URL-safe tokens. It holds no state between
// attempts and never persists tokens itself; the store's unique constraint
// remains the authoritative guard.
type Issuer struct {
	store ExistenceChecker
}

func NewIssuer(store ExistenceChecker) *Issuer {
	return &Issuer{store: store}
}

// Issue returns a fresh token not currently present in the store. It retries
// on collision up to the fixed bound.
func (i *Issuer) Issue() (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate, err := generate()
		if err != nil {
			return "", errors.Wrap(err, "generate token")
		}

		exists, err := i.store.TokenExists(candidate)
		if err != nil {
			return "", errors.Wrap(err, "check token existence")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrTokenSpaceExhausted
}

func generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
