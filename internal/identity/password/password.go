// Package password hashes and verifies user credentials.
//
// New hashes use the configured scheme. Verification dispatches on the
// stored hash format, so switching schemes keeps old accounts working.
package password

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Scheme names.
const (
	SchemeBcrypt = "bcrypt"
	SchemeArgon2 = "argon2"
)

// ErrUnknownScheme is returned for an unsupported scheme or hash format.
var ErrUnknownScheme = errors.New("unknown password hashing scheme")

// Hasher hashes new passwords and verifies existing hashes.
type Hasher struct {
	scheme     string
	bcryptCost int
	argon      argon2.Config
}

// NewHasher creates a Hasher producing hashes of the given scheme.
func NewHasher(scheme string) (*Hasher, error) {
	switch scheme {
	case SchemeBcrypt, SchemeArgon2:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	return &Hasher{
		scheme:     scheme,
		bcryptCost: bcrypt.DefaultCost,
		argon:      argon2.DefaultConfig(),
	}, nil
}

// Hash returns an encoded hash of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	switch h.scheme {
	case SchemeArgon2:
		encoded, err := h.argon.HashEncoded([]byte(plain))
		if err != nil {
			return "", fmt.Errorf("argon2 hash: %w", err)
		}
		return string(encoded), nil
	default:
		hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("bcrypt hash: %w", err)
		}
		return string(hash), nil
	}
}

// Verify reports whether plain matches the encoded hash.
func (h *Hasher) Verify(plain, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, "$argon2"):
		ok, err := argon2.VerifyEncoded([]byte(plain), []byte(encoded))
		if err != nil {
			return false, fmt.Errorf("argon2 verify: %w", err)
		}
		return ok, nil

	case strings.HasPrefix(encoded, "$2"):
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("bcrypt verify: %w", err)
		}
		return true, nil
	}

	return false, ErrUnknownScheme
}

// Scheme returns the scheme used for new hashes.
func (h *Hasher) Scheme() string {
	return h.scheme
}
