package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T, scheme string) *Hasher {
	t.Helper()
	h, err := NewHasher(scheme)
	require.NoError(t, err)
	h.bcryptCost = bcrypt.MinCost
	h.argon.MemoryCost = 8 * 1024
	h.argon.TimeCost = 1
	return h
}

func TestHasher_RoundTrip(t *testing.T) {
	for _, scheme := range []string{SchemeBcrypt, SchemeArgon2} {
		t.Run(scheme, func(t *testing.T) {
			h := newTestHasher(t, scheme)

			hash, err := h.Hash("correct horse")
			require.NoError(t, err)
			assert.NotContains(t, hash, "correct horse")

			ok, err := h.Verify("correct horse", hash)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = h.Verify("wrong horse", hash)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestHasher_VerifiesOtherScheme(t *testing.T) {
	bcryptHasher := newTestHasher(t, SchemeBcrypt)
	argonHasher := newTestHasher(t, SchemeArgon2)

	legacy, err := bcryptHasher.Hash("secret-pass")
	require.NoError(t, err)

	ok, err := argonHasher.Verify("secret-pass", legacy)
	require.NoError(t, err)
	assert.True(t, ok)

	modern, err := argonHasher.Hash("secret-pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(modern, "$argon2"))

	ok, err = bcryptHasher.Verify("secret-pass", modern)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasher_UnknownFormat(t *testing.T) {
	h := newTestHasher(t, SchemeBcrypt)

	ok, err := h.Verify("x", "plaintext")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

func TestNewHasher_RejectsUnknownScheme(t *testing.T) {
	_, err := NewHasher("md5")
	assert.ErrorIs(t, err, ErrUnknownScheme)
}
