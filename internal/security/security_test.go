package security_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Zimam07/Sonjog/internal/security"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := security.NewTokenService("secret", time.Hour)

	tok, err := svc.CreateForUser(42)
	require.NoError(t, err)

	userID, err := svc.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenRejectsExpiredAndForeign(t *testing.T) {
	svc := security.NewTokenService("secret", time.Hour)

	expired, err := svc.CreateWithTTL(1, -time.Minute)
	require.NoError(t, err)
	_, err = svc.Parse(expired)
	assert.ErrorIs(t, err, security.ErrInvalidToken)

	other := security.NewTokenService("another-secret", time.Hour)
	foreign, err := other.CreateForUser(1)
	require.NoError(t, err)
	_, err = svc.Parse(foreign)
	assert.ErrorIs(t, err, security.ErrInvalidToken)

	_, err = svc.Parse("not-a-token")
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}

func TestPasswordHasher(t *testing.T) {
	h := security.NewPasswordHasher(bcrypt.MinCost)

	hashed, err := h.Hash("Password1!")
	require.NoError(t, err)
	assert.True(t, h.Matches("Password1!", hashed))
	assert.False(t, h.Matches("password1!", hashed))

	_, err = h.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, security.ErrPasswordTooLong)
}

func TestEncryptorRoundTripAndRotation(t *testing.T) {
	oldKey, err := security.GenerateKey()
	require.NoError(t, err)
	newKey, err := security.GenerateKey()
	require.NoError(t, err)

	oldEnc, err := security.NewEncryptor(oldKey, nil)
	require.NoError(t, err)
	stored, err := oldEnc.Encrypt("hello")
	require.NoError(t, err)
	assert.NotEqual(t, "hello", stored)

	rotated, err := security.NewEncryptor(newKey, []string{oldKey})
	require.NoError(t, err)
	plain, err := rotated.Decrypt(stored)
	require.NoError(t, err)
	assert.Equal(t, "hello", plain)

	withoutLegacy, err := security.NewEncryptor(newKey, nil)
	require.NoError(t, err)
	_, err = withoutLegacy.Decrypt(stored)
	assert.Error(t, err)
}

func TestNewEncryptorRejectsMalformedKey(t *testing.T) {
	_, err := security.NewEncryptor("short", nil)
	assert.Error(t, err)
}
