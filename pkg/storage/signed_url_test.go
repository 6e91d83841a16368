package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, expiresAt, err := signer.Generate("reg-1", "reg-1.pdf")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	registrationID, relPath, _, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "reg-1", registrationID)
	assert.Equal(t, "reg-1.pdf", relPath)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("reg-1", "reg-1.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "reg-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."))
	assert.Error(t, err)

	_, _, _, err = signer.Parse("not-a-token")
	assert.Error(t, err)

	other := NewSignedURLSigner("different-secret", time.Hour)
	_, _, _, err = other.Parse(token)
	assert.Error(t, err)
}

func TestSignedURLExpires(t *testing.T) {
	signer := NewSignedURLSigner("secret", -time.Minute)
	token, _, err := signer.Generate("reg-1", "reg-1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token)
	assert.Error(t, err)
}

func TestSignedURLRequiresSecretAndInput(t *testing.T) {
	signer := NewSignedURLSigner("", time.Hour)
	_, _, err := signer.Generate("reg-1", "reg-1.pdf")
	assert.Error(t, err)

	signer = NewSignedURLSigner("secret", time.Hour)
	_, _, err = signer.Generate("", "reg-1.pdf")
	assert.Error(t, err)
}
