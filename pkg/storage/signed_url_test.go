package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expiresAt, err := signer.Generate("licenses", "user-1/license.png", PermissionRead)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	container, key, perm, _, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "licenses", container)
	assert.Equal(t, "user-1/license.png", key)
	assert.Equal(t, PermissionRead, perm)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate("licenses", "user-1/license.png", PermissionRead)
	require.NoError(t, err)

	_, _, _, _, err = signer.Parse(token + "0")
	assert.Error(t, err)

	other := NewSignedURLSigner("other-secret", time.Minute)
	_, _, _, _, err = other.Parse(token)
	assert.Error(t, err)
}

func TestSignedURLRejectsExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("licenses", "user-1/license.png", PermissionRead)
	require.NoError(t, err)

	_, _, _, _, err = signer.Parse(token)
	assert.Error(t, err)
}
