package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stephnangue/gatehouse/logger"
	"github.com/stephnangue/gatehouse/principal"
)

func storePrincipalWithHash(t *testing.T, store *principal.InmemStore, hash string) *principal.Principal {
	t.Helper()
	id, err := store.Create(context.Background(), &principal.Principal{
		Name:         "Bob",
		Email:        "bob@example.com",
		PasswordHash: hash,
	})
	require.NoError(t, err)
	p, err := store.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func TestCredentialVerifier_BcryptMatch(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	store := principal.NewInmemStore()
	verifier := NewCredentialVerifier(store, logger.NewTestLogger(nil))
	p := storePrincipalWithHash(t, store, string(hash))

	assert.True(t, verifier.Verify(context.Background(), p, "secret123"))
	assert.False(t, verifier.Verify(context.Background(), p, "wrong"))
}

func TestCredentialVerifier_LegacyUpgradeOnMatch(t *testing.T) {
	store := principal.NewInmemStore()
	verifier := NewCredentialVerifier(store, logger.NewTestLogger(nil))
	p := storePrincipalWithHash(t, store, "secret123")

	assert.True(t, verifier.Verify(context.Background(), p, "secret123"))

	// The stored value is now a bcrypt hash, not the legacy literal.
	stored, err := store.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2a$"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))

	// A second login matches via the bcrypt path and rewrites nothing.
	assert.True(t, verifier.Verify(context.Background(), stored, "secret123"))
	after, err := store.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.PasswordHash, after.PasswordHash)
}

func TestCredentialVerifier_LegacyMismatchNeverUpgrades(t *testing.T) {
	store := principal.NewInmemStore()
	verifier := NewCredentialVerifier(store, logger.NewTestLogger(nil))
	p := storePrincipalWithHash(t, store, "secret123")

	assert.False(t, verifier.Verify(context.Background(), p, "not-the-password"))

	stored, err := store.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret123", stored.PasswordHash)
}

func TestCredentialVerifier_EmptyStoredHash(t *testing.T) {
	store := principal.NewInmemStore()
	verifier := NewCredentialVerifier(store, logger.NewTestLogger(nil))
	p := storePrincipalWithHash(t, store, "")

	assert.False(t, verifier.Verify(context.Background(), p, ""))
	assert.False(t, verifier.Verify(context.Background(), p, "anything"))
}
