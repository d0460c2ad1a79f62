package auth

import (
	"context"

	"github.com/stephnangue/gatehouse/helper"
	"github.com/stephnangue/gatehouse/principal"
)

// SecretStore manages per-principal signing secrets. Rotating a secret
// invalidates every token signed with the previous one, because
// validation always re-reads the current secret.
type SecretStore struct {
	store principal.Store
}

// NewSecretStore creates a SecretStore backed by the given principal store.
func NewSecretStore(store principal.Store) *SecretStore {
	return &SecretStore{store: store}
}

// Ensure returns the principal's current signing secret, generating and
// persisting one exactly once if none exists. Under a generation race
// the last writer wins; callers must sign or verify with the returned
// value within the same logical operation.
func (s *SecretStore) Ensure(ctx context.Context, principalID string) (string, error) {
	p, err := s.store.FindByID(ctx, principalID)
	if err != nil {
		return "", err
	}
	if p.HasSecret() {
		return p.Secret, nil
	}

	secret := helper.GenerateSecret()
	if err := s.store.UpdateSecret(ctx, principalID, secret); err != nil {
		return "", err
	}
	return secret, nil
}

// Rotate unconditionally replaces the principal's signing secret with a
// freshly generated one and persists it.
func (s *SecretStore) Rotate(ctx context.Context, principalID string) (string, error) {
	if _, err := s.store.FindByID(ctx, principalID); err != nil {
		return "", err
	}

	secret := helper.GenerateSecret()
	if err := s.store.UpdateSecret(ctx, principalID, secret); err != nil {
		return "", err
	}
	return secret, nil
}
