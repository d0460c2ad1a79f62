package principal

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a referenced principal or identity
	// does not exist.
	ErrNotFound = errors.New("principal not found")

	// ErrEmailTaken is the uniqueness violation on the email column.
	ErrEmailTaken = errors.New("email already registered")

	// ErrIdentityExists is the uniqueness violation on the
	// (provider, provider_user_id) key. Federated linking treats it as
	// "lost the race": re-read the link instead of failing.
	ErrIdentityExists = errors.New("external identity already linked")
)

// Store persists principals. Implementations perform single-row atomic
// updates; no cross-row transaction is required by any caller.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*Principal, error)
	FindByID(ctx context.Context, id string) (*Principal, error)
	Create(ctx context.Context, p *Principal) (string, error)
	UpdateSecret(ctx context.Context, id, secret string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateRoles(ctx context.Context, id string, roles []string) (int, error)
	Delete(ctx context.Context, id string) (int, error)
	ListAll(ctx context.Context) ([]*Principal, error)
}

// IdentityStore persists external identity links. CreateIdentity must
// enforce the (provider, provider_user_id) uniqueness constraint and
// surface a violation as ErrIdentityExists.
type IdentityStore interface {
	FindPrincipalID(ctx context.Context, provider, providerUserID string) (string, error)
	CreateIdentity(ctx context.Context, identity *ExternalIdentity) error
}
