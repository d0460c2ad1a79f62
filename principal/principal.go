package principal

import "time"

// Principal is an authenticated account. The ID is an opaque UUID and
// never changes; everything else is mutable through the store. Secret is
// the per-principal symmetric signing key and stays empty until the
// first token issuance.
type Principal struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Secret       string
	Roles        []string
	CreatedAt    time.Time
}

// HasSecret reports whether the principal can sign and verify tokens.
func (p *Principal) HasSecret() bool {
	return p != nil && p.Secret != ""
}

// Clone returns a deep copy so store callers never share role slices.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Roles = append([]string(nil), p.Roles...)
	return &clone
}

// ExternalIdentity links a federated provider's user id to a Principal.
// (Provider, ProviderUserID) is unique; a principal may carry one link
// per provider.
type ExternalIdentity struct {
	ID             string
	PrincipalID    string
	Provider       string
	ProviderUserID string
	Email          string
	CreatedAt      time.Time
}
