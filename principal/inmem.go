package principal

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-uuid"
)

// Verify interfaces are satisfied
var (
	_ Store         = (*InmemStore)(nil)
	_ IdentityStore = (*InmemStore)(nil)
)

// InmemStore is an in-memory implementation of Store and IdentityStore.
// It is useful for testing and development situations where the data is
// not expected to be durable. Email and (provider, provider_user_id)
// uniqueness are enforced the same way a SQL unique index would be, so
// the federated linking race resolves identically.
type InmemStore struct {
	mu         sync.RWMutex
	byID       map[string]*Principal
	byEmail    map[string]string
	identities map[string]*ExternalIdentity
}

// NewInmemStore creates an empty in-memory store.
func NewInmemStore() *InmemStore {
	return &InmemStore{
		byID:       make(map[string]*Principal),
		byEmail:    make(map[string]string),
		identities: make(map[string]*ExternalIdentity),
	}
}

func identityKey(provider, providerUserID string) string {
	return provider + "\x00" + providerUserID
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *InmemStore) FindByEmail(ctx context.Context, email string) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *InmemStore) FindByID(ctx context.Context, id string) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *InmemStore) Create(ctx context.Context, p *Principal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(p.Email)
	if _, taken := s.byEmail[email]; taken {
		return "", ErrEmailTaken
	}

	stored := p.Clone()
	if stored.ID == "" {
		id, err := uuid.GenerateUUID()
		if err != nil {
			return "", err
		}
		stored.ID = id
	}
	stored.Email = email
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	s.byID[stored.ID] = stored
	s.byEmail[email] = stored.ID
	return stored.ID, nil
}

func (s *InmemStore) UpdateSecret(ctx context.Context, id, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	p.Secret = secret
	return nil
}

func (s *InmemStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	p.PasswordHash = hash
	return nil
}

func (s *InmemStore) UpdateRoles(ctx context.Context, id string, roles []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return 0, ErrNotFound
	}
	p.Roles = append([]string(nil), roles...)
	return len(p.Roles), nil
}

func (s *InmemStore) Delete(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return 0, nil
	}
	delete(s.byID, id)
	delete(s.byEmail, p.Email)
	for key, identity := range s.identities {
		if identity.PrincipalID == id {
			delete(s.identities, key)
		}
	}
	return 1, nil
}

func (s *InmemStore) ListAll(ctx context.Context) ([]*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Principal, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (s *InmemStore) FindPrincipalID(ctx context.Context, provider, providerUserID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[identityKey(provider, providerUserID)]
	if !ok {
		return "", ErrNotFound
	}
	return identity.PrincipalID, nil
}

// CreateIdentity inserts an external identity row, enforcing the
// (provider, provider_user_id) uniqueness constraint.
func (s *InmemStore) CreateIdentity(ctx context.Context, identity *ExternalIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityKey(identity.Provider, identity.ProviderUserID)
	if _, exists := s.identities[key]; exists {
		return ErrIdentityExists
	}

	stored := *identity
	if stored.ID == "" {
		id, err := uuid.GenerateUUID()
		if err != nil {
			return err
		}
		stored.ID = id
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.identities[key] = &stored
	return nil
}
