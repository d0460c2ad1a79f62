package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-uuid"

	"github.com/stephnangue/gatehouse/helper"
	"github.com/stephnangue/gatehouse/logger"
	"github.com/stephnangue/gatehouse/logical"
	"github.com/stephnangue/gatehouse/principal"
	"github.com/stephnangue/gatehouse/role"
)

// Config carries the token parameters shared by the issuer and every
// relying service. The issuer string must match exactly between them.
type Config struct {
	Issuer    string
	TokenTTL  time.Duration
	ClockSkew time.Duration
}

// Service is the issuer-side authentication service: registration,
// login, federated sign-in, secret rotation and introspection.
type Service struct {
	store      principal.Store
	identities principal.IdentityStore
	secrets    *SecretStore
	creds      *CredentialVerifier
	issuer     *Issuer
	validator  *LocalValidator
	permits    *PermitPool
	log        logger.Logger
}

// NewService wires the issuer-side service.
func NewService(cfg Config, store principal.Store, identities principal.IdentityStore, log logger.Logger) *Service {
	return &Service{
		store:      store,
		identities: identities,
		secrets:    NewSecretStore(store),
		creds:      NewCredentialVerifier(store, log),
		issuer:     NewIssuer(cfg.Issuer, cfg.TokenTTL),
		validator:  NewLocalValidator(store, cfg.Issuer, cfg.ClockSkew),
		permits:    NewPermitPool(DefaultPermits),
		log:        log.WithSubsystem("auth"),
	}
}

// Validator exposes the issuer's local token validator, used by the
// issuer's own protected endpoints.
func (s *Service) Validator() TokenValidator {
	return s.validator
}

// RegisterRequest is the input of Register.
type RegisterRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles,omitempty"`
}

// Register creates a principal and signs it in. A duplicate email is a
// conflict and creates nothing.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if req == nil || isBlank(req.Name) || isBlank(req.Email) || isBlank(req.Password) {
		return nil, logical.ErrBadRequest("name, email, and password are required")
	}

	if err := s.permits.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.permits.Release()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, logical.ErrConflict("email already registered")
	} else if !errors.Is(err, principal.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	roles := role.Normalize(req.Roles)
	if roles == nil {
		roles = role.Default()
	}

	id, err := s.store.Create(ctx, &principal.Principal{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
	})
	if err != nil {
		if errors.Is(err, principal.ErrEmailTaken) {
			return nil, logical.ErrConflict("email already registered")
		}
		return nil, err
	}

	s.log.Info("principal registered", logger.String("principal_id", id))
	return s.signIn(ctx, id)
}

// Login authenticates an email/password pair and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	if isBlank(email) || isBlank(password) {
		return nil, logical.ErrBadRequest("email and password are required")
	}

	if err := s.permits.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.permits.Release()

	p, err := s.store.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, principal.ErrNotFound) {
			return nil, logical.ErrInvalidCredentials("invalid credentials")
		}
		return nil, err
	}

	if !s.creds.Verify(ctx, p, password) {
		return nil, logical.ErrInvalidCredentials("invalid credentials")
	}

	return s.signIn(ctx, p.ID)
}

// RotateSecret replaces the principal's signing secret, invalidating
// every outstanding token, and returns a fresh response signed with the
// new secret.
func (s *Service) RotateSecret(ctx context.Context, principalID string) (*AuthResponse, error) {
	if _, err := s.secrets.Rotate(ctx, principalID); err != nil {
		if errors.Is(err, principal.ErrNotFound) {
			return nil, logical.ErrNotFound("principal not found")
		}
		return nil, err
	}

	s.log.Info("signing secret rotated", logger.String("principal_id", principalID))

	p, err := s.store.FindByID(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return s.issuer.BuildAuthResponse(p)
}

// Introspect answers whether a token is currently valid. It answers for
// any syntactically parseable token, including expired, forged and
// unknown-subject ones, with an inactive verdict rather than an error.
func (s *Service) Introspect(ctx context.Context, token string) *IntrospectionVerdict {
	if isBlank(token) {
		return InactiveVerdict()
	}

	claims, err := s.validator.Validate(ctx, token)
	if err != nil {
		return InactiveVerdict()
	}

	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}
	return &IntrospectionVerdict{
		Active:  true,
		Subject: claims.Subject,
		Roles:   roles,
	}
}

// FederatedIdentity is a federated login callback already resolved by
// the provider: its stable user id plus whatever profile attributes the
// provider shared.
type FederatedIdentity struct {
	Provider string
	UserID   string
	Email    string
	Name     string
	Login    string
}

// FederatedLogin resolves the external identity to a local principal,
// creating and linking one as needed, and signs it in.
func (s *Service) FederatedLogin(ctx context.Context, identity *FederatedIdentity) (*AuthResponse, error) {
	if identity == nil || isBlank(identity.Provider) || isBlank(identity.UserID) {
		return nil, logical.ErrBadRequest("provider and provider user id are required")
	}

	if err := s.permits.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.permits.Release()

	p, err := s.resolveIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, p.ID)
}

// resolveIdentity implements the linking algorithm: existing link wins,
// then email match, then a fresh principal. Two concurrent callbacks
// for the same external identity converge on one principal because the
// identity row's uniqueness constraint makes the losing writer re-read
// the winner's link.
func (s *Service) resolveIdentity(ctx context.Context, identity *FederatedIdentity) (*principal.Principal, error) {
	if linkedID, err := s.identities.FindPrincipalID(ctx, identity.Provider, identity.UserID); err == nil {
		return s.store.FindByID(ctx, linkedID)
	} else if !errors.Is(err, principal.ErrNotFound) {
		return nil, err
	}

	email := deriveEmail(identity)

	var resolved *principal.Principal
	existing, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		resolved = existing
	case errors.Is(err, principal.ErrNotFound):
		resolved, err = s.createFederatedPrincipal(ctx, identity, email)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	err = s.identities.CreateIdentity(ctx, &principal.ExternalIdentity{
		PrincipalID:    resolved.ID,
		Provider:       identity.Provider,
		ProviderUserID: identity.UserID,
		Email:          email,
	})
	if errors.Is(err, principal.ErrIdentityExists) {
		// Lost the linking race: the row now exists, follow it.
		linkedID, lookupErr := s.identities.FindPrincipalID(ctx, identity.Provider, identity.UserID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		return s.store.FindByID(ctx, linkedID)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("external identity linked",
		logger.String("provider", identity.Provider),
		logger.String("principal_id", resolved.ID))
	return resolved, nil
}

func (s *Service) createFederatedPrincipal(ctx context.Context, identity *FederatedIdentity, email string) (*principal.Principal, error) {
	// The credential is random and never disclosed, so the account can
	// only ever sign in through a provider.
	hash, err := HashPassword(helper.GenerateSecret())
	if err != nil {
		return nil, err
	}

	id, err := s.store.Create(ctx, &principal.Principal{
		Name:         deriveName(identity),
		Email:        email,
		PasswordHash: hash,
		Roles:        role.Default(),
	})
	if err != nil {
		if errors.Is(err, principal.ErrEmailTaken) {
			// Another callback created the account between our lookup
			// and insert; use it.
			return s.store.FindByEmail(ctx, email)
		}
		return nil, err
	}
	return s.store.FindByID(ctx, id)
}

// signIn ensures the principal can sign tokens, then issues one. The
// principal is re-read after Ensure so the response is signed with the
// secret that was just persisted.
func (s *Service) signIn(ctx context.Context, principalID string) (*AuthResponse, error) {
	if _, err := s.secrets.Ensure(ctx, principalID); err != nil {
		return nil, err
	}
	p, err := s.store.FindByID(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return s.issuer.BuildAuthResponse(p)
}

func deriveEmail(identity *FederatedIdentity) string {
	if !isBlank(identity.Email) {
		return strings.ToLower(strings.TrimSpace(identity.Email))
	}
	provider := strings.ToLower(strings.TrimSpace(identity.Provider))
	if !isBlank(identity.Login) {
		return strings.ToLower(fmt.Sprintf("%s@users.noreply.%s.com", strings.TrimSpace(identity.Login), provider))
	}
	random, err := uuid.GenerateUUID()
	if err != nil {
		random = helper.GenerateRandomString(32)
	}
	return fmt.Sprintf("%s@users.noreply.%s.com", random, provider)
}

func deriveName(identity *FederatedIdentity) string {
	if !isBlank(identity.Name) {
		return strings.TrimSpace(identity.Name)
	}
	if !isBlank(identity.Login) {
		return strings.TrimSpace(identity.Login)
	}
	return fmt.Sprintf("%s user", identity.Provider)
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
