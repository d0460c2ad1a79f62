package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stephnangue/gatehouse/helper"
	"github.com/stephnangue/gatehouse/logical"
	"github.com/stephnangue/gatehouse/principal"
)

// Claims are the assertions carried inside a validated token. Extra
// holds every claim of the token body, including ones this service does
// not interpret, so unknown claims round-trip through issuance and
// local validation unchanged.
type Claims struct {
	Subject   string
	Issuer    string
	Email     string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Extra     map[string]any
}

// claimsFromMap builds Claims out of a decoded token body.
func claimsFromMap(body jwt.MapClaims) *Claims {
	claims := &Claims{
		Extra: map[string]any{},
	}
	for key, value := range body {
		claims.Extra[key] = value
	}
	if sub, ok := body["sub"].(string); ok {
		claims.Subject = sub
	}
	if iss, ok := body["iss"].(string); ok {
		claims.Issuer = iss
	}
	if email, ok := body["email"].(string); ok {
		claims.Email = email
	}
	claims.Roles = stringList(body["roles"])
	if iat, err := body.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := body.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims
}

// stringList coerces a decoded JSON claim into a string slice. JSON
// arrays decode as []any; tokens this service issued carry []string
// only before encoding.
func stringList(value any) []string {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// IssuedToken is a freshly signed token plus its expiry instant.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// Issuer mints bearer tokens signed with a principal's own secret.
type Issuer struct {
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer for the given issuer string and token TTL.
func NewIssuer(issuer string, ttl time.Duration) *Issuer {
	return &Issuer{
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue builds and signs a token for the principal using its current
// signing secret. The principal must already hold a secret: callers go
// through SecretStore.Ensure first, and issuing without one fails
// instead of signing with an empty key. Extra claims are merged into
// the body without overriding the registered ones.
func (i *Issuer) Issue(p *principal.Principal, extra map[string]any) (*IssuedToken, error) {
	if !p.HasSecret() {
		return nil, logical.ErrSigningUnavailable("principal signing secret is missing")
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)

	body := jwt.MapClaims{}
	for key, value := range extra {
		body[key] = value
	}
	body["iss"] = i.issuer
	body["sub"] = p.ID
	body["jti"] = helper.GenerateTokenID()
	body["iat"] = jwt.NewNumericDate(now)
	body["exp"] = jwt.NewNumericDate(expiresAt)
	body["email"] = p.Email
	body["roles"] = append([]string(nil), p.Roles...)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, body)
	signed, err := token.SignedString([]byte(p.Secret))
	if err != nil {
		return nil, err
	}

	return &IssuedToken{
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// PrincipalSummary is the client-facing view of a principal.
type PrincipalSummary struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// AuthResponse is the result of a successful login, registration,
// federated sign-in or secret rotation.
type AuthResponse struct {
	Token     string           `json:"token"`
	ExpiresAt int64            `json:"expires_at"`
	User      PrincipalSummary `json:"user"`
}

// BuildAuthResponse issues a token for the principal and packages it
// with the expiry and a summary of the account.
func (i *Issuer) BuildAuthResponse(p *principal.Principal) (*AuthResponse, error) {
	issued, err := i.Issue(p, nil)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt.Unix(),
		User: PrincipalSummary{
			ID:    p.ID,
			Name:  p.Name,
			Email: p.Email,
			Roles: append([]string(nil), p.Roles...),
		},
	}, nil
}
