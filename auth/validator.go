package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stephnangue/gatehouse/logical"
	"github.com/stephnangue/gatehouse/principal"
)

// TokenValidator decodes a bearer token into claims. The issuer runs
// the local implementation and verifies signatures itself; a relying
// service that holds no secrets runs the remote one and delegates the
// verdict to the issuer's introspection endpoint.
type TokenValidator interface {
	Validate(ctx context.Context, tokenString string) (*Claims, error)
}

// Verify implementations
var (
	_ TokenValidator = (*LocalValidator)(nil)
	_ TokenValidator = (*RemoteValidator)(nil)
)

// LocalValidator verifies a token's signature against the subject
// principal's current stored secret, then applies issuer and expiry
// checks. The principal lookup, not the token, decides which secret to
// verify against, so a rotation between issuance and verification
// invalidates the token.
type LocalValidator struct {
	store  principal.Store
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewLocalValidator creates a validator for the given trusted issuer
// string and clock-skew tolerance.
func NewLocalValidator(store principal.Store, issuer string, leeway time.Duration) *LocalValidator {
	return &LocalValidator{
		store:  store,
		issuer: issuer,
		leeway: leeway,
		now:    time.Now,
	}
}

// Validate decodes and verifies tokenString. Every failure mode is the
// same opaque error so callers cannot distinguish malformed from
// expired from revoked from wrong-signature.
func (v *LocalValidator) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)

	// The keyfunc runs after structural parsing but before signature
	// verification: it sees the untrusted claims, resolves the subject
	// to a principal and hands back that principal's current secret as
	// the trust anchor. Claim checks run only after the HMAC matches.
	token, err := parser.ParseWithClaims(tokenString, jwt.MapClaims{}, func(t *jwt.Token) (any, error) {
		body, ok := t.Claims.(jwt.MapClaims)
		if !ok {
			return nil, fmt.Errorf("unexpected claims type")
		}
		sub, _ := body["sub"].(string)
		if sub == "" {
			return nil, fmt.Errorf("missing subject claim")
		}
		p, err := v.store.FindByID(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("resolving subject: %w", err)
		}
		if !p.HasSecret() {
			return nil, fmt.Errorf("principal has no signing secret")
		}
		return []byte(p.Secret), nil
	})
	if err != nil {
		return nil, logical.ErrInvalidToken(err)
	}

	body, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, logical.ErrInvalidToken(fmt.Errorf("token did not validate"))
	}

	return claimsFromMap(body), nil
}

// RemoteValidator decodes a token's structure locally without verifying
// its signature and asks the issuing service whether the token is
// currently active. The remote verdict is authoritative for liveness
// and roles; the locally parsed issuer claim is still checked against
// the configured trusted issuer as defense in depth.
type RemoteValidator struct {
	client IntrospectionClient
	issuer string
}

// NewRemoteValidator creates a validator that delegates to client and
// trusts tokens from the given issuer only.
func NewRemoteValidator(client IntrospectionClient, issuer string) *RemoteValidator {
	return &RemoteValidator{
		client: client,
		issuer: issuer,
	}
}

// Validate parses tokenString, introspects it with the issuer and
// merges the verdict. Any introspection transport failure fails closed
// with the same opaque error as a rejected token.
func (v *RemoteValidator) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	body := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, body); err != nil {
		return nil, logical.ErrInvalidToken(err)
	}

	verdict, err := v.client.Introspect(ctx, tokenString)
	if err != nil {
		return nil, logical.ErrInvalidToken(fmt.Errorf("introspection: %w", err))
	}
	if !verdict.Active {
		return nil, logical.ErrInvalidToken(fmt.Errorf("token revoked"))
	}

	claims := claimsFromMap(body)
	if claims.Issuer != v.issuer {
		return nil, logical.ErrInvalidToken(fmt.Errorf("issuer mismatch"))
	}
	if verdict.Subject != "" && claims.Subject != "" && verdict.Subject != claims.Subject {
		return nil, logical.ErrInvalidToken(fmt.Errorf("subject mismatch"))
	}

	// The verdict's role list overrides whatever the unverified token
	// body claimed.
	claims.Roles = append([]string(nil), verdict.Roles...)
	claims.Extra["roles"] = claims.Roles

	return claims, nil
}
