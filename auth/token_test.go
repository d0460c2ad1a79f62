package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/gatehouse/logical"
	"github.com/stephnangue/gatehouse/principal"
)

func signedPrincipal() *principal.Principal {
	return &principal.Principal{
		ID:     "f3b5c2f0-0000-4000-8000-000000000001",
		Name:   "Alice",
		Email:  "alice@example.com",
		Secret: "6f6b2d746573742d736563726574206f6b2d746573742d736563726574210a0a",
		Roles:  []string{"SUBSCRIBER", "ADMIN"},
	}
}

func TestIssuer_IssueClaims(t *testing.T) {
	issuer := NewIssuer("https://gatehouse.example.com", time.Hour)
	p := signedPrincipal()

	issued, err := issuer.Issue(p, nil)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)

	body := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(issued.Token, body)
	require.NoError(t, err)

	assert.Equal(t, "https://gatehouse.example.com", body["iss"])
	assert.Equal(t, p.ID, body["sub"])
	assert.Equal(t, p.Email, body["email"])
	assert.ElementsMatch(t, []any{"SUBSCRIBER", "ADMIN"}, body["roles"])
	assert.NotEmpty(t, body["jti"])

	exp, err := body.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, issued.ExpiresAt, exp.Time, time.Second)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)
}

func TestIssuer_MissingSecret(t *testing.T) {
	issuer := NewIssuer("https://gatehouse.example.com", time.Hour)
	p := signedPrincipal()
	p.Secret = ""

	_, err := issuer.Issue(p, nil)
	require.Error(t, err)
	assert.Equal(t, 500, logical.GetErrorCode(err))
}

func TestIssuer_TwoIssuancesDiffer(t *testing.T) {
	issuer := NewIssuer("https://gatehouse.example.com", time.Hour)
	p := signedPrincipal()

	t0 := time.Unix(1_700_000_000, 0)
	issuer.now = func() time.Time { return t0 }
	first, err := issuer.Issue(p, nil)
	require.NoError(t, err)

	issuer.now = func() time.Time { return t0.Add(time.Second) }
	second, err := issuer.Issue(p, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, time.Second, second.ExpiresAt.Sub(first.ExpiresAt))
}

func TestIssuer_ExtraClaimsDoNotOverrideRegistered(t *testing.T) {
	issuer := NewIssuer("https://gatehouse.example.com", time.Hour)
	p := signedPrincipal()

	issued, err := issuer.Issue(p, map[string]any{
		"tenant": "acme",
		"iss":    "https://spoofed.example.com",
	})
	require.NoError(t, err)

	body := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(issued.Token, body)
	require.NoError(t, err)

	assert.Equal(t, "acme", body["tenant"])
	assert.Equal(t, "https://gatehouse.example.com", body["iss"])
}

func TestIssuer_BuildAuthResponse(t *testing.T) {
	issuer := NewIssuer("https://gatehouse.example.com", time.Hour)
	p := signedPrincipal()

	resp, err := issuer.BuildAuthResponse(p)
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, p.ID, resp.User.ID)
	assert.Equal(t, p.Name, resp.User.Name)
	assert.Equal(t, p.Email, resp.User.Email)
	assert.Equal(t, p.Roles, resp.User.Roles)
	assert.Greater(t, resp.ExpiresAt, time.Now().Unix())
}
