package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/gatehouse/auth"
	"github.com/stephnangue/gatehouse/logger"
	"github.com/stephnangue/gatehouse/principal"
	"github.com/stephnangue/gatehouse/role"
)

func newIssuerServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := principal.NewInmemStore()
	service := auth.NewService(auth.Config{
		Issuer:   "https://auth.test",
		TokenTTL: time.Hour,
	}, store, store, logger.NewTestLogger(io.Discard))

	server := httptest.NewServer(Handler(&HandlerProperties{
		Service: service,
		Logger:  logger.NewTestLogger(io.Discard),
	}))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	decoded := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func registerUser(t *testing.T, server *httptest.Server, name, email string, roles ...string) string {
	t.Helper()

	resp, body := doJSON(t, http.MethodPost, server.URL+"/v1/auth/register", "", map[string]any{
		"name":     name,
		"email":    email,
		"password": "hunter2hunter2",
		"roles":    roles,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHandler_RegisterLoginWhoami(t *testing.T) {
	server := newIssuerServer(t)

	//===== Register =====
	resp, body := doJSON(t, http.MethodPost, server.URL+"/v1/auth/register", "", map[string]any{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])

	//===== Login =====
	resp, body = doJSON(t, http.MethodPost, server.URL+"/v1/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["token"].(string)
	require.NotEmpty(t, token)

	//===== Whoami with the issued token =====
	resp, body = doJSON(t, http.MethodGet, server.URL+"/v1/whoami", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, []any{"SUBSCRIBER"}, body["roles"])
	assert.NotEmpty(t, body["subject"])

	//===== Whoami without a token =====
	resp, body = doJSON(t, http.MethodGet, server.URL+"/v1/whoami", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []any{"invalid token"}, body["errors"])

	//===== Whoami with a garbage token =====
	resp, body = doJSON(t, http.MethodGet, server.URL+"/v1/whoami", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []any{"invalid token"}, body["errors"])
}

func TestHandler_RegisterValidation(t *testing.T) {
	server := newIssuerServer(t)

	//===== Missing fields =====
	resp, _ := doJSON(t, http.MethodPost, server.URL+"/v1/auth/register", "", map[string]any{
		"email": "alice@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	//===== Duplicate email =====
	registerUser(t, server, "Alice", "alice@example.com")
	resp, body := doJSON(t, http.MethodPost, server.URL+"/v1/auth/register", "", map[string]any{
		"name":     "Imposter",
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, []any{"email already registered"}, body["errors"])

	//===== Wrong password =====
	resp, body = doJSON(t, http.MethodPost, server.URL+"/v1/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []any{"invalid credentials"}, body["errors"])
}

func TestHandler_Introspect(t *testing.T) {
	server := newIssuerServer(t)
	token := registerUser(t, server, "Alice", "alice@example.com", role.Producer)

	//===== Valid token =====
	resp, body := doJSON(t, http.MethodPost, server.URL+"/v1/auth/introspect", "", map[string]any{
		"token": token,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["active"])
	assert.NotEmpty(t, body["sub"])
	assert.Equal(t, []any{"PRODUCER"}, body["roles"])

	//===== Garbage token still gets a 200 verdict =====
	resp, body = doJSON(t, http.MethodPost, server.URL+"/v1/auth/introspect", "", map[string]any{
		"token": "garbage",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["active"])

	//===== Unreadable body still gets a 200 verdict =====
	req, err := http.NewRequest(http.MethodPost, server.URL+"/v1/auth/introspect", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	require.Equal(t, http.StatusOK, raw.StatusCode)
	var verdict map[string]any
	require.NoError(t, json.NewDecoder(raw.Body).Decode(&verdict))
	assert.Equal(t, false, verdict["active"])
}

func TestHandler_Rotate(t *testing.T) {
	server := newIssuerServer(t)
	oldToken := registerUser(t, server, "Alice", "alice@example.com")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/v1/auth/rotate", oldToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	newToken := body["token"].(string)
	require.NotEmpty(t, newToken)
	require.NotEqual(t, oldToken, newToken)

	//===== The old token is dead, the new one works =====
	resp, _ = doJSON(t, http.MethodGet, server.URL+"/v1/whoami", oldToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/v1/whoami", newToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_FederatedCallback(t *testing.T) {
	server := newIssuerServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/v1/auth/callback/github", "", map[string]any{
		"user_id": "42",
		"login":   "octocat",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["token"].(string)
	user := body["user"].(map[string]any)
	assert.Equal(t, "octocat@users.noreply.github.com", user["email"])

	resp, body = doJSON(t, http.MethodGet, server.URL+"/v1/whoami", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "octocat@users.noreply.github.com", body["email"])

	//===== Missing provider user id =====
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/v1/auth/callback/github", "", map[string]any{
		"login": "octocat",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_AdminSurface(t *testing.T) {
	server := newIssuerServer(t)
	adminToken := registerUser(t, server, "Root", "root@example.com", role.Admin)
	userToken := registerUser(t, server, "Alice", "alice@example.com")

	//===== Non-admins are rejected =====
	resp, body := doJSON(t, http.MethodGet, server.URL+"/v1/users", userToken, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, []any{"forbidden"}, body["errors"])

	//===== List =====
	resp, body = doJSON(t, http.MethodGet, server.URL+"/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := body["users"].([]any)
	require.Len(t, users, 2)

	var aliceID string
	for _, u := range users {
		entry := u.(map[string]any)
		if entry["email"] == "alice@example.com" {
			aliceID = entry["id"].(string)
		}
	}
	require.NotEmpty(t, aliceID)

	//===== Get =====
	resp, body = doJSON(t, http.MethodGet, server.URL+"/v1/users/"+aliceID, adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice@example.com", body["email"])

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/v1/users/missing", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	//===== Update roles =====
	resp, body = doJSON(t, http.MethodPut, server.URL+"/v1/users/"+aliceID+"/roles", adminToken, map[string]any{
		"roles": []string{"producer", "subscriber"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["updated"])

	resp, body = doJSON(t, http.MethodPut, server.URL+"/v1/users/"+aliceID+"/roles", adminToken, map[string]any{
		"roles": []string{"pirate"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []any{"unknown role: PIRATE"}, body["errors"])

	//===== Delete kills the account and its tokens =====
	resp, body = doJSON(t, http.MethodDelete, server.URL+"/v1/users/"+aliceID, adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["deleted"])

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/v1/whoami", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_PathGuard(t *testing.T) {
	server := newIssuerServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/healthz", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, []any{"path must begin with /v1/"}, body["errors"])
}

// The relying service holds no signing secrets: every bearer token it
// sees goes to the issuer's introspection endpoint over HTTP.
func TestRelyingHandler_EndToEnd(t *testing.T) {
	issuer := newIssuerServer(t)

	client := auth.NewHTTPIntrospectionClient(issuer.URL+"/v1/auth/introspect", 2*time.Second)
	relying := httptest.NewServer(RelyingHandler(&RelyingHandlerProperties{
		Validator: auth.NewRemoteValidator(client, "https://auth.test"),
		Logger:    logger.NewTestLogger(io.Discard),
	}))
	defer relying.Close()

	token := registerUser(t, issuer, "Alice", "alice@example.com", role.Producer)

	//===== A token from the issuer is honored by the relying service =====
	resp, body := doJSON(t, http.MethodGet, relying.URL+"/v1/whoami", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"PRODUCER"}, body["roles"])
	assert.NotEmpty(t, body["subject"])

	//===== A forged token is rejected with the same message =====
	resp, body = doJSON(t, http.MethodGet, relying.URL+"/v1/whoami", "forged", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []any{"invalid token"}, body["errors"])

	//===== Rotation at the issuer propagates immediately =====
	resp, rotated := doJSON(t, http.MethodPost, issuer.URL+"/v1/auth/rotate", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, relying.URL+"/v1/whoami", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, relying.URL+"/v1/whoami", rotated["token"].(string), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// An unreachable introspection endpoint fails closed.
func TestRelyingHandler_IssuerDown(t *testing.T) {
	issuer := newIssuerServer(t)
	token := registerUser(t, issuer, "Alice", "alice@example.com")
	issuer.Close()

	client := auth.NewHTTPIntrospectionClient(issuer.URL+"/v1/auth/introspect", 500*time.Millisecond)
	relying := httptest.NewServer(RelyingHandler(&RelyingHandlerProperties{
		Validator: auth.NewRemoteValidator(client, "https://auth.test"),
		Logger:    logger.NewTestLogger(io.Discard),
	}))
	defer relying.Close()

	resp, body := doJSON(t, http.MethodGet, relying.URL+"/v1/whoami", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []any{"invalid token"}, body["errors"])
}
