package http

import (
	"net/http"

	"github.com/stephnangue/gatehouse/auth"
	"github.com/stephnangue/gatehouse/logger"
	"github.com/stephnangue/gatehouse/role"
)

// HandlerProperties contains configuration for the HTTP handler
type HandlerProperties struct {
	Service *auth.Service
	Logger  logger.Logger
}

// Handler creates and returns the issuer's HTTP handler: the auth
// endpoints, the introspection endpoint and the admin surface.
func Handler(props *HandlerProperties) http.Handler {
	mux := http.NewServeMux()
	service := props.Service
	validator := service.Validator()

	// Anonymous auth endpoints
	mux.Handle("POST /v1/auth/register", handleRegister(service))
	mux.Handle("POST /v1/auth/login", handleLogin(service))
	mux.Handle("POST /v1/auth/callback/{provider}", handleFederatedCallback(service))

	// Introspection endpoint - consumed by relying services. It answers
	// for any token with active=false rather than erroring.
	mux.Handle("POST /v1/auth/introspect", handleIntrospect(service))

	// Token-protected endpoints
	mux.Handle("POST /v1/auth/rotate", requireToken(validator, handleRotate(service)))
	mux.Handle("GET /v1/whoami", requireToken(validator, handleWhoami()))

	// Admin surface
	mux.Handle("GET /v1/users", requireRole(validator, role.Admin, handleListUsers(service)))
	mux.Handle("GET /v1/users/{id}", requireRole(validator, role.Admin, handleGetUser(service)))
	mux.Handle("PUT /v1/users/{id}/roles", requireRole(validator, role.Admin, handleUpdateRoles(service)))
	mux.Handle("DELETE /v1/users/{id}", requireRole(validator, role.Admin, handleDeleteUser(service)))

	return wrapGenericHandler(mux, props.Logger)
}

// RelyingHandlerProperties configures the relying-service handler.
type RelyingHandlerProperties struct {
	Validator auth.TokenValidator
	Logger    logger.Logger
}

// RelyingHandler returns the handler of a relying service that holds no
// secrets: its protected surface trusts the issuer through the remote
// validator it was given.
func RelyingHandler(props *RelyingHandlerProperties) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /v1/whoami", requireToken(props.Validator, handleWhoami()))

	return wrapGenericHandler(mux, props.Logger)
}

// wrapGenericHandler wraps the main handler with cross-cutting
// concerns: request logging and the /v1/ path guard.
func wrapGenericHandler(handler http.Handler, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hasV1Prefix(r.URL.Path) {
			respondError(w, http.StatusNotFound, "path must begin with /v1/")
			return
		}

		log.Debug("handling request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path))

		handler.ServeHTTP(w, r)
	})
}

func hasV1Prefix(path string) bool {
	return len(path) >= 4 && path[:4] == "/v1/"
}
