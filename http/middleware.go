package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/stephnangue/gatehouse/auth"
	"github.com/stephnangue/gatehouse/role"
)

type contextKey string

// claimsContextKey carries the validated claims of the request's bearer
// token.
const claimsContextKey contextKey = "gatehouse.claims"

// ClaimsFromContext returns the validated claims of the current request.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok
}

// requireToken validates the bearer token with the configured validator
// and stores the claims in the request context. The 401 body is the
// same for every failure mode.
func requireToken(validator auth.TokenValidator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		claims, err := validator.Validate(r.Context(), token)
		if err != nil {
			respondWithError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole additionally demands a role on the validated claims.
func requireRole(validator auth.TokenValidator, name string, next http.Handler) http.Handler {
	return requireToken(validator, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !role.Contains(claims.Roles, name) {
			respondError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
