package http

import (
	"net/http"

	"github.com/stephnangue/gatehouse/auth"
)

func handleRegister(service *auth.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, err)
			return
		}

		resp, err := service.Register(r.Context(), &req)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondOk(w, resp)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func handleLogin(service *auth.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, err)
			return
		}

		resp, err := service.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondOk(w, resp)
	})
}

func handleIntrospect(service *auth.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req auth.IntrospectionRequest
		if err := decodeJSON(r, &req); err != nil {
			// Even an unreadable request gets a verdict, not an error.
			respondOk(w, auth.InactiveVerdict())
			return
		}
		respondOk(w, service.Introspect(r.Context(), req.Token))
	})
}

// handleRotate rotates the signing secret of the authenticated
// principal, invalidating every token issued before this call, and
// returns a response signed with the new secret.
func handleRotate(service *auth.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		resp, err := service.RotateSecret(r.Context(), claims.Subject)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondOk(w, resp)
	})
}

type federatedCallbackRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Login  string `json:"login,omitempty"`
}

func handleFederatedCallback(service *auth.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req federatedCallbackRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, err)
			return
		}

		resp, err := service.FederatedLogin(r.Context(), &auth.FederatedIdentity{
			Provider: r.PathValue("provider"),
			UserID:   req.UserID,
			Email:    req.Email,
			Name:     req.Name,
			Login:    req.Login,
		})
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondOk(w, resp)
	})
}

type whoamiResponse struct {
	Subject string   `json:"subject"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles"`
}

func handleWhoami() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		respondOk(w, &whoamiResponse{
			Subject: claims.Subject,
			Email:   claims.Email,
			Roles:   claims.Roles,
		})
	})
}
