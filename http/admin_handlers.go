package http

import (
	"net/http"

	"github.com/stephnangue/gatehouse/auth"
)

func handleListUsers(service *auth.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		users, err := service.ListPrincipals(r.Context())
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondOk(w, map[string]any{"users": users})
	})
}

func handleGetUser(service *auth.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := service.GetPrincipal(r.Context(), r.PathValue("id"))
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondOk(w, user)
	})
}

type updateRolesRequest struct {
	Roles []string `json:"roles"`
}

func handleUpdateRoles(service *auth.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req updateRolesRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, err)
			return
		}

		count, err := service.UpdateRoles(r.Context(), r.PathValue("id"), req.Roles)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondOk(w, map[string]any{"updated": count})
	})
}

func handleDeleteUser(service *auth.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, err := service.DeletePrincipal(r.Context(), r.PathValue("id"))
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondOk(w, map[string]any{"deleted": count})
	})
}
