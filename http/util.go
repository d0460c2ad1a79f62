package http

import (
	"encoding/json"
	"net/http"

	"github.com/stephnangue/gatehouse/logical"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Errors []string `json:"errors"`
}

// respondError writes an error response with the given status code and message.
func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := &ErrorResponse{
		Errors: []string{message},
	}

	json.NewEncoder(w).Encode(resp)
}

// respondWithError maps an error to its status code and client-safe
// message. Anything unexpected renders as a generic 500.
func respondWithError(w http.ResponseWriter, err error) {
	respondError(w, logical.GetErrorCode(err), logical.ClientMessage(err))
}

// respondOk writes a successful JSON response with status 200.
func respondOk(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// decodeJSON decodes a request body into v, rejecting unparseable input.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return logical.ErrBadRequest("invalid request body")
	}
	return nil
}
