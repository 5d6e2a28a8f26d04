// Package httputil holds the JSON response helpers shared by all handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "tessera/pkg/domain-errors"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and writes the uniform
// error body.
func WriteError(w http.ResponseWriter, err error) {
	var body errorResponse
	body.Error.Code = string(dErrors.CodeOf(err))
	body.Error.Message = err.Error()
	WriteJSON(w, dErrors.HTTPStatus(err), body)
}

// Decode parses the request body into T, writing a bad-request response and
// returning ok=false on malformed input.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		WriteError(w, dErrors.Wrap(dErrors.CodeBadRequest, "malformed request body", err))
		return v, false
	}
	return v, true
}
