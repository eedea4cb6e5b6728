// Package httpx holds the JSON response helpers shared by every handler.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the uniform error envelope. Error carries a stable
// snake_case code; Details is optional structured context such as a
// field violation map.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON writes payload as a JSON body with the given status. The body is
// marshalled before the header goes out, so an encode failure still produces
// a clean 500 instead of a truncated response.
func JSON(w http.ResponseWriter, status int, payload any) {
	body := []byte("null")
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// A failed write means the client is gone; there is no channel left to
	// report on.
	_, _ = w.Write(body)
}

// JSONError writes the standard error envelope with the given code.
func JSONError(w http.ResponseWriter, status int, code string, details any) {
	JSON(w, status, ErrorResponse{Error: code, Details: details})
}
