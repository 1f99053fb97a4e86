// Package endpoints defines the HTTP API surface. Each endpoint couples
// its route, handler, and CLI command in one type.
package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Envelope is the standard JSON response wrapper.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ErrorResponse documents the error shape for swagger.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeData writes a success envelope.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// writeDataSession writes a success envelope tagged with a session id.
func writeDataSession(w http.ResponseWriter, status int, data any, sessionID string) {
	writeJSON(w, status, Envelope{Success: true, Data: data, SessionID: sessionID})
}

// writeError writes an error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Success: false, Error: msg})
}

// decodeBody decodes a JSON request body.
func decodeBody(r *http.Request, into any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
