package api

import (
	"encoding/json"
	"net/http"
)

// envelope is a standard JSON response wrapper.
type envelope struct {
	Data any `json:"data,omitempty"`
}

// errorEnvelope is the structured error body used across the placement API:
// error (human-readable), kind (machine-readable taxonomy member), and an
// optional details payload (e.g. the excluded-candidate report).
type errorEnvelope struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Details any    `json:"details,omitempty"`
}

// WriteErrorKind writes a structured {error, kind, details} error body.
func WriteErrorKind(w http.ResponseWriter, status int, kind, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: message, Kind: kind, Details: details})
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}
