package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// WriteJSON writes {"success":true,"data":data}.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	write(w, status, envelope{Success: true, Data: data})
}

// WriteMessage writes {"success":true,"message":msg}.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	write(w, status, envelope{Success: true, Message: msg})
}

// WriteError writes {"success":false,"message":msg,"code":code}.
func WriteError(w http.ResponseWriter, status int, msg, code string) {
	write(w, status, envelope{Message: msg, Code: code})
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

// DecodeJSON reads a JSON request body into v, writing a 400 on failure.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}
