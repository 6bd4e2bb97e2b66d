package contact

import (
	"encoding/json"
	"net/http"
	"strings"
)

// UnknownClient is the shared bucket for callers with no forwarding headers.
const UnknownClient = "unknown"

type SuccessBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorBody struct {
	Error string `json:"error"`
}

// RespondWithError writes an error response in JSON format
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorBody{Error: message})
}

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// ClientID identifies the caller for rate limiting: the first
// X-Forwarded-For entry, then X-Real-IP, then UnknownClient.
func ClientID(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if first := strings.TrimSpace(strings.Split(xf, ",")[0]); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return UnknownClient
}
