package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Error types returned in ErrorResponse.
const (
	errTypeAuth      = "authentication_error"
	errTypeInvalid   = "invalid_request_error"
	errTypeRateLimit = "rate_limit_error"
	errTypeUpstream  = "upstream_error"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error type and message.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{Type: errorType, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
