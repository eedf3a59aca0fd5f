package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"isl-announcer/internal/logging"
)

// Error codes returned in the "code" field of JSON error responses, in
// addition to the pipeline and speech codes.
const (
	codeInvalidRequest       = "invalid_request"
	codeInvalidUpload        = "invalid_upload"
	codeNotFound             = "not_found"
	codeUnauthorized         = "unauthorized"
	codeForbidden            = "forbidden"
	codeGenerationInProgress = "generation_in_progress"
	codeNoTranscript         = "no_transcript"
	codeUnavailable          = "unavailable"
	codeInternal             = "internal_error"
)

const maxJSONBody = 1 << 20

// errorResponse is the body of every API error.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeJSON encodes v to w. The header is already sent, so failures are
// only logged.
func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatusCode writes v with the given status code.
func writeJSONStatusCode(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message, code string, statusCode int) {
	writeJSONStatusCode(w, statusCode, errorResponse{Error: message, Code: code})
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}
