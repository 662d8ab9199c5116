package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	app_errors "safehire/backend/internal/errors"
	"safehire/backend/internal/llm"
)

// This file contains shared DTOs for API responses and helper functions for
// sending consistent HTTP responses and SSE frames.

// ErrorResponse defines the standard JSON structure for error messages.
// Details carries an upstream error body verbatim; Message carries the text
// of an unexpected internal error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
}

// respondWithError is the centralized error mapping for the API layer. It
// must only be used before the SSE stream has started: once headers are
// committed to event-stream, errors can no longer be expressed as JSON.
func respondWithError(w http.ResponseWriter, err error) {
	var upstreamErr *llm.UpstreamError

	switch {
	case errors.As(err, &upstreamErr):
		// Upstream rejected the request before streaming began; the
		// client gets the upstream's own status and error body.
		slog.Warn("Upstream rejected completion request", "status_code", upstreamErr.StatusCode)
		respondWithJSON(w, upstreamErr.StatusCode, ErrorResponse{Error: "AI service error", Details: upstreamErr.Details})
	case errors.Is(err, app_errors.ErrNotConfigured):
		slog.Error("Relay is not configured", "error", err)
		respondWithJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "API key not configured"})
	case errors.Is(err, app_errors.ErrValidation):
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
	default:
		slog.Error("Unhandled error before stream start", "error", err)
		respondWithJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Message: err.Error()})
	}
}

// respondWithJSON marshals a payload and writes it with the given status.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		// A marshal failure here is a programming error, not client input.
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// writeStreamFrame writes one SSE data frame with the given payload bytes and
// flushes it immediately. A write failure is a strong signal that the client
// has disconnected.
func writeStreamFrame(w http.ResponseWriter, payload []byte) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("failed to write data to stream: %w", err)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}
