// Package handlers provides the HTTP handlers of the TPN API: catalog
// listing, dose calculation, rule validation and health.
package handlers

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/giygas/tpn-api/logging"
)

// Minimum response size to consider compression (1KB)
const compressionThreshold = 1024

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"`
}

// RespondWithJSON writes payload as JSON, gzip-compressed when the client
// accepts it and the body is large enough to benefit.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err, "payload_type", fmt.Sprintf("%T", payload))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Add("Vary", "Accept-Encoding")

	if len(data) < compressionThreshold || !acceptsGzip(r) {
		w.WriteHeader(code)
		_, _ = w.Write(data)
		return
	}

	w.Header().Set("Content-Encoding", "gzip")
	w.WriteHeader(code)

	gz := gzip.NewWriter(w)
	if _, err := gz.Write(data); err != nil {
		logging.Warn("Failed to write compressed response", "error", err)
	}
	if err := gz.Close(); err != nil {
		logging.Warn("Failed to flush compressed response", "error", err)
	}
}

// RespondWithError writes a JSON error body
func RespondWithError(w http.ResponseWriter, r *http.Request, code int, message string) {
	RespondWithErrorDetails(w, r, code, message, nil)
}

// RespondWithErrorDetails writes a JSON error body with per-field or
// per-rule details
func RespondWithErrorDetails(w http.ResponseWriter, r *http.Request, code int, message string, details any) {
	RespondWithJSON(w, r, code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
		Details: details,
	})
}

func acceptsGzip(r *http.Request) bool {
	if r == nil {
		return false
	}
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		enc = strings.TrimSpace(enc)
		if name, params, _ := strings.Cut(enc, ";"); strings.EqualFold(strings.TrimSpace(name), "gzip") {
			return strings.TrimSpace(strings.ReplaceAll(params, " ", "")) != "q=0"
		}
	}
	return false
}
