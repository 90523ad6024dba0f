// Package handlers implements the HTTP API for marketbrief.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bobmcallan/marketbrief/internal/faults"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteFault maps a classified pipeline failure onto an HTTP error response.
// The error message carries the failure kind and a bounded snippet only;
// full raw model output never reaches the caller.
func WriteFault(w http.ResponseWriter, err error) error {
	status := http.StatusInternalServerError
	switch faults.KindOf(err) {
	case faults.NotFound:
		status = http.StatusNotFound
	case faults.NonRetryable:
		status = http.StatusBadRequest
	case faults.MalformedResponse, faults.IncompleteResponse:
		status = http.StatusBadGateway
	case faults.Transient:
		status = http.StatusServiceUnavailable
	case faults.StorageUnavailable:
		status = http.StatusServiceUnavailable
	}
	return WriteError(w, status, err.Error())
}
