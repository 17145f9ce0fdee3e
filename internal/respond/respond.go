// Package respond writes JSON bodies.  Every error body has the shape
// {"error": "<message>"}.
package respond

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("encode response", "err", err)
	}
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// OK writes {"success": true, "message": msg}.
func OK(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}

// Decode reads a JSON body into v, capping it at 1 MiB.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(v)
}
