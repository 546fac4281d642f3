package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WriteDetail writes the service's error body: {"detail": msg}.
func WriteDetail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}

// isPublicPath reports whether a path bypasses auth and rate limiting.
func isPublicPath(path string) bool {
	return path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/healthz/")
}
