package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const (
	msgNotAuthenticated = "Not authenticated"
	msgInvalidScheme    = "Invalid authentication scheme"
	msgInvalidToken     = "Invalid authentication token"
)

// BearerAuth rejects requests whose Authorization header does not carry
// "Bearer <token>" with the expected token. Runs before any handler work.
func BearerAuth(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			auth := strings.TrimSpace(r.Header.Get("Authorization"))
			if auth == "" {
				WriteDetail(w, http.StatusUnauthorized, msgNotAuthenticated)
				return
			}

			scheme, credential, ok := strings.Cut(auth, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				WriteDetail(w, http.StatusUnauthorized, msgInvalidScheme)
				return
			}

			credential = strings.TrimSpace(credential)
			if credential == "" || subtle.ConstantTimeCompare([]byte(credential), expected) != 1 {
				WriteDetail(w, http.StatusUnauthorized, msgInvalidToken)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
