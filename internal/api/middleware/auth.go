// Package middleware provides the net/http middleware chain of the API server.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/formbricks/evalhub/internal/api/response"
)

// Auth validates the static API key from the Authorization header ("Bearer <api-key>").
func Auth(apiKey string) func(http.Handler) http.Handler {
	expected := []byte(apiKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.RespondUnauthorized(w, r, "Missing Authorization header")

				return
			}

			scheme, key, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") {
				response.RespondUnauthorized(w, r, "Invalid Authorization header format. Expected: Bearer <api-key>")

				return
			}

			key = strings.TrimSpace(key)
			if key == "" {
				response.RespondUnauthorized(w, r, "API key is empty")

				return
			}

			if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(key), expected) != 1 {
				response.RespondUnauthorized(w, r, "Invalid API key")

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
