// ABOUTME: HTTP middleware for JWT authentication on API endpoints
// ABOUTME: Accepts Authorization bearer header or a token query parameter

package auth

import (
	"net/http"
	"strings"
)

// extractCredential pulls the bearer token from the Authorization header,
// falling back to the "token" query parameter. The query form exists for
// clients that cannot set headers (the same form the WebSocket endpoint uses).
// Returns the token and an error message (empty if successful).
func extractCredential(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", "invalid authorization header format"
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return "", "empty token"
		}
		return token, ""
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, ""
	}

	return "", "missing credentials"
}

// Middleware creates an HTTP middleware that authenticates every request and
// adds the user record to the request context via WithUser/FromContext.
func Middleware(authenticator *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractCredential(r)
			if errMsg != "" {
				writeAuthError(w, errMsg)
				return
			}

			user, err := authenticator.Authenticate(r.Context(), token)
			if err != nil || user == nil {
				writeAuthError(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
