// Package auth resolves the already-authenticated caller identity. Token
// issuance and credential checks happen upstream; requests reach this service
// with an opaque user id in the X-User-ID header.
package auth

import (
	"context"
	"net/http"
	"strconv"
)

type contextKey struct{}

var userIDKey contextKey

// Middleware rejects requests without a parseable user identity and stashes
// the id in the request context for handlers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.Header.Get("X-User-ID"))
		if err != nil || id <= 0 {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

// UserID returns the authenticated user id for the request, or 0 when the
// middleware did not run.
func UserID(r *http.Request) int {
	id, _ := r.Context().Value(userIDKey).(int)
	return id
}
