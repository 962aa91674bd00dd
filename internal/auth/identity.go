// Package auth resolves the authenticated user for a request.
// Session handling lives upstream; this package only trusts what it forwards.
package auth

import (
	"context"
	"net/http"
	"strings"
)

// UserIDHeader carries the authenticated user id set by the session layer
const UserIDHeader = "X-User-ID"

// UserIDQueryParam is accepted on websocket upgrades, where browsers cannot set headers
const UserIDQueryParam = "user_id"

type contextKey struct{}

// WithUserID returns a copy of ctx carrying userID
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the authenticated user id, or "" when the request is anonymous
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// FromRequest extracts the user id from the header, falling back to the query parameter
func FromRequest(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(UserIDHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get(UserIDQueryParam))
}

// RequireUser rejects anonymous requests with 401 and stores the user id in the context
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := FromRequest(r)
		if id == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}
