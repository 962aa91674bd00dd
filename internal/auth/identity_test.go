package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireUser(t *testing.T) {
	var seen string
	handler := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
		wantUser string
	}{
		{"header", "u1", "", http.StatusNoContent, "u1"},
		{"query param", "", "u2", http.StatusNoContent, "u2"},
		{"header wins over query", "u1", "u2", http.StatusNoContent, "u1"},
		{"blank header", "   ", "", http.StatusUnauthorized, ""},
		{"anonymous", "", "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			target := "/api/cart"
			if tt.query != "" {
				target += "?user_id=" + tt.query
			}
			req := httptest.NewRequest("GET", target, nil)
			if tt.header != "" {
				req.Header.Set(UserIDHeader, tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantUser, seen)
		})
	}
}
