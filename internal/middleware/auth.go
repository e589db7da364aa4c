package middleware

import (
	"net/http"
	"strings"

	apperrors "github.com/naplog/sleep-server-go/internal/errors"
	"github.com/naplog/sleep-server-go/internal/httputil"
	"github.com/naplog/sleep-server-go/internal/util"
)

// AuthMiddleware gates /api requests behind a shared bearer secret. With no
// secret configured it is a passthrough.
type AuthMiddleware struct {
	secret string
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: secret}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	if m.secret == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		if !util.ConstantTimeEqual(token, m.secret) {
			httputil.WriteError(w, apperrors.Unauthorized("Invalid token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
