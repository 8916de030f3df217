package handlers

import (
	"net/http"
	"strings"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
)

type MiddlewareProvider struct {
	Handshake primary.HandshakeService
}

func New(handshake primary.HandshakeService) *MiddlewareProvider {
	return &MiddlewareProvider{
		Handshake: handshake,
	}
}

// JWTMiddleware requires a bearer token issued for the current run. The
// check is skipped when the handshake is disabled.
func (m *MiddlewareProvider) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Handshake == nil || !m.Handshake.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			ResponseError(w, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		// Extract token from "Bearer <token>"
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if _, err := m.Handshake.VerifyWorkerToken(tokenString); err != nil {
			ResponseError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
