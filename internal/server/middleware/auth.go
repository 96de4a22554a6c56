package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/meshsync/internal/identity"
	"github.com/iudanet/meshsync/internal/server/handlers"
)

// TokenVerifier проверяет JWT токен узла. Реализуется identity.Service.
type TokenVerifier interface {
	VerifyNodeToken(token string) (*identity.NodeClaims, error)
}

// AuthMiddleware создает middleware для проверки токена узла
func AuthMiddleware(logger *slog.Logger, verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("Invalid Authorization header format")
				http.Error(w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := verifier.VerifyNodeToken(parts[1])
			if err != nil {
				logger.Warn("Invalid node token", "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			// Добавляем данные из токена в контекст
			ctx := context.WithValue(r.Context(), handlers.NodeIDKey, claims.NodeID)
			ctx = context.WithValue(ctx, handlers.NodeRoleKey, claims.Role)

			logger.Debug("Node authenticated", "node_id", claims.NodeID, "role", claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
