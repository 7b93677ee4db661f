package transport

import (
	"context"
	"net/http"
	"strings"

	"github.com/Franelll/MaaS-sub000/internal/shared/auth"
	"github.com/Franelll/MaaS-sub000/internal/shared/logger"
)

type contextKey string

const (
	contextKeyUserID contextKey = "user_id"
	contextKeyRole   contextKey = "role"
)

// JWTMiddleware проверяет Bearer токен; роль не ограничиваем —
// ранжирование доступно любому аутентифицированному клиенту
func JWTMiddleware(jwtService *auth.JWTService, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Warn(logger.Entry{
					Action:  "jwt_middleware_missing_token",
					Message: "authorization header missing",
				})
				respondError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn(logger.Entry{
					Action:  "jwt_middleware_invalid_format",
					Message: "invalid authorization header format",
				})
				respondError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := jwtService.ValidateToken(parts[1])
			if err != nil {
				log.Warn(logger.Entry{
					Action:  "jwt_middleware_invalid_token",
					Message: err.Error(),
					Error:   &logger.ErrObj{Msg: err.Error()},
				})
				respondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, contextKeyRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
