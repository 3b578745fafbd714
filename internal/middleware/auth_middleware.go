// auth_middleware.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"order-lifecycle-service/internal/service"
)

// Claves del contexto que setea AuthMiddleware.
const (
	KeyUserID          = "userID"
	KeyUserName        = "userName"
	KeyUserPermissions = "userPermissions"
)

// TokenValidator resuelve un bearer token a su usuario.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*service.AuthUser, error)
}

// Middleware que valida el token y guarda la info del usuario en el contexto
func AuthMiddleware(auth TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		user, err := auth.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.Debug("token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(KeyUserID, user.ID)
		c.Set(KeyUserName, user.Name)
		c.Set(KeyUserPermissions, user.Permissions)
		c.Next()
	}
}

// CurrentActor arma el actor del cambio de estado a partir del usuario autenticado.
func CurrentActor(c *gin.Context) service.Actor {
	user := service.AuthUser{Permissions: c.GetStringSlice(KeyUserPermissions)}
	return service.Actor{ID: c.GetString(KeyUserID), IsAdmin: user.IsAdmin()}
}
