package v1

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shenikar/emergency_coordination_system/internal/config"
	"github.com/shenikar/emergency_coordination_system/internal/models"
	"github.com/sirupsen/logrus"
)

const identityContextKey = "identity"

// IdentityClaims - полезная нагрузка JWT токена
type IdentityClaims struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	LguCode string `json:"lgu_code"`
	jwt.RegisteredClaims
}

// ParseIdentity проверяет подпись токена и возвращает личность вызывающего
func ParseIdentity(tokenString, secret string) (models.Identity, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return models.Identity{}, fmt.Errorf("invalid token")
	}

	return models.Identity{
		UserID:  claims.UserID,
		Name:    claims.Name,
		Role:    models.Role(claims.Role),
		LguCode: claims.LguCode,
	}, nil
}

// JWTAuthMiddleware - middleware для аутентификации по JWT токену.
// Личность вызывающего кладется в контекст запроса.
func JWTAuthMiddleware(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Warn("Authorization token missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token required"})
			return
		}

		identity, err := ParseIdentity(strings.TrimPrefix(authHeader, "Bearer "), cfg.JWTSecret)
		if err != nil {
			log.WithError(err).Warn("Invalid authorization token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(identityContextKey, identity)
		c.Next()
	}
}

// identityFromContext достает личность вызывающего, сохраненную middleware
func identityFromContext(c *gin.Context) (models.Identity, bool) {
	val, exists := c.Get(identityContextKey)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := val.(models.Identity)
	return identity, ok
}
