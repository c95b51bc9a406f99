package handler

import (
	"github.com/gin-gonic/gin"

	"cubcen/auth-service/internal/app/auth/entity"
	"cubcen/auth-service/internal/app/auth/service"
	"cubcen/auth-service/internal/app/auth/util"
)

// claimsKey - ключ gin-контекста с проверенными claims access токена
const claimsKey = "auth_claims"

type AuthMiddleware struct {
	authService service.AuthServiceInterface
}

func NewAuthMiddleware(authService service.AuthServiceInterface) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

func claimsFrom(c *gin.Context) (*util.AccessClaims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*util.AccessClaims)
	return claims, ok && claims != nil
}

// Authenticate проверяет Bearer токен и кладёт claims в контекст
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.authService.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.Set(claimsKey, claims)
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// RequirePermission пропускает запрос, если у роли есть resource:action.
// Ставится после Authenticate.
func (m *AuthMiddleware) RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			respondError(c, service.ErrMissingToken)
			return
		}

		if err := m.authService.Authorize(claims.Role, resource, action); err != nil {
			respondError(c, err)
			return
		}

		c.Next()
	}
}

func (m *AuthMiddleware) RequireRole(roles ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			respondError(c, service.ErrMissingToken)
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}

		respondError(c, service.ErrForbidden)
	}
}
