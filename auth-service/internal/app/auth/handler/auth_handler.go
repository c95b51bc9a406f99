package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"cubcen/auth-service/internal/app/auth/entity"
	"cubcen/auth-service/internal/app/auth/rbac"
	"cubcen/auth-service/internal/app/auth/service"
)

type AuthHandler struct {
	authService service.AuthServiceInterface
}

func NewAuthHandler(authService service.AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req entity.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	// пустое тело равносильно отсутствующему токену
	var req entity.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, errInvalidBody)
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.RefreshResponse{Tokens: *tokens})
}

// Me сам разбирает заголовок: маршрут не закрыт middleware,
// чтобы коды ошибок совпадали с WhoAmI
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.WhoAmI(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.UserResponse{User: *user})
}

// Permissions возвращает разрешения роли из access токена
func (h *AuthHandler) Permissions(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		respondError(c, service.ErrMissingToken)
		return
	}

	c.JSON(http.StatusOK, entity.PermissionsResponse{
		Role:        claims.Role,
		Permissions: rbac.PermissionsFor(claims.Role),
	})
}
