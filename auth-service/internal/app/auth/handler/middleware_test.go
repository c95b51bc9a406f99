package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cubcen/auth-service/internal/app/auth/entity"
	"cubcen/auth-service/internal/app/auth/rbac"
	"cubcen/auth-service/internal/app/auth/repository/mocks"
	"cubcen/auth-service/internal/app/auth/service"
	"cubcen/auth-service/internal/app/auth/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestAuthMiddleware собирает middleware с кодеком на заданных часах
func newTestAuthMiddleware(t *testing.T, now func() time.Time) (*AuthMiddleware, *util.TokenCodec) {
	t.Helper()
	codec, err := util.NewTokenCodec(
		util.TokenConfig{Secret: "access-secret", TTL: 15 * time.Minute, Issuer: "cubcen"},
		util.TokenConfig{Secret: "refresh-secret", TTL: time.Hour, Issuer: "cubcen-refresh"},
		util.WithClock(now),
	)
	require.NoError(t, err)

	authService := service.NewAuthService(new(mocks.MockUserRepository), codec)
	return NewAuthMiddleware(authService), codec
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func issue(t *testing.T, codec *util.TokenCodec, role entity.Role) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	pair, err := codec.CreateTokenPair(id, "mw@cubcen.io", role)
	require.NoError(t, err)
	return id, "Bearer " + pair.AccessToken
}

// ==================== Authenticate ====================

func TestAuthMiddleware_Authenticate_ContextValues(t *testing.T) {
	// Arrange
	middleware, codec := newTestAuthMiddleware(t, time.Now)
	userID, header := issue(t, codec, entity.RoleOperator)

	router := gin.New()
	router.GET("/protected", middleware.Authenticate(), func(c *gin.Context) {
		gotID, _ := c.Get("user_id")
		gotRole, _ := c.Get("role")
		claims, ok := claimsFrom(c)

		assert.Equal(t, userID, gotID)
		assert.Equal(t, entity.RoleOperator, gotRole)
		assert.True(t, ok)
		assert.Equal(t, "mw@cubcen.io", claims.Email)
		c.String(http.StatusOK, "OK")
	})

	// Act
	rec := serve(router, header)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_Authenticate_Failures(t *testing.T) {
	middleware, _ := newTestAuthMiddleware(t, time.Now)

	router := gin.New()
	router.GET("/protected", middleware.Authenticate(), func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	testCases := []struct {
		name   string
		header string
		code   string
	}{
		{"no header", "", service.CodeMissingToken},
		{"wrong scheme", "Token abc123", service.CodeMissingToken},
		{"basic auth", "Basic dXNlcjpwYXNz", service.CodeMissingToken},
		{"garbage token", "Bearer abc123", service.CodeInvalidToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(router, tc.header)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Code)
		})
	}
}

func TestAuthMiddleware_Authenticate_ExpiredToken(t *testing.T) {
	// Arrange
	issuedAt := time.Unix(1_760_000_000, 0)
	_, issuer := newTestAuthMiddleware(t, func() time.Time { return issuedAt })
	_, header := issue(t, issuer, entity.RoleViewer)

	middleware, _ := newTestAuthMiddleware(t, func() time.Time { return issuedAt.Add(16 * time.Minute) })
	router := gin.New()
	router.GET("/protected", middleware.Authenticate(), func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// Act
	rec := serve(router, header)

	// Assert
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, service.CodeTokenExpired, decodeError(t, rec).Code)
}

// ==================== RequirePermission ====================

func TestAuthMiddleware_RequirePermission(t *testing.T) {
	middleware, codec := newTestAuthMiddleware(t, time.Now)

	router := gin.New()
	router.GET("/protected",
		middleware.Authenticate(),
		middleware.RequirePermission(rbac.ResourceAgents, rbac.ActionExecute),
		func(c *gin.Context) { c.String(http.StatusOK, "OK") },
	)

	testCases := []struct {
		role   entity.Role
		status int
	}{
		{entity.RoleAdmin, http.StatusOK},
		{entity.RoleOperator, http.StatusOK},
		{entity.RoleViewer, http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(string(tc.role), func(t *testing.T) {
			_, header := issue(t, codec, tc.role)
			rec := serve(router, header)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestAuthMiddleware_RequirePermission_WithoutAuthenticate(t *testing.T) {
	middleware, _ := newTestAuthMiddleware(t, time.Now)

	router := gin.New()
	router.GET("/protected",
		middleware.RequirePermission(rbac.ResourceAgents, rbac.ActionRead),
		func(c *gin.Context) { c.String(http.StatusOK, "OK") },
	)

	rec := serve(router, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ==================== RequireRole ====================

func TestAuthMiddleware_RequireRole(t *testing.T) {
	middleware, codec := newTestAuthMiddleware(t, time.Now)

	router := gin.New()
	router.GET("/protected",
		middleware.Authenticate(),
		middleware.RequireRole(entity.RoleAdmin, entity.RoleOperator),
		func(c *gin.Context) { c.String(http.StatusOK, "OK") },
	)

	_, adminHeader := issue(t, codec, entity.RoleAdmin)
	_, viewerHeader := issue(t, codec, entity.RoleViewer)

	assert.Equal(t, http.StatusOK, serve(router, adminHeader).Code)

	rec := serve(router, viewerHeader)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, service.CodeForbidden, decodeError(t, rec).Code)
}
