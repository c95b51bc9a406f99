package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cubcen/auth-service/internal/app/auth/entity"
	"cubcen/auth-service/internal/app/auth/repository"
	"cubcen/auth-service/internal/app/auth/repository/mocks"
	"cubcen/auth-service/internal/app/auth/service"
	"cubcen/auth-service/internal/app/auth/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "Secret123!"

var (
	hashOnce   sync.Once
	cachedHash string
)

func testPasswordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		var err error
		cachedHash, err = util.HashPassword(testPassword)
		require.NoError(t, err)
	})
	return cachedHash
}

type testEnv struct {
	router   *gin.Engine
	userRepo *mocks.MockUserRepository
	codec    *util.TokenCodec
}

// newTestEnv собирает полный роутер поверх мока хранилища
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	codec, err := util.NewTokenCodec(
		util.TokenConfig{Secret: "access-secret", TTL: 15 * time.Minute, Issuer: "cubcen"},
		util.TokenConfig{Secret: "refresh-secret", TTL: 7 * 24 * time.Hour, Issuer: "cubcen-refresh"},
	)
	require.NoError(t, err)

	userRepo := new(mocks.MockUserRepository)
	authService := service.NewAuthService(userRepo, codec)
	userService := service.NewUserService(userRepo, codec)

	router := SetupRoutes(
		NewAuthHandler(authService),
		NewUserHandler(userService),
		NewAuthMiddleware(authService),
		nil,
	)
	return &testEnv{router: router, userRepo: userRepo, codec: codec}
}

func newTestUser(t *testing.T, role entity.Role) *entity.User {
	now := time.Now().UTC()
	return &entity.User{
		ID:           uuid.New(),
		Email:        "user@cubcen.io",
		Name:         "Test User",
		Role:         role,
		PasswordHash: testPasswordHash(t),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (e *testEnv) bearer(t *testing.T, user *entity.User) string {
	t.Helper()
	pair, err := e.codec.CreateTokenPair(user.ID, user.Email, user.Role)
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func (e *testEnv) do(method, path string, body any, header string) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case string:
		buf = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		buf = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) entity.ErrorResponse {
	t.Helper()
	var resp entity.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ==================== Login ====================

func TestAuthHandler_Login_Success(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	user := newTestUser(t, entity.RoleOperator)
	env.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	// Act
	rec := env.do(http.MethodPost, "/api/auth/login", entity.LoginRequest{Email: user.Email, Password: testPassword}, "")

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, user.Email, raw["user"]["email"])
	assert.NotContains(t, raw["user"], "passwordHash")
	assert.NotContains(t, rec.Body.String(), user.PasswordHash)
	assert.Equal(t, "Bearer", raw["tokens"]["tokenType"])
	assert.Equal(t, float64(900), raw["tokens"]["expiresIn"])
	assert.NotEmpty(t, raw["tokens"]["accessToken"])
	assert.NotEmpty(t, raw["tokens"]["refreshToken"])
}

func TestAuthHandler_Login_UnknownUser(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	env.userRepo.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, repository.ErrUserNotFound)

	// Act
	rec := env.do(http.MethodPost, "/api/auth/login", entity.LoginRequest{Email: "a@b.com", Password: testPassword}, "")

	// Assert
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "INVALID_CREDENTIALS", resp.Code)
	assert.Equal(t, "Unauthorized", resp.Error)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), resp.RequestID)
}

func TestAuthHandler_Login_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/login", `{"email":`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Equal(t, "Invalid request body", resp.Message)
	env.userRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestAuthHandler_Login_ValidationDetails(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "nope"}, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Code    string `json:"code"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	require.Len(t, resp.Details, 2)
	assert.Equal(t, "email", resp.Details[0].Field)
	assert.Equal(t, "password", resp.Details[1].Field)
}

func TestAuthHandler_Login_StoreDownHidesInternals(t *testing.T) {
	env := newTestEnv(t)
	env.userRepo.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, assert.AnError)

	rec := env.do(http.MethodPost, "/api/auth/login", entity.LoginRequest{Email: "a@b.com", Password: testPassword}, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	assert.Nil(t, resp.Details)
}

// ==================== Refresh ====================

func TestAuthHandler_Refresh_Success(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	user := newTestUser(t, entity.RoleViewer)
	pair, err := env.codec.CreateTokenPair(user.ID, user.Email, user.Role)
	require.NoError(t, err)
	env.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	// Act
	rec := env.do(http.MethodPost, "/api/auth/refresh", entity.RefreshRequest{RefreshToken: pair.RefreshToken}, "")

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var resp entity.RefreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Tokens.AccessToken)
	assert.Equal(t, entity.TokenType, resp.Tokens.TokenType)
}

func TestAuthHandler_Refresh_MissingToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/refresh", map[string]string{}, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_TOKEN", decodeError(t, rec).Code)
}

func TestAuthHandler_Refresh_EmptyBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/refresh", nil, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_TOKEN", decodeError(t, rec).Code)
}

func TestAuthHandler_Refresh_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/refresh", `{"refreshToken":`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}

func TestAuthHandler_Refresh_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/refresh", entity.RefreshRequest{RefreshToken: "garbage"}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", decodeError(t, rec).Code)
}

// ==================== Me ====================

func TestAuthHandler_Me_Success(t *testing.T) {
	env := newTestEnv(t)
	user := newTestUser(t, entity.RoleAdmin)
	env.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	rec := env.do(http.MethodGet, "/api/auth/me", nil, env.bearer(t, user))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp entity.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, entity.RoleAdmin, resp.User.Role)
}

func TestAuthHandler_Me_WrongScheme(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/auth/me", nil, "Token abc123")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MISSING_TOKEN", decodeError(t, rec).Code)
}

func TestAuthHandler_Me_NoHeader(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/auth/me", nil, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MISSING_TOKEN", decodeError(t, rec).Code)
}

func TestAuthHandler_Me_UserDeleted(t *testing.T) {
	env := newTestEnv(t)
	user := newTestUser(t, entity.RoleViewer)
	env.userRepo.On("GetByID", mock.Anything, user.ID).Return(nil, repository.ErrUserNotFound)

	rec := env.do(http.MethodGet, "/api/auth/me", nil, env.bearer(t, user))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "USER_NOT_FOUND", decodeError(t, rec).Code)
}

// ==================== Permissions ====================

func TestAuthHandler_Permissions(t *testing.T) {
	env := newTestEnv(t)
	user := newTestUser(t, entity.RoleViewer)

	rec := env.do(http.MethodGet, "/api/auth/permissions", nil, env.bearer(t, user))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp entity.PermissionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entity.RoleViewer, resp.Role)
	assert.Len(t, resp.Permissions, 4)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth-service")
}
