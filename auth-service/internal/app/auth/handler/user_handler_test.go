package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"cubcen/auth-service/internal/app/auth/entity"
	"cubcen/auth-service/internal/app/auth/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==================== Register ====================

func TestUserHandler_Register_Success(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	env.userRepo.On("GetByEmail", mock.Anything, "new@cubcen.io").Return(nil, repository.ErrUserNotFound)
	env.userRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.User")).Return(nil)

	body := entity.RegisterRequest{
		Email:           "new@cubcen.io",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	}

	// Act
	rec := env.do(http.MethodPost, "/api/auth/register", body, "")

	// Assert
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp entity.AuthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entity.RoleViewer, resp.User.Role)
	assert.NotEmpty(t, resp.Tokens.AccessToken)
}

func TestUserHandler_Register_WeakPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register", entity.RegisterRequest{
		Email:           "new@cubcen.io",
		Password:        "abcdefgh",
		ConfirmPassword: "abcdefgh",
	}, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Contains(t, resp.Message, "uppercase")
}

func TestUserHandler_Register_Conflict(t *testing.T) {
	env := newTestEnv(t)
	env.userRepo.On("GetByEmail", mock.Anything, "user@cubcen.io").Return(newTestUser(t, entity.RoleViewer), nil)

	rec := env.do(http.MethodPost, "/api/auth/register", entity.RegisterRequest{
		Email:           "user@cubcen.io",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	}, "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "USER_EXISTS", decodeError(t, rec).Code)
}

func TestUserHandler_Register_RoleInBodyIsIgnored(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	env.userRepo.On("GetByEmail", mock.Anything, "new@cubcen.io").Return(nil, repository.ErrUserNotFound)
	env.userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
		return u.Role == entity.RoleViewer
	})).Return(nil)

	body := entity.RegisterRequest{
		Email:           "new@cubcen.io",
		Password:        testPassword,
		ConfirmPassword: testPassword,
		Role:            entity.RoleAdmin,
	}

	// Act
	rec := env.do(http.MethodPost, "/api/auth/register", body, "")

	// Assert
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp entity.AuthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entity.RoleViewer, resp.User.Role)

	list := env.do(http.MethodGet, "/api/users", nil, "Bearer "+resp.Tokens.AccessToken)
	assert.Equal(t, http.StatusForbidden, list.Code)
	env.userRepo.AssertNotCalled(t, "List", mock.Anything)
	env.userRepo.AssertExpectations(t)
}

// ==================== CreateUser ====================

func TestUserHandler_CreateUser_AdminAssignsRole(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	admin := newTestUser(t, entity.RoleAdmin)
	env.userRepo.On("GetByEmail", mock.Anything, "ops@cubcen.io").Return(nil, repository.ErrUserNotFound)
	env.userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
		return u.Role == entity.RoleOperator
	})).Return(nil)

	body := entity.RegisterRequest{
		Email:           "ops@cubcen.io",
		Password:        testPassword,
		ConfirmPassword: testPassword,
		Role:            entity.RoleOperator,
	}

	// Act
	rec := env.do(http.MethodPost, "/api/users", body, env.bearer(t, admin))

	// Assert
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp entity.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entity.RoleOperator, resp.User.Role)
	assert.NotContains(t, rec.Body.String(), "accessToken")
	env.userRepo.AssertExpectations(t)
}

func TestUserHandler_CreateUser_RequiresUsersCreate(t *testing.T) {
	env := newTestEnv(t)
	operator := newTestUser(t, entity.RoleOperator)
	body := entity.RegisterRequest{
		Email:           "ops@cubcen.io",
		Password:        testPassword,
		ConfirmPassword: testPassword,
		Role:            entity.RoleAdmin,
	}

	anonymous := env.do(http.MethodPost, "/api/users", body, "")
	forbidden := env.do(http.MethodPost, "/api/users", body, env.bearer(t, operator))

	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)
	assert.Equal(t, http.StatusForbidden, forbidden.Code)
	env.userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// ==================== ChangePassword ====================

func TestUserHandler_ChangePassword_Success(t *testing.T) {
	env := newTestEnv(t)
	user := newTestUser(t, entity.RoleViewer)
	env.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	env.userRepo.On("UpdatePassword", mock.Anything, user.ID, mock.AnythingOfType("string")).Return(nil)

	rec := env.do(http.MethodPost, "/api/auth/change-password", entity.ChangePasswordRequest{
		CurrentPassword:    testPassword,
		NewPassword:        "Changed456?",
		ConfirmNewPassword: "Changed456?",
	}, env.bearer(t, user))

	assert.Equal(t, http.StatusOK, rec.Code)
	env.userRepo.AssertExpectations(t)
}

func TestUserHandler_ChangePassword_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/change-password", entity.ChangePasswordRequest{}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MISSING_TOKEN", decodeError(t, rec).Code)
}

// ==================== Users ====================

func TestUserHandler_ListUsers_AdminAllowed(t *testing.T) {
	env := newTestEnv(t)
	admin := newTestUser(t, entity.RoleAdmin)
	env.userRepo.On("List", mock.Anything).Return([]entity.User{*admin}, nil)

	rec := env.do(http.MethodGet, "/api/users", nil, env.bearer(t, admin))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp entity.UsersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Users, 1)
}

func TestUserHandler_ListUsers_OperatorForbidden(t *testing.T) {
	env := newTestEnv(t)
	operator := newTestUser(t, entity.RoleOperator)

	rec := env.do(http.MethodGet, "/api/users", nil, env.bearer(t, operator))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "FORBIDDEN", resp.Code)
	assert.Equal(t, "Forbidden", resp.Error)
	env.userRepo.AssertNotCalled(t, "List", mock.Anything)
}

func TestUserHandler_UpdateRole_Success(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	admin := newTestUser(t, entity.RoleAdmin)
	target := newTestUser(t, entity.RoleViewer)
	promoted := *target
	promoted.Role = entity.RoleOperator
	env.userRepo.On("UpdateRole", mock.Anything, target.ID, entity.RoleOperator).Return(&promoted, nil)

	// Act
	rec := env.do(http.MethodPut, "/api/users/"+target.ID.String()+"/role",
		map[string]string{"role": "OPERATOR"}, env.bearer(t, admin))

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var resp entity.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entity.RoleOperator, resp.User.Role)
}

func TestUserHandler_UpdateRole_UnknownRole(t *testing.T) {
	env := newTestEnv(t)
	admin := newTestUser(t, entity.RoleAdmin)

	rec := env.do(http.MethodPut, "/api/users/"+uuid.NewString()+"/role",
		map[string]string{"role": "SUPERADMIN"}, env.bearer(t, admin))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Equal(t, "Invalid role. Must be ADMIN, OPERATOR, or VIEWER", resp.Message)
}

func TestUserHandler_UpdateRole_NotFound(t *testing.T) {
	env := newTestEnv(t)
	admin := newTestUser(t, entity.RoleAdmin)
	id := uuid.New()
	env.userRepo.On("UpdateRole", mock.Anything, id, entity.RoleViewer).Return(nil, repository.ErrUserNotFound)

	rec := env.do(http.MethodPut, "/api/users/"+id.String()+"/role",
		map[string]string{"role": "VIEWER"}, env.bearer(t, admin))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
