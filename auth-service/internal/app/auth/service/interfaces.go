package service

import (
	"context"

	"cubcen/auth-service/internal/app/auth/entity"
	"cubcen/auth-service/internal/app/auth/util"

	"github.com/google/uuid"
)

// UserReader - всё, что оркестратору нужно от хранилища пользователей
type UserReader interface {
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type AuthServiceInterface interface {
	Login(ctx context.Context, req *entity.LoginRequest) (*entity.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*entity.TokenPair, error)
	WhoAmI(ctx context.Context, authorizationHeader string) (*entity.PublicUser, error)
	Authenticate(ctx context.Context, authorizationHeader string) (*util.AccessClaims, error)
	Authorize(role entity.Role, resource, action string) error
}

type UserServiceInterface interface {
	Register(ctx context.Context, req *entity.RegisterRequest) (*entity.AuthResult, error)
	CreateUser(ctx context.Context, req *entity.RegisterRequest) (*entity.PublicUser, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req *entity.ChangePasswordRequest) error
	UpdateUserRole(ctx context.Context, req *entity.UpdateUserRoleRequest) (*entity.PublicUser, error)
	ListUsers(ctx context.Context) ([]entity.PublicUser, error)
}
