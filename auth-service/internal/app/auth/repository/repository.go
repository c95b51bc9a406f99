package repository

import (
	"context"
	"errors"

	"cubcen/auth-service/internal/app/auth/entity"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// UserRepository - хранилище пользователей. Реализации: pgx, gorm, mongo
// и Redis-кэш поверх любой из них.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateRole(ctx context.Context, id uuid.UUID, role entity.Role) (*entity.User, error)
	List(ctx context.Context) ([]entity.User, error)
}

const serviceName = "auth-service"
