package service

import (
	"context"
	"errors"
	"time"

	"cubcen/auth-service/internal/app/auth/entity"
	"cubcen/auth-service/internal/app/auth/repository"
	"cubcen/auth-service/internal/app/auth/util"
	"cubcen/auth-service/internal/app/auth/validation"
	"cubcen/pkg/logger"
	"cubcen/pkg/metrics"

	"github.com/google/uuid"
)

// UserService - регистрация, смена пароля и управление ролями
type UserService struct {
	userRepo repository.UserRepository
	codec    *util.TokenCodec
}

// NewUserService создает новый сервис пользователей
func NewUserService(userRepo repository.UserRepository, codec *util.TokenCodec) *UserService {
	return &UserService{
		userRepo: userRepo,
		codec:    codec,
	}
}

// Register - публичная регистрация. Роль из запроса игнорируется,
// новый пользователь всегда получает DefaultRole.
func (s *UserService) Register(ctx context.Context, req *entity.RegisterRequest) (*entity.AuthResult, error) {
	user, err := s.createUser(ctx, req, entity.DefaultRole)
	if err != nil {
		return nil, err
	}

	tokens, err := issueTokens(ctx, s.codec, user)
	if err != nil {
		return nil, err
	}

	metrics.AuthRegistrations.Inc()
	logger.Info().
		Str("request_id", logger.RequestIDFromContext(ctx)).
		Str("user_id", user.ID.String()).
		Str("role", string(user.Role)).
		Msg("user registered")

	return &entity.AuthResult{
		User:   user.Public(),
		Tokens: *tokens,
	}, nil
}

// CreateUser заводит пользователя с явной ролью. Доступно только
// через маршрут с разрешением users:create, токены не выпускаются.
func (s *UserService) CreateUser(ctx context.Context, req *entity.RegisterRequest) (*entity.PublicUser, error) {
	role := req.Role
	if role == "" {
		role = entity.DefaultRole
	}

	user, err := s.createUser(ctx, req, role)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("request_id", logger.RequestIDFromContext(ctx)).
		Str("user_id", user.ID.String()).
		Str("role", string(user.Role)).
		Msg("user created by administrator")

	public := user.Public()
	return &public, nil
}

func (s *UserService) createUser(ctx context.Context, req *entity.RegisterRequest, role entity.Role) (*entity.User, error) {
	if err := validation.Register(req); err != nil {
		return nil, ValidationFailed(err)
	}

	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, internalError(ctx, "create user: lookup by email", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	passwordHash, err := util.HashPassword(req.Password)
	if err != nil {
		return nil, internalError(ctx, "create user: hash password", err)
	}

	now := time.Now().UTC()
	user := &entity.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// гонка двух регистраций на один email решается уникальным индексом
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, internalError(ctx, "create user: insert", err)
	}
	return user, nil
}

// ChangePassword требует текущий пароль. Уже выданные токены не отзываются.
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, req *entity.ChangePasswordRequest) error {
	if err := validation.ChangePassword(req); err != nil {
		return ValidationFailed(err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return internalError(ctx, "change password: lookup by id", err)
	}

	if !util.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	passwordHash, err := util.HashPassword(req.NewPassword)
	if err != nil {
		return internalError(ctx, "change password: hash password", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, passwordHash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return internalError(ctx, "change password: update", err)
	}

	logger.Info().
		Str("request_id", logger.RequestIDFromContext(ctx)).
		Str("user_id", userID.String()).
		Msg("password changed")
	return nil
}

// UpdateUserRole меняет роль. Новая роль попадёт в access токен
// при следующем логине или refresh.
func (s *UserService) UpdateUserRole(ctx context.Context, req *entity.UpdateUserRoleRequest) (*entity.PublicUser, error) {
	if err := validation.UpdateUserRole(req); err != nil {
		return nil, ValidationFailed(err)
	}

	id, err := parseUserID(req.UserID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.UpdateRole(ctx, id, req.Role)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalError(ctx, "update role", err)
	}

	logger.Info().
		Str("request_id", logger.RequestIDFromContext(ctx)).
		Str("user_id", id.String()).
		Str("role", string(user.Role)).
		Msg("user role updated")

	public := user.Public()
	return &public, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]entity.PublicUser, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, internalError(ctx, "list users", err)
	}

	out := make([]entity.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		const msg = "User id must be a valid UUID"
		appErr := ErrValidation.WithDetails([]validation.FieldError{{Field: "userId", Message: msg}})
		appErr.Message = msg
		return uuid.Nil, appErr.Wrap(err)
	}
	return id, nil
}
