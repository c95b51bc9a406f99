package service

import (
	"context"
	"errors"

	"cubcen/auth-service/internal/app/auth/entity"
	"cubcen/auth-service/internal/app/auth/rbac"
	"cubcen/auth-service/internal/app/auth/repository"
	"cubcen/auth-service/internal/app/auth/util"
	"cubcen/auth-service/internal/app/auth/validation"
	"cubcen/pkg/logger"
	"cubcen/pkg/metrics"
)

// AuthService - вход, обновление токенов и "кто я".
// Состояния между запросами не хранит.
type AuthService struct {
	users UserReader
	codec *util.TokenCodec
}

// NewAuthService создает оркестратор аутентификации
func NewAuthService(users UserReader, codec *util.TokenCodec) *AuthService {
	return &AuthService{
		users: users,
		codec: codec,
	}
}

// Login проверяет учётные данные и выпускает пару токенов.
// Неизвестный email и неверный пароль неотличимы для клиента.
func (s *AuthService) Login(ctx context.Context, req *entity.LoginRequest) (*entity.AuthResult, error) {
	if err := validation.Login(req); err != nil {
		metrics.AuthLogins.WithLabelValues("invalid").Inc()
		return nil, ValidationFailed(err)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.AuthLogins.WithLabelValues("failed").Inc()
			return nil, ErrInvalidCredentials
		}
		metrics.AuthLogins.WithLabelValues("error").Inc()
		return nil, internalError(ctx, "login: lookup by email", err)
	}

	if !util.CheckPassword(req.Password, user.PasswordHash) {
		metrics.AuthLogins.WithLabelValues("failed").Inc()
		return nil, ErrInvalidCredentials
	}

	tokens, err := issueTokens(ctx, s.codec, user)
	if err != nil {
		metrics.AuthLogins.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.AuthLogins.WithLabelValues("success").Inc()
	logger.Info().
		Str("request_id", logger.RequestIDFromContext(ctx)).
		Str("user_id", user.ID.String()).
		Msg("user logged in")

	return &entity.AuthResult{
		User:   user.Public(),
		Tokens: *tokens,
	}, nil
}

// Refresh выпускает новую пару по refresh токену. Пользователь перечитывается,
// поэтому в новом access токене актуальные email и роль.
// Старый refresh токен остаётся действительным до истечения: отзыва нет.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*entity.TokenPair, error) {
	if refreshToken == "" {
		metrics.AuthRefreshes.WithLabelValues("failed").Inc()
		return nil, ErrMissingRefreshToken
	}

	claims, err := s.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		metrics.AuthRefreshes.WithLabelValues("failed").Inc()
		return nil, ErrInvalidRefreshToken.Wrap(err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		metrics.AuthRefreshes.WithLabelValues("failed").Inc()
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalError(ctx, "refresh: lookup by id", err)
	}

	tokens, err := issueTokens(ctx, s.codec, user)
	if err != nil {
		metrics.AuthRefreshes.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.AuthRefreshes.WithLabelValues("success").Inc()
	return tokens, nil
}

// WhoAmI возвращает публичную проекцию владельца access токена
func (s *AuthService) WhoAmI(ctx context.Context, authorizationHeader string) (*entity.PublicUser, error) {
	claims, err := s.Authenticate(ctx, authorizationHeader)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalError(ctx, "whoami: lookup by id", err)
	}

	public := user.Public()
	return &public, nil
}

// Authenticate разбирает заголовок Authorization и проверяет access токен.
// В хранилище не ходит.
func (s *AuthService) Authenticate(_ context.Context, authorizationHeader string) (*util.AccessClaims, error) {
	token, err := validation.ParseBearer(authorizationHeader)
	if err != nil {
		return nil, ErrMissingToken.Wrap(err)
	}

	claims, err := s.codec.VerifyAccessToken(token)
	if err != nil {
		if errors.Is(err, util.ErrTokenExpired) {
			return nil, ErrTokenExpired.Wrap(err)
		}
		return nil, ErrInvalidToken.Wrap(err)
	}
	return claims, nil
}

// Authorize возвращает FORBIDDEN, если у роли нет разрешения
func (s *AuthService) Authorize(role entity.Role, resource, action string) error {
	allowed := rbac.HasPermission(role, resource, action)
	metrics.RecordAuthzDecision(allowed)
	if !allowed {
		return ErrForbidden
	}
	return nil
}

func issueTokens(ctx context.Context, codec *util.TokenCodec, user *entity.User) (*entity.TokenPair, error) {
	tokens, err := codec.CreateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, internalError(ctx, "issue token pair", err)
	}
	metrics.AuthTokensIssued.WithLabelValues("access").Inc()
	metrics.AuthTokensIssued.WithLabelValues("refresh").Inc()
	return tokens, nil
}

// internalError пишет причину в лог и отдаёт наружу только INTERNAL_ERROR
func internalError(ctx context.Context, op string, err error) *AppError {
	logger.Error().
		Err(err).
		Str("request_id", logger.RequestIDFromContext(ctx)).
		Str("op", op).
		Msg("internal error")
	return ErrInternal.Wrap(err)
}
