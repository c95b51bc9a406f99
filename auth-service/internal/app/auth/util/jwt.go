package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cubcen/auth-service/internal/app/auth/entity"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// AccessClaims - полезная нагрузка access токена
type AccessClaims struct {
	UserID uuid.UUID   `json:"userId"`
	Email  string      `json:"email"`
	Role   entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims - полезная нагрузка refresh токена.
// Роли и email здесь нет: при обновлении пользователь перечитывается из хранилища.
type RefreshClaims struct {
	UserID  uuid.UUID `json:"userId"`
	TokenID string    `json:"tokenId"`
	jwt.RegisteredClaims
}

// TokenConfig - секрет, время жизни и issuer одного вида токенов
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

type TokenCodecOption func(*TokenCodec)

// WithClock подменяет источник времени (для тестов истечения)
func WithClock(now func() time.Time) TokenCodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// TokenCodec выпускает и проверяет access/refresh токены.
// После создания не меняется, безопасен для конкурентного использования.
type TokenCodec struct {
	access  TokenConfig
	refresh TokenConfig
	now     func() time.Time
}

func NewTokenCodec(access, refresh TokenConfig, opts ...TokenCodecOption) (*TokenCodec, error) {
	if access.Secret == "" || refresh.Secret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if access.Secret == refresh.Secret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if access.TTL <= 0 || refresh.TTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	c := &TokenCodec{
		access:  access,
		refresh: refresh,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateTokenPair выпускает новую пару токенов для пользователя
func (c *TokenCodec) CreateTokenPair(userID uuid.UUID, email string, role entity.Role) (*entity.TokenPair, error) {
	now := c.now()

	accessClaims := AccessClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.access.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.access.TTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(c.access.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	tokenID := uuid.NewString()
	refreshClaims := RefreshClaims{
		UserID:  userID,
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    c.refresh.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refresh.TTL)),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(c.refresh.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &entity.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(c.access.TTL.Seconds()),
		TokenType:    entity.TokenType,
	}, nil
}

// VerifyAccessToken проверяет подпись, issuer и срок действия access токена
func (c *TokenCodec) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(tokenString, claims, c.access); err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil || claims.Subject != claims.UserID.String() || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken проверяет подпись, issuer и срок действия refresh токена
func (c *TokenCodec) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(tokenString, claims, c.refresh); err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil || claims.Subject != claims.UserID.String() || claims.TokenID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (c *TokenCodec) parse(tokenString string, claims jwt.Claims, cfg TokenConfig) error {
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err == nil {
		return nil
	}

	// Подпись проверяется библиотекой раньше claims, поэтому сюда с ErrTokenExpired
	// попадает только подлинный токен. Неверный issuer важнее истечения.
	// Граница: exp == now уже считается истёкшим (jwt/v5 требует now < exp).
	if errors.Is(err, jwt.ErrTokenInvalidIssuer) {
		return ErrInvalidToken
	}
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrInvalidToken
}

func (c *TokenCodec) AccessTTL() time.Duration {
	return c.access.TTL
}

func (c *TokenCodec) RefreshTTL() time.Duration {
	return c.refresh.TTL
}
