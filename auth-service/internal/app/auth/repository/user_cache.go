package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cubcen/auth-service/internal/app/auth/entity"
	"cubcen/pkg/logger"
	"cubcen/pkg/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const userCachePrefix = "cubcen:user:"

// cachedUser - представление пользователя в кэше. entity.User прячет хэш
// пароля от JSON, а смене пароля он нужен, поэтому храним отдельную структуру.
type cachedUser struct {
	ID           uuid.UUID   `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         entity.Role `json:"role"`
	PasswordHash string      `json:"passwordHash"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

type cachedUserRepository struct {
	next   UserRepository
	client *redis.Client
	ttl    time.Duration
}

// NewCachedUserRepository оборачивает хранилище read-through кэшем GetByID в Redis.
// Ошибки Redis не ломают запрос: чтение уходит в хранилище.
func NewCachedUserRepository(next UserRepository, client *redis.Client, ttl time.Duration) UserRepository {
	return &cachedUserRepository{next: next, client: client, ttl: ttl}
}

func userCacheKey(id uuid.UUID) string {
	return userCachePrefix + id.String()
}

func (r *cachedUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	key := userCacheKey(id)

	if user, ok := r.get(ctx, key); ok {
		metrics.RecordCacheHit(serviceName, userCachePrefix)
		return user, nil
	}
	metrics.RecordCacheMiss(serviceName, userCachePrefix)

	user, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.set(ctx, key, user)
	return user, nil
}

func (r *cachedUserRepository) get(ctx context.Context, key string) (*entity.User, bool) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpGet)
	defer timer.ObserveDuration()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.RecordRedisError(serviceName, metrics.RedisOpGet)
			logger.Warn().Err(err).Str("key", key).Msg("user cache read failed")
		}
		return nil, false
	}

	var cu cachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("corrupted user cache entry")
		return nil, false
	}

	return &entity.User{
		ID:           cu.ID,
		Email:        cu.Email,
		Name:         cu.Name,
		Role:         cu.Role,
		PasswordHash: cu.PasswordHash,
		CreatedAt:    cu.CreatedAt,
		UpdatedAt:    cu.UpdatedAt,
	}, true
}

func (r *cachedUserRepository) set(ctx context.Context, key string, user *entity.User) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpSet)
	defer timer.ObserveDuration()

	data, err := json.Marshal(cachedUser{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Role:         user.Role,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
	if err != nil {
		return
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpSet)
		logger.Warn().Err(err).Str("key", key).Msg("user cache write failed")
	}
}

func (r *cachedUserRepository) invalidate(ctx context.Context, id uuid.UUID) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpDel)
	defer timer.ObserveDuration()

	if err := r.client.Del(ctx, userCacheKey(id)).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpDel)
		logger.Warn().Err(err).Str("user_id", id.String()).Msg("user cache invalidation failed")
	}
}

func (r *cachedUserRepository) Create(ctx context.Context, user *entity.User) error {
	return r.next.Create(ctx, user)
}

func (r *cachedUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.next.GetByEmail(ctx, email)
}

func (r *cachedUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	if err := r.next.UpdatePassword(ctx, id, passwordHash); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *cachedUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role entity.Role) (*entity.User, error) {
	user, err := r.next.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, id)
	return user, nil
}

func (r *cachedUserRepository) List(ctx context.Context) ([]entity.User, error) {
	return r.next.List(ctx)
}
