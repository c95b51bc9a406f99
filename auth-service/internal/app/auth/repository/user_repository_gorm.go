package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cubcen/auth-service/internal/app/auth/entity"
	"cubcen/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// userRecord - строка таблицы users в представлении GORM
type userRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"`
	Name         string    `gorm:"size:100;not null"`
	Role         string    `gorm:"size:16;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string {
	return usersTable
}

func (r *userRecord) toEntity() *entity.User {
	return &entity.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		Role:         entity.Role(r.Role),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository создает репозиторий пользователей поверх GORM
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// AutoMigrate создаёт таблицу users через GORM
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&userRecord{})
}

func (r *gormUserRepository) Create(ctx context.Context, user *entity.User) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, usersTable)
	defer timer.ObserveDuration()

	rec := userRecord{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Role:         string(user.Role),
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}

	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrUserExists
		}
		metrics.RecordDbError(serviceName, metrics.DbOpInsert)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *gormUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *gormUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *gormUserRepository) first(ctx context.Context, cond string, arg any) (*entity.User, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, usersTable)
	defer timer.ObserveDuration()

	var rec userRecord
	if err := r.db.WithContext(ctx).First(&rec, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return rec.toEntity(), nil
}

func (r *gormUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.update(ctx, id, map[string]interface{}{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	})
}

func (r *gormUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role entity.Role) (*entity.User, error) {
	err := r.update(ctx, id, map[string]interface{}{
		"role":       string(role),
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *gormUserRepository) update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, usersTable)
	defer timer.ObserveDuration()

	result := r.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpUpdate)
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *gormUserRepository) List(ctx context.Context) ([]entity.User, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, usersTable)
	defer timer.ObserveDuration()

	var recs []userRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&recs).Error; err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]entity.User, 0, len(recs))
	for i := range recs {
		users = append(users, *recs[i].toEntity())
	}
	return users, nil
}

// isDuplicateKey понимает и переведённую GORM ошибку (TranslateError),
// и сырую ошибку драйвера
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
