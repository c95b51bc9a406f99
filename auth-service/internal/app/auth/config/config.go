package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Драйверы хранилища пользователей
const (
	StorePostgres = "postgres"
	StoreGorm     = "gorm"
	StoreMongo    = "mongo"
)

// Config содержит все настройки приложения
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Store    string
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Metrics  MetricsConfig
	CORS     CORSConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Host string
	Port string
}

type LogConfig struct {
	Level        string
	LogstashAddr string
}

// DatabaseConfig - настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig - настройки подключения к Redis
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	UserTTL  time.Duration
}

// JWTConfig - секреты, время жизни и issuer для двух видов токенов
type JWTConfig struct {
	AccessSecret         string
	RefreshSecret        string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	AccessIssuer         string
	RefreshIssuer        string
}

type MetricsConfig struct {
	Schedule string
}

type CORSConfig struct {
	Origins []string
}

// Load загружает конфигурацию из переменных окружения.
// Если рядом лежит .env, он читается первым; уже выставленные переменные не перезаписываются.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	accessDuration, err := getEnvDuration("JWT_ACCESS_DURATION", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshDuration, err := getEnvDuration("JWT_REFRESH_DURATION", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	userTTL, err := getEnvDuration("USER_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Log: LogConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			LogstashAddr: getEnv("LOGSTASH_ADDR", ""),
		},
		Store: getEnv("USER_STORE", StorePostgres),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "cubcen"),
			Password: getEnv("DB_PASSWORD", "cubcen"),
			DBName:   getEnv("DB_NAME", "cubcen_auth"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "cubcen"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			UserTTL:  userTTL,
		},
		JWT: JWTConfig{
			AccessSecret:         getEnv("JWT_ACCESS_SECRET", ""),
			RefreshSecret:        getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenDuration:  accessDuration,
			RefreshTokenDuration: refreshDuration,
			AccessIssuer:         getEnv("JWT_ACCESS_ISSUER", "cubcen"),
			RefreshIssuer:        getEnv("JWT_REFRESH_ISSUER", "cubcen-refresh"),
		},
		Metrics: MetricsConfig{
			Schedule: getEnv("METRICS_SCHEDULE", "@every 30s"),
		},
		CORS: CORSConfig{
			Origins: splitList(getEnv("CORS_ORIGINS", "")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate отклоняет конфигурацию, с которой сервис не сможет безопасно работать
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET is required"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET is required"))
	}
	if c.JWT.AccessSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.JWT.AccessTokenDuration <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_DURATION must be positive"))
	}
	if c.JWT.RefreshTokenDuration <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_DURATION must be positive"))
	}
	if c.Redis.Enabled && c.Redis.UserTTL <= 0 {
		errs = append(errs, errors.New("USER_CACHE_TTL must be positive"))
	}

	switch c.Store {
	case StorePostgres, StoreGorm, StoreMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown USER_STORE %q", c.Store))
	}

	return errors.Join(errs...)
}

// DSN возвращает строку подключения к PostgreSQL
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL - та же строка подключения в формате postgres:// для pgxpool
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Address возвращает адрес Redis в формате host:port
func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Address возвращает адрес сервера в формате host:port
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает значение переменной окружения как int
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration, в отличие от getEnvInt, не глотает ошибку разбора:
// опечатка во времени жизни токена должна останавливать старт
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
