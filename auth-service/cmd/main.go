package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"cubcen/auth-service/internal/app/auth/config"
	"cubcen/auth-service/internal/app/auth/handler"
	"cubcen/auth-service/internal/app/auth/processor"
	"cubcen/auth-service/internal/app/auth/repository"
	"cubcen/auth-service/internal/app/auth/service"
	"cubcen/auth-service/internal/app/auth/util"
	"cubcen/pkg/logger"
)

const serviceName = "auth-service"

const connectAttempts = 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init(serviceName, "info")
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	initLogger(cfg.Log)

	ctx := context.Background()

	store, err := openUserStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.Store).Msg("Failed to open user store")
	}
	defer store.close()

	userRepo := store.repo
	if cfg.Redis.Enabled {
		redisClient := connectRedis(cfg.Redis)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}

		userRepo = repository.NewCachedUserRepository(userRepo, redisClient, cfg.Redis.UserTTL)
		logger.Info().Dur("ttl", cfg.Redis.UserTTL).Msg("User cache enabled")
	}

	codec, err := util.NewTokenCodec(
		util.TokenConfig{
			Secret: cfg.JWT.AccessSecret,
			TTL:    cfg.JWT.AccessTokenDuration,
			Issuer: cfg.JWT.AccessIssuer,
		},
		util.TokenConfig{
			Secret: cfg.JWT.RefreshSecret,
			TTL:    cfg.JWT.RefreshTokenDuration,
			Issuer: cfg.JWT.RefreshIssuer,
		},
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create token codec")
	}

	authService := service.NewAuthService(userRepo, codec)
	userService := service.NewUserService(userRepo, codec)

	router := handler.SetupRoutes(
		handler.NewAuthHandler(authService),
		handler.NewUserHandler(userService),
		handler.NewAuthMiddleware(authService),
		cfg.CORS.Origins,
	)

	var scheduler *processor.PoolStatsScheduler
	if store.stats != nil {
		scheduler = processor.NewPoolStatsScheduler(serviceName, store.stats)
		if err := scheduler.Start(cfg.Metrics.Schedule); err != nil {
			logger.Fatal().Err(err).Str("schedule", cfg.Metrics.Schedule).Msg("Failed to start pool stats scheduler")
		}
	}

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Address()).Str("store", cfg.Store).Msg("Starting Auth Service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	logger.Info().Msg("Auth Service stopped gracefully")
}

func initLogger(cfg config.LogConfig) {
	if cfg.LogstashAddr == "" {
		logger.Init(serviceName, cfg.Level)
		return
	}
	if err := logger.InitLogstash(cfg.LogstashAddr, serviceName, cfg.Level); err != nil {
		logger.Init(serviceName, cfg.Level)
		logger.Warn().Err(err).Str("addr", cfg.LogstashAddr).Msg("Logstash unavailable, logging to stdout only")
	}
}

// userStore - выбранное хранилище и то, что нужно для его обслуживания
type userStore struct {
	repo  repository.UserRepository
	stats processor.PoolStats
	close func()
}

func openUserStore(ctx context.Context, cfg *config.Config) (*userStore, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := connectPgx(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &userStore{
			repo:  repository.NewUserRepository(pool),
			stats: processor.NewPgxPoolStats(pool),
			close: pool.Close,
		}, nil

	case config.StoreGorm:
		db, err := connectGorm(cfg.Database)
		if err != nil {
			return nil, err
		}
		return newGormStore(db)

	case config.StoreMongo:
		client, err := connectMongoDB(cfg.Mongo)
		if err != nil {
			return nil, err
		}
		disconnect := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}

		indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		repo, err := repository.NewMongoUserRepository(indexCtx, client.Database(cfg.Mongo.Database))
		if err != nil {
			disconnect()
			return nil, err
		}
		return &userStore{repo: repo, close: disconnect}, nil
	}

	return nil, fmt.Errorf("unknown user store %q", cfg.Store)
}

// newGormStore мигрирует схему; при ошибке пул закрывается
func newGormStore(db *gorm.DB) (*userStore, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := repository.AutoMigrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate users: %w", err)
	}
	return &userStore{
		repo:  repository.NewGormUserRepository(db),
		stats: processor.NewSQLDBStats(sqlDB),
		close: func() { _ = sqlDB.Close() },
	}, nil
}

// connectPgx устанавливает соединение с PostgreSQL используя pgx connection pool
func connectPgx(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	var pool *pgxpool.Pool
	for i := 0; i < connectAttempts; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				logger.Info().Msg("Successfully connected to PostgreSQL (pgx)")
				return pool, nil
			}
			pool.Close()
		}
		logger.Warn().Int("attempt", i+1).Err(err).Msg("Failed to connect to database, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", connectAttempts, err)
}

func connectGorm(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	}

	var err error
	for i := 0; i < connectAttempts; i++ {
		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else if err = sqlDB.Ping(); err == nil {
				sqlDB.SetMaxOpenConns(25)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
				sqlDB.SetConnMaxIdleTime(1 * time.Minute)
				logger.Info().Msg("Successfully connected to PostgreSQL (gorm)")
				return db, nil
			}
		}
		logger.Warn().Int("attempt", i+1).Err(err).Msg("Failed to connect to database, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", connectAttempts, err)
}

func connectMongoDB(cfg config.MongoConfig) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)

	var err error
	for i := 0; i < connectAttempts; i++ {
		client, connErr := tryMongo(clientOptions)
		if connErr == nil {
			logger.Info().Msg("Successfully connected to MongoDB")
			return client, nil
		}
		err = connErr
		logger.Warn().Int("attempt", i+1).Err(err).Msg("Failed to connect to MongoDB, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", connectAttempts, err)
}

func tryMongo(opts *options.ClientOptions) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

// connectRedis создает и настраивает Redis клиент
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
}
