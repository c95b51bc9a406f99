package processor

import (
	"context"
	"database/sql"

	"cubcen/pkg/logger"
	"cubcen/pkg/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

// PoolStats - источник статистики пула соединений
type PoolStats interface {
	// Stats возвращает число простаивающих и занятых соединений
	Stats() (idle, inUse int)
}

type pgxPoolStats struct {
	pool *pgxpool.Pool
}

func NewPgxPoolStats(pool *pgxpool.Pool) PoolStats {
	return pgxPoolStats{pool: pool}
}

func (p pgxPoolStats) Stats() (int, int) {
	s := p.pool.Stat()
	return int(s.IdleConns()), int(s.AcquiredConns())
}

type sqlDBStats struct {
	db *sql.DB
}

// NewSQLDBStats - статистика *sql.DB, под которым работает GORM
func NewSQLDBStats(db *sql.DB) PoolStats {
	return sqlDBStats{db: db}
}

func (s sqlDBStats) Stats() (int, int) {
	st := s.db.Stats()
	return st.Idle, st.InUse
}

// PoolStatsScheduler по расписанию cron выставляет gauge db_connections_open
type PoolStatsScheduler struct {
	cron    *cron.Cron
	source  PoolStats
	service string
}

func NewPoolStatsScheduler(service string, source PoolStats) *PoolStatsScheduler {
	return &PoolStatsScheduler{
		cron:    cron.New(),
		source:  source,
		service: service,
	}
}

// Collect снимает статистику один раз
func (s *PoolStatsScheduler) Collect() {
	idle, inUse := s.source.Stats()
	metrics.RecordDbConnections(s.service, idle, inUse)
	logger.Debug().
		Int("idle", idle).
		Int("in_use", inUse).
		Msg("connection pool sampled")
}

// Start регистрирует задачу и сразу делает первый замер
func (s *PoolStatsScheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.Collect); err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().Str("schedule", schedule).Msg("pool stats scheduler started")

	s.Collect()
	return nil
}

// Stop ждёт завершения запущенной задачи или отмены ctx
func (s *PoolStatsScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	logger.Info().Msg("pool stats scheduler stopped")
}

func (s *PoolStatsScheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}
