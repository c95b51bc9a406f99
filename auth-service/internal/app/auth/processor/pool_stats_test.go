package processor

import (
	"context"
	"sync/atomic"
	"testing"

	"cubcen/pkg/metrics"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePool struct {
	idle, inUse int
	calls       atomic.Int32
}

func (f *fakePool) Stats() (int, int) {
	f.calls.Add(1)
	return f.idle, f.inUse
}

func TestPoolStatsScheduler_Collect(t *testing.T) {
	// Arrange
	source := &fakePool{idle: 4, inUse: 1}
	s := NewPoolStatsScheduler("pool-test", source)

	// Act
	s.Collect()

	// Assert
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.DbConnectionsOpen.WithLabelValues("pool-test", "idle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DbConnectionsOpen.WithLabelValues("pool-test", "in_use")))
}

func TestPoolStatsScheduler_StartCollectsImmediately(t *testing.T) {
	source := &fakePool{idle: 2}
	s := NewPoolStatsScheduler("pool-start", source)

	require.NoError(t, s.Start("@every 1h"))
	defer s.Stop(context.Background())

	assert.Equal(t, int32(1), source.calls.Load())
	assert.Len(t, s.Entries(), 1)
}

func TestPoolStatsScheduler_InvalidSchedule(t *testing.T) {
	s := NewPoolStatsScheduler("pool-bad", &fakePool{})

	err := s.Start("every now and then")

	assert.Error(t, err)
	assert.Empty(t, s.Entries())
}

func TestSQLDBStats(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	idle, inUse := NewSQLDBStats(db).Stats()

	assert.GreaterOrEqual(t, idle, 0)
	assert.Equal(t, 0, inUse)
}
