package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gpolydatas/marketing-generator/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// =============================================================================
// 🧪 PoolManager 测试
// =============================================================================

type fakeRecorder struct {
	mu    sync.Mutex
	calls int
	last  [2]int
}

func (r *fakeRecorder) RecordDBConnections(_ string, open, idle int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = [2]int{open, idle}
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func setupTestDB(t *testing.T) (sqlmock.Sqlmock, *gorm.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)
	return mock, gormDB
}

func TestNewPoolManager_NilDB(t *testing.T) {
	_, err := NewPoolManager("records", nil, DefaultPoolConfig(), nil, nil)
	assert.Error(t, err)
}

func TestPoolManager_PingAndReport(t *testing.T) {
	mock, gormDB := setupTestDB(t)
	rec := &fakeRecorder{}

	pm, err := NewPoolManager("records", gormDB, PoolConfig{MaxOpenConns: 4, MaxIdleConns: 2}, rec, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Same(t, gormDB, pm.DB())

	mock.ExpectPing()
	require.NoError(t, pm.Ping(context.Background()))

	pm.Report()
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 4, pm.Stats().MaxOpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_PingFailure(t *testing.T) {
	mock, gormDB := setupTestDB(t)
	pm, err := NewPoolManager("records", gormDB, DefaultPoolConfig(), nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, pm.Ping(context.Background()))
}

func TestPoolManager_HealthCheckReports(t *testing.T) {
	mock, gormDB := setupTestDB(t)
	for i := 0; i < 50; i++ {
		mock.ExpectPing()
	}
	rec := &fakeRecorder{}
	cfg := DefaultPoolConfig()
	cfg.HealthCheckInterval = 5 * time.Millisecond

	pm, err := NewPoolManager("records", gormDB, cfg, rec, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pm.Close() })

	assert.Eventually(t, func() bool { return rec.count() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestPoolManager_Close(t *testing.T) {
	mock, gormDB := setupTestDB(t)
	pm, err := NewPoolManager("records", gormDB, DefaultPoolConfig(), nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	mock.ExpectClose()
	require.NoError(t, pm.Close())
	require.NoError(t, pm.Close())
	assert.ErrorIs(t, pm.Ping(context.Background()), ErrPoolClosed)
}

func TestPoolConfigFrom(t *testing.T) {
	pc := PoolConfigFrom(config.DatabaseConfig{Driver: "postgres", MaxOpenConns: 50, ConnMaxLifetime: time.Minute})
	assert.Equal(t, 50, pc.MaxOpenConns)
	assert.Equal(t, DefaultPoolConfig().MaxIdleConns, pc.MaxIdleConns)
	assert.Equal(t, time.Minute, pc.ConnMaxLifetime)

	pc = PoolConfigFrom(config.DatabaseConfig{Driver: "sqlite", MaxOpenConns: 50})
	assert.Equal(t, 1, pc.MaxOpenConns)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}
