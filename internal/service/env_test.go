package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"Nemi_Hub/internal/metrics"
	"Nemi_Hub/internal/model"
	"Nemi_Hub/internal/repository/mysql"
	"Nemi_Hub/internal/repository/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var baseTime = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db          *gorm.DB
	mr          *miniredis.Miniredis
	rdb         *goredis.Client
	clock       *fakeClock
	metrics     *metrics.Metrics
	logger      *slog.Logger
	communities *CommunityService
	decisions   *DecisionService
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := mysql.Open(mysql.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, mysql.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	rdb, err := redis.NewClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	clock := &fakeClock{now: baseTime}
	m := metrics.New(prometheus.NewRegistry())
	logger := quietLogger()
	communities := NewCommunityService(db)
	return &testEnv{
		db:          db,
		mr:          mr,
		rdb:         rdb,
		clock:       clock,
		metrics:     m,
		logger:      logger,
		communities: communities,
		decisions: NewDecisionService(db, rdb, communities,
			WithClock(clock.Now),
			WithMetrics(m),
			WithLogger(logger),
		),
	}
}

// seedCommunity 创建社区，admin 为创建者，members 是普通成员
func (e *testEnv) seedCommunity(t *testing.T, admin uint64, members ...uint64) uint64 {
	t.Helper()
	ctx := context.Background()
	c, err := e.communities.CreateCommunity(ctx, admin, "community-"+uuid.NewString()[:8], "")
	require.NoError(t, err)
	for _, uid := range members {
		require.NoError(t, e.communities.JoinCommunity(ctx, uid, c.ID))
	}
	return c.ID
}

func (e *testEnv) outboxEvents(t *testing.T) []string {
	t.Helper()
	var rows []model.DecisionOutbox
	require.NoError(t, e.db.Order("id ASC").Find(&rows).Error)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.EventType)
	}
	return out
}
