package quota

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-review-backend/internal/domain"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.DailyCounter{}))
	return db
}

func TestDBLimiter_CountsPerDay(t *testing.T) {
	day := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	l := NewDBLimiter(newDB(t))
	l.Now = func() time.Time { return day }
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ok, err := l.Allow(ctx, "u1", ActionReviewCreate, 3)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i)
	}
	ok, err := l.Allow(ctx, "u1", ActionReviewCreate, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "u2", ActionReviewCreate, 3)
	require.NoError(t, err)
	assert.True(t, ok, "other users have their own counter")

	l.Now = func() time.Time { return day.Add(2 * time.Minute) }
	ok, err = l.Allow(ctx, "u1", ActionReviewCreate, 3)
	require.NoError(t, err)
	assert.True(t, ok, "counter resets on the next UTC day")
}

func TestDBLimiter_DisabledLimit(t *testing.T) {
	l := &DBLimiter{} // no DB: must not be touched
	ok, err := l.Allow(context.Background(), "u1", ActionReviewCreate, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

type fakeRedis struct {
	counts  map[string]int64
	expires map[string]time.Time
	err     error
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeRedis) ExpireAt(ctx context.Context, key string, tm time.Time) *redis.BoolCmd {
	f.expires[key] = tm
	return redis.NewBoolResult(true, nil)
}

func TestRedisLimiter_IncrAndExpire(t *testing.T) {
	f := &fakeRedis{counts: map[string]int64{}, expires: map[string]time.Time{}}
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	l := &RedisLimiter{Client: f, Prefix: "quota", Now: func() time.Time { return now }}
	ctx := context.Background()

	ok, err := l.Allow(ctx, "u1", ActionReviewCreate, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "u1", ActionReviewCreate, 2)
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "u1", ActionReviewCreate, 2)
	assert.False(t, ok)

	key := "quota:review:create:u1:2024-03-10"
	assert.EqualValues(t, 3, f.counts[key])
	assert.Equal(t, time.Date(2024, 3, 11, 1, 0, 0, 0, time.UTC), f.expires[key])
	assert.Len(t, f.expires, 1)
}

func TestRedisLimiter_Error(t *testing.T) {
	f := &fakeRedis{err: errors.New("conn refused")}
	l := &RedisLimiter{Client: f, Prefix: "quota", Now: time.Now}
	ok, err := l.Allow(context.Background(), "u1", ActionReviewCreate, 2)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "conn refused")
}
