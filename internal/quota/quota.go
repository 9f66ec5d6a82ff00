// Package quota enforces per-user daily action limits.
//
// Counters are keyed by (user, action, UTC day). Two backends are provided:
// a database row per counter (the default) and Redis, used when the
// deployment already runs one.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/repo"
)

// ActionReviewCreate counts review submissions.
const ActionReviewCreate = "review:create"

// Limiter decides whether userID may perform action once more today.
// A limit <= 0 disables the check.
type Limiter interface {
	Allow(ctx context.Context, userID, action string, limit int) (bool, error)
}

// dayKey formats t as the UTC calendar day.
func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// DBLimiter stores counters in the daily_counters table.
type DBLimiter struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewDBLimiter returns a DBLimiter using wall-clock time.
func NewDBLimiter(db *gorm.DB) *DBLimiter { return &DBLimiter{DB: db, Now: time.Now} }

// Allow increments the counter and reports whether it is still within limit.
// The attempt is counted even when it is rejected.
func (l *DBLimiter) Allow(ctx context.Context, userID, action string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	n, err := repo.IncrementDailyCounter(ctx, l.DB, userID, action, dayKey(l.Now()))
	if err != nil {
		return false, fmt.Errorf("quota: increment: %w", err)
	}
	return n <= limit, nil
}

// counter is the subset of redis.Cmdable the Redis limiter needs.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireAt(ctx context.Context, key string, tm time.Time) *redis.BoolCmd
}

// RedisLimiter keeps counters in Redis with INCR and an expiry at the end of
// the day (plus an hour of slack for clock skew).
type RedisLimiter struct {
	Client counter
	Prefix string
	Now    func() time.Time
}

// NewRedisLimiter wraps an existing client.
func NewRedisLimiter(c *redis.Client) *RedisLimiter {
	return &RedisLimiter{Client: c, Prefix: "quota", Now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, userID, action string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	now := l.Now().UTC()
	key := fmt.Sprintf("%s:%s:%s:%s", l.Prefix, action, userID, dayKey(now))

	n, err := l.Client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("quota: redis incr: %w", err)
	}
	if n == 1 {
		end := time.Date(now.Year(), now.Month(), now.Day()+1, 1, 0, 0, 0, time.UTC)
		if err := l.Client.ExpireAt(ctx, key, end).Err(); err != nil {
			return false, fmt.Errorf("quota: redis expire: %w", err)
		}
	}
	return n <= int64(limit), nil
}

// NewRedisClient connects to addr and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return c, nil
}
