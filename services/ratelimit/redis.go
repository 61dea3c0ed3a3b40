package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
)

const window = time.Minute

// RedisLimiter is a fixed-window limiter shared by every API instance:
// at most `limit` calls per key and minute.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	prefix string
}

var _ core.RateLimiter = (*RedisLimiter)(nil)

func NewRedisLimiter(client *redis.Client, limit int) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, prefix: "ratelimit:"}
}

func (l *RedisLimiter) key(key string) string {
	return l.prefix + key + ":" + strconv.FormatInt(core.NowFunc().Unix()/int64(window.Seconds()), 10)
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.key(key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, errors.Wrap(err, "incrementing rate limit counter")
	}
	return incr.Val() <= int64(l.limit), nil
}

// NewRedisClient connects to conf.Addr and verifies the connection.
func NewRedisClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}
