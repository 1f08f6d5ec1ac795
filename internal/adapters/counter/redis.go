// Package counter provides the redis-backed window counter, used when
// rate-limit state should stay off the primary store.
package counter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(addr string, password string, db int) *RedisCounter {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCounter{client: rdb}
}

// Increment bumps the window's counter and returns the post-increment
// value. INCR is atomic in redis, so concurrent callers each see a
// distinct count. The key expires one window past its end so the store
// self-cleans even without the sweeper.
func (c *RedisCounter) Increment(ctx context.Context, identifier, endpoint string, windowStart time.Time, window time.Duration) (int64, error) {
	key := fmt.Sprintf("rl:%s:%s:%d:%d", identifier, endpoint, windowStart.Unix(), int64(window.Seconds()))

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, 2*window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCounter) Close() error {
	return c.client.Close()
}
