package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/muzz-match/internal/config"
)

// LikeCountTTL is refreshed on every read and write of a counter.
const LikeCountTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForLikeCount generates Redis key for the number of likes a user received.
func (c *RedisCache) KeyForLikeCount(userID uint64) string {
	return fmt.Sprintf("likes:count:%d", userID)
}

// GetLikeCount returns the cached counter. ok is false on a cache miss.
// Reads never extend the TTL, so a value filled from a stale count expires
// within LikeCountTTL.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID uint64) (count int64, ok bool, err error) {
	key := c.KeyForLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // corrupt value counts as a miss
	}
	return n, true, nil
}

// FillLikeCount stores a counter read from the database unless one is
// already cached; a value maintained by IncrLikeCount is never overwritten.
func (c *RedisCache) FillLikeCount(ctx context.Context, userID uint64, count int64) (bool, error) {
	return c.Client.SetNX(ctx, c.KeyForLikeCount(userID), count, LikeCountTTL).Result()
}

// incrIfPresent bumps a counter only when it is already cached; a missing
// key is left for the next read to fill from the database. INCR keeps the
// TTL set by the fill.
var incrIfPresent = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return redis.call("INCR", KEYS[1])
end
return -1
`)

// IncrLikeCount records one more received like for userID.
func (c *RedisCache) IncrLikeCount(ctx context.Context, userID uint64) error {
	key := c.KeyForLikeCount(userID)
	return incrIfPresent.Run(ctx, c.Client, []string{key}).Err()
}

// Publish sends payload to a pub/sub channel.
func (c *RedisCache) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.Client.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a pub/sub subscription. Callers must Close it.
func (c *RedisCache) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return c.Client.Subscribe(ctx, channel)
}
