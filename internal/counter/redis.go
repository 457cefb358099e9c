package counter

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var _ Counter = (*RedisCounter)(nil)

// RedisCounter relies on INCRBY, which treats a missing key as 0.
type RedisCounter struct {
	key    string
	client redis.UniversalClient
}

func NewRedisCounter(client redis.UniversalClient, key string) *RedisCounter {
	return &RedisCounter{key: key, client: client}
}

func (c *RedisCounter) Up(ctx context.Context) (int64, error) {
	n, err := c.client.IncrBy(ctx, c.key, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("IncrBy: key=%s, %w", c.key, err)
	}
	return n, nil
}

func (c *RedisCounter) Get(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, c.key).Int64()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("Get: key=%s, %w", c.key, err)
	}
	return n, nil
}
