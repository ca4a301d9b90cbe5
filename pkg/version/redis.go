package version

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisCounter 基于Redis INCR的版本计数器，多实例部署共享同一计数。
// INCR本身原子，天然满足并发提交不丢计数的要求。
type RedisCounter struct {
	client *redis.Client
	prefix string
}

func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "syncgate"
	}
	return &RedisCounter{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisCounter) key(tenantID uint) string {
	return fmt.Sprintf("%s:version:%d", c.prefix, tenantID)
}

func (c *RedisCounter) Increase(tenantID uint) (int64, error) {
	return c.client.Incr(context.Background(), c.key(tenantID)).Result()
}

func (c *RedisCounter) Current(tenantID uint) (int64, error) {
	value, err := c.client.Get(context.Background(), c.key(tenantID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}
