package database

import (
	"fmt"

	"github.com/go-redis/redis/v8"

	"syncgate/pkg/config"
)

var redisClient *redis.Client

// InitializeRedis 初始化Redis连接（版本计数器用）
func InitializeRedis(cfg *config.Config) *redis.Client {
	redisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return redisClient
}

// GetRedisClient 获取Redis客户端
func GetRedisClient() *redis.Client {
	return redisClient
}

// CloseRedis 关闭Redis连接
func CloseRedis() error {
	if redisClient != nil {
		return redisClient.Close()
	}
	return nil
}
