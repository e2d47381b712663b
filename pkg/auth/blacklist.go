package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis键前缀
const blacklistKeyPrefix = "jwt:blacklist:"

// Blacklist 令牌黑名单
type Blacklist interface {
	// Add 将令牌加入黑名单直到过期
	Add(ctx context.Context, token string, expireAt time.Time) error
	// IsBlacklisted 令牌是否已被撤销
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// RedisBlacklist Redis令牌黑名单实现
type RedisBlacklist struct {
	client redis.UniversalClient
}

// NewRedisBlacklist 创建Redis黑名单
func NewRedisBlacklist(client redis.UniversalClient) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

// Add 将令牌添加到黑名单
func (b *RedisBlacklist) Add(ctx context.Context, token string, expireAt time.Time) error {
	duration := time.Until(expireAt)
	if duration <= 0 {
		return nil // 已过期的令牌无需添加
	}
	if err := b.client.Set(ctx, blacklistKeyPrefix+token, "1", duration).Err(); err != nil {
		return fmt.Errorf("添加令牌到黑名单失败: %w", err)
	}
	return nil
}

// IsBlacklisted 检查令牌是否在黑名单中
func (b *RedisBlacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKeyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("检查黑名单失败: %w", err)
	}
	return n > 0, nil
}
