package cache

import (
	"context"
	"time"
)

// Cache 缓存接口
type Cache interface {
	// Get 获取缓存
	Get(ctx context.Context, key string) (string, error)

	// Set 设置缓存
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Delete 删除缓存
	Delete(ctx context.Context, keys ...string) error

	// GetJSON 获取JSON格式的缓存并反序列化
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// SetJSON 序列化为JSON并设置缓存
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// 缓存键名常量
const (
	ImageDetailKey      = "image:detail:%d"    // 图片不可变字段
	BloomFilterImageKey = "bloom:image:exists" // 图片存在性布隆过滤器
)

// 缓存过期时间常量
const (
	ImageDetailExpiration = 30 * time.Minute
	BloomFilterExpiration = 24 * time.Hour
)
