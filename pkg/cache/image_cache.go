package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ImageCache 图片详情缓存，singleflight防击穿。
// 布隆过滤器只是本进程的提示：未命中时跳过缓存读取直接回源，是否存在始终以数据库为准
type ImageCache struct {
	cache Cache
	bloom BloomFilter
	group singleflight.Group
	ttl   time.Duration
}

// NewImageCache 创建图片缓存，bloom 可以为nil
func NewImageCache(cache Cache, bloom BloomFilter, ttl time.Duration) *ImageCache {
	if ttl <= 0 {
		ttl = ImageDetailExpiration
	}
	return &ImageCache{cache: cache, bloom: bloom, ttl: ttl}
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// Remember 记录新建的图片ID
func (c *ImageCache) Remember(id uint) {
	if c.bloom != nil {
		c.bloom.Add(idString(id))
	}
}

// WarmUp 用已有图片ID预热布隆过滤器。
// Redis中的快照读取失败时从空过滤器开始，ids 总会被加入，错误仍然返回给调用方记录
func (c *ImageCache) WarmUp(ctx context.Context, ids []uint) error {
	if c.bloom == nil {
		return nil
	}
	loadErr := c.bloom.LoadFromRedis(ctx)

	elements := make([]string, len(ids))
	for i, id := range ids {
		elements[i] = idString(id)
	}
	c.bloom.BatchAdd(elements)
	return loadErr
}

// Persist 将布隆过滤器保存到Redis
func (c *ImageCache) Persist(ctx context.Context) error {
	if c.bloom == nil {
		return nil
	}
	return c.bloom.SaveToRedis(ctx)
}

// MayExist 图片是否可能存在
func (c *ImageCache) MayExist(id uint) bool {
	if c.bloom == nil {
		return true
	}
	return c.bloom.Test(idString(id))
}

// Fetch 先读缓存，未命中时由load回源并写回缓存；同一ID的并发回源只执行一次。
// 布隆过滤器未命中时不读缓存，回源成功后记入过滤器；load 的错误原样返回
func Fetch[T any](ctx context.Context, c *ImageCache, id uint, load func(ctx context.Context) (*T, error)) (*T, error) {
	key := fmt.Sprintf(ImageDetailKey, id)
	if c.MayExist(id) {
		var cached T
		err := c.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, redis.Nil) {
			// 缓存异常时直接回源
			return load(ctx)
		}
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Remember(id)
		_ = c.cache.SetJSON(ctx, key, value, c.ttl)
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}
