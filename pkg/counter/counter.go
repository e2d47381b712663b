package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	// ViewsKey 图片浏览计数键
	ViewsKey = "image:%d:views"
	// RankingKey 图片浏览排行榜
	RankingKey = "image_ranking"

	viewsScanPattern = "image:*:views"
)

// Entry 排行榜条目
type Entry struct {
	ImageID uint  `json:"image_id"`
	Views   int64 `json:"views"`
}

// ViewCounter 图片浏览计数器，只增不减
type ViewCounter interface {
	// IncrementAndGet 原子自增并返回新值，同时更新排行榜
	IncrementAndGet(ctx context.Context, imageID uint) (int64, error)
	// Get 获取当前计数，不存在时为0
	Get(ctx context.Context, imageID uint) (int64, error)
	// GetMany 批量获取计数
	GetMany(ctx context.Context, imageIDs []uint) (map[uint]int64, error)
	// Top 浏览量最高的图片
	Top(ctx context.Context, limit int) ([]Entry, error)
	// Scan 遍历所有计数
	Scan(ctx context.Context, fn func(imageID uint, views int64) error) error
}

// RedisViewCounter 基于Redis INCR的计数器实现
type RedisViewCounter struct {
	client redis.UniversalClient
}

// NewRedisViewCounter 创建计数器
func NewRedisViewCounter(client redis.UniversalClient) *RedisViewCounter {
	return &RedisViewCounter{client: client}
}

func viewsKey(imageID uint) string {
	return fmt.Sprintf(ViewsKey, imageID)
}

// IncrementAndGet 原子自增并返回新值
func (r *RedisViewCounter) IncrementAndGet(ctx context.Context, imageID uint) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, viewsKey(imageID))
		pipe.ZIncrBy(ctx, RankingKey, 1, strconv.FormatUint(uint64(imageID), 10))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment views of image %d: %w", imageID, err)
	}
	return incr.Val(), nil
}

// Get 获取当前计数
func (r *RedisViewCounter) Get(ctx context.Context, imageID uint) (int64, error) {
	n, err := r.client.Get(ctx, viewsKey(imageID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get views of image %d: %w", imageID, err)
	}
	return n, nil
}

// GetMany 批量获取计数
func (r *RedisViewCounter) GetMany(ctx context.Context, imageIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(imageIDs))
	if len(imageIDs) == 0 {
		return result, nil
	}

	keys := make([]string, len(imageIDs))
	for i, id := range imageIDs {
		keys[i] = viewsKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget views: %w", err)
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			result[imageIDs[i]] = 0
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse views of image %d: %w", imageIDs[i], err)
		}
		result[imageIDs[i]] = n
	}
	return result, nil
}

// Top 浏览量最高的图片
func (r *RedisViewCounter) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	zs, err := r.client.ZRevRangeWithScores(ctx, RankingKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking: %w", err)
	}

	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{ImageID: uint(id), Views: int64(z.Score)})
	}
	return entries, nil
}

// Scan 遍历所有图片的浏览计数
func (r *RedisViewCounter) Scan(ctx context.Context, fn func(imageID uint, views int64) error) error {
	iter := r.client.Scan(ctx, 0, viewsScanPattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id, ok := parseViewsKey(key)
		if !ok {
			continue
		}
		views, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(id, views); err != nil {
			return err
		}
	}
	return iter.Err()
}

// parseViewsKey 从 image:{id}:views 中解析图片ID
func parseViewsKey(key string) (uint, bool) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(key, "image:"), ":views")
	if trimmed == key {
		return 0, false
	}
	id, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
