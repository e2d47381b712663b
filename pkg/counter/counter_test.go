package counter

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCounter(t *testing.T) (*RedisViewCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisViewCounter(client), mr
}

func TestIncrementAndGetConcurrent(t *testing.T) {
	c, _ := newTestCounter(t)
	ctx := context.Background()

	const n = 50
	results := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.IncrementAndGet(ctx, 7)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, v := range results {
		assert.Equal(t, int64(i+1), v)
	}

	got, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got)
}

func TestGetMissingIsZero(t *testing.T) {
	c, _ := newTestCounter(t)
	v, err := c.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestGetMany(t *testing.T) {
	c, _ := newTestCounter(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.IncrementAndGet(ctx, 1)
		require.NoError(t, err)
	}

	got, err := c.GetMany(ctx, []uint{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{1: 3, 2: 0}, got)
}

func TestTopOrdersByViews(t *testing.T) {
	c, _ := newTestCounter(t)
	ctx := context.Background()
	views := map[uint]int{1: 2, 2: 5, 3: 1}
	for id, n := range views {
		for i := 0; i < n; i++ {
			_, err := c.IncrementAndGet(ctx, id)
			require.NoError(t, err)
		}
	}

	top, err := c.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, Entry{ImageID: 2, Views: 5}, top[0])
	assert.Equal(t, Entry{ImageID: 1, Views: 2}, top[1])
}

func TestScan(t *testing.T) {
	c, mr := newTestCounter(t)
	ctx := context.Background()
	_, err := c.IncrementAndGet(ctx, 10)
	require.NoError(t, err)
	_, err = c.IncrementAndGet(ctx, 11)
	require.NoError(t, err)
	require.NoError(t, mr.Set("image:bad:views", "1"))

	seen := map[uint]int64{}
	require.NoError(t, c.Scan(ctx, func(id uint, views int64) error {
		seen[id] = views
		return nil
	}))
	assert.Equal(t, map[uint]int64{10: 1, 11: 1}, seen)
}

func TestStoreUnavailable(t *testing.T) {
	c, mr := newTestCounter(t)
	mr.Close()

	_, err := c.IncrementAndGet(context.Background(), 1)
	assert.Error(t, err)
}
