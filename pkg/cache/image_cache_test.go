package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func newTestImageCache(t *testing.T) (*ImageCache, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	bloom := NewRedisBloomFilter(client, BloomFilterImageKey, 1000, 0.01)
	return NewImageCache(NewRedisCache(client), bloom, time.Minute), client
}

func TestFetchBloomMissLoadsAndRemembers(t *testing.T) {
	c, client := newTestImageCache(t)
	ctx := context.Background()

	calls := 0
	got, err := Fetch(ctx, c, 5, func(ctx context.Context) (*snapshot, error) {
		calls++
		return &snapshot{ID: 5, Title: "Cat"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Cat", got.Title)
	assert.Equal(t, 1, calls)
	assert.True(t, c.MayExist(5))

	n, err := client.Exists(ctx, "image:detail:5").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFetchBloomMissLoaderErrorNotRemembered(t *testing.T) {
	c, _ := newTestImageCache(t)
	missing := errors.New("missing")

	_, err := Fetch(context.Background(), c, 8, func(ctx context.Context) (*snapshot, error) {
		return nil, missing
	})
	assert.ErrorIs(t, err, missing)
	assert.False(t, c.MayExist(8))
}

func TestFetchSeesEntriesFilledByAnotherInstance(t *testing.T) {
	c, client := newTestImageCache(t)
	ctx := context.Background()
	other := NewImageCache(NewRedisCache(client), NewRedisBloomFilter(client, BloomFilterImageKey, 1000, 0.01), time.Minute)

	_, err := Fetch(ctx, other, 4, func(ctx context.Context) (*snapshot, error) {
		return &snapshot{ID: 4, Title: "Dog"}, nil
	})
	require.NoError(t, err)

	got, err := Fetch(ctx, c, 4, func(ctx context.Context) (*snapshot, error) {
		return &snapshot{ID: 4, Title: "Dog"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Dog", got.Title)
	assert.True(t, c.MayExist(4))
}

func TestFetchCachesLoadedValue(t *testing.T) {
	c, _ := newTestImageCache(t)
	c.Remember(5)
	ctx := context.Background()

	var calls int32
	load := func(ctx context.Context) (*snapshot, error) {
		atomic.AddInt32(&calls, 1)
		return &snapshot{ID: 5, Title: "Cat"}, nil
	}

	first, err := Fetch(ctx, c, 5, load)
	require.NoError(t, err)
	second, err := Fetch(ctx, c, 5, load)
	require.NoError(t, err)

	assert.Equal(t, "Cat", first.Title)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchConcurrentLoadsOnce(t *testing.T) {
	c, _ := newTestImageCache(t)
	c.Remember(9)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	load := func(ctx context.Context) (*snapshot, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &snapshot{ID: 9}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Fetch(ctx, c, 9, load)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestFetchPropagatesLoadError(t *testing.T) {
	c, _ := newTestImageCache(t)
	c.Remember(3)
	boom := errors.New("boom")

	_, err := Fetch(context.Background(), c, 3, func(ctx context.Context) (*snapshot, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestBloomPersistRoundTrip(t *testing.T) {
	c, client := newTestImageCache(t)
	ctx := context.Background()
	require.NoError(t, c.WarmUp(ctx, []uint{1, 2, 3}))
	require.NoError(t, c.Persist(ctx))

	restored := NewImageCache(NewRedisCache(client), NewRedisBloomFilter(client, BloomFilterImageKey, 1000, 0.01), time.Minute)
	require.NoError(t, restored.WarmUp(ctx, nil))
	assert.True(t, restored.MayExist(2))
}

func TestWarmUpCorruptSnapshotStillAddsIDs(t *testing.T) {
	c, client := newTestImageCache(t)
	ctx := context.Background()
	require.NoError(t, client.Set(ctx, BloomFilterImageKey, "not-base64!", 0).Err())

	err := c.WarmUp(ctx, []uint{1, 2})
	assert.Error(t, err)
	assert.True(t, c.MayExist(1))
	assert.True(t, c.MayExist(2))
}

func TestNilBloomAllowsEverything(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewImageCache(NewRedisCache(client), nil, 0)
	assert.True(t, c.MayExist(12345))
	require.NoError(t, c.WarmUp(context.Background(), []uint{1}))
	require.NoError(t, c.Persist(context.Background()))
}
