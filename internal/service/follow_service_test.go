package service

import (
	"context"
	"sync"
	"testing"

	"github.com/nsxzhou1114/bookmarks-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) countEdges(t *testing.T, from, to uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Contact{}).Where("user_from_id = ? AND user_to_id = ?", from, to).Count(&n).Error)
	return n
}

func TestFollowIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	created, err := f.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, int64(1), f.countEdges(t, alice.ID, bob.ID))
	assert.Equal(t, int64(1), f.countActions(t, alice.ID, model.VerbFollow))
}

func TestUnfollowIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	_, err := f.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, f.follows.Unfollow(ctx, alice.ID, bob.ID))
	assert.Equal(t, int64(0), f.countEdges(t, alice.ID, bob.ID))
	require.NoError(t, f.follows.Unfollow(ctx, alice.ID, bob.ID))
	assert.Equal(t, int64(0), f.countEdges(t, alice.ID, bob.ID))

	// 取消关注不记录动态
	assert.Equal(t, int64(1), f.countActions(t, alice.ID, model.VerbFollow))
}

func TestFollowConcurrentRequestsCreateOneEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.follows.Follow(ctx, alice.ID, bob.ID)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, int64(1), f.countEdges(t, alice.ID, bob.ID))
}

func TestFollowErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	_, err := f.follows.Follow(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrSelfFollow)

	_, err = f.follows.Follow(ctx, alice.ID, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, f.follows.Unfollow(ctx, alice.ID, 9999), ErrUserNotFound)
}

func TestApplyRejectsUnknownAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	assert.ErrorIs(t, f.follows.Apply(ctx, alice.ID, bob.ID, "block"), ErrInvalidAction)
	assert.ErrorIs(t, f.follows.Apply(ctx, alice.ID, bob.ID, ""), ErrInvalidAction)

	require.NoError(t, f.follows.Apply(ctx, alice.ID, bob.ID, FollowActionFollow))
	assert.Equal(t, int64(1), f.countEdges(t, alice.ID, bob.ID))
	require.NoError(t, f.follows.Apply(ctx, alice.ID, bob.ID, FollowActionUnfollow))
	assert.Equal(t, int64(0), f.countEdges(t, alice.ID, bob.ID))
}

func TestFollowersAndFollowing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	carol := f.createUser(t, "carol")

	_, err := f.follows.Follow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	_, err = f.follows.Follow(ctx, carol.ID, alice.ID)
	require.NoError(t, err)
	_, err = f.follows.Follow(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	followers, err := f.follows.Followers(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), followers.Total)
	names := []string{followers.List[0].Username, followers.List[1].Username}
	assert.ElementsMatch(t, []string{"bob", "carol"}, names)

	following, err := f.follows.Following(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), following.Total)
	assert.Equal(t, "carol", following.List[0].Username)
	assert.Equal(t, "/avatars/carol.png", following.List[0].Avatar)

	followersCount, followingCount, err := f.follows.Counts(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), followersCount)
	assert.Equal(t, int64(1), followingCount)

	_, err = f.follows.Followers(ctx, 9999, 1, 10)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRefollowWithinWindowRecordsOneAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	_, err := f.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, f.follows.Unfollow(ctx, alice.ID, bob.ID))
	created, err := f.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, int64(1), f.countEdges(t, alice.ID, bob.ID))
	assert.Equal(t, int64(1), f.countActions(t, alice.ID, model.VerbFollow))
}
