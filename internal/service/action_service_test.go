package service

import (
	"context"
	"testing"
	"time"

	"github.com/nsxzhou1114/bookmarks-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSuppressesDuplicateWithinWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.actions.now = func() time.Time { return now }

	first, err := f.actions.Record(ctx, alice.ID, model.VerbFollow, model.TargetTypeUser, &bob.ID)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	second, err := f.actions.Record(ctx, alice.ID, model.VerbFollow, model.TargetTypeUser, &bob.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	now = now.Add(2 * time.Minute)
	third, err := f.actions.Record(ctx, alice.ID, model.VerbFollow, model.TargetTypeUser, &bob.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)

	assert.Equal(t, int64(2), f.countActions(t, alice.ID, model.VerbFollow))
}

func TestRecordWithoutTarget(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")

	action, err := f.actions.Record(context.Background(), alice.ID, model.VerbJoined, "", nil)
	require.NoError(t, err)
	assert.Nil(t, action.TargetID)
	assert.Empty(t, action.TargetType)
}

func TestFeedForOnlyFolloweesByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	_, err := f.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	// alice 自己的关注动态不出现在她的动态流里
	feed, err := f.actions.FeedFor(ctx, alice.ID, 1, 10, false)
	require.NoError(t, err)
	assert.Empty(t, feed.List)

	// 被关注不影响 bob 的动态流
	feed, err = f.actions.FeedFor(ctx, bob.ID, 1, 10, false)
	require.NoError(t, err)
	assert.Empty(t, feed.List)

	img := f.createImage(t, bob, "Sunset")
	feed, err = f.actions.FeedFor(ctx, alice.ID, 1, 10, false)
	require.NoError(t, err)
	require.Len(t, feed.List, 1)
	item := feed.List[0]
	assert.Equal(t, model.VerbBookmarked, item.Verb)
	assert.Equal(t, "bob", item.User.Username)
	assert.Equal(t, "/avatars/bob.png", item.User.Avatar)
	require.NotNil(t, item.Target)
	assert.Equal(t, img.ID, item.Target.ID)
	assert.Equal(t, "Sunset", item.Target.Title)
	assert.Equal(t, img.DetailPath(), item.Target.DetailPath)
}

func TestFeedForIncludeSelfAndUserTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	_, err := f.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	feed, err := f.actions.FeedFor(ctx, alice.ID, 1, 10, true)
	require.NoError(t, err)
	require.Len(t, feed.List, 1)
	assert.Equal(t, model.VerbFollow, feed.List[0].Verb)
	require.NotNil(t, feed.List[0].Target)
	assert.Equal(t, model.TargetTypeUser, feed.List[0].Target.Type)
	assert.Equal(t, "bob", feed.List[0].Target.Username)
}

func TestFeedForPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	_, err := f.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	for _, title := range []string{"One", "Two", "Three"} {
		f.createImage(t, bob, title)
	}

	page1, err := f.actions.FeedFor(ctx, alice.ID, 1, 2, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page1.Total)
	require.Len(t, page1.List, 2)
	assert.Equal(t, "Three", page1.List[0].Target.Title)
	assert.Equal(t, "Two", page1.List[1].Target.Title)

	page2, err := f.actions.FeedFor(ctx, alice.ID, 2, 2, false)
	require.NoError(t, err)
	require.Len(t, page2.List, 1)
	assert.Equal(t, "One", page2.List[0].Target.Title)
}
