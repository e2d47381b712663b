package auth

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nsxzhou1114/bookmarks-api/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	node, err := NewSnowflakeNode("2024-01-01", 1)
	require.NoError(t, err)

	cfg := config.JWTConfig{
		SecretKey:            "test-secret",
		AccessExpireSeconds:  3600,
		RefreshExpireSeconds: 7200,
		BufferSeconds:        60,
		Issuer:               "bookmarks-test",
	}
	return NewManager(cfg, NewRedisBlacklist(client), node)
}

func TestGenerateAndParse(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pair, err := m.GenerateTokenPair(42, "user", false)
	require.NoError(t, err)
	assert.Equal(t, 3600, pair.ExpiresIn)
	assert.NotEmpty(t, pair.TokenID)

	claims, err := m.ParseToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, AccessToken, claims.Type)
	assert.Equal(t, "bookmarks-test", claims.Issuer)
	assert.False(t, m.ExpiresSoon(claims))

	refresh, err := m.ParseToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, RefreshToken, refresh.Type)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m := newTestManager(t)
	other := newTestManager(t)
	other.cfg.SecretKey = "other"

	pair, err := other.GenerateTokenPair(1, "user", false)
	require.NoError(t, err)

	_, err = m.ParseToken(context.Background(), pair.AccessToken)
	assert.Error(t, err)
}

func TestRevoke(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pair, err := m.GenerateTokenPair(1, "user", false)
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, pair.AccessToken))

	_, err = m.ParseToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefreshRotates(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pair, err := m.GenerateTokenPair(7, "user", false)
	require.NoError(t, err)

	next, err := m.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.TokenID, next.TokenID)

	claims, err := m.ParseToken(ctx, next.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, pair.TokenID, claims.Previous)

	_, err = m.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	m := newTestManager(t)
	pair, err := m.GenerateTokenPair(7, "user", false)
	require.NoError(t, err)

	_, err = m.Refresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
