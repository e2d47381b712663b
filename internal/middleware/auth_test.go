package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/bookmarks-api/internal/config"
	"github.com/nsxzhou1114/bookmarks-api/pkg/auth"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokens(t *testing.T) *auth.Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	node, err := auth.NewSnowflakeNode("2024-01-01", 1)
	require.NoError(t, err)
	return auth.NewManager(config.JWTConfig{
		SecretKey:            "test-secret",
		AccessExpireSeconds:  3600,
		RefreshExpireSeconds: 7200,
		BufferSeconds:        60,
	}, auth.NewRedisBlacklist(client), node)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		id, ok := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "authenticated": ok})
	})
	r.GET("/", handlers...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	tokens := newTokens(t)
	pair, err := tokens.GenerateTokenPair(7, "user", false)
	require.NoError(t, err)
	r := newEngine(JWTAuth(tokens))

	w := do(r, pair.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"authenticated":true}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, pair.RefreshToken).Code)

	require.NoError(t, tokens.Revoke(context.Background(), pair.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, do(r, pair.AccessToken).Code)
}

func TestOptionalAuth(t *testing.T) {
	tokens := newTokens(t)
	pair, err := tokens.GenerateTokenPair(9, "user", false)
	require.NoError(t, err)
	r := newEngine(OptionalAuth(tokens))

	assert.JSONEq(t, `{"user_id":9,"authenticated":true}`, do(r, pair.AccessToken).Body.String())
	assert.JSONEq(t, `{"user_id":0,"authenticated":false}`, do(r, "").Body.String())
	assert.JSONEq(t, `{"user_id":0,"authenticated":false}`, do(r, "garbage").Body.String())
}

func TestRefreshAuth(t *testing.T) {
	tokens := newTokens(t)
	pair, err := tokens.GenerateTokenPair(3, "user", false)
	require.NoError(t, err)
	r := newEngine(RefreshAuth(tokens))

	w := do(r, pair.RefreshToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get("X-Refresh-Token-Expire-Soon"))
	assert.Equal(t, http.StatusUnauthorized, do(r, pair.AccessToken).Code)
}
