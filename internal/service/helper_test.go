package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nsxzhou1114/bookmarks-api/internal/config"
	"github.com/nsxzhou1114/bookmarks-api/internal/database"
	"github.com/nsxzhou1114/bookmarks-api/internal/dto"
	"github.com/nsxzhou1114/bookmarks-api/internal/model"
	"github.com/nsxzhou1114/bookmarks-api/pkg/auth"
	"github.com/nsxzhou1114/bookmarks-api/pkg/counter"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	log     *zap.SugaredLogger
	actions *ActionService
	follows *FollowService
	images  *ImageService
	users   *UserService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig("silent"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, model.InitTables(db))
	return db
}

func testImageConfig() config.ImageConfig {
	return config.ImageConfig{
		PageSize:          8,
		AllowedExtensions: []string{"jpg", "jpeg", "png", "gif", "webp"},
	}
}

func newFixture(t *testing.T, opts ...ImageOption) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{db: newTestDB(t), mr: mr, rdb: rdb, log: zap.NewNop().Sugar()}
	f.actions = NewActionService(f.db, f.log)
	f.follows = NewFollowService(f.db, f.actions, f.log)
	f.images = NewImageService(f.db, f.actions, counter.NewRedisViewCounter(rdb), testImageConfig(), f.log, opts...)

	node, err := auth.NewSnowflakeNode("2024-01-01", 1)
	require.NoError(t, err)
	tokens := auth.NewManager(config.JWTConfig{
		SecretKey:            "test-secret",
		AccessExpireSeconds:  3600,
		RefreshExpireSeconds: 7200,
		Issuer:               "bookmarks-test",
	}, auth.NewRedisBlacklist(rdb), node)
	f.users = NewUserService(f.db, tokens, f.actions, f.follows, f.log)
	return f
}

// createUser 直接写库创建用户，跳过bcrypt
func (f *fixture) createUser(t *testing.T, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Password: "x", Role: "user", Status: model.UserStatusActive}
	require.NoError(t, f.db.Create(u).Error)
	require.NoError(t, f.db.Create(&model.Profile{UserID: u.ID, Avatar: "/avatars/" + username + ".png"}).Error)
	return u
}

func (f *fixture) createImage(t *testing.T, owner *model.User, title string) *model.Image {
	t.Helper()
	img, err := f.images.CreateBookmark(context.Background(), owner.ID, &dto.ImageCreateRequest{
		Title: title,
		URL:   "https://example.com/" + strings.ToLower(strings.ReplaceAll(title, " ", "-")) + ".jpg",
	})
	require.NoError(t, err)
	return img
}

func (f *fixture) countActions(t *testing.T, userID uint, verb string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Action{}).Where("user_id = ? AND verb = ?", userID, verb).Count(&n).Error)
	return n
}
