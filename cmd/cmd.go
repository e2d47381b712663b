package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/bookmarks-api/internal/config"
	"github.com/nsxzhou1114/bookmarks-api/internal/controller"
	"github.com/nsxzhou1114/bookmarks-api/internal/database"
	"github.com/nsxzhou1114/bookmarks-api/internal/logger"
	"github.com/nsxzhou1114/bookmarks-api/internal/model"
	"github.com/nsxzhou1114/bookmarks-api/internal/router"
	"github.com/nsxzhou1114/bookmarks-api/internal/service"
	"github.com/nsxzhou1114/bookmarks-api/internal/task"
	"github.com/nsxzhou1114/bookmarks-api/pkg/auth"
	"github.com/nsxzhou1114/bookmarks-api/pkg/cache"
	"github.com/nsxzhou1114/bookmarks-api/pkg/counter"
	"github.com/nsxzhou1114/bookmarks-api/pkg/markup"
	"github.com/nsxzhou1114/bookmarks-api/pkg/metrics"
	"github.com/nsxzhou1114/bookmarks-api/pkg/scraper"
	"github.com/nsxzhou1114/bookmarks-api/pkg/storage"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var configPath string

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "bookmarks-api",
	Short: "图片书签API服务",
	Long:  `图片书签社交服务，支持关注、动态流、图片收藏、点赞与浏览排行`,
}

// serveCmd 启动服务命令
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP服务",
	Long:  `启动图片书签API的HTTP服务器`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config", "配置文件路径")
	rootCmd.AddCommand(serveCmd)
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// app 进程内共享的依赖
type app struct {
	loader *config.Loader
	cfg    *config.Config
	log    *zap.Logger
	level  zap.AtomicLevel

	db  *gorm.DB
	rdb *redis.Client
	es  *elasticsearch.Client

	tokens     *auth.Manager
	filter     *markup.Filter
	imageCache *cache.ImageCache
	local      *storage.LocalStorage

	actions *service.ActionService
	follows *service.FollowService
	users   *service.UserService
	images  *service.ImageService
	search  *service.SearchService
}

// initializeSystem 初始化配置、日志、存储与服务
func initializeSystem() (*app, error) {
	loader, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("配置初始化失败: %w", err)
	}
	cfg := loader.Config()

	log, level := logger.New(&cfg.Log)
	a := &app{loader: loader, cfg: cfg, log: log, level: level}
	sugar := log.Sugar()

	if a.db, err = database.InitDB(&cfg.Database, log); err != nil {
		return nil, err
	}
	if err := model.InitTables(a.db); err != nil {
		return nil, fmt.Errorf("初始化数据库表失败: %w", err)
	}
	if a.rdb, err = database.InitRedis(&cfg.Redis, log); err != nil {
		return nil, err
	}
	if a.es, err = database.InitElasticsearch(&cfg.Elasticsearch, log); err != nil {
		return nil, err
	}

	node, err := auth.NewSnowflakeNode(cfg.App.Epoch, cfg.App.MachineID)
	if err != nil {
		return nil, fmt.Errorf("初始化ID生成器失败: %w", err)
	}
	a.tokens = auth.NewManager(cfg.JWT, auth.NewRedisBlacklist(a.rdb), node)

	a.filter = markup.NewFilter()
	if cfg.Image.SensitiveWordsFile != "" {
		if err := a.filter.LoadWordsFile(cfg.Image.SensitiveWordsFile); err != nil {
			sugar.Warnw("加载敏感词库失败", "file", cfg.Image.SensitiveWordsFile, "error", err)
		}
	}

	bloom := cache.NewRedisBloomFilter(a.rdb, cache.BloomFilterImageKey, cfg.Image.Cache.BloomCapacity, cfg.Image.Cache.BloomErrorRate)
	ttl := time.Duration(cfg.Image.Cache.DetailTTLSeconds) * time.Second
	a.imageCache = cache.NewImageCache(cache.NewRedisCache(a.rdb), bloom, ttl)

	a.search = service.NewSearchService(a.db, a.es, cfg.Elasticsearch.Index, sugar)

	opts := []service.ImageOption{
		service.WithCache(a.imageCache),
		service.WithFilter(a.filter),
	}
	if a.search.Enabled() {
		opts = append(opts, service.WithIndexer(a.search))
	}
	if cfg.Image.Download.Enabled {
		downloader, err := a.newDownloader(sugar)
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithDownloader(downloader))
	}

	a.actions = service.NewActionService(a.db, sugar)
	a.follows = service.NewFollowService(a.db, a.actions, sugar)
	a.users = service.NewUserService(a.db, a.tokens, a.actions, a.follows, sugar)
	a.images = service.NewImageService(a.db, a.actions, counter.NewRedisViewCounter(a.rdb), cfg.Image, sugar, opts...)
	return a, nil
}

// newDownloader 根据配置选择本地或COS存储
func (a *app) newDownloader(log *zap.SugaredLogger) (*storage.Downloader, error) {
	dl := a.cfg.Image.Download
	var store storage.Storage
	switch dl.Storage {
	case "cos":
		cos, err := storage.NewCOSStorage(dl.COS.BucketURL, dl.COS.SecretID, dl.COS.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("初始化COS存储失败: %w", err)
		}
		store = cos
	default:
		a.local = storage.NewLocalStorage(dl.Local.Path, dl.Local.URLPrefix)
		store = a.local
	}

	timeout := time.Duration(dl.TimeoutSeconds) * time.Second
	return storage.NewDownloader(&http.Client{Timeout: timeout}, store, storage.DownloaderOptions{
		MaxBytes: dl.MaxBytes,
		Attempts: dl.RetryAttempts,
		Timeout:  timeout,
	}, log), nil
}

// close 释放连接
func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = a.log.Sync()
}

// mustInit 命令行入口使用，初始化失败直接退出
func mustInit() *app {
	a, err := initializeSystem()
	if err != nil {
		fmt.Printf("系统初始化失败: %v\n", err)
		os.Exit(1)
	}
	return a
}

// watchConfig 配置文件变化时更新日志级别并重新加载敏感词库
func (a *app) watchConfig() {
	sugar := a.log.Sugar()
	a.loader.Watch(func(cfg *config.Config) {
		a.level.SetLevel(logger.ParseLevel(cfg.Log.Level))
		if cfg.Image.SensitiveWordsFile != "" {
			if err := a.filter.LoadWordsFile(cfg.Image.SensitiveWordsFile); err != nil {
				sugar.Warnw("重新加载敏感词库失败", "error", err)
			}
		}
		sugar.Infow("配置已重新加载", "log_level", cfg.Log.Level)
	}, func(err error) {
		sugar.Errorw("重新加载配置失败", "error", err)
	})
}

// startServer 启动HTTP服务
func startServer() {
	a := mustInit()
	defer a.close()
	sugar := a.log.Sugar()

	gin.SetMode(a.cfg.App.Mode)
	a.watchConfig()

	if err := a.images.WarmUp(context.Background()); err != nil {
		sugar.Warnw("预热布隆过滤器失败", "error", err)
	}
	if a.search.Enabled() {
		if err := a.search.EnsureIndex(context.Background()); err != nil {
			sugar.Warnw("创建搜索索引失败", "error", err)
		}
	}

	var scheduler *task.Scheduler
	if a.cfg.Cron.Enabled {
		s, err := task.NewScheduler(a.cfg.Cron, a.images, sugar)
		if err != nil {
			sugar.Fatalw("初始化定时任务失败", "error", err)
		}
		scheduler = s
		scheduler.Start()
	}

	// 控制器总是记录指标，未启用时只是不暴露
	m := metrics.New()
	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}

	opts := router.Options{
		Cors:        a.cfg.App.Cors,
		Metrics:     m,
		MetricsPath: metricsPath,
	}
	if a.local != nil {
		opts.UploadDir = a.local.Dir()
		opts.UploadPrefix = a.local.URLPrefix()
	}

	sc := scraper.New(&http.Client{Timeout: 10 * time.Second}, a.cfg.Image.AllowedExtensions)
	r := router.New(router.Handlers{
		User:   controller.NewUserApi(a.users, sugar),
		Image:  controller.NewImageApi(a.images, a.search, sc, m, sugar),
		Follow: controller.NewFollowApi(a.follows, a.actions, a.users, m, sugar),
	}, a.tokens, a.log, opts)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.App.Port),
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatal("HTTP服务启动失败", zap.Error(err))
		}
	}()
	a.log.Info("服务已启动", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info("关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.log.Error("服务关闭异常", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop(ctx)
	}
	// 关闭前把浏览数落库并保存布隆过滤器
	if _, err := a.images.SyncViewCounts(ctx); err != nil {
		a.log.Warn("同步浏览数失败", zap.Error(err))
	}
	if err := a.images.Persist(ctx); err != nil {
		a.log.Warn("保存布隆过滤器失败", zap.Error(err))
	}

	a.log.Info("服务已关闭")
}
