package router

import (
	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/bookmarks-api/internal/config"
	"github.com/nsxzhou1114/bookmarks-api/internal/controller"
	"github.com/nsxzhou1114/bookmarks-api/internal/logger"
	"github.com/nsxzhou1114/bookmarks-api/internal/middleware"
	"github.com/nsxzhou1114/bookmarks-api/pkg/auth"
	"github.com/nsxzhou1114/bookmarks-api/pkg/metrics"
	"go.uber.org/zap"
)

// Handlers 路由用到的控制器
type Handlers struct {
	User   *controller.UserApi
	Image  *controller.ImageApi
	Follow *controller.FollowApi
}

// Options 路由配置
type Options struct {
	Cors         config.CorsConfig
	Metrics      *metrics.Metrics
	MetricsPath  string // 为空时不暴露指标
	UploadDir    string // 本地存储目录，为空时不提供静态文件
	UploadPrefix string
}

// New 创建带全局中间件的引擎并注册路由
func New(h Handlers, tokens *auth.Manager, log *zap.Logger, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinLogger(log))
	r.Use(middleware.Cors(opts.Cors))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}
	Setup(r, h, tokens, opts)
	return r
}

// Setup 设置API路由
func Setup(r *gin.Engine, h Handlers, tokens *auth.Manager, opts Options) {
	// 本地下载的图片
	if opts.UploadDir != "" && opts.UploadPrefix != "" {
		r.Static(opts.UploadPrefix, opts.UploadDir)
	}
	if opts.Metrics != nil && opts.MetricsPath != "" {
		r.GET(opts.MetricsPath, gin.WrapH(opts.Metrics.Handler()))
	}

	api := r.Group("/api")
	setupUserRoutes(api, h, tokens)
	setupImageRoutes(api, h.Image, tokens)
}

// setupUserRoutes 用户、关注与动态路由
func setupUserRoutes(api *gin.RouterGroup, h Handlers, tokens *auth.Manager) {
	userRoutes := api.Group("/users")
	{
		userRoutes.POST("/register", h.User.Register)
		userRoutes.POST("/login", h.User.Login)
		userRoutes.GET("/:username/followers", h.Follow.Followers)
		userRoutes.GET("/:username/following", h.Follow.Following)
	}

	refreshRoutes := api.Group("/users", middleware.RefreshAuth(tokens))
	{
		refreshRoutes.POST("/refresh", h.User.RefreshToken)
	}

	authRoutes := api.Group("", middleware.JWTAuth(tokens))
	{
		authRoutes.POST("/users/logout", h.User.Logout)
		authRoutes.GET("/users", h.User.List)
		authRoutes.GET("/users/me", h.User.GetUserInfo)
		authRoutes.PUT("/users/me/profile", h.User.UpdateProfile)
		authRoutes.POST("/follow", h.Follow.Follow)
		authRoutes.GET("/dashboard", h.Follow.Dashboard)
	}

	optionalRoutes := api.Group("/users", middleware.OptionalAuth(tokens))
	{
		optionalRoutes.GET("/:username", h.User.Detail)
	}
}

// setupImageRoutes 图片路由
func setupImageRoutes(api *gin.RouterGroup, imageApi *controller.ImageApi, tokens *auth.Manager) {
	public := api.Group("/images")
	{
		public.GET("", imageApi.List)
		public.GET("/", imageApi.List)
		public.GET("/ranking", imageApi.Ranking)
		public.GET("/search", imageApi.Search)
	}

	authRoutes := api.Group("/images", middleware.JWTAuth(tokens))
	{
		authRoutes.GET("/create", imageApi.CreateForm)
		authRoutes.POST("/create", imageApi.Create)
		authRoutes.POST("/like", imageApi.Like)
		authRoutes.GET("/scrape", imageApi.Scrape)
	}

	optional := api.Group("/images", middleware.OptionalAuth(tokens))
	{
		optional.GET("/:id/:slug", imageApi.Detail)
	}
}
