package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务的Prometheus指标
type Metrics struct {
	registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	Follows         *prometheus.CounterVec
	Likes           *prometheus.CounterVec
	ImageViews      prometheus.Counter
	ImagesCreated   prometheus.Counter
}

// New 创建并注册指标，每个实例使用独立的注册表
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		Follows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookmarks_follow_total",
			Help: "Follow graph mutations by action.",
		}, []string{"action"}),
		Likes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookmarks_like_total",
			Help: "Like set mutations by action.",
		}, []string{"action"}),
		ImageViews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookmarks_image_views_total",
			Help: "Image detail views.",
		}),
		ImagesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookmarks_images_created_total",
			Help: "Images bookmarked.",
		}),
	}

	m.registry.MustRegister(
		m.RequestDuration,
		m.Follows,
		m.Likes,
		m.ImageViews,
		m.ImagesCreated,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware 记录请求耗时，route 使用路由模板避免标签爆炸
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler 暴露指标的HTTP处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
