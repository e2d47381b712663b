package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Log           LogConfig           `mapstructure:"log"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Image         ImageConfig         `mapstructure:"image"`
	Cron          CronConfig          `mapstructure:"cron"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name      string     `mapstructure:"name"`
	Mode      string     `mapstructure:"mode"`
	Port      int        `mapstructure:"port"`
	MachineID int64      `mapstructure:"machine_id"` // 雪花算法节点ID
	Epoch     string     `mapstructure:"epoch"`      // 雪花算法起始日期 2006-01-02
	Cors      CorsConfig `mapstructure:"cors"`
}

// CorsConfig 跨域配置
type CorsConfig struct {
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey            string `mapstructure:"secret_key"`
	AccessExpireSeconds  int    `mapstructure:"access_expire_seconds"`
	RefreshExpireSeconds int    `mapstructure:"refresh_expire_seconds"`
	BufferSeconds        int    `mapstructure:"buffer_seconds"`
	Issuer               string `mapstructure:"issuer"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql 或 postgres
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Charset      string `mapstructure:"charset"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

// DSN 获取数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=Asia/Shanghai",
			c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// Addr 获取Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ElasticsearchConfig Elasticsearch配置
type ElasticsearchConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	URLs     []string `mapstructure:"urls"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	Index    string   `mapstructure:"index"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
	Stdout     bool   `mapstructure:"stdout"`
}

// ImageConfig 图片书签配置
type ImageConfig struct {
	PageSize           int            `mapstructure:"page_size"`
	AllowedExtensions  []string       `mapstructure:"allowed_extensions"`
	SensitiveWordsFile string         `mapstructure:"sensitive_words_file"`
	Download           DownloadConfig `mapstructure:"download"`
	Cache              ImageCacheConf `mapstructure:"cache"`
}

// DownloadConfig 远程图片下载配置
type DownloadConfig struct {
	Enabled        bool             `mapstructure:"enabled"`
	TimeoutSeconds int              `mapstructure:"timeout_seconds"`
	MaxBytes       int64            `mapstructure:"max_bytes"`
	RetryAttempts  uint             `mapstructure:"retry_attempts"`
	Storage        string           `mapstructure:"storage"` // local 或 cos
	Local          LocalStorageConf `mapstructure:"local"`
	COS            COSStorageConf   `mapstructure:"cos"`
}

// LocalStorageConf 本地存储配置
type LocalStorageConf struct {
	Path      string `mapstructure:"path"`
	URLPrefix string `mapstructure:"url_prefix"`
}

// COSStorageConf 腾讯云COS配置
type COSStorageConf struct {
	BucketURL string `mapstructure:"bucket_url"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
}

// ImageCacheConf 图片缓存配置
type ImageCacheConf struct {
	DetailTTLSeconds int     `mapstructure:"detail_ttl_seconds"`
	BloomCapacity    uint    `mapstructure:"bloom_capacity"`
	BloomErrorRate   float64 `mapstructure:"bloom_error_rate"`
}

// CronConfig 定时任务配置
type CronConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	ViewSync string `mapstructure:"view_sync"`
	Timezone string `mapstructure:"timezone"`
}

// MetricsConfig 监控指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Loader 持有viper实例，负责热加载
type Loader struct {
	v   *viper.Viper
	mu  sync.RWMutex
	cfg *Config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bookmarks-api")
	v.SetDefault("app.mode", "release")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.machine_id", 1)
	v.SetDefault("app.epoch", "2024-01-01")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("elasticsearch.index", "images")
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.access_expire_seconds", 7200)
	v.SetDefault("jwt.refresh_expire_seconds", 604800)
	v.SetDefault("jwt.buffer_seconds", 300)
	v.SetDefault("jwt.issuer", "bookmarks-api")
	v.SetDefault("image.page_size", 8)
	v.SetDefault("image.allowed_extensions", []string{"jpg", "jpeg", "png", "gif", "webp"})
	v.SetDefault("image.download.timeout_seconds", 10)
	v.SetDefault("image.download.max_bytes", 10<<20)
	v.SetDefault("image.download.retry_attempts", 3)
	v.SetDefault("image.download.storage", "local")
	v.SetDefault("image.download.local.path", "./uploads/images")
	v.SetDefault("image.download.local.url_prefix", "/uploads/images")
	v.SetDefault("image.cache.detail_ttl_seconds", 1800)
	v.SetDefault("image.cache.bloom_capacity", 1000000)
	v.SetDefault("image.cache.bloom_error_rate", 0.01)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.view_sync", "0 */5 * * * *")
	v.SetDefault("cron.timezone", "Asia/Shanghai")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load 加载配置文件，configPath 为配置文件所在目录
func Load(configPath string) (*Loader, error) {
	// .env 文件可选，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	l := &Loader{v: v}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) reload() error {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	l.mu.Lock()
	l.cfg = &cfg
	l.mu.Unlock()
	return nil
}

// Config 返回当前配置快照
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// Watch 监听配置文件变化，重新解析后回调 onChange
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if err := l.reload(); err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onChange != nil {
			onChange(l.Config())
		}
	})
	l.v.WatchConfig()
}
