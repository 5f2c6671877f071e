package config

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig Config
	once         sync.Once
)

// Config is the flattened application configuration. Values come from
// defaults, an optional .env file and environment variables, in that order.
type Config struct {
	// Server
	ServerHost         string        `mapstructure:"server_host"`
	ServerPort         int           `mapstructure:"server_port"`
	ServerDomain       string        `mapstructure:"server_domain"`
	ServerReadTimeout  time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout  time.Duration `mapstructure:"server_idle_timeout"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Database
	DBType            string `mapstructure:"db_type"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// Auth
	JWTSecret        string        `mapstructure:"jwt_secret"`
	JWTExpiresIn     time.Duration `mapstructure:"jwt_expires_in"`
	JWTRefreshExpiry time.Duration `mapstructure:"jwt_refresh_expires_in"`

	// Storage
	StorageType      string `mapstructure:"storage_type"`
	StorageLocalPath string `mapstructure:"storage_local_path"`
	MinioEndpoint    string `mapstructure:"minio_endpoint"`
	MinioAccessKey   string `mapstructure:"minio_access_key"`
	MinioSecretKey   string `mapstructure:"minio_secret_key"`
	MinioBucket      string `mapstructure:"minio_bucket"`
	MinioUseSSL      bool   `mapstructure:"minio_use_ssl"`
	WebDAVURL        string `mapstructure:"webdav_url"`
	WebDAVUser       string `mapstructure:"webdav_user"`
	WebDAVPassword   string `mapstructure:"webdav_password"`
	WebDAVPathPrefix string `mapstructure:"webdav_path_prefix"`

	// Cache
	CacheType          string        `mapstructure:"cache_type"`
	CacheRedisAddr     string        `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string        `mapstructure:"cache_redis_password"`
	CacheRedisDB       int           `mapstructure:"cache_redis_db"`
	CacheImageTTL      time.Duration `mapstructure:"cache_image_ttl"`
	CacheMaxImageMB    int64         `mapstructure:"cache_max_image_mb"`

	// Rate limiting
	RateLimitAuthRPS    float64       `mapstructure:"rate_limit_auth_rps"`
	RateLimitAuthBurst  int           `mapstructure:"rate_limit_auth_burst"`
	RateLimitAPIRPS     float64       `mapstructure:"rate_limit_api_rps"`
	RateLimitAPIBurst   int           `mapstructure:"rate_limit_api_burst"`
	RateLimitImageRPS   float64       `mapstructure:"rate_limit_image_rps"`
	RateLimitImageBurst int           `mapstructure:"rate_limit_image_burst"`
	RateLimitExpireTime time.Duration `mapstructure:"rate_limit_expire_time"`

	// Uploads
	UploadMaxSizeMB int `mapstructure:"upload_max_size_mb"`

	// Credits
	InitialCredits uint `mapstructure:"initial_credits"`
	ConversionCost uint `mapstructure:"conversion_cost"`

	// Conversion jobs
	WorkerCount             int           `mapstructure:"worker_count"`
	JobQueueSize            int           `mapstructure:"job_queue_size"`
	JobPollInterval         time.Duration `mapstructure:"job_poll_interval"`
	JobVisibilityTimeout    time.Duration `mapstructure:"job_visibility_timeout"`
	MaxConcurrentTransforms int64         `mapstructure:"max_concurrent_transforms"`

	// Transform provider: "fal" or "gemini". Provider-specific settings live
	// in TransformSettings and are decoded by the transform factory.
	TransformProvider string                 `mapstructure:"transform_provider"`
	TransformSettings map[string]interface{} `mapstructure:"transform_settings"`
}

// InitConfig loads configuration exactly once.
func InitConfig() {
	once.Do(loadConfig)
}

func Get() *Config {
	return &globalConfig
}

func loadConfig() {
	setDefaults()

	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "Info: .env file not found, using defaults and environment variables")
	}

	viper.AutomaticEnv()
	for _, key := range viper.AllKeys() {
		viper.BindEnv(key)
	}

	if err := viper.Unmarshal(&globalConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: Unable to unmarshal config, %v\n", err)
		os.Exit(1)
	}

	// WorkerCount: -1 = GOMAXPROCS, 0 = default, >0 = as configured
	switch {
	case globalConfig.WorkerCount < 0:
		globalConfig.WorkerCount = runtime.GOMAXPROCS(0)
	case globalConfig.WorkerCount == 0:
		globalConfig.WorkerCount = defaultWorkers()
	}
}

func setDefaults() {
	viper.SetDefault("server_host", "127.0.0.1")
	viper.SetDefault("server_port", 8080)
	viper.SetDefault("server_domain", "")
	viper.SetDefault("server_read_timeout", "15s")
	viper.SetDefault("server_write_timeout", "30s")
	viper.SetDefault("server_idle_timeout", "120s")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "console")

	viper.SetDefault("db_type", "sqlite")
	viper.SetDefault("db_host", "localhost")
	viper.SetDefault("db_port", 5432)
	viper.SetDefault("db_username", "postgres")
	viper.SetDefault("db_password", "")
	viper.SetDefault("db_name", "ai-gallery")
	viper.SetDefault("db_file_path", "")
	viper.SetDefault("db_max_open_conns", 100)
	viper.SetDefault("db_max_idle_conns", 25)
	viper.SetDefault("db_conn_max_lifetime", 3600)

	viper.SetDefault("jwt_secret", "")
	viper.SetDefault("jwt_expires_in", "15m")
	viper.SetDefault("jwt_refresh_expires_in", "720h")

	viper.SetDefault("storage_type", "local")
	viper.SetDefault("storage_local_path", "./data/images")
	viper.SetDefault("minio_endpoint", "")
	viper.SetDefault("minio_bucket", "ai-gallery")
	viper.SetDefault("minio_use_ssl", true)
	viper.SetDefault("webdav_url", "")
	viper.SetDefault("webdav_path_prefix", "ai-gallery")

	viper.SetDefault("cache_type", "memory")
	viper.SetDefault("cache_redis_addr", "localhost:6379")
	viper.SetDefault("cache_redis_password", "")
	viper.SetDefault("cache_redis_db", 0)
	viper.SetDefault("cache_image_ttl", "1h")
	viper.SetDefault("cache_max_image_mb", 10)

	viper.SetDefault("rate_limit_auth_rps", 0.5)
	viper.SetDefault("rate_limit_auth_burst", 5)
	viper.SetDefault("rate_limit_api_rps", 30.0)
	viper.SetDefault("rate_limit_api_burst", 60)
	viper.SetDefault("rate_limit_image_rps", 100.0)
	viper.SetDefault("rate_limit_image_burst", 200)
	viper.SetDefault("rate_limit_expire_time", "10m")

	viper.SetDefault("upload_max_size_mb", 50)

	viper.SetDefault("initial_credits", 10)
	viper.SetDefault("conversion_cost", 1)

	viper.SetDefault("worker_count", 0)
	viper.SetDefault("job_queue_size", 1000)
	viper.SetDefault("job_poll_interval", "2s")
	viper.SetDefault("job_visibility_timeout", "10m")
	viper.SetDefault("max_concurrent_transforms", 4)

	viper.SetDefault("transform_provider", "fal")
	viper.SetDefault("transform_settings", map[string]interface{}{
		"endpoint": "https://queue.fal.run/fal-ai/flux-general/image-to-image",
		"api_key":  "",
		"timeout":  "120s",
	})
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 2 {
		return 2
	}
	return n
}

// Addr returns the listen address as "host:port".
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// BaseURL returns the externally visible base URL used to build image links.
func (c *Config) BaseURL() string {
	if c.ServerDomain != "" {
		return c.ServerDomain
	}
	return fmt.Sprintf("http://%s", c.Addr())
}
