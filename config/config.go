package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Redis    RedisConfig    `mapstructure:"redis"`
	History  HistoryConfig  `mapstructure:"history"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Upload   UploadConfig   `mapstructure:"upload"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// BackendConfig 分析后端配置（显式注入，不允许散落的硬编码地址）
type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	UserID         string `mapstructure:"user_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// HistoryConfig 本地任务记录存储
type HistoryConfig struct {
	Path string `mapstructure:"path"` // SQLite 文件路径
}

// TrackingConfig 任务轮询配置
type TrackingConfig struct {
	TrackQueue          string `mapstructure:"track_queue"`
	MaxWorkers          int    `mapstructure:"max_workers"`
	MaxAttempts         int    `mapstructure:"max_attempts"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
}

// PollInterval 轮询间隔
func (t TrackingConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalSeconds) * time.Second
}

type UploadConfig struct {
	MaxVideoSize int64  `mapstructure:"max_video_size"` // 最大视频大小（字节）
	MaxImageSize int64  `mapstructure:"max_image_size"` // 单张图片大小上限（字节）
	TempDir      string `mapstructure:"temp_dir"`       // 临时目录
	ExpireHours  int    `mapstructure:"expire_hours"`   // 临时文件过期时间（小时）
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（本地覆盖，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults 补齐缺省值，保持与前端观察到的 60 次 × 5 秒一致
func applyDefaults(cfg *Config) {
	if cfg.Tracking.MaxAttempts <= 0 {
		cfg.Tracking.MaxAttempts = 60
	}
	if cfg.Tracking.PollIntervalSeconds <= 0 {
		cfg.Tracking.PollIntervalSeconds = 5
	}
	if cfg.Tracking.MaxWorkers <= 0 {
		cfg.Tracking.MaxWorkers = 4
	}
	if cfg.Tracking.TrackQueue == "" {
		cfg.Tracking.TrackQueue = "track_queue"
	}
	if cfg.Upload.MaxVideoSize <= 0 {
		cfg.Upload.MaxVideoSize = 100 * 1024 * 1024
	}
	if cfg.Upload.MaxImageSize <= 0 {
		cfg.Upload.MaxImageSize = 10 * 1024 * 1024
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 60
	}
}
