package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Tripo   TripoConfig   `mapstructure:"tripo"`
	Style   StyleConfig   `mapstructure:"style"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Watcher WatcherConfig `mapstructure:"watcher"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`      // JWT 密钥
	ExpireTime int    `mapstructure:"expire_time"` // 过期时间（小时）
	Issuer     string `mapstructure:"issuer"`      // 签发者
}

// TripoConfig Tripo3D 任务队列配置
type TripoConfig struct {
	APIKey          string `mapstructure:"api_key"`           // Bearer 密钥
	BaseURL         string `mapstructure:"base_url"`          // v2 openapi 地址
	PollInterval    int    `mapstructure:"poll_interval"`     // 轮询间隔（秒）
	StageTimeout    int    `mapstructure:"stage_timeout"`     // 单阶段最长等待（秒）
	RequestTimeout  int    `mapstructure:"request_timeout"`   // 单次 HTTP 请求超时（秒）
	URLExpiryLeeway int    `mapstructure:"url_expiry_leeway"` // 签名 URL 过期判定提前量（秒）
}

// StyleConfig 2D 风格化服务配置（Gemini 兼容接口）
type StyleConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`   // 生图模型名
	Timeout int    `mapstructure:"timeout"` // 请求超时（秒），风格化可能耗时数十秒
}

// CacheConfig 模型资产缓存配置
type CacheConfig struct {
	MaxAssetSize int    `mapstructure:"max_asset_size"` // 单个资产最大体积（MB）
	MemoryTTL    int    `mapstructure:"memory_ttl"`     // 内存层缓存时长（分钟）
	JanitorCron  string `mapstructure:"janitor_cron"`   // 孤儿资产清理计划
}

// WatcherConfig 收件目录监控配置
type WatcherConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	InboxDir string `mapstructure:"inbox_dir"` // 往该目录放图片即自动开始生成
}

func Load() *Config {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		log.Fatalf("配置验证失败: %v", err)
	}

	return &config
}

// PollIntervalDuration 轮询间隔
func (c *TripoConfig) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// StageTimeoutDuration 单阶段最长等待
func (c *TripoConfig) StageTimeoutDuration() time.Duration {
	return time.Duration(c.StageTimeout) * time.Second
}

// MemoryTTLDuration 内存层缓存时长
func (c *CacheConfig) MemoryTTLDuration() time.Duration {
	return time.Duration(c.MemoryTTL) * time.Minute
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("server.port", "5200")

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// JWT默认配置
	viper.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	viper.SetDefault("jwt.expire_time", 24) // 24小时
	viper.SetDefault("jwt.issuer", "amico-server")

	// Tripo3D 默认配置
	viper.SetDefault("tripo.base_url", "https://api.tripo3d.ai/v2/openapi")
	viper.SetDefault("tripo.poll_interval", 4)
	viper.SetDefault("tripo.stage_timeout", 300)
	viper.SetDefault("tripo.request_timeout", 30)
	viper.SetDefault("tripo.url_expiry_leeway", 60)

	// 风格化默认配置
	viper.SetDefault("style.base_url", "https://api.jxincm.cn")
	viper.SetDefault("style.model", "gemini-3-pro-image-preview")
	viper.SetDefault("style.timeout", 120)

	// 资产缓存默认配置
	viper.SetDefault("cache.max_asset_size", 100)
	viper.SetDefault("cache.memory_ttl", 10)
	viper.SetDefault("cache.janitor_cron", "0 4 * * *")

	// 收件目录默认关闭
	viper.SetDefault("watcher.enabled", false)
	viper.SetDefault("watcher.inbox_dir", "data/inbox")
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT密钥未设置")
	}
	if config.Tripo.APIKey == "" {
		log.Println("警告: tripo.api_key 未设置，3D 生成阶段将不可用")
	}
	if config.Style.APIKey == "" {
		log.Println("警告: style.api_key 未设置，2D 风格化阶段将不可用")
	}
	if config.Tripo.PollInterval <= 0 {
		return fmt.Errorf("tripo.poll_interval 必须大于 0")
	}
	if config.Tripo.StageTimeout <= 0 {
		return fmt.Errorf("tripo.stage_timeout 必须大于 0")
	}
	return nil
}
