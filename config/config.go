package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	HOS      HOSConfig      `mapstructure:"hos"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port        int           `mapstructure:"port"`
	BodyLimit   int64         `mapstructure:"body_limit"`
	WriteLimit  int           `mapstructure:"write_rate_limit"` // 每窗口允许的写请求数
	WriteWindow time.Duration `mapstructure:"write_rate_window"`
	CORS        CORSConfig    `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HOSConfig 工时与休息规则配置
type HOSConfig struct {
	MaxWeeklyHours  float64       `mapstructure:"max_weekly_hours"`
	ShortRestHours  int           `mapstructure:"short_rest_hours"` // 次日/当日为工作日
	LongRestHours   int           `mapstructure:"long_rest_hours"`  // 次日/当日为休息日
	WindowDays      int           `mapstructure:"window_days"`
	LookbackDays    int           `mapstructure:"lookback_days"` // 看板拉取的出勤窗口
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Timezone        string        `mapstructure:"timezone"` // 日历日边界所用时区
}

// Location 解析调度员所在时区
func (c *HOSConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// SweeperConfig 悬挂派车记录清理任务配置
type SweeperConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit", 1<<20)
	v.SetDefault("server.write_rate_limit", 120)
	v.SetDefault("server.write_rate_window", "1m")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "fleet_hos")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("hos.max_weekly_hours", 70)
	v.SetDefault("hos.short_rest_hours", 10)
	v.SetDefault("hos.long_rest_hours", 36)
	v.SetDefault("hos.window_days", 7)
	v.SetDefault("hos.lookback_days", 8)
	v.SetDefault("hos.refresh_interval", "30s")
	v.SetDefault("hos.timezone", "America/Toronto")

	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.schedule", "@every 5m")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("FLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.HOS.MaxWeeklyHours <= 0 {
		return fmt.Errorf("配置校验失败: hos.max_weekly_hours 必须大于 0")
	}
	if c.HOS.ShortRestHours <= 0 || c.HOS.LongRestHours < c.HOS.ShortRestHours {
		return fmt.Errorf("配置校验失败: hos.short_rest_hours 必须大于 0 且不大于 hos.long_rest_hours")
	}
	if c.HOS.WindowDays <= 0 {
		return fmt.Errorf("配置校验失败: hos.window_days 必须大于 0")
	}
	if c.HOS.LookbackDays < c.HOS.WindowDays {
		return fmt.Errorf("配置校验失败: hos.lookback_days 不能小于 hos.window_days")
	}
	if c.HOS.RefreshInterval < time.Second {
		return fmt.Errorf("配置校验失败: hos.refresh_interval 不能小于 1s")
	}
	if _, err := c.HOS.Location(); err != nil {
		return fmt.Errorf("配置校验失败: hos.timezone 无效: %w", err)
	}
	return nil
}
