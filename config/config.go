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
	Auth     AuthConfig     `mapstructure:"auth"`
	Mail     MailConfig     `mapstructure:"mail"`
	Log      LogConfig      `mapstructure:"log"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	BaseURL string     `mapstructure:"base_url"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// 支持的数据库驱动
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig 数据库配置（PostgreSQL 或嵌入式 SQLite）
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 分钟
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置，Addr 为空时不启用
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	ResetTokenTTL   time.Duration `mapstructure:"reset_token_ttl"`
	DefaultPassword string        `mapstructure:"default_password"`
}

// MailConfig SMTP 邮件配置（用于找回密码）
type MailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	ResetURL string `mapstructure:"reset_url"`
}

// Enabled SMTP 主机已配置
func (c *MailConfig) Enabled() bool {
	return c.SMTPHost != ""
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BookingConfig 预约规则配置
type BookingConfig struct {
	WindowMonths  int           `mapstructure:"window_months"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	QRCodeLength  int           `mapstructure:"qrcode_length"`
	QRSize        int           `mapstructure:"qr_size"`
	DraftTTL      time.Duration `mapstructure:"draft_ttl"`
	PageSize      int           `mapstructure:"page_size"`
	Location      string        `mapstructure:"location"` // 计算"今天"所用时区
}

// 支持的实时变更源
const (
	RealtimePostgres = "postgres"
	RealtimeRedis    = "redis"
	RealtimeMemory   = "memory"
)

// RealtimeConfig 变更推送配置
type RealtimeConfig struct {
	Driver  string `mapstructure:"driver"`
	Channel string `mapstructure:"channel"`
}

// SentryConfig 错误上报配置，DSN 为空时不启用
type SentryConfig struct {
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Load 从 .env、配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 仅补充进程环境，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.driver", DriverPostgres)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "appointment")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Manila")
	v.SetDefault("db.sqlite_path", "appointment.db")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 无默认值的键也需登记，AutomaticEnv 才能在 Unmarshal 时读到
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "24h")
	v.SetDefault("auth.reset_token_ttl", "30m")
	v.SetDefault("auth.default_password", "12345678")

	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.reset_url", "http://localhost:5173/forgot")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("booking.window_months", 3)
	v.SetDefault("booking.sweep_interval", "10s")
	v.SetDefault("booking.qrcode_length", 6)
	v.SetDefault("booking.qr_size", 256)
	v.SetDefault("booking.draft_ttl", "2h")
	v.SetDefault("booking.page_size", 50)
	v.SetDefault("booking.location", "Asia/Manila")

	v.SetDefault("realtime.driver", RealtimeMemory)
	v.SetDefault("realtime.channel", "table_changes")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)

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
	v.SetEnvPrefix("APPT")
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
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("配置校验失败: db.driver 仅支持 postgres 或 sqlite，当前为 %q", c.Database.Driver)
	}
	switch c.Realtime.Driver {
	case RealtimeMemory, RealtimeRedis:
	case RealtimePostgres:
		if c.Database.Driver != DriverPostgres {
			return fmt.Errorf("配置校验失败: realtime.driver=postgres 需要 db.driver=postgres")
		}
	default:
		return fmt.Errorf("配置校验失败: realtime.driver 不支持 %q", c.Realtime.Driver)
	}
	// 频道同时是 PostgreSQL 标识符，最长 63 字节
	if n := len(c.Realtime.Channel); n == 0 || n > 63 {
		return fmt.Errorf("配置校验失败: realtime.channel 长度必须在 1-63 字节之间")
	}
	if c.Realtime.Driver == RealtimeRedis && c.Redis.Addr == "" {
		return fmt.Errorf("配置校验失败: realtime.driver=redis 需要配置 redis.addr")
	}
	if c.Booking.QRCodeLength <= 0 {
		return fmt.Errorf("配置校验失败: booking.qrcode_length 必须为正数")
	}
	if c.Booking.SweepInterval <= 0 {
		return fmt.Errorf("配置校验失败: booking.sweep_interval 必须为正数")
	}
	if _, err := time.LoadLocation(c.Booking.Location); err != nil {
		return fmt.Errorf("配置校验失败: booking.location 无效: %w", err)
	}
	return nil
}

// TimeLocation 返回预约日期使用的时区，无效时回落到本地时区
func (c *BookingConfig) TimeLocation() *time.Location {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return time.Local
	}
	return loc
}
