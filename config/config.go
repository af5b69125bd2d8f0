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
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"db"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Mail         MailConfig         `mapstructure:"mail"`
	Notification NotificationConfig `mapstructure:"notification"`
	Import       ImportConfig       `mapstructure:"import"`
	Realtime     RealtimeConfig     `mapstructure:"realtime"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	Log          LogConfig          `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
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

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret               string          `mapstructure:"jwt_secret"`
	AccessTokenTTL          time.Duration   `mapstructure:"access_token_ttl"`
	RefreshTokenTTLDefault  time.Duration   `mapstructure:"refresh_token_ttl_default"`
	RefreshTokenTTLRemember time.Duration   `mapstructure:"refresh_token_ttl_remember_me"`
	LoginRateLimit          int             `mapstructure:"login_rate_limit"` // 每分钟每 IP 登录次数上限
	BootstrapAdmin          BootstrapConfig `mapstructure:"bootstrap_admin"`
}

// BootstrapConfig 首个管理员账号（仅在库中不存在管理员时创建）
type BootstrapConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	FullName string `mapstructure:"full_name"`
}

// MailConfig 事务邮件服务配置
type MailConfig struct {
	Provider    string        `mapstructure:"provider"` // resend | sendgrid | function
	APIKey      string        `mapstructure:"api_key"`
	FromEmail   string        `mapstructure:"from_email"`
	FromName    string        `mapstructure:"from_name"`
	ResendURL   string        `mapstructure:"resend_url"`
	SendGridURL string        `mapstructure:"sendgrid_url"`
	FunctionURL string        `mapstructure:"function_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// NotificationConfig 邮件通知投递与后台任务配置
type NotificationConfig struct {
	DispatchDelay time.Duration `mapstructure:"dispatch_delay"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SweepMinAge   time.Duration `mapstructure:"sweep_min_age"`
	SweepBatch    int           `mapstructure:"sweep_batch"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	BackoffBase   time.Duration `mapstructure:"backoff_base"`
	RetentionDays int           `mapstructure:"retention_days"`
	DailyReportAt string        `mapstructure:"daily_report_at"` // HH:MM，本地时间
	Timezone      string        `mapstructure:"timezone"`        // 免打扰、邮件时间显示、日报日界使用的时区
}

// ImportConfig 批量导入配置
type ImportConfig struct {
	MaxRows     int   `mapstructure:"max_rows"`
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// RealtimeConfig 实时推送配置
type RealtimeConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	MQTT    MQTTConfig `mapstructure:"mqtt"`
}

// MQTTConfig MQTT 转发配置（broker 为空时不启用）
type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// TracingConfig OpenTelemetry 链路追踪配置（endpoint 为空时不启用）
type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > .env > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 仅用于本地开发，文件不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "stadium_hospitality")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Europe/Rome")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl_default", "24h")
	v.SetDefault("auth.refresh_token_ttl_remember_me", "168h")
	v.SetDefault("auth.login_rate_limit", 10)
	v.SetDefault("auth.bootstrap_admin.email", "")
	v.SetDefault("auth.bootstrap_admin.password", "")
	v.SetDefault("auth.bootstrap_admin.full_name", "Amministratore")

	// AutomaticEnv 只覆盖已注册的键，敏感项也需声明空默认值
	v.SetDefault("mail.provider", "resend")
	v.SetDefault("mail.api_key", "")
	v.SetDefault("mail.function_url", "")
	v.SetDefault("mail.from_email", "noreply@stadium.com")
	v.SetDefault("mail.from_name", "Stadium Hospitality Manager")
	v.SetDefault("mail.resend_url", "https://api.resend.com/emails")
	v.SetDefault("mail.sendgrid_url", "https://api.sendgrid.com/v3/mail/send")
	v.SetDefault("mail.timeout", "10s")

	v.SetDefault("notification.dispatch_delay", "100ms")
	v.SetDefault("notification.sweep_interval", "1m")
	v.SetDefault("notification.sweep_min_age", "5m")
	v.SetDefault("notification.sweep_batch", 10)
	v.SetDefault("notification.max_attempts", 5)
	v.SetDefault("notification.backoff_base", "1m")
	v.SetDefault("notification.retention_days", 90)
	v.SetDefault("notification.daily_report_at", "08:00")
	v.SetDefault("notification.timezone", "Europe/Rome")

	v.SetDefault("import.max_rows", 5000)
	v.SetDefault("import.max_file_size", 10<<20)

	v.SetDefault("realtime.enabled", true)
	v.SetDefault("realtime.mqtt.broker", "")
	v.SetDefault("realtime.mqtt.username", "")
	v.SetDefault("realtime.mqtt.password", "")
	v.SetDefault("realtime.mqtt.client_id", "stadium-hospitality-backend")
	v.SetDefault("realtime.mqtt.topic_prefix", "stadium")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "stadium-hospitality-backend")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
	v.SetEnvPrefix("STADIUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
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
	switch c.Mail.Provider {
	case "resend", "sendgrid":
	case "function":
		if c.Mail.FunctionURL == "" {
			return fmt.Errorf("配置校验失败: mail.provider=function 时 mail.function_url 不能为空")
		}
	default:
		return fmt.Errorf("配置校验失败: 不支持的 mail.provider %q", c.Mail.Provider)
	}
	if c.Notification.MaxAttempts < 1 {
		return fmt.Errorf("配置校验失败: notification.max_attempts 必须大于 0")
	}
	if _, err := time.Parse("15:04", c.Notification.DailyReportAt); err != nil {
		return fmt.Errorf("配置校验失败: notification.daily_report_at 格式应为 HH:MM")
	}
	if _, err := time.LoadLocation(c.Notification.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: 未知时区 notification.timezone=%q", c.Notification.Timezone)
	}
	return nil
}
