package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Locale     LocaleConfig     `mapstructure:"locale"`
	Files      FilesConfig      `mapstructure:"files"`
	Email      EmailConfig      `mapstructure:"email"`
	Outbox     OutboxConfig     `mapstructure:"outbox"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	// TimeZone pins the session zone so date_trunc agrees with the
	// scheduling zone. It is copied from scheduling.timezone on load.
	TimeZone string `mapstructure:"-"`
}

// DSN is the lib/pq keyword connection string.
func (c DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
	if c.TimeZone != "" {
		dsn += " timezone=" + c.TimeZone
	}
	return dsn
}

// URL is the postgres:// form used by the migrator.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type SchedulingConfig struct {
	CancellationLead time.Duration `mapstructure:"cancellation_lead"`
	Timezone         string        `mapstructure:"timezone"`
	// WorkdayStart and WorkdayEnd are the first and last bookable hours.
	WorkdayStart int `mapstructure:"workday_start"`
	WorkdayEnd   int `mapstructure:"workday_end"`
	PageSize     int `mapstructure:"page_size"`
}

type LocaleConfig struct {
	Name                string `mapstructure:"name"`
	DateFormat          string `mapstructure:"date_format"`
	NewAppointment      string `mapstructure:"new_appointment"`
	CancellationSubject string `mapstructure:"cancellation_subject"`
}

type FilesConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type EmailConfig struct {
	Driver   string         `mapstructure:"driver"`
	From     string         `mapstructure:"from"`
	FromName string         `mapstructure:"from_name"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	SendGrid SendGridConfig `mapstructure:"sendgrid"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type SendGridConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	Retention     time.Duration `mapstructure:"retention"`
	// HealthPort serves the worker's health and metrics endpoints.
	HealthPort int `mapstructure:"health_port"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// secrets are only read from the process environment.
type secrets struct {
	JWTSecret        string `envconfig:"JWT_SECRET"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD"`
	SMTPPassword     string `envconfig:"SMTP_PASSWORD"`
	SendGridAPIKey   string `envconfig:"SENDGRID_API_KEY"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 64<<10)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "booking")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "booking")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel", "notifications")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", "100ms")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")

	v.SetDefault("scheduling.cancellation_lead", "2h")
	v.SetDefault("scheduling.timezone", "UTC")
	v.SetDefault("scheduling.workday_start", 8)
	v.SetDefault("scheduling.workday_end", 19)
	v.SetDefault("scheduling.page_size", 20)

	v.SetDefault("locale.name", "en")
	v.SetDefault("locale.date_format", "")
	v.SetDefault("locale.new_appointment", "")
	v.SetDefault("locale.cancellation_subject", "")

	v.SetDefault("files.base_url", "http://localhost:8080/files")

	v.SetDefault("email.driver", "log")
	v.SetDefault("email.from", "noreply@booking.local")
	v.SetDefault("email.from_name", "Booking")
	v.SetDefault("email.smtp.host", "localhost")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.sendgrid.api_key", "")
	v.SetDefault("email.breaker.max_requests", 1)
	v.SetDefault("email.breaker.interval", "1m")
	v.SetDefault("email.breaker.timeout", "30s")
	v.SetDefault("email.breaker.failure_threshold", 5)

	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.poll_interval", "2s")
	v.SetDefault("outbox.retry_attempts", 5)
	v.SetDefault("outbox.retry_delay", "30s")
	v.SetDefault("outbox.retention", "168h")
	v.SetDefault("outbox.health_port", 8081)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", false)
}

// Load reads .env, then config.yml from the usual locations (or CONFIG_FILE),
// then BOOKING_* overrides and the secret variables.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app/config")
	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("config_file", "CONFIG_FILE")

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
	}
	return load(v)
}

// LoadFile reads an explicit config file plus environment overrides.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var s secrets
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}
	cfg.applySecrets(s)
	cfg.Database.TimeZone = cfg.Scheduling.Timezone

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applySecrets(s secrets) {
	if s.JWTSecret != "" {
		c.JWT.Secret = s.JWTSecret
	}
	if s.DatabasePassword != "" {
		c.Database.Password = s.DatabasePassword
	}
	if s.SMTPPassword != "" {
		c.Email.SMTP.Password = s.SMTPPassword
	}
	if s.SendGridAPIKey != "" {
		c.Email.SendGrid.APIKey = s.SendGridAPIKey
	}
}

// Validate checks the values the services cannot start without.
func (c *Config) Validate() error {
	if c.Scheduling.CancellationLead < 0 {
		return fmt.Errorf("scheduling.cancellation_lead must not be negative")
	}
	if c.Scheduling.WorkdayStart < 0 || c.Scheduling.WorkdayEnd > 23 ||
		c.Scheduling.WorkdayStart > c.Scheduling.WorkdayEnd {
		return fmt.Errorf("invalid working hours %d-%d", c.Scheduling.WorkdayStart, c.Scheduling.WorkdayEnd)
	}
	if c.Scheduling.PageSize <= 0 {
		return fmt.Errorf("scheduling.page_size must be greater than 0")
	}
	switch c.Email.Driver {
	case "smtp", "log":
	case "sendgrid":
		if c.Email.SendGrid.APIKey == "" {
			return fmt.Errorf("email.sendgrid.api_key is required for the sendgrid driver")
		}
	default:
		return fmt.Errorf("unknown email driver %q", c.Email.Driver)
	}
	if c.Outbox.BatchSize <= 0 || c.Outbox.PollInterval <= 0 ||
		c.Outbox.RetryAttempts <= 0 || c.Outbox.RetryDelay <= 0 {
		return fmt.Errorf("outbox batch_size, poll_interval, retry_attempts and retry_delay must be greater than 0")
	}
	return nil
}
