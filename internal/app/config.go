package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/kelseyhightower/envconfig"

	// Time zones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
)

// Config holds runtime configuration for the service, the worker and the CLI.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"45s"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// PGDSN enables the export audit log. Empty disables it.
	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"4"`

	// RedisAddr backs the list cache and the job queue. Empty disables the
	// cache; the worker requires it.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	BackendBaseURL string        `envconfig:"BACKEND_BASE_URL" required:"true"`
	BackendToken   string        `envconfig:"BACKEND_TOKEN"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"15s"`
	BackendRPS     float64       `envconfig:"BACKEND_RPS" default:"20"`

	FetchAllPageSize int `envconfig:"FETCH_ALL_PAGE_SIZE" default:"500"`
	FetchAllMaxPages int `envconfig:"FETCH_ALL_MAX_PAGES" default:"1000"`

	CacheEmployeesTTL    time.Duration `envconfig:"CACHE_EMPLOYEES_TTL" default:"5m"`
	CacheVehiclesTTL     time.Duration `envconfig:"CACHE_VEHICLES_TTL" default:"5m"`
	CacheExpensesTTL     time.Duration `envconfig:"CACHE_EXPENSES_TTL" default:"2m"`
	CacheRevalidateAfter time.Duration `envconfig:"CACHE_REVALIDATE_AFTER" default:"30s"`

	TimeZone string `envconfig:"TIME_ZONE" default:"Asia/Kolkata"`
	Currency string `envconfig:"CURRENCY" default:"INR"`

	MaxUploadBytes        int64  `envconfig:"MAX_UPLOAD_BYTES" default:"26214400"`
	MaxAttachmentBytes    int64  `envconfig:"MAX_ATTACHMENT_BYTES" default:"5242880"`
	AttachmentConcurrency int    `envconfig:"ATTACHMENT_CONCURRENCY" default:"4"`
	WorkerConcurrency     int    `envconfig:"WORKER_CONCURRENCY" default:"2"`
	WarmupCron            string `envconfig:"WARMUP_CRON" default:"*/15 * * * *"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.BackendBaseURL == "" {
		return errors.New("backend base url must be provided")
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("time zone %q: %w", c.TimeZone, err)
	}
	if c.MaxAttachmentBytes > c.MaxUploadBytes {
		return errors.New("max attachment bytes must not exceed max upload bytes")
	}
	return nil
}

// Location returns the configured time zone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// QueueRedis returns the asynq connection options for the job queue.
func (c *Config) QueueRedis() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
