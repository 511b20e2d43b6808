package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hugh/go-inspect/pkg/util"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Scheduler  SchedulerConfig
	Reminders  RemindersConfig
	Executions ExecutionsConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxIdleConns int
	MaxOpenConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

type SchedulerConfig struct {
	Enabled   bool
	TickCron  string
	BatchSize int
}

type RemindersConfig struct {
	RetentionDays int
	PurgeCron     string
}

type ExecutionsConfig struct {
	BulkWorkers        int
	NumberPrefix       string
	AllocationAttempts int
}

type WorkerConfig struct {
	Concurrency int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "goinspect")
	v.SetDefault("DATABASE_PASSWORD", "goinspect_secret")
	v.SetDefault("DATABASE_NAME", "goinspect")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 10)
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 100)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_TICK_CRON", "*/5 * * * *")
	v.SetDefault("SCHEDULER_BATCH_SIZE", 100)
	v.SetDefault("REMINDERS_RETENTION_DAYS", 90)
	v.SetDefault("REMINDERS_PURGE_CRON", "0 3 * * *")
	v.SetDefault("EXECUTIONS_BULK_WORKERS", 4)
	v.SetDefault("EXECUTIONS_NUMBER_PREFIX", "CF")
	v.SetDefault("EXECUTIONS_ALLOCATION_ATTEMPTS", 5)
	v.SetDefault("WORKER_CONCURRENCY", 10)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DATABASE_HOST"),
			Port:         v.GetInt("DATABASE_PORT"),
			User:         v.GetString("DATABASE_USER"),
			Password:     v.GetString("DATABASE_PASSWORD"),
			Name:         v.GetString("DATABASE_NAME"),
			SSLMode:      v.GetString("DATABASE_SSLMODE"),
			MaxIdleConns: v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			MaxOpenConns: v.GetInt("DATABASE_MAX_OPEN_CONNS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Scheduler: SchedulerConfig{
			Enabled:   v.GetBool("SCHEDULER_ENABLED"),
			TickCron:  v.GetString("SCHEDULER_TICK_CRON"),
			BatchSize: v.GetInt("SCHEDULER_BATCH_SIZE"),
		},
		Reminders: RemindersConfig{
			RetentionDays: v.GetInt("REMINDERS_RETENTION_DAYS"),
			PurgeCron:     v.GetString("REMINDERS_PURGE_CRON"),
		},
		Executions: ExecutionsConfig{
			BulkWorkers:        v.GetInt("EXECUTIONS_BULK_WORKERS"),
			NumberPrefix:       v.GetString("EXECUTIONS_NUMBER_PREFIX"),
			AllocationAttempts: v.GetInt("EXECUTIONS_ALLOCATION_ATTEMPTS"),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("WORKER_CONCURRENCY"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if err := util.ValidateCronExpr(c.Scheduler.TickCron); err != nil {
		return fmt.Errorf("SCHEDULER_TICK_CRON: %w", err)
	}
	if err := util.ValidateCronExpr(c.Reminders.PurgeCron); err != nil {
		return fmt.Errorf("REMINDERS_PURGE_CRON: %w", err)
	}
	if c.Scheduler.BatchSize < 1 {
		return fmt.Errorf("SCHEDULER_BATCH_SIZE must be at least 1")
	}
	if c.Reminders.RetentionDays < 1 {
		return fmt.Errorf("REMINDERS_RETENTION_DAYS must be at least 1")
	}
	if c.Executions.BulkWorkers < 1 {
		return fmt.Errorf("EXECUTIONS_BULK_WORKERS must be at least 1")
	}
	if c.Executions.AllocationAttempts < 1 {
		return fmt.Errorf("EXECUTIONS_ALLOCATION_ATTEMPTS must be at least 1")
	}
	if c.Executions.NumberPrefix == "" {
		return fmt.Errorf("EXECUTIONS_NUMBER_PREFIX must not be empty")
	}
	return nil
}
