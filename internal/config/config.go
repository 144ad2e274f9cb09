package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Booking    BookingConfig    `yaml:"booking"`
	Notify     NotifyConfig     `yaml:"notify"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type HTTPConfig struct {
	Port      int             `yaml:"port"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	CacheTTL int    `yaml:"cache_ttl_seconds"`
}

type BookingConfig struct {
	// OverlapCheck rejects bookings intersecting an approved booking on
	// the same item. On by default; off matches the historical behavior.
	OverlapCheck    *bool `yaml:"overlap_check"`
	DefaultPageSize int   `yaml:"default_page_size"`
	MaxPageSize     int   `yaml:"max_page_size"`
}

type NotifyConfig struct {
	Enabled       bool   `yaml:"enabled"`
	QueueKey      string `yaml:"queue_key"`
	DeadLetterKey string `yaml:"dead_letter_key"`
	MaxRetries    int    `yaml:"max_retries"`
	QueueSize     int    `yaml:"queue_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment variables win either way
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Booking.DefaultPageSize > c.Booking.MaxPageSize {
		return fmt.Errorf("default_page_size %d exceeds max_page_size %d",
			c.Booking.DefaultPageSize, c.Booking.MaxPageSize)
	}
	return nil
}

// OverlapCheckEnabled resolves the tri-state yaml field.
func (c *Config) OverlapCheckEnabled() bool {
	if c.Booking.OverlapCheck == nil {
		return true
	}
	return *c.Booking.OverlapCheck
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "shareit"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Booking.DefaultPageSize == 0 {
		c.Booking.DefaultPageSize = 10
	}
	if c.Booking.MaxPageSize == 0 {
		c.Booking.MaxPageSize = 100
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = 300
	}
	if c.Notify.QueueKey == "" {
		c.Notify.QueueKey = "shareit:notifications"
	}
	if c.Notify.DeadLetterKey == "" {
		c.Notify.DeadLetterKey = "shareit:notifications:dead"
	}
	if c.Notify.MaxRetries == 0 {
		c.Notify.MaxRetries = 5
	}
	if c.Notify.QueueSize == 0 {
		c.Notify.QueueSize = 1000
	}
}
