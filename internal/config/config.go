package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "NEMI"

var ErrInvalidConfig = errors.New("invalid config")

type ServerConfig struct {
	Addr            string        `yaml:"addr"            split_words:"true"`
	Mode            string        `yaml:"mode"            split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" split_words:"true"`
	DSN    string `yaml:"dsn"    split_words:"true"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"     split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	DB       int    `yaml:"db"       split_words:"true"`
}

type JWTConfig struct {
	AccessSecret  string        `yaml:"accessSecret"  split_words:"true"`
	RefreshSecret string        `yaml:"refreshSecret" split_words:"true"`
	AccessTTL     time.Duration `yaml:"accessTTL"     split_words:"true"`
	RefreshTTL    time.Duration `yaml:"refreshTTL"    split_words:"true"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" split_words:"true"`
	Topic   string   `yaml:"topic"   split_words:"true"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"     split_words:"true"`
	Port     int    `yaml:"port"     split_words:"true"`
	Username string `yaml:"username" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	From     string `yaml:"from"     split_words:"true"`
}

type OutboxConfig struct {
	Interval  time.Duration `yaml:"interval"  split_words:"true"`
	BatchSize int           `yaml:"batchSize" split_words:"true"`
	MaxRetry  int           `yaml:"maxRetry"  split_words:"true"`
}

type SweeperConfig struct {
	Interval  time.Duration `yaml:"interval"  split_words:"true"`
	BatchSize int           `yaml:"batchSize" split_words:"true"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Outbox   OutboxConfig   `yaml:"outbox"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	LogLevel string         `yaml:"logLevel" split_words:"true"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "mysql",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		JWT: JWTConfig{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Topic: "nemi.decision.events",
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
		Outbox: OutboxConfig{
			Interval:  time.Second,
			BatchSize: 200,
			MaxRetry:  5,
		},
		Sweeper: SweeperConfig{
			Interval:  time.Minute,
			BatchSize: 100,
		},
		LogLevel: "info",
	}
}

// Load 默认值 -> yaml 文件 -> 环境变量，后者覆盖前者
func Load(configFile string) (*Config, error) {
	cfg := Default()
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: database dsn required", ErrInvalidConfig)
	}
	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		return fmt.Errorf("%w: jwt secrets required", ErrInvalidConfig)
	}
	if c.Outbox.Interval <= 0 || c.Sweeper.Interval <= 0 {
		return fmt.Errorf("%w: worker intervals must be positive", ErrInvalidConfig)
	}
	if c.Outbox.BatchSize <= 0 || c.Sweeper.BatchSize <= 0 {
		return fmt.Errorf("%w: batch sizes must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
