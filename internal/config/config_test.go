package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nemi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
database:
  driver: sqlite
  dsn: "file::memory:?cache=shared"
jwt:
  accessSecret: a
  refreshSecret: r
  accessTTL: 10m
kafka:
  brokers: ["k1:9092", "k2:9092"]
logLevel: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "nemi.decision.events", cfg.Kafka.Topic)
	assert.Equal(t, 200, cfg.Outbox.BatchSize)
	assert.Equal(t, "debug", cfg.SlogLevel().String())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: mysql
  dsn: "from-file"
jwt:
  accessSecret: a
  refreshSecret: r
`)
	t.Setenv("NEMI_DATABASE_DSN", "from-env")
	t.Setenv("NEMI_REDIS_DB", "3")
	t.Setenv("NEMI_OUTBOX_INTERVAL", "5s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.DSN)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 5*time.Second, cfg.Outbox.Interval)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Database.DSN = "dsn"
		c.JWT.AccessSecret = "a"
		c.JWT.RefreshSecret = "r"
		return c
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"missing access secret", func(c *Config) { c.JWT.AccessSecret = "" }},
		{"zero outbox interval", func(c *Config) { c.Outbox.Interval = 0 }},
		{"negative sweeper interval", func(c *Config) { c.Sweeper.Interval = -time.Second }},
		{"zero batch", func(c *Config) { c.Outbox.BatchSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
