package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	prev := flagArgs
	flagArgs = func() []string { return args }
	t.Cleanup(func() { flagArgs = prev })
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_STORAGE", "memory")
	withArgs(t)

	cfg := New()
	require.NoError(t, cfg.Load())

	assert.Equal(t, "localhost:8088", cfg.Server.Listen)
	assert.Equal(t, 5, cfg.Attempts.Max)
	assert.Equal(t, 15*time.Minute, cfg.Attempts.Window)
	assert.Equal(t, 30*time.Second, cfg.Settlement.RetryInterval)
	assert.Equal(t, "camptrade.transactions", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("APP_STORAGE", "postgres")
	t.Setenv("DATABASE_URI", "postgres://localhost/camptrade")
	t.Setenv("ATTEMPT_MAX", "3")
	t.Setenv("KAFKA_BROKERS", "k1:9092;k2:9092")
	withArgs(t)

	cfg := New()
	require.NoError(t, cfg.Load())

	assert.Equal(t, "postgres://localhost/camptrade", cfg.Database.DSN)
	assert.Equal(t, 3, cfg.Attempts.Max)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("APP_STORAGE", "memory")
	t.Setenv("RUN_ADDRESS", "localhost:1")
	withArgs(t, "-a", "localhost:2", "--catalog-url", "http://catalog:8090")

	cfg := New()
	require.NoError(t, cfg.Load())

	assert.Equal(t, "localhost:2", cfg.Server.Listen)
	assert.Equal(t, "http://catalog:8090", cfg.Catalog.RemoteURL)
}

func TestValidate(t *testing.T) {
	cfg := Config{Storage: StoragePostgres, Settlement: SettlementConfig{RetryInterval: time.Second}}
	assert.Error(t, cfg.Validate(), "postgres without dsn")

	cfg.Storage = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg.Storage = StorageMemory
	assert.NoError(t, cfg.Validate())

	cfg.Attempts.Max = -1
	assert.Error(t, cfg.Validate())
}
