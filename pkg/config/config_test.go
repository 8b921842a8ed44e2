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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, "environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 10*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, c.Server.CORS.AllowOrigins)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "memory", c.Store.Type)
	assert.Equal(t, "localhost:6379", c.RedisAddr())
	assert.False(t, c.Kafka.Enabled)
	assert.Equal(t, "curves.definitions", c.Kafka.CurvesTopic)
	assert.Equal(t, 100*time.Millisecond, c.Kafka.Consumer.BackoffMin)
	assert.Equal(t, 0.1, c.Sweep.From)
	assert.Equal(t, 11.0, c.Sweep.To)
	assert.Equal(t, 0.1, c.Sweep.Step)
	assert.Zero(t, c.Server.RateLimit.RPS)
	assert.Equal(t, 2, c.Jobs.Workers)
	assert.Equal(t, 24*time.Hour, c.Jobs.ResultTTL)
}

func TestLoadSampleConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.True(t, c.Metrics.Enabled)
	assert.Equal(t, 500*time.Millisecond, c.Server.SlowRequest)
	assert.Equal(t, "curves.definitions.dlq", c.Kafka.Consumer.DLQTopic)
	assert.Equal(t, 50.0, c.Server.RateLimit.RPS)
	assert.Equal(t, 5*time.Second, c.Jobs.RetryDelay)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "store type", body: "store:\n  type: disk\n"},
		{name: "log level", body: "log:\n  level: chatty\n"},
		{name: "sweep range", body: "sweep:\n  from: 5\n  to: 1\n"},
		{name: "kafka without brokers", body: "kafka:\n  enabled: true\n"},
		{name: "job workers", body: "jobs:\n  workers: -1\n"},
		{name: "yaml", body: "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("STORE_TYPE", "redis")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(writeConfig(t, "environment: staging\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "0.0.0.0:9090", c.ListenAddr())
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "redis", c.Store.Type)
	assert.Equal(t, "redis.internal:6379", c.RedisAddr())
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestLoadWithEnvValidatesOverrides(t *testing.T) {
	t.Setenv("STORE_TYPE", "tape")
	_, err := LoadWithEnv(writeConfig(t, "environment: test\n"))
	assert.Error(t, err)

	t.Setenv("STORE_TYPE", "")
	t.Setenv("HTTP_PORT", "http")
	_, err = LoadWithEnv(writeConfig(t, "environment: test\n"))
	assert.Error(t, err)
}
