package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")

	cfg, err := Load("storefront-api")

	require.NoError(t, err)
	assert.Equal(t, "storefront-api", cfg.ServiceName)
	assert.Equal(t, RunnerInline, cfg.Runner)
	assert.Equal(t, 30*time.Second, cfg.Services.Timeout)
	assert.Equal(t, "storefront.inventory.reconciliation", cfg.Kafka.Topic)
	assert.Equal(t, "storefront-inventory-queue", cfg.Temporal.TaskQueue)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("RUNNER", "TEMPORAL")
	t.Setenv("COMMERCE_SERVICE_URL", "http://commerce:9000/")
	t.Setenv("HTTP_CLIENT_TIMEOUT", "5s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CIRCUIT_BREAKER_FAILURE_THRESHOLD", "7")

	cfg, err := Load("storefront-api")

	require.NoError(t, err)
	assert.Equal(t, RunnerTemporal, cfg.Runner)
	assert.Equal(t, 5*time.Second, cfg.Services.Timeout)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)

	clients := cfg.ClientsConfig()
	assert.Equal(t, "http://commerce:9000", clients.CommerceServiceURL)
	assert.Equal(t, 5*time.Second, clients.Timeout)
	assert.Equal(t, uint32(7), clients.Breaker.FailureThreshold)
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
runner: temporal
httpPort: "9090"
services:
  catalogUrl: http://catalog.internal
  timeout: 10s
circuitBreaker:
  failureThreshold: 3
  timeout: 1m
temporal:
  namespace: storefront
`), 0o600))
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("HTTP_PORT", "7070")

	cfg, err := Load("storefront-api")

	require.NoError(t, err)
	assert.Equal(t, RunnerTemporal, cfg.Runner)
	assert.Equal(t, "7070", cfg.HTTPPort, "env wins over the file")
	assert.Equal(t, "http://catalog.internal", cfg.Services.CatalogURL)
	assert.Equal(t, "http://localhost:8001", cfg.Services.CommerceURL, "unset keys keep defaults")
	assert.Equal(t, 10*time.Second, cfg.Services.Timeout)
	assert.Equal(t, uint32(3), cfg.Breaker.FailureThreshold)
	assert.Equal(t, time.Minute, cfg.Breaker.Timeout)
	assert.Equal(t, "storefront", cfg.TemporalClientConfig().Namespace)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad runner", map[string]string{"RUNNER": "cron"}},
		{"bad timeout", map[string]string{"HTTP_CLIENT_TIMEOUT": "soon"}},
		{"bad bool", map[string]string{"KAFKA_ENABLED": "maybe"}},
		{"relative url", map[string]string{"INVENTORY_SERVICE_URL": "inventory"}},
		{"missing file", map[string]string{ConfigFileEnv: "/nonexistent/storefront.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigFileEnv, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("storefront-api")

			assert.Error(t, err)
		})
	}
}

func TestConfig_DerivedConfigs(t *testing.T) {
	cfg := Default("storefront-worker")
	cfg.LogLevel = "DEBUG"
	cfg.Tracing.Enabled = true

	assert.Equal(t, "debug", string(cfg.LoggingConfig().Level))
	assert.True(t, cfg.TracingProviderConfig().Enabled)
	assert.Equal(t, "storefront-worker", cfg.KafkaProducerConfig().ClientID)
	assert.Equal(t, "storefront-worker", cfg.TemporalClientConfig().Identity)
	assert.NoError(t, cfg.Validate())
}
