// Package config loads service configuration from defaults, an optional
// YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/storefront-platform/storefront/internal/clients"
	"github.com/storefront-platform/storefront/pkg/kafka"
	"github.com/storefront-platform/storefront/pkg/logging"
	"github.com/storefront-platform/storefront/pkg/resilience"
	"github.com/storefront-platform/storefront/pkg/temporal"
	"github.com/storefront-platform/storefront/pkg/tracing"
)

// ConfigFileEnv names the environment variable pointing at a YAML config file
const ConfigFileEnv = "STOREFRONT_CONFIG"

// Runner selects how workflows are executed
type Runner string

const (
	// RunnerInline runs workflows in the API process
	RunnerInline Runner = "inline"
	// RunnerTemporal runs workflows on a Temporal worker
	RunnerTemporal Runner = "temporal"
)

// Config holds application configuration
type Config struct {
	ServiceName string `yaml:"serviceName"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	HTTPPort    string `yaml:"httpPort"`
	LogLevel    string `yaml:"logLevel"`
	Runner      Runner `yaml:"runner"`

	Services ServicesConfig `yaml:"services"`
	Breaker  BreakerConfig  `yaml:"circuitBreaker"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Temporal TemporalConfig `yaml:"temporal"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// ServicesConfig holds the backend base URLs
type ServicesConfig struct {
	CommerceURL  string        `yaml:"commerceUrl"`
	CatalogURL   string        `yaml:"catalogUrl"`
	InventoryURL string        `yaml:"inventoryUrl"`
	Timeout      time.Duration `yaml:"timeout"`
}

// BreakerConfig holds the per-backend circuit breaker settings
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"maxRequests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold uint32        `yaml:"failureThreshold"`
}

// KafkaConfig holds the reconciliation event settings
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// TemporalConfig holds the durable runner settings
type TemporalConfig struct {
	HostPort        string        `yaml:"hostPort"`
	Namespace       string        `yaml:"namespace"`
	TaskQueue       string        `yaml:"taskQueue"`
	WorkflowTimeout time.Duration `yaml:"workflowTimeout"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	SampleRate   float64 `yaml:"sampleRate"`
}

// Default returns the built-in configuration
func Default(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Environment: "development",
		Version:     "dev",
		HTTPPort:    "8080",
		LogLevel:    "info",
		Runner:      RunnerInline,
		Services: ServicesConfig{
			CommerceURL:  "http://localhost:8001",
			CatalogURL:   "http://localhost:8002",
			InventoryURL: "http://localhost:8003",
			Timeout:      clients.DefaultTimeout,
		},
		Breaker: BreakerConfig{
			MaxRequests:      resilience.DefaultMaxRequests,
			Interval:         resilience.DefaultInterval,
			Timeout:          resilience.DefaultTimeout,
			FailureThreshold: resilience.DefaultFailureThreshold,
		},
		Kafka: KafkaConfig{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topic:   kafka.Topics.InventoryReconciliation,
		},
		Temporal: TemporalConfig{
			HostPort:        "localhost:7233",
			Namespace:       "default",
			TaskQueue:       temporal.TaskQueues.InventorySync,
			WorkflowTimeout: 5 * time.Minute,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded first when present; it never overrides variables already set.
func Load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default(serviceName)

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.Version = getEnv("VERSION", c.Version)
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Runner = Runner(strings.ToLower(getEnv("RUNNER", string(c.Runner))))

	c.Services.CommerceURL = getEnv("COMMERCE_SERVICE_URL", c.Services.CommerceURL)
	c.Services.CatalogURL = getEnv("CATALOG_SERVICE_URL", c.Services.CatalogURL)
	c.Services.InventoryURL = getEnv("INVENTORY_SERVICE_URL", c.Services.InventoryURL)

	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}

	c.Temporal.HostPort = getEnv("TEMPORAL_HOST", c.Temporal.HostPort)
	c.Temporal.Namespace = getEnv("TEMPORAL_NAMESPACE", c.Temporal.Namespace)
	c.Temporal.TaskQueue = getEnv("TEMPORAL_TASK_QUEUE", c.Temporal.TaskQueue)

	c.Tracing.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.OTLPEndpoint)

	var errs []error
	c.Services.Timeout, errs = getDuration("HTTP_CLIENT_TIMEOUT", c.Services.Timeout, errs)
	c.Breaker.Timeout, errs = getDuration("CIRCUIT_BREAKER_TIMEOUT", c.Breaker.Timeout, errs)
	c.Temporal.WorkflowTimeout, errs = getDuration("TEMPORAL_WORKFLOW_TIMEOUT", c.Temporal.WorkflowTimeout, errs)
	c.Kafka.Enabled, errs = getBool("KAFKA_ENABLED", c.Kafka.Enabled, errs)
	c.Tracing.Enabled, errs = getBool("TRACING_ENABLED", c.Tracing.Enabled, errs)

	if v := os.Getenv("CIRCUIT_BREAKER_FAILURE_THRESHOLD"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("CIRCUIT_BREAKER_FAILURE_THRESHOLD: %w", err))
		} else {
			c.Breaker.FailureThreshold = uint32(n)
		}
	}
	if v := os.Getenv("TRACING_SAMPLE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRACING_SAMPLE_RATE: %w", err))
		} else {
			c.Tracing.SampleRate = f
		}
	}

	return errors.Join(errs...)
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	switch c.Runner {
	case RunnerInline, RunnerTemporal:
	default:
		errs = append(errs, fmt.Errorf("runner must be %q or %q, got %q", RunnerInline, RunnerTemporal, c.Runner))
	}

	for name, raw := range map[string]string{
		"services.commerceUrl":  c.Services.CommerceURL,
		"services.catalogUrl":   c.Services.CatalogURL,
		"services.inventoryUrl": c.Services.InventoryURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", name, raw))
		}
	}

	if c.Services.Timeout <= 0 {
		errs = append(errs, errors.New("services.timeout must be positive"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, errors.New("tracing.sampleRate must be between 0 and 1"))
	}

	return errors.Join(errs...)
}

// ClientsConfig returns the backend client configuration
func (c *Config) ClientsConfig() *clients.Config {
	breaker := resilience.DefaultCircuitBreakerConfig("backend")
	breaker.MaxRequests = c.Breaker.MaxRequests
	breaker.Interval = c.Breaker.Interval
	breaker.Timeout = c.Breaker.Timeout
	breaker.FailureThreshold = c.Breaker.FailureThreshold

	return &clients.Config{
		CommerceServiceURL:  strings.TrimRight(c.Services.CommerceURL, "/"),
		CatalogServiceURL:   strings.TrimRight(c.Services.CatalogURL, "/"),
		InventoryServiceURL: strings.TrimRight(c.Services.InventoryURL, "/"),
		Timeout:             c.Services.Timeout,
		Breaker:             breaker,
	}
}

// KafkaProducerConfig returns the Kafka producer configuration
func (c *Config) KafkaProducerConfig() *kafka.Config {
	cfg := kafka.DefaultConfig()
	cfg.Brokers = c.Kafka.Brokers
	cfg.ClientID = c.ServiceName
	return cfg
}

// TemporalClientConfig returns the Temporal client configuration
func (c *Config) TemporalClientConfig() *temporal.Config {
	return &temporal.Config{
		HostPort:  c.Temporal.HostPort,
		Namespace: c.Temporal.Namespace,
		Identity:  c.ServiceName,
	}
}

// TracingProviderConfig returns the OpenTelemetry configuration
func (c *Config) TracingProviderConfig() *tracing.Config {
	cfg := tracing.DefaultConfig(c.ServiceName)
	cfg.ServiceVersion = c.Version
	cfg.Environment = c.Environment
	cfg.OTLPEndpoint = c.Tracing.OTLPEndpoint
	cfg.SampleRate = c.Tracing.SampleRate
	cfg.Enabled = c.Tracing.Enabled
	return cfg
}

// LoggingConfig returns the logger configuration
func (c *Config) LoggingConfig() *logging.Config {
	cfg := logging.DefaultConfig(c.ServiceName)
	cfg.Level = logging.LogLevel(strings.ToLower(c.LogLevel))
	cfg.Environment = c.Environment
	cfg.Version = c.Version
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration, errs []error) (time.Duration, []error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, errs
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, append(errs, fmt.Errorf("%s: %w", key, err))
	}
	return d, errs
}

func getBool(key string, defaultValue bool, errs []error) (bool, []error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, errs
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, append(errs, fmt.Errorf("%s: %w", key, err))
	}
	return b, errs
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
