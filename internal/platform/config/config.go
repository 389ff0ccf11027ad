// Package config loads process settings from config/application.yml and
// INVENTORY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. INVENTORY_MONGODB_URI.
const EnvPrefix = "INVENTORY"

// Audit store backends accepted by changes.audit_store.
const (
	AuditStoreMongoDB  = "mongodb"
	AuditStorePostgres = "postgres"
	AuditStoreMemory   = "memory"
)

// Config holds all process configuration.
type Config struct {
	Log          LogConfig
	Telemetry    TelemetryConfig
	HTTP         HTTPConfig
	MongoDB      MongoDBConfig
	Kafka        KafkaConfig
	LaunchDarkly LaunchDarklyConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Temporal     TemporalConfig
	Changes      ChangesConfig
	Discounts    DiscountsConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// TelemetryConfig drives trace export, sampling and metrics.
type TelemetryConfig struct {
	Environment    string
	TraceExporter  string // otlp, stdout, none
	OTLPEndpoint   string
	OTLPInsecure   bool
	SampleRatio    float64
	MetricsEnabled bool
}

type HTTPConfig struct {
	Addr string
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type KafkaConfig struct {
	BootstrapServers  []string
	SchemaRegistryURL string
}

// LaunchDarklyConfig points at the flag management API.
type LaunchDarklyConfig struct {
	APIURL         string
	APIToken       string
	ProjectKey     string
	EnvironmentKey string
	Timeout        time.Duration
}

// PostgresConfig is optional; an empty DSN disables the flags stage and the
// Postgres-backed repositories.
type PostgresConfig struct {
	DSN string
}

// RedisConfig is optional; an empty URL disables the flag cache and the
// Redis run lock.
type RedisConfig struct {
	URL string
}

type TemporalConfig struct {
	Address   string
	Namespace string
	Disabled  bool
}

// ChangesConfig controls the change runner.
type ChangesConfig struct {
	RunOnStartup bool
	AuditStore   string
	LockTTL      time.Duration
}

type DiscountsConfig struct {
	MaxPercent float64
}

// Load reads config/application.yml (or ./application.yml) when present and
// applies environment overrides on top. Extra search paths take precedence.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("application")
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Telemetry: TelemetryConfig{
			Environment:    v.GetString("telemetry.environment"),
			TraceExporter:  strings.ToLower(strings.TrimSpace(v.GetString("telemetry.traces.exporter"))),
			OTLPEndpoint:   strings.TrimSpace(v.GetString("telemetry.otlp.endpoint")),
			OTLPInsecure:   v.GetBool("telemetry.otlp.insecure"),
			SampleRatio:    v.GetFloat64("telemetry.traces.sample_ratio"),
			MetricsEnabled: v.GetBool("telemetry.metrics.enabled"),
		},
		HTTP: HTTPConfig{
			Addr: v.GetString("http.addr"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("mongodb.uri"),
			Database: v.GetString("mongodb.database"),
		},
		Kafka: KafkaConfig{
			BootstrapServers:  splitList(v.GetString("kafka.bootstrap_servers")),
			SchemaRegistryURL: v.GetString("kafka.schema_registry_url"),
		},
		LaunchDarkly: LaunchDarklyConfig{
			APIURL:         v.GetString("launchdarkly.api_url"),
			APIToken:       v.GetString("launchdarkly.api_token"),
			ProjectKey:     v.GetString("launchdarkly.project_key"),
			EnvironmentKey: v.GetString("launchdarkly.environment_key"),
			Timeout:        v.GetDuration("launchdarkly.timeout"),
		},
		Postgres: PostgresConfig{
			DSN: strings.TrimSpace(v.GetString("postgres.dsn")),
		},
		Redis: RedisConfig{
			URL: strings.TrimSpace(v.GetString("redis.url")),
		},
		Temporal: TemporalConfig{
			Address:   v.GetString("temporal.address"),
			Namespace: v.GetString("temporal.namespace"),
			Disabled:  v.GetBool("temporal.disabled"),
		},
		Changes: ChangesConfig{
			RunOnStartup: v.GetBool("changes.run_on_startup"),
			AuditStore:   strings.ToLower(strings.TrimSpace(v.GetString("changes.audit_store"))),
			LockTTL:      v.GetDuration("changes.lock_ttl"),
		},
		Discounts: DiscountsConfig{
			MaxPercent: v.GetFloat64("discounts.max_percent"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("telemetry.environment", "local")
	v.SetDefault("telemetry.traces.exporter", "otlp")
	v.SetDefault("telemetry.otlp.endpoint", "")
	v.SetDefault("telemetry.otlp.insecure", true)
	v.SetDefault("telemetry.traces.sample_ratio", 1.0)
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017/")
	v.SetDefault("mongodb.database", "inventory")
	v.SetDefault("kafka.bootstrap_servers", "localhost:9092")
	v.SetDefault("kafka.schema_registry_url", "http://localhost:8081")
	v.SetDefault("launchdarkly.api_url", "http://localhost:8765/api/v2")
	v.SetDefault("launchdarkly.api_token", "demo-token")
	v.SetDefault("launchdarkly.project_key", "inventory-service")
	v.SetDefault("launchdarkly.environment_key", "production")
	v.SetDefault("launchdarkly.timeout", 10*time.Second)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("temporal.address", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.disabled", false)
	v.SetDefault("changes.run_on_startup", true)
	v.SetDefault("changes.audit_store", AuditStoreMongoDB)
	v.SetDefault("changes.lock_ttl", 5*time.Minute)
	v.SetDefault("discounts.max_percent", 25.0)
}

func (c *Config) validate() error {
	switch c.Changes.AuditStore {
	case AuditStoreMongoDB, AuditStorePostgres, AuditStoreMemory:
	default:
		return fmt.Errorf("changes.audit_store must be one of mongodb, postgres, memory: got %q", c.Changes.AuditStore)
	}
	switch c.Telemetry.TraceExporter {
	case "otlp", "stdout", "none":
	default:
		return fmt.Errorf("telemetry.traces.exporter must be one of otlp, stdout, none: got %q", c.Telemetry.TraceExporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.traces.sample_ratio must be within 0..1: got %v", c.Telemetry.SampleRatio)
	}
	if c.Changes.LockTTL <= 0 {
		return errors.New("changes.lock_ttl must be positive")
	}
	if c.Discounts.MaxPercent < 0 || c.Discounts.MaxPercent > 100 {
		return fmt.Errorf("discounts.max_percent must be within 0..100: got %v", c.Discounts.MaxPercent)
	}
	if len(c.Kafka.BootstrapServers) == 0 {
		return errors.New("kafka.bootstrap_servers is empty")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
