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
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017/", cfg.MongoDB.URI)
	assert.Equal(t, "inventory", cfg.MongoDB.Database)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.BootstrapServers)
	assert.Equal(t, "http://localhost:8081", cfg.Kafka.SchemaRegistryURL)
	assert.Equal(t, "http://localhost:8765/api/v2", cfg.LaunchDarkly.APIURL)
	assert.Equal(t, "demo-token", cfg.LaunchDarkly.APIToken)
	assert.Equal(t, "inventory-service", cfg.LaunchDarkly.ProjectKey)
	assert.Equal(t, "production", cfg.LaunchDarkly.EnvironmentKey)
	assert.Equal(t, 10*time.Second, cfg.LaunchDarkly.Timeout)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Empty(t, cfg.Redis.URL)
	assert.True(t, cfg.Changes.RunOnStartup)
	assert.Equal(t, AuditStoreMongoDB, cfg.Changes.AuditStore)
	assert.Equal(t, 5*time.Minute, cfg.Changes.LockTTL)
	assert.Equal(t, 25.0, cfg.Discounts.MaxPercent)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, TelemetryConfig{
		Environment:    "local",
		TraceExporter:  "otlp",
		OTLPInsecure:   true,
		SampleRatio:    1,
		MetricsEnabled: true,
	}, cfg.Telemetry)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	yml := `
mongodb:
  uri: mongodb://mongo:27017/
kafka:
  bootstrap_servers: "kafka-1:9092, kafka-2:9092"
changes:
  audit_store: postgres
  lock_ttl: 90s
discounts:
  max_percent: 15
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "application.yml"), []byte(yml), 0o600))
	t.Setenv("INVENTORY_MONGODB_URI", "mongodb://override:27017/")
	t.Setenv("INVENTORY_CHANGES_RUN_ON_STARTUP", "false")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://override:27017/", cfg.MongoDB.URI)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.BootstrapServers)
	assert.Equal(t, AuditStorePostgres, cfg.Changes.AuditStore)
	assert.Equal(t, 90*time.Second, cfg.Changes.LockTTL)
	assert.Equal(t, 15.0, cfg.Discounts.MaxPercent)
	assert.False(t, cfg.Changes.RunOnStartup)
}

func TestLoad_RejectsUnknownAuditStore(t *testing.T) {
	t.Setenv("INVENTORY_CHANGES_AUDIT_STORE", "cassandra")
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "changes.audit_store")
}

func TestLoad_TelemetryOverrides(t *testing.T) {
	dir := t.TempDir()
	yml := `
telemetry:
  environment: staging
  traces:
    exporter: stdout
    sample_ratio: 0.25
  metrics:
    enabled: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "application.yml"), []byte(yml), 0o600))
	t.Setenv("INVENTORY_TELEMETRY_OTLP_ENDPOINT", "http://collector:4318")
	t.Setenv("INVENTORY_TELEMETRY_OTLP_INSECURE", "false")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Telemetry.Environment)
	assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.OTLPEndpoint)
	assert.False(t, cfg.Telemetry.OTLPInsecure)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRatio)
	assert.False(t, cfg.Telemetry.MetricsEnabled)
}

func TestLoad_RejectsBadTelemetry(t *testing.T) {
	t.Run("exporter", func(t *testing.T) {
		t.Setenv("INVENTORY_TELEMETRY_TRACES_EXPORTER", "zipkin")
		_, err := Load(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "telemetry.traces.exporter")
	})
	t.Run("sample ratio", func(t *testing.T) {
		t.Setenv("INVENTORY_TELEMETRY_TRACES_SAMPLE_RATIO", "1.5")
		_, err := Load(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "telemetry.traces.sample_ratio")
	})
}
