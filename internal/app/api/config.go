package api

import (
	"fmt"

	platformconfig "github.com/Apurer/inventory-orders-service/internal/platform/config"
	platformobservability "github.com/Apurer/inventory-orders-service/internal/platform/observability"
)

const serviceName = "inventory-orders-api"

// LoadConfig reads application.yml and INVENTORY_* overrides.
func LoadConfig() (*platformconfig.Config, error) {
	cfg, err := platformconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// TelemetryConfig converts the log and telemetry sections for
// observability.Init under the given service name.
func TelemetryConfig(cfg *platformconfig.Config, service string) platformobservability.TelemetryConfig {
	return platformobservability.TelemetryConfig{
		ServiceName: service,
		Environment: cfg.Telemetry.Environment,
		Log: platformobservability.LogConfig{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: cfg.Log.Output,
		},
		TraceExporter:  cfg.Telemetry.TraceExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		MetricsEnabled: cfg.Telemetry.MetricsEnabled,
	}
}
