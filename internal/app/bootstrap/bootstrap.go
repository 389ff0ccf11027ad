// Package bootstrap opens the external systems shared by the API, the worker
// and the changes CLI, and assembles the change runner on top of them.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	changeslockredis "github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/lock/redis"
	changesmemory "github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/memory"
	changesobs "github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/observability"
	changesmongo "github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/persistence/mongodb"
	changespostgres "github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/persistence/postgres"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/targets"
	changesapp "github.com/Apurer/inventory-orders-service/internal/domains/changes/application"
	changesdomain "github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	changesports "github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
	platformconfig "github.com/Apurer/inventory-orders-service/internal/platform/config"
	platformkafka "github.com/Apurer/inventory-orders-service/internal/platform/kafka"
	"github.com/Apurer/inventory-orders-service/internal/platform/launchdarkly"
	"github.com/Apurer/inventory-orders-service/internal/platform/migrations"
	platformmongodb "github.com/Apurer/inventory-orders-service/internal/platform/mongodb"
	platformobservability "github.com/Apurer/inventory-orders-service/internal/platform/observability"
	platformpostgres "github.com/Apurer/inventory-orders-service/internal/platform/postgres"
	platformredis "github.com/Apurer/inventory-orders-service/internal/platform/redis"
)

// Runtime holds the process-wide clients. Mongo, Postgres and Redis are nil
// when not configured or unreachable.
type Runtime struct {
	Config      *platformconfig.Config
	Instruments *platformobservability.Instruments
	Logger      *slog.Logger
	Mongo       *mongo.Client
	Postgres    *gorm.DB
	Redis       *goredis.Client
	Schemas     *platformkafka.SchemaManager
	Toggles     *launchdarkly.Client

	closers []func()
}

// Open dials every configured backend. Only invalid configuration is fatal;
// unreachable optional backends are logged and left nil.
func Open(ctx context.Context, cfg *platformconfig.Config, instruments *platformobservability.Instruments) (*Runtime, error) {
	logger := slog.Default()
	if instruments != nil && instruments.Logger != nil {
		logger = instruments.Logger
	}
	rt := &Runtime{Config: cfg, Instruments: instruments, Logger: logger}

	var cleanup func()
	rt.Mongo, cleanup = platformmongodb.ConnectOptional(ctx, cfg.MongoDB.URI, logger)
	rt.closers = append(rt.closers, cleanup)
	rt.Postgres, cleanup = platformpostgres.ConnectOptional(ctx, cfg.Postgres.DSN, logger)
	rt.closers = append(rt.closers, cleanup)
	rt.Redis, cleanup = platformredis.ConnectOptional(ctx, cfg.Redis.URL, logger)
	rt.closers = append(rt.closers, cleanup)

	schemas, err := platformkafka.NewSchemaManager(
		platformkafka.NewBrokerAdmin(cfg.Kafka.BootstrapServers...),
		platformkafka.NewSchemaRegistry(cfg.Kafka.SchemaRegistryURL),
		logger,
	)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("kafka schema manager: %w", err)
	}
	rt.Schemas = schemas

	toggles, err := launchdarkly.NewClient(launchdarkly.Config{
		APIURL:         cfg.LaunchDarkly.APIURL,
		APIToken:       cfg.LaunchDarkly.APIToken,
		ProjectKey:     cfg.LaunchDarkly.ProjectKey,
		EnvironmentKey: cfg.LaunchDarkly.EnvironmentKey,
		Timeout:        cfg.LaunchDarkly.Timeout,
	}, launchdarkly.WithLogger(logger))
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("launchdarkly client: %w", err)
	}
	rt.Toggles = toggles
	return rt, nil
}

// Close releases connections in reverse order of opening.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// InventoryDatabase is the configured MongoDB database, or nil.
func (rt *Runtime) InventoryDatabase() *mongo.Database {
	if rt.Mongo == nil {
		return nil
	}
	return rt.Mongo.Database(rt.Config.MongoDB.Database)
}

// Targets lists the target systems the registered changes can reach.
func (rt *Runtime) Targets() ([]changesdomain.TargetSystem, error) {
	list := []changesdomain.TargetSystem{
		targets.NewNonTransactional[migrations.SchemaAdmin](migrations.KafkaInventoryTarget, rt.Schemas),
		targets.NewNonTransactional[migrations.FlagAdmin](migrations.ToggleInventoryTarget, rt.Toggles),
	}
	if rt.Mongo != nil {
		mongoTarget, err := targets.NewMongoTarget(migrations.MongoInventoryTarget, rt.Mongo, rt.Config.MongoDB.Database)
		if err != nil {
			return nil, err
		}
		list = append(list, mongoTarget)
	} else {
		rt.Logger.Warn("mongodb unavailable, inventory changes targeting it will fail",
			slog.String("target", migrations.MongoInventoryTarget))
	}
	if rt.Postgres != nil {
		sqlTarget, err := targets.NewSQLTarget(migrations.PostgresFlagsTarget, rt.Postgres)
		if err != nil {
			return nil, err
		}
		list = append(list, sqlTarget)
	}
	return list, nil
}

// AuditStore picks the configured backend, falling back to memory when it
// is unavailable.
func (rt *Runtime) AuditStore(ctx context.Context) (changesports.AuditStore, error) {
	switch rt.Config.Changes.AuditStore {
	case platformconfig.AuditStoreMongoDB:
		if db := rt.InventoryDatabase(); db != nil {
			store, err := changesmongo.NewAuditStore(db)
			if err != nil {
				return nil, err
			}
			if err := store.EnsureIndexes(ctx); err != nil {
				return nil, fmt.Errorf("audit indexes: %w", err)
			}
			return store, nil
		}
	case platformconfig.AuditStorePostgres:
		if rt.Postgres != nil {
			if err := migrations.Run(rt.Postgres); err != nil {
				return nil, fmt.Errorf("audit table: %w", err)
			}
			return changespostgres.NewAuditStore(rt.Postgres), nil
		}
	case platformconfig.AuditStoreMemory:
		return changesmemory.NewAuditStore(), nil
	}
	rt.Logger.Warn("configured audit store unavailable, audit log kept in memory",
		slog.String("auditStore", rt.Config.Changes.AuditStore))
	return changesmemory.NewAuditStore(), nil
}

// Lock prefers Redis, then MongoDB, then a process-local lock.
func (rt *Runtime) Lock() (changesports.Lock, error) {
	if rt.Redis != nil {
		return changeslockredis.NewLock(rt.Redis, "changes:")
	}
	if db := rt.InventoryDatabase(); db != nil {
		return changesmongo.NewLock(db)
	}
	return changesmemory.NewLock(), nil
}

// ChangeService assembles the traced change runner.
func (rt *Runtime) ChangeService(ctx context.Context) (changesports.Service, error) {
	pipeline, err := migrations.Pipeline(rt.Logger, rt.Postgres != nil)
	if err != nil {
		return nil, fmt.Errorf("change pipeline: %w", err)
	}
	audit, err := rt.AuditStore(ctx)
	if err != nil {
		return nil, err
	}
	lock, err := rt.Lock()
	if err != nil {
		return nil, fmt.Errorf("change lock: %w", err)
	}
	targetSystems, err := rt.Targets()
	if err != nil {
		return nil, fmt.Errorf("change targets: %w", err)
	}
	core, err := changesapp.NewService(pipeline, audit, targetSystems,
		changesapp.WithLock(lock),
		changesapp.WithLockTTL(rt.Config.Changes.LockTTL),
		changesapp.WithLogger(rt.Logger),
	)
	if err != nil {
		return nil, err
	}
	return changesobs.New(core,
		changesobs.WithLogger(rt.Logger),
		changesobs.WithTracer(rt.Instruments.Tracer("internal.changes.application")),
		changesobs.WithMeter(rt.Instruments.Meter("internal.changes.application")),
	), nil
}

// ConnectTemporal dials Temporal with tracing and the process logger.
func (rt *Runtime) ConnectTemporal(tracerName string) (client.Client, error) {
	if rt.Config.Temporal.Disabled {
		return nil, errors.New("temporal disabled via configuration")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{
		Tracer: rt.Instruments.Tracer(tracerName),
	})
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  rt.Config.Temporal.Address,
		Namespace: rt.Config.Temporal.Namespace,
		Logger:    workerlog.NewStructuredLogger(rt.Logger),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	dialCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.DialContext(dialCtx, options)
}
