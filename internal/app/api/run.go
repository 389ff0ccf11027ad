package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	inventoryserver "github.com/Apurer/inventory-orders-service/go"
	"github.com/Apurer/inventory-orders-service/internal/app/bootstrap"
	changesworkflows "github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/workflows"
	changesports "github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
	flagscache "github.com/Apurer/inventory-orders-service/internal/domains/flags/adapters/cache/redis"
	flagsmemory "github.com/Apurer/inventory-orders-service/internal/domains/flags/adapters/memory"
	flagsobs "github.com/Apurer/inventory-orders-service/internal/domains/flags/adapters/observability"
	flagspostgres "github.com/Apurer/inventory-orders-service/internal/domains/flags/adapters/persistence/postgres"
	flagsapp "github.com/Apurer/inventory-orders-service/internal/domains/flags/application"
	flagsports "github.com/Apurer/inventory-orders-service/internal/domains/flags/ports"
	"github.com/Apurer/inventory-orders-service/internal/domains/orders/adapters/discounts"
	ordersmemory "github.com/Apurer/inventory-orders-service/internal/domains/orders/adapters/memory"
	orderskafka "github.com/Apurer/inventory-orders-service/internal/domains/orders/adapters/messaging/kafka"
	messagingmemory "github.com/Apurer/inventory-orders-service/internal/domains/orders/adapters/messaging/memory"
	ordersobs "github.com/Apurer/inventory-orders-service/internal/domains/orders/adapters/observability"
	ordersmongo "github.com/Apurer/inventory-orders-service/internal/domains/orders/adapters/persistence/mongodb"
	ordersapp "github.com/Apurer/inventory-orders-service/internal/domains/orders/application"
	ordersports "github.com/Apurer/inventory-orders-service/internal/domains/orders/ports"
	platformobservability "github.com/Apurer/inventory-orders-service/internal/platform/observability"
)

// Run applies pending changes (when configured) and serves the HTTP API.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	instruments, shutdown, err := platformobservability.Init(ctx, TelemetryConfig(cfg, serviceName))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	rt, err := bootstrap.Open(ctx, cfg, instruments)
	if err != nil {
		return err
	}
	defer rt.Close()

	changeService, err := rt.ChangeService(ctx)
	if err != nil {
		return err
	}
	var changeWorkflows changesports.WorkflowOrchestrator = changesworkflows.NewInlineChangeWorkflows(changeService)
	if temporalClient, err := rt.ConnectTemporal("temporal-client"); err != nil {
		logger.Warn("Temporal workflows unavailable, running change pipeline inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		changeWorkflows = changesworkflows.NewTemporalChangeWorkflows(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.Temporal.Namespace))
	}

	if cfg.Changes.RunOnStartup {
		// Startup runs in-process, before the router accepts traffic.
		if report, err := changeService.Run(ctx); err != nil {
			logger.Error("change run on startup failed", slog.String("error", err.Error()))
		} else {
			logger.Info("change run on startup finished",
				slog.String("executionId", report.ExecutionID),
				slog.Int("applied", len(report.Applied)),
				slog.Int("skipped", len(report.Skipped)))
		}
	}

	flagService := buildFlagService(rt, logger)
	orderService, closePublisher := buildOrderService(ctx, rt, flagService, logger)
	defer closePublisher()

	handlers := inventoryserver.ApiHandleFunctions{
		OrdersAPI:  inventoryserver.NewOrdersAPI(orderService),
		FlagsAPI:   inventoryserver.NewFlagsAPI(flagService),
		ChangesAPI: inventoryserver.NewChangesAPI(changeService, changeWorkflows),
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), otelgin.Middleware(serviceName))
	router = inventoryserver.NewRouterWithGinEngine(router, handlers)

	addr := cfg.HTTP.Addr
	logger.Info("inventory orders API listening", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("inventory orders API exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}

func buildFlagService(rt *bootstrap.Runtime, logger *slog.Logger) flagsports.Service {
	var repo flagsports.Repository = flagsmemory.NewRepository()
	if rt.Postgres != nil {
		repo = flagspostgres.NewRepository(rt.Postgres)
		logger.Info("flag repository configured with postgres")
	} else {
		logger.Warn("postgres unavailable, falling back to in-memory flag repository")
	}
	if rt.Redis != nil {
		repo = flagscache.NewRepository(repo, rt.Redis, flagscache.WithLogger(logger))
		logger.Info("flag lookups cached in redis")
	}
	return flagsobs.New(
		flagsapp.NewService(repo),
		flagsobs.WithLogger(logger),
		flagsobs.WithTracer(rt.Instruments.Tracer("internal.flags.application")),
		flagsobs.WithMeter(rt.Instruments.Meter("internal.flags.application")),
	)
}

func buildOrderService(ctx context.Context, rt *bootstrap.Runtime, flags flagsports.Service, logger *slog.Logger) (ordersports.Service, func()) {
	var repo ordersports.Repository = ordersmemory.NewRepository()
	if db := rt.InventoryDatabase(); db != nil {
		mongoRepo := ordersmongo.NewRepository(db)
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			logger.Warn("failed to ensure order indexes", slog.String("error", err.Error()))
		}
		repo = mongoRepo
		logger.Info("order repository configured with mongodb")
	} else {
		logger.Warn("mongodb unavailable, falling back to in-memory order repository")
	}

	var publisher ordersports.EventPublisher = messagingmemory.Noop{}
	closePublisher := func() {}
	kafkaPublisher, err := orderskafka.NewPublisher(orderskafka.NewWriter(rt.Config.Kafka.BootstrapServers), rt.Schemas)
	if err != nil {
		logger.Warn("kafka publisher unavailable, OrderCreated events dropped", slog.String("error", err.Error()))
	} else {
		publisher = kafkaPublisher
		closePublisher = func() { _ = kafkaPublisher.Close() }
	}

	opts := []ordersapp.Option{ordersapp.WithPublisher(publisher), ordersapp.WithLogger(logger)}
	if gate, err := discounts.NewFlagGate(flags, rt.Config.Discounts.MaxPercent); err != nil {
		logger.Warn("discount gate unavailable, discount codes recorded but not applied", slog.String("error", err.Error()))
	} else {
		opts = append(opts, ordersapp.WithDiscountGate(gate))
	}

	service := ordersobs.New(
		ordersapp.NewService(repo, opts...),
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(rt.Instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(rt.Instruments.Meter("internal.orders.application")),
	)
	return service, closePublisher
}
