package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/inventory-orders-service/internal/app/api"
	"github.com/Apurer/inventory-orders-service/internal/app/bootstrap"
	platformobservability "github.com/Apurer/inventory-orders-service/internal/platform/observability"
	changeactivities "github.com/Apurer/inventory-orders-service/internal/platform/temporal/activities/changes"
	changeworkflows "github.com/Apurer/inventory-orders-service/internal/platform/temporal/workflows/changes"
)

func main() {
	ctx := context.Background()
	const serviceName = "inventory-orders-worker"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, api.TelemetryConfig(cfg, serviceName))
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
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
		logger.Error("failed to open backends", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer rt.Close()

	changeService, err := rt.ChangeService(ctx)
	if err != nil {
		logger.Error("failed to build change runner", slog.String("error", err.Error()))
		os.Exit(1)
	}
	activities := changeactivities.NewActivities(changeService)

	temporalClient, err := rt.ConnectTemporal("temporal-worker")
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, changeworkflows.PipelineTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(changeworkflows.PipelineWorkflow, workflow.RegisterOptions{Name: changeworkflows.PipelineWorkflowName})
	w.RegisterActivityWithOptions(activities.Plan, activity.RegisterOptions{Name: changeactivities.PlanActivityName})
	w.RegisterActivityWithOptions(activities.ExecuteChange, activity.RegisterOptions{Name: changeactivities.ExecuteChangeActivityName})

	logger.Info("worker listening", slog.String("taskQueue", changeworkflows.PipelineTaskQueue), slog.String("namespace", cfg.Temporal.Namespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
