package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
	changeactivities "github.com/Apurer/inventory-orders-service/internal/platform/temporal/activities/changes"
	changeworkflows "github.com/Apurer/inventory-orders-service/internal/platform/temporal/workflows/changes"
)

// ErrPipelineRunning is returned when another pipeline workflow is open.
var ErrPipelineRunning = errors.New("change pipeline workflow already running")

var (
	_ ports.WorkflowOrchestrator = (*TemporalChangeWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlineChangeWorkflows)(nil)
)

// PipelineWorkflowID is fixed so at most one pipeline is open at a time.
const PipelineWorkflowID = "change-pipeline"

// TemporalChangeWorkflows runs the change pipeline on a Temporal cluster.
type TemporalChangeWorkflows struct {
	client    client.Client
	taskQueue string
}

// NewTemporalChangeWorkflows wires a Temporal client into the orchestrator.
func NewTemporalChangeWorkflows(c client.Client) *TemporalChangeWorkflows {
	return &TemporalChangeWorkflows{client: c, taskQueue: changeworkflows.PipelineTaskQueue}
}

// RunChanges starts the pipeline workflow and waits for its result.
func (o *TemporalChangeWorkflows) RunChanges(ctx context.Context) (*domain.RunReport, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal change workflows not configured")
	}
	started := time.Now()
	options := client.StartWorkflowOptions{
		ID:                    PipelineWorkflowID,
		TaskQueue:             o.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,

		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	run, err := o.client.ExecuteWorkflow(ctx, options, changeworkflows.PipelineWorkflowName,
		changeworkflows.PipelineWorkflowInput{TraceID: workflowTraceID(ctx)})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil, fmt.Errorf("%w: %w", domain.ErrLockHeld, ErrPipelineRunning)
		}
		return nil, err
	}
	var result changeworkflows.PipelineWorkflowResult
	if err := run.Get(ctx, &result); err != nil {
		failed, changeErr := fromWorkflowError(err)
		if failed == nil {
			return nil, changeErr
		}
		return newReport(run.GetID(), failed, started), changeErr
	}
	return newReport(run.GetID(), &result, started), nil
}

func newReport(workflowID string, result *changeworkflows.PipelineWorkflowResult, started time.Time) *domain.RunReport {
	executionID := result.ExecutionID
	if executionID == "" {
		executionID = workflowID
	}
	return &domain.RunReport{
		ExecutionID: executionID,
		Applied:     result.Applied,
		Skipped:     result.Skipped,
		RolledBack:  result.RolledBack,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}
}

// fromWorkflowError restores the domain errors a pipeline workflow failure
// stands for. The partial result is nil unless a change failed.
func fromWorkflowError(err error) (*changeworkflows.PipelineWorkflowResult, error) {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return nil, err
	}
	switch appErr.Type() {
	case changeworkflows.ErrTypePipelineFailed:
		var result changeworkflows.PipelineWorkflowResult
		if detailsErr := appErr.Details(&result); detailsErr != nil || result.Failed == nil {
			return nil, err
		}
		cause := errors.New(result.Failed.Message)
		if result.Failed.ManualIntervention {
			cause = domain.ErrManualIntervention
		}
		return &result, &domain.ChangeError{
			ChangeID: result.Failed.ChangeID,
			State:    domain.State(result.Failed.State),
			Err:      cause,
		}
	case changeactivities.ErrTypeUnknownChange:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownChange, appErr.Message())
	}
	return nil, err
}

// InlineChangeWorkflows runs the pipeline in-process without Temporal.
type InlineChangeWorkflows struct {
	service ports.Service
}

// NewInlineChangeWorkflows wraps the change service for synchronous execution.
func NewInlineChangeWorkflows(service ports.Service) *InlineChangeWorkflows {
	return &InlineChangeWorkflows{service: service}
}

func (o *InlineChangeWorkflows) RunChanges(ctx context.Context) (*domain.RunReport, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline change workflows not configured")
	}
	return o.service.Run(ctx)
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
