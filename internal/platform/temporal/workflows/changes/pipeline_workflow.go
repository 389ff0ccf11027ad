package changes

import (
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	changesdomain "github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	changeactivities "github.com/Apurer/inventory-orders-service/internal/platform/temporal/activities/changes"
	"github.com/Apurer/inventory-orders-service/internal/platform/temporal/sequences"
)

const (
	// PipelineWorkflowName is the public identifier for registering the workflow.
	PipelineWorkflowName = "changes.workflows.Pipeline"
	// PipelineTaskQueue is the queue consumed by the change pipeline worker.
	PipelineTaskQueue = "CHANGE_PIPELINE"
	// ErrTypePipelineFailed marks a run stopped by a failed change; details
	// carry the PipelineWorkflowResult.
	ErrTypePipelineFailed = "ChangePipelineFailed"
)

// PipelineWorkflowInput identifies one run of the change pipeline.
type PipelineWorkflowInput struct {
	TraceID string
}

// PipelineWorkflowResult is returned to the starter, and attached to the
// workflow error when a change fails.
type PipelineWorkflowResult struct {
	ExecutionID string
	Applied     []string
	Skipped     []string
	RolledBack  []string
	Failed      *changeactivities.ExecuteChangeResult
}

// PipelineWorkflow applies pending changes durably. The workflow id doubles
// as the audit execution id.
func PipelineWorkflow(ctx workflow.Context, input PipelineWorkflowInput) (*PipelineWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	executionID := workflow.GetInfo(ctx).WorkflowExecution.ID
	logger.Info("PipelineWorkflow started", withTraceID(input.TraceID, "executionId", executionID)...)
	out, err := sequences.RunChangePipelineSequence(ctx, executionID)
	result := &PipelineWorkflowResult{ExecutionID: executionID}
	if out != nil {
		result.Applied = out.Applied
		result.Skipped = out.Skipped
		result.Failed = out.Failed
	}
	if err != nil {
		logger.Error("PipelineWorkflow failed", withTraceID(input.TraceID, "executionId", executionID, "error", err)...)
		if result.Failed == nil {
			return nil, err
		}
		if result.Failed.State == string(changesdomain.StateRolledBack) {
			result.RolledBack = []string{result.Failed.ChangeID}
		}
		return nil, temporal.NewNonRetryableApplicationError(result.Failed.Message, ErrTypePipelineFailed, nil, *result)
	}
	logger.Info("PipelineWorkflow completed", withTraceID(input.TraceID, "executionId", executionID, "applied", len(result.Applied))...)
	return result, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
