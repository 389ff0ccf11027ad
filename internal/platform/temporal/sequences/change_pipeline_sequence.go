package sequences

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	changeactivities "github.com/Apurer/inventory-orders-service/internal/platform/temporal/activities/changes"
)

// ChangePipelineResult lists what the sequence applied and skipped, and the
// change that stopped it, if any.
type ChangePipelineResult struct {
	Applied []string
	Skipped []string
	Failed  *changeactivities.ExecuteChangeResult
}

// RunChangePipelineSequence plans the pending changes, then executes them one
// activity at a time, stopping at the first failure.
func RunChangePipelineSequence(ctx workflow.Context, executionID string) (*ChangePipelineResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("change pipeline sequence started", "executionId", executionID)
	planOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}
	executeOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}

	var plan changeactivities.PlanResult
	planCtx := workflow.WithActivityOptions(ctx, planOptions)
	if err := workflow.ExecuteActivity(planCtx, changeactivities.PlanActivityName).Get(planCtx, &plan); err != nil {
		logger.Error("change plan failed", "executionId", executionID, "error", err)
		return nil, err
	}

	result := &ChangePipelineResult{Skipped: plan.Skipped}
	execCtx := workflow.WithActivityOptions(ctx, executeOptions)
	for _, changeID := range plan.Pending {
		input := changeactivities.ExecuteChangeInput{ExecutionID: executionID, ChangeID: changeID}
		var out changeactivities.ExecuteChangeResult
		if err := workflow.ExecuteActivity(execCtx, changeactivities.ExecuteChangeActivityName, input).Get(execCtx, &out); err != nil {
			logger.Error("change pipeline sequence failed", "executionId", executionID, "changeId", changeID, "error", err)
			var appErr *temporal.ApplicationError
			if errors.As(err, &appErr) && appErr.Type() == changeactivities.ErrTypeChangeFailed {
				var failed changeactivities.ExecuteChangeResult
				if appErr.Details(&failed) == nil {
					result.Failed = &failed
				}
			}
			return result, err
		}
		result.Applied = append(result.Applied, changeID)
	}
	logger.Info("change pipeline sequence completed", "executionId", executionID, "applied", len(result.Applied))
	return result, nil
}
