package changes

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	changesdomain "github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	changesports "github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
)

const (
	// PlanActivityName lists the changes still pending.
	PlanActivityName = "changes.activities.Plan"
	// ExecuteChangeActivityName applies one change and records its audit entries.
	ExecuteChangeActivityName = "changes.activities.ExecuteChange"

	// ErrTypeChangeFailed marks a change that failed; details carry an
	// ExecuteChangeResult.
	ErrTypeChangeFailed = "ChangeFailed"
	// ErrTypeUnknownChange marks a change id the worker's pipeline lacks.
	ErrTypeUnknownChange = "UnknownChange"
)

// PlanResult splits the pipeline into changes still to run and changes
// already applied.
type PlanResult struct {
	Pending []string
	Skipped []string
}

// ExecuteChangeInput names one change of a pipeline execution.
type ExecuteChangeInput struct {
	ExecutionID string
	ChangeID    string
}

// ExecuteChangeResult carries the state recorded last for the change.
type ExecuteChangeResult struct {
	ChangeID           string
	State              string
	Message            string
	ManualIntervention bool
}

// Activities exposes the change runner to Temporal workers.
type Activities struct {
	service changesports.Service
}

func NewActivities(service changesports.Service) *Activities {
	return &Activities{service: service}
}

// Plan returns the ids of pending changes in execution order, plus those
// already applied.
func (a *Activities) Plan(ctx context.Context) (*PlanResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("change plan activity not initialized")
		return nil, errors.New("change plan activity not initialized")
	}
	pending, err := a.service.Plan(ctx)
	if err != nil {
		logger.Error("Plan activity failed", "error", err)
		return nil, err
	}
	statuses, err := a.service.Status(ctx)
	if err != nil {
		logger.Error("Plan activity failed", "error", err)
		return nil, err
	}
	result := &PlanResult{Pending: pending}
	for _, status := range statuses {
		if status.State == changesdomain.StateApplied {
			result.Skipped = append(result.Skipped, status.ChangeID)
		}
	}
	logger.Info("Plan activity completed", "pending", len(result.Pending), "skipped", len(result.Skipped))
	return result, nil
}

// ExecuteChange runs a single change. A change that failed and was rolled
// back is reported as non-retryable; lock contention and store errors are
// left to the retry policy.
func (a *Activities) ExecuteChange(ctx context.Context, input ExecuteChangeInput) (*ExecuteChangeResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("change execute activity not initialized", "changeId", input.ChangeID)
		return nil, errors.New("change execute activity not initialized")
	}
	logger.Info("ExecuteChange activity started", "changeId", input.ChangeID, "executionId", input.ExecutionID)
	state, err := a.service.Execute(ctx, input.ExecutionID, input.ChangeID)
	if err != nil {
		logger.Error("ExecuteChange activity failed", "changeId", input.ChangeID, "state", string(state), "error", err)
		if errors.Is(err, changesdomain.ErrUnknownChange) {
			return nil, temporal.NewNonRetryableApplicationError(input.ChangeID, ErrTypeUnknownChange, nil)
		}
		if ce, ok := changesdomain.AsChangeError(err); ok {
			message := err.Error()
			if ce.Err != nil {
				message = ce.Err.Error()
			}
			failed := ExecuteChangeResult{
				ChangeID:           ce.ChangeID,
				State:              string(ce.State),
				Message:            message,
				ManualIntervention: errors.Is(err, changesdomain.ErrManualIntervention),
			}
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeChangeFailed, nil, failed)
		}
		return nil, err
	}
	logger.Info("ExecuteChange activity completed", "changeId", input.ChangeID, "state", string(state))
	return &ExecuteChangeResult{ChangeID: input.ChangeID, State: string(state)}, nil
}
