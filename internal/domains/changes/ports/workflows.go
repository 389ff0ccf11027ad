package ports

import (
	"context"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
)

// WorkflowOrchestrator runs the change pipeline, durably when available.
type WorkflowOrchestrator interface {
	RunChanges(ctx context.Context) (*domain.RunReport, error)
}
