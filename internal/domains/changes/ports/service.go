package ports

import (
	"context"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
)

// Service exposes change execution use cases to adapters.
type Service interface {
	Run(ctx context.Context) (*domain.RunReport, error)
	Undo(ctx context.Context, toChangeID string) (*domain.RunReport, error)
	Status(ctx context.Context) ([]domain.ChangeStatus, error)
	History(ctx context.Context) ([]domain.AuditEntry, error)
	Plan(ctx context.Context) ([]string, error)
	Execute(ctx context.Context, executionID, changeID string) (domain.State, error)
}
