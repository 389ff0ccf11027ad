package ports

import (
	"context"

	"github.com/Apurer/inventory-orders-service/internal/domains/flags/application/types"
	"github.com/Apurer/inventory-orders-service/internal/domains/flags/domain"
)

// Service exposes flag management and evaluation to adapters.
type Service interface {
	CreateFlag(ctx context.Context, input types.CreateFlagInput) (*domain.FeatureFlag, error)
	ListFlags(ctx context.Context) ([]*domain.FeatureFlag, error)
	UpdateFlag(ctx context.Context, name string, input types.UpdateFlagInput) (*domain.FeatureFlag, error)
	AddRule(ctx context.Context, flagName string, input types.AddRuleInput) (*domain.TargetingRule, error)
	ListRules(ctx context.Context, flagName string) ([]domain.TargetingRule, error)
	Evaluate(ctx context.Context, name, userID string, attrs map[string]string) (domain.Evaluation, error)
}
