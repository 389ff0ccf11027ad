package ports

import (
	"context"
	"errors"

	"github.com/Apurer/inventory-orders-service/internal/domains/flags/domain"
)

var (
	ErrNotFound      = errors.New("flag not found")
	ErrAlreadyExists = errors.New("flag already exists")
)

// Repository persists flags and their targeting rules.
type Repository interface {
	CreateFlag(ctx context.Context, flag *domain.FeatureFlag) (*domain.FeatureFlag, error)
	SaveFlag(ctx context.Context, flag *domain.FeatureFlag) (*domain.FeatureFlag, error)
	GetFlag(ctx context.Context, name string) (*domain.FeatureFlag, error)
	ListFlags(ctx context.Context) ([]*domain.FeatureFlag, error)
	AddRule(ctx context.Context, rule *domain.TargetingRule) (*domain.TargetingRule, error)
	// ListRules returns rules oldest first.
	ListRules(ctx context.Context, flagName string) ([]domain.TargetingRule, error)
}
