package ports

import (
	"context"

	"github.com/Apurer/inventory-orders-service/internal/domains/orders/application/types"
	"github.com/Apurer/inventory-orders-service/internal/domains/orders/domain"
)

// Service exposes order use cases to adapters.
type Service interface {
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*domain.Order, error)
	Inventory(ctx context.Context) (map[string]int32, error)
}
