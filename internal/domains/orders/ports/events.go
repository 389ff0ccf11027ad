package ports

import (
	"context"

	"github.com/Apurer/inventory-orders-service/internal/domains/orders/domain"
)

// EventPublisher announces order lifecycle events.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event domain.OrderCreated) error
}

// DiscountGate decides whether a customer may redeem discount codes and
// the highest percentage allowed.
type DiscountGate interface {
	Discount(ctx context.Context, customerID string) (enabled bool, maxPercent float64, err error)
}
