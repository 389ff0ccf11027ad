package application

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/inventory-orders-service/internal/domains/orders/application/types"
	"github.com/Apurer/inventory-orders-service/internal/domains/orders/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/orders/ports"
)

// Service orchestrates order use cases.
type Service struct {
	repo      ports.Repository
	publisher ports.EventPublisher
	gate      ports.DiscountGate
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

// WithPublisher announces placed orders.
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithDiscountGate enables discount redemption; without a gate codes are
// recorded but never applied.
func WithDiscountGate(g ports.DiscountGate) Option {
	return func(s *Service) { s.gate = g }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithOrderIDs(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func NewService(repo ports.Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  newOrderID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, mapError(domain.ErrEmptyOrderID)
	}
	return s.repo.GetByID(ctx, id)
}

// PlaceOrder prices, persists and announces a new order. A failed publish
// is logged; the order stays persisted.
func (s *Service) PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*domain.Order, error) {
	code, err := domain.ParseDiscountCode(input.DiscountCode)
	if err != nil {
		return nil, mapError(err)
	}
	id := strings.TrimSpace(input.OrderID)
	if id == "" {
		id = s.newID()
	}
	items := make([]domain.Item, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, domain.Item{
			ProductID: strings.TrimSpace(item.ProductID),
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	order, err := domain.NewOrder(id, input.CustomerID, items, input.Status, s.now().UTC(), code)
	if err != nil {
		return nil, mapError(err)
	}
	if code != domain.DiscountNone {
		s.applyDiscount(ctx, order)
	}

	saved, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishOrderCreated(ctx, domain.NewOrderCreated(saved)); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish OrderCreated",
				slog.String("order.id", saved.ID), slog.String("error", err.Error()))
		}
	}
	return saved, nil
}

func (s *Service) applyDiscount(ctx context.Context, order *domain.Order) {
	if s.gate == nil {
		return
	}
	enabled, maxPercent, err := s.gate.Discount(ctx, order.CustomerID)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "discount gate unavailable, charging full price",
			slog.String("customer.id", order.CustomerID), slog.String("error", err.Error()))
		return
	}
	if !enabled {
		return
	}
	order.ApplyDiscount(maxPercent)
}

// Inventory returns the units ordered per product.
func (s *Service) Inventory(ctx context.Context) (map[string]int32, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	result := map[string]int32{}
	for _, order := range orders {
		for product, units := range order.Units() {
			result[product] += units
		}
	}
	return result, nil
}

func newOrderID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:8])
}

var _ ports.Service = (*Service)(nil)
