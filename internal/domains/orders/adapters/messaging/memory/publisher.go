package memory

import (
	"context"
	"sync"

	"github.com/Apurer/inventory-orders-service/internal/domains/orders/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/orders/ports"
)

var (
	_ ports.EventPublisher = (*Publisher)(nil)
	_ ports.EventPublisher = Noop{}
)

// Publisher keeps published events in memory.
type Publisher struct {
	mu     sync.Mutex
	events []domain.OrderCreated
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishOrderCreated(_ context.Context, event domain.OrderCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *Publisher) Events() []domain.OrderCreated {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.OrderCreated(nil), p.events...)
}

// Noop drops every event.
type Noop struct{}

func (Noop) PublishOrderCreated(context.Context, domain.OrderCreated) error { return nil }
