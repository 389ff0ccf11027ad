package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// StatusPending is assigned when an order is placed without a status.
// Status is otherwise free-form; no transitions are enforced.
const StatusPending = "PENDING"

var (
	ErrEmptyOrderID        = errors.New("order id is required")
	ErrEmptyCustomerID     = errors.New("customer id is required")
	ErrNoItems             = errors.New("order must contain at least one item")
	ErrEmptyProductID      = errors.New("item product id is required")
	ErrInvalidQuantity     = errors.New("item quantity must be greater than zero")
	ErrInvalidPrice        = errors.New("item price must not be negative")
	ErrUnknownDiscountCode = errors.New("unknown discount code")
)

// Item is one order line.
type Item struct {
	ProductID string
	Quantity  int32
	Price     float64
}

// Order models the placed order aggregate.
type Order struct {
	ID              string
	CustomerID      string
	Items           []Item
	Total           float64
	Status          string
	CreatedAt       time.Time
	DiscountCode    DiscountCode
	DiscountApplied bool
}

// NewOrder validates the lines and prices the order without a discount.
func NewOrder(id, customerID string, items []Item, status string, createdAt time.Time, code DiscountCode) (*Order, error) {
	if code == "" {
		code = DiscountNone
	}
	if strings.TrimSpace(status) == "" {
		status = StatusPending
	}
	order := &Order{
		ID:           strings.TrimSpace(id),
		CustomerID:   strings.TrimSpace(customerID),
		Items:        append([]Item(nil), items...),
		Status:       status,
		CreatedAt:    createdAt,
		DiscountCode: code,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	order.Total = order.Subtotal()
	return order, nil
}

// Validate enforces invariants on the aggregate.
func (o *Order) Validate() error {
	if o.ID == "" {
		return ErrEmptyOrderID
	}
	if o.CustomerID == "" {
		return ErrEmptyCustomerID
	}
	if len(o.Items) == 0 {
		return ErrNoItems
	}
	for i, item := range o.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return fmt.Errorf("item %d: %w", i, ErrEmptyProductID)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d: %w", i, ErrInvalidQuantity)
		}
		if item.Price < 0 || math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
			return fmt.Errorf("item %d: %w", i, ErrInvalidPrice)
		}
	}
	if !o.DiscountCode.Valid() {
		return ErrUnknownDiscountCode
	}
	return nil
}

// Subtotal is the sum of quantity times price, rounded to cents.
func (o *Order) Subtotal() float64 {
	var sum float64
	for _, item := range o.Items {
		sum += float64(item.Quantity) * item.Price
	}
	return roundCents(sum)
}

// ApplyDiscount reprices the order with the code's percentage, capped at
// maxPercent. It reports whether any discount was taken.
func (o *Order) ApplyDiscount(maxPercent float64) bool {
	pct := o.DiscountCode.Percent()
	if maxPercent < pct {
		pct = maxPercent
	}
	subtotal := o.Subtotal()
	if pct <= 0 {
		o.Total = subtotal
		o.DiscountApplied = false
		return false
	}
	o.Total = roundCents(subtotal - subtotal*pct/100)
	o.DiscountApplied = true
	return true
}

// Units sums quantities per product.
func (o *Order) Units() map[string]int32 {
	units := make(map[string]int32, len(o.Items))
	for _, item := range o.Items {
		units[item.ProductID] += item.Quantity
	}
	return units
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
