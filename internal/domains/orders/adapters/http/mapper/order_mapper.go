package mapper

import (
	"time"

	"github.com/Apurer/inventory-orders-service/internal/domains/orders/application/types"
	ordersdomain "github.com/Apurer/inventory-orders-service/internal/domains/orders/domain"
)

// Item is the transport shape of an order line.
type Item struct {
	ProductID string  `json:"productId"`
	Quantity  int32   `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is the transport shape returned by the orders endpoints.
type Order struct {
	OrderID         string    `json:"orderId"`
	CustomerID      string    `json:"customerId"`
	Items           []Item    `json:"items"`
	Total           float64   `json:"total"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	DiscountCode    string    `json:"discountCode,omitempty"`
	DiscountApplied bool      `json:"discountApplied"`
}

// PlaceOrderRequest is the body accepted by POST /orders.
type PlaceOrderRequest struct {
	OrderID      string `json:"orderId,omitempty"`
	CustomerID   string `json:"customerId"`
	Items        []Item `json:"items"`
	Status       string `json:"status,omitempty"`
	DiscountCode string `json:"discountCode,omitempty"`
}

// ToPlaceOrderInput converts a transport request into the application command.
func ToPlaceOrderInput(req PlaceOrderRequest) types.PlaceOrderInput {
	items := make([]types.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, types.ItemInput{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}
	return types.PlaceOrderInput{
		OrderID:      req.OrderID,
		CustomerID:   req.CustomerID,
		Items:        items,
		Status:       req.Status,
		DiscountCode: req.DiscountCode,
	}
}

// FromDomainOrder converts a domain order to the transport representation.
func FromDomainOrder(order *ordersdomain.Order) Order {
	if order == nil {
		return Order{}
	}
	items := make([]Item, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, Item{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}
	return Order{
		OrderID:         order.ID,
		CustomerID:      order.CustomerID,
		Items:           items,
		Total:           order.Total,
		Status:          order.Status,
		CreatedAt:       order.CreatedAt,
		DiscountCode:    string(order.DiscountCode),
		DiscountApplied: order.DiscountApplied,
	}
}

// FromDomainOrders converts a list, never returning nil.
func FromDomainOrders(orders []*ordersdomain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, order := range orders {
		out = append(out, FromDomainOrder(order))
	}
	return out
}
