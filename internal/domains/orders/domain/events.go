package domain

import "time"

// OrderCreated is published once an order is persisted. Field tags follow
// the registered Avro record.
type OrderCreated struct {
	OrderID      string  `avro:"orderId"`
	CustomerID   string  `avro:"customerId"`
	Total        float64 `avro:"total"`
	Status       string  `avro:"status"`
	CreatedAt    string  `avro:"createdAt"`
	DiscountCode *string `avro:"discountCode"`
}

// NewOrderCreated builds the event for a persisted order.
func NewOrderCreated(o *Order) OrderCreated {
	event := OrderCreated{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Total:      o.Total,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if o.DiscountCode != "" && o.DiscountCode != DiscountNone {
		code := string(o.DiscountCode)
		event.DiscountCode = &code
	}
	return event
}
