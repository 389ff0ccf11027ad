package types

// PlaceOrderInput carries the fields a caller may set on a new order.
type PlaceOrderInput struct {
	OrderID      string
	CustomerID   string
	Items        []ItemInput
	Status       string
	DiscountCode string
}

type ItemInput struct {
	ProductID string
	Quantity  int32
	Price     float64
}
