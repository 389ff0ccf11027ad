package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func seedItems() []Item {
	return []Item{
		{ProductID: "PROD-A", Quantity: 2, Price: 29.99},
		{ProductID: "PROD-B", Quantity: 1, Price: 49.99},
	}
}

func TestNewOrder_Defaults(t *testing.T) {
	order, err := NewOrder("ORD-001", "CUST-101", seedItems(), "", time.Now(), "")
	require.NoError(t, err)
	require.Equal(t, StatusPending, order.Status)
	require.Equal(t, DiscountNone, order.DiscountCode)
	require.Equal(t, 109.97, order.Total)
}

func TestNewOrder_Validation(t *testing.T) {
	cases := map[string]struct {
		id, customer string
		items        []Item
		code         DiscountCode
		want         error
	}{
		"missing id":       {customer: "c", items: seedItems(), want: ErrEmptyOrderID},
		"missing customer": {id: "o", items: seedItems(), want: ErrEmptyCustomerID},
		"no items":         {id: "o", customer: "c", want: ErrNoItems},
		"no product":       {id: "o", customer: "c", items: []Item{{Quantity: 1}}, want: ErrEmptyProductID},
		"zero quantity":    {id: "o", customer: "c", items: []Item{{ProductID: "p"}}, want: ErrInvalidQuantity},
		"negative price":   {id: "o", customer: "c", items: []Item{{ProductID: "p", Quantity: 1, Price: -1}}, want: ErrInvalidPrice},
		"bad code":         {id: "o", customer: "c", items: seedItems(), code: "FREE100", want: ErrUnknownDiscountCode},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewOrder(tc.id, tc.customer, tc.items, "", time.Now(), tc.code)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestApplyDiscount_CappedAndRounded(t *testing.T) {
	order, err := NewOrder("ORD-9", "CUST-1", []Item{{ProductID: "PROD-C", Quantity: 3, Price: 15.99}}, "", time.Now(), DiscountLoyal20)
	require.NoError(t, err)

	require.True(t, order.ApplyDiscount(15))
	require.Equal(t, 40.77, order.Total)
	require.True(t, order.DiscountApplied)

	require.True(t, order.ApplyDiscount(50))
	require.Equal(t, 38.38, order.Total)

	require.False(t, order.ApplyDiscount(0))
	require.Equal(t, 47.97, order.Total)
	require.False(t, order.DiscountApplied)
}

func TestParseDiscountCode(t *testing.T) {
	code, err := ParseDiscountCode(" summer10 ")
	require.NoError(t, err)
	require.Equal(t, DiscountSummer10, code)

	code, err = ParseDiscountCode("")
	require.NoError(t, err)
	require.Equal(t, DiscountNone, code)

	_, err = ParseDiscountCode("bogus")
	require.ErrorIs(t, err, ErrUnknownDiscountCode)
}

func TestNewOrderCreated_OmitsNoneDiscount(t *testing.T) {
	order, err := NewOrder("ORD-1", "CUST-1", seedItems(), "", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "")
	require.NoError(t, err)
	event := NewOrderCreated(order)
	require.Nil(t, event.DiscountCode)
	require.Equal(t, "2024-01-02T03:04:05Z", event.CreatedAt)

	order.DiscountCode = DiscountWelcome15
	event = NewOrderCreated(order)
	require.Equal(t, "WELCOME15", *event.DiscountCode)
}
