package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/inventory-orders-service/internal/domains/orders/domain"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid order input")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyOrderID) ||
		errors.Is(err, domain.ErrEmptyCustomerID) ||
		errors.Is(err, domain.ErrNoItems) ||
		errors.Is(err, domain.ErrEmptyProductID) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrInvalidPrice) ||
		errors.Is(err, domain.ErrUnknownDiscountCode) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
