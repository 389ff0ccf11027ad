package discounts

import (
	"context"
	"errors"

	flagsdomain "github.com/Apurer/inventory-orders-service/internal/domains/flags/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/orders/ports"
)

const (
	// EnableFlag gates discount redemption per customer.
	EnableFlag = "enable-discounts"
	// DefaultMaxPercent is the highest value offered by max-discount-percent.
	DefaultMaxPercent = 25.0
)

// Evaluator is satisfied by the flags service.
type Evaluator interface {
	Evaluate(ctx context.Context, name, userID string, attrs map[string]string) (flagsdomain.Evaluation, error)
}

var (
	_ ports.DiscountGate = (*FlagGate)(nil)
	_ ports.DiscountGate = StaticGate{}
)

// FlagGate opens discounts for customers the enable-discounts flag evaluates on for.
type FlagGate struct {
	flags      Evaluator
	flag       string
	maxPercent float64
}

// NewFlagGate caps discounts at maxPercent. A cap of 0 turns discounts off;
// values outside 0..100 fall back to DefaultMaxPercent.
func NewFlagGate(flags Evaluator, maxPercent float64) (*FlagGate, error) {
	if flags == nil {
		return nil, errors.New("flag evaluator is required")
	}
	if maxPercent < 0 || maxPercent > 100 {
		maxPercent = DefaultMaxPercent
	}
	return &FlagGate{flags: flags, flag: EnableFlag, maxPercent: maxPercent}, nil
}

func (g *FlagGate) Discount(ctx context.Context, customerID string) (bool, float64, error) {
	eval, err := g.flags.Evaluate(ctx, g.flag, customerID, map[string]string{"customerId": customerID})
	if err != nil {
		return false, 0, err
	}
	return eval.Enabled, g.maxPercent, nil
}

// StaticGate answers the same for every customer.
type StaticGate struct {
	Enabled    bool
	MaxPercent float64
}

func (g StaticGate) Discount(context.Context, string) (bool, float64, error) {
	return g.Enabled, g.MaxPercent, nil
}
