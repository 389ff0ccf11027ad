package domain

import "strings"

// DiscountCode is one of the codes customers may redeem.
type DiscountCode string

const (
	DiscountNone      DiscountCode = "NONE"
	DiscountSummer10  DiscountCode = "SUMMER10"
	DiscountWelcome15 DiscountCode = "WELCOME15"
	DiscountLoyal20   DiscountCode = "LOYAL20"
)

var discountPercents = map[DiscountCode]float64{
	DiscountNone:      0,
	DiscountSummer10:  10,
	DiscountWelcome15: 15,
	DiscountLoyal20:   20,
}

// DiscountCodes lists the known codes in presentation order.
func DiscountCodes() []DiscountCode {
	return []DiscountCode{DiscountNone, DiscountSummer10, DiscountWelcome15, DiscountLoyal20}
}

// ParseDiscountCode normalises case; empty input means NONE.
func ParseDiscountCode(raw string) (DiscountCode, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return DiscountNone, nil
	}
	code := DiscountCode(raw)
	if !code.Valid() {
		return "", ErrUnknownDiscountCode
	}
	return code, nil
}

func (c DiscountCode) Valid() bool {
	_, ok := discountPercents[c]
	return ok
}

// Percent is the nominal discount before any cap.
func (c DiscountCode) Percent() float64 {
	return discountPercents[c]
}
