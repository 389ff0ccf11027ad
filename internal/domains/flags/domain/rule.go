package domain

import (
	"strings"
	"time"
)

type Operator string

const (
	OperatorEquals     Operator = "equals"
	OperatorContains   Operator = "contains"
	OperatorIn         Operator = "in"
	OperatorStartsWith Operator = "starts_with"
)

// ParseOperator accepts the supported operator names only.
func ParseOperator(raw string) (Operator, error) {
	switch op := Operator(strings.TrimSpace(raw)); op {
	case OperatorEquals, OperatorContains, OperatorIn, OperatorStartsWith:
		return op, nil
	default:
		return "", ErrUnknownOperator
	}
}

// TargetingRule enables a flag for users whose attribute matches.
type TargetingRule struct {
	ID        string
	FlagName  string
	Attribute string
	Operator  Operator
	Value     string
	CreatedAt time.Time
}

func NewTargetingRule(id, flagName, attribute, operator, value string, now time.Time) (*TargetingRule, error) {
	if strings.TrimSpace(flagName) == "" {
		return nil, ErrEmptyFlagName
	}
	if strings.TrimSpace(attribute) == "" {
		return nil, ErrEmptyAttribute
	}
	op, err := ParseOperator(operator)
	if err != nil {
		return nil, err
	}
	return &TargetingRule{
		ID:        id,
		FlagName:  flagName,
		Attribute: strings.TrimSpace(attribute),
		Operator:  op,
		Value:     value,
		CreatedAt: now,
	}, nil
}

// Matches reports whether attrs satisfy the rule. A missing attribute never matches.
func (r TargetingRule) Matches(attrs map[string]string) bool {
	actual, ok := attrs[r.Attribute]
	if !ok {
		return false
	}
	switch r.Operator {
	case OperatorEquals:
		return actual == r.Value
	case OperatorContains:
		return strings.Contains(actual, r.Value)
	case OperatorIn:
		for _, candidate := range strings.Split(r.Value, ",") {
			if strings.TrimSpace(candidate) == actual {
				return true
			}
		}
		return false
	case OperatorStartsWith:
		return strings.HasPrefix(actual, r.Value)
	default:
		return false
	}
}

func (r TargetingRule) String() string {
	return r.Attribute + " " + string(r.Operator) + " " + r.Value
}
