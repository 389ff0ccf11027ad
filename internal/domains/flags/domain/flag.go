package domain

import (
	"errors"
	"strings"
	"time"
)

// DefaultRolloutPercentage exposes a new flag to everyone once enabled.
const DefaultRolloutPercentage = 100

var (
	ErrEmptyFlagName   = errors.New("flag name is required")
	ErrInvalidRollout  = errors.New("rollout percentage must be between 0 and 100")
	ErrEmptyAttribute  = errors.New("rule attribute is required")
	ErrUnknownOperator = errors.New("unknown rule operator")
)

// FeatureFlag is a named switch with an optional percentage rollout.
type FeatureFlag struct {
	Name              string
	Description       string
	Enabled           bool
	RolloutPercentage int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewFeatureFlag returns a disabled flag with full rollout.
func NewFeatureFlag(name, description string, now time.Time) (*FeatureFlag, error) {
	flag := &FeatureFlag{
		Name:              strings.TrimSpace(name),
		Description:       description,
		RolloutPercentage: DefaultRolloutPercentage,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := flag.Validate(); err != nil {
		return nil, err
	}
	return flag, nil
}

func (f *FeatureFlag) Validate() error {
	if f.Name == "" {
		return ErrEmptyFlagName
	}
	if f.RolloutPercentage < 0 || f.RolloutPercentage > 100 {
		return ErrInvalidRollout
	}
	return nil
}

// Update applies the provided fields and bumps UpdatedAt when anything was set.
func (f *FeatureFlag) Update(enabled *bool, rollout *int, now time.Time) error {
	if rollout != nil && (*rollout < 0 || *rollout > 100) {
		return ErrInvalidRollout
	}
	if enabled != nil {
		f.Enabled = *enabled
		f.UpdatedAt = now
	}
	if rollout != nil {
		f.RolloutPercentage = *rollout
		f.UpdatedAt = now
	}
	return nil
}
