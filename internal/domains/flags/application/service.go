package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/inventory-orders-service/internal/domains/flags/application/types"
	"github.com/Apurer/inventory-orders-service/internal/domains/flags/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/flags/ports"
)

// ErrInvalidInput signals the request violated a flag invariant.
var ErrInvalidInput = errors.New("invalid flag input")

// Service manages flags and evaluates them for users.
type Service struct {
	repo  ports.Repository
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithRuleIDs(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func NewService(repo ports.Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) CreateFlag(ctx context.Context, input types.CreateFlagInput) (*domain.FeatureFlag, error) {
	flag, err := domain.NewFeatureFlag(input.Name, input.Description, s.now().UTC())
	if err != nil {
		return nil, mapError(err)
	}
	return s.repo.CreateFlag(ctx, flag)
}

func (s *Service) ListFlags(ctx context.Context) ([]*domain.FeatureFlag, error) {
	flags, err := s.repo.ListFlags(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })
	return flags, nil
}

func (s *Service) UpdateFlag(ctx context.Context, name string, input types.UpdateFlagInput) (*domain.FeatureFlag, error) {
	flag, err := s.repo.GetFlag(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := flag.Update(input.Enabled, input.RolloutPercentage, s.now().UTC()); err != nil {
		return nil, mapError(err)
	}
	return s.repo.SaveFlag(ctx, flag)
}

func (s *Service) AddRule(ctx context.Context, flagName string, input types.AddRuleInput) (*domain.TargetingRule, error) {
	if _, err := s.repo.GetFlag(ctx, flagName); err != nil {
		return nil, err
	}
	rule, err := domain.NewTargetingRule(s.newID(), flagName, input.Attribute, input.Operator, input.Value, s.now().UTC())
	if err != nil {
		return nil, mapError(err)
	}
	return s.repo.AddRule(ctx, rule)
}

func (s *Service) ListRules(ctx context.Context, flagName string) ([]domain.TargetingRule, error) {
	return s.repo.ListRules(ctx, flagName)
}

// Evaluate never reports a missing flag as an error; it evaluates to disabled.
func (s *Service) Evaluate(ctx context.Context, name, userID string, attrs map[string]string) (domain.Evaluation, error) {
	flag, err := s.repo.GetFlag(ctx, name)
	if errors.Is(err, ports.ErrNotFound) {
		return domain.Evaluate(nil, nil, userID, attrs), nil
	}
	if err != nil {
		return domain.Evaluation{}, err
	}
	var rules []domain.TargetingRule
	if flag.Enabled {
		if rules, err = s.repo.ListRules(ctx, name); err != nil {
			return domain.Evaluation{}, err
		}
	}
	return domain.Evaluate(flag, rules, userID, attrs), nil
}

func mapError(err error) error {
	if errors.Is(err, domain.ErrEmptyFlagName) ||
		errors.Is(err, domain.ErrInvalidRollout) ||
		errors.Is(err, domain.ErrEmptyAttribute) ||
		errors.Is(err, domain.ErrUnknownOperator) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}

var _ ports.Service = (*Service)(nil)
