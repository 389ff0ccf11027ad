package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Apurer/inventory-orders-service/internal/domains/flags/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/flags/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository keeps flags and rules in memory.
type Repository struct {
	mu    sync.RWMutex
	flags map[string]domain.FeatureFlag
	rules map[string][]domain.TargetingRule
}

func NewRepository() *Repository {
	return &Repository{
		flags: map[string]domain.FeatureFlag{},
		rules: map[string][]domain.TargetingRule{},
	}
}

func (r *Repository) CreateFlag(_ context.Context, flag *domain.FeatureFlag) (*domain.FeatureFlag, error) {
	if flag == nil {
		return nil, errors.New("flag is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.flags[flag.Name]; exists {
		return nil, ports.ErrAlreadyExists
	}
	r.flags[flag.Name] = *flag
	stored := *flag
	return &stored, nil
}

func (r *Repository) SaveFlag(_ context.Context, flag *domain.FeatureFlag) (*domain.FeatureFlag, error) {
	if flag == nil {
		return nil, errors.New("flag is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.flags[flag.Name]; !exists {
		return nil, ports.ErrNotFound
	}
	r.flags[flag.Name] = *flag
	stored := *flag
	return &stored, nil
}

func (r *Repository) GetFlag(_ context.Context, name string) (*domain.FeatureFlag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	flag, ok := r.flags[name]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &flag, nil
}

func (r *Repository) ListFlags(_ context.Context) ([]*domain.FeatureFlag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.FeatureFlag, 0, len(r.flags))
	for _, flag := range r.flags {
		flag := flag
		list = append(list, &flag)
	}
	return list, nil
}

func (r *Repository) AddRule(_ context.Context, rule *domain.TargetingRule) (*domain.TargetingRule, error) {
	if rule == nil {
		return nil, errors.New("rule is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.flags[rule.FlagName]; !exists {
		return nil, ports.ErrNotFound
	}
	r.rules[rule.FlagName] = append(r.rules[rule.FlagName], *rule)
	stored := *rule
	return &stored, nil
}

func (r *Repository) ListRules(_ context.Context, flagName string) ([]domain.TargetingRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rules := append([]domain.TargetingRule{}, r.rules[flagName]...)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].CreatedAt.Before(rules[j].CreatedAt) })
	return rules, nil
}
