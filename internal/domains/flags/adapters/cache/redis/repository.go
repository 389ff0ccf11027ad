package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Apurer/inventory-orders-service/internal/domains/flags/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/flags/ports"
)

const DefaultTTL = 30 * time.Second

var _ ports.Repository = (*Repository)(nil)

// Repository is a read-through cache in front of another flag repository.
// Writes go to the inner repository and evict the cached entries.
// Cache failures are logged and fall through to the inner repository.
type Repository struct {
	inner  ports.Repository
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*Repository)

func WithTTL(ttl time.Duration) Option {
	return func(r *Repository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(r *Repository) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRepository(inner ports.Repository, client goredis.UniversalClient, opts ...Option) *Repository {
	r := &Repository{
		inner:  inner,
		client: client,
		prefix: "flags:",
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) CreateFlag(ctx context.Context, flag *domain.FeatureFlag) (*domain.FeatureFlag, error) {
	created, err := r.inner.CreateFlag(ctx, flag)
	if err != nil {
		return nil, err
	}
	r.evict(ctx, r.flagKey(flag.Name))
	return created, nil
}

func (r *Repository) SaveFlag(ctx context.Context, flag *domain.FeatureFlag) (*domain.FeatureFlag, error) {
	saved, err := r.inner.SaveFlag(ctx, flag)
	if err != nil {
		return nil, err
	}
	r.evict(ctx, r.flagKey(flag.Name))
	return saved, nil
}

func (r *Repository) GetFlag(ctx context.Context, name string) (*domain.FeatureFlag, error) {
	var cached domain.FeatureFlag
	if r.load(ctx, r.flagKey(name), &cached) {
		return &cached, nil
	}
	flag, err := r.inner.GetFlag(ctx, name)
	if err != nil {
		return nil, err
	}
	r.store(ctx, r.flagKey(name), flag)
	return flag, nil
}

func (r *Repository) ListFlags(ctx context.Context) ([]*domain.FeatureFlag, error) {
	return r.inner.ListFlags(ctx)
}

func (r *Repository) AddRule(ctx context.Context, rule *domain.TargetingRule) (*domain.TargetingRule, error) {
	added, err := r.inner.AddRule(ctx, rule)
	if err != nil {
		return nil, err
	}
	r.evict(ctx, r.rulesKey(rule.FlagName))
	return added, nil
}

func (r *Repository) ListRules(ctx context.Context, flagName string) ([]domain.TargetingRule, error) {
	var cached []domain.TargetingRule
	if r.load(ctx, r.rulesKey(flagName), &cached) {
		return cached, nil
	}
	rules, err := r.inner.ListRules(ctx, flagName)
	if err != nil {
		return nil, err
	}
	r.store(ctx, r.rulesKey(flagName), rules)
	return rules, nil
}

func (r *Repository) flagKey(name string) string { return r.prefix + "flag:" + name }
func (r *Repository) rulesKey(name string) string { return r.prefix + "rules:" + name }

func (r *Repository) load(ctx context.Context, key string, dst any) bool {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			r.logger.WarnContext(ctx, "flag cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.logger.WarnContext(ctx, "flag cache entry unreadable", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (r *Repository) store(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "flag cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (r *Repository) evict(ctx context.Context, key string) {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.WarnContext(ctx, "flag cache eviction failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
