package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/inventory-orders-service/internal/domains/flags/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/flags/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists flags and targeting rules in the tables created by
// the flags change set.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed flag repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type flagRecord struct {
	Name              string    `gorm:"primaryKey;column:name;size:255"`
	Description       string    `gorm:"column:description"`
	Enabled           bool      `gorm:"column:enabled"`
	RolloutPercentage int       `gorm:"column:rollout_percentage"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (flagRecord) TableName() string { return "feature_flags" }

type ruleRecord struct {
	ID        string    `gorm:"primaryKey;column:id;type:uuid"`
	FlagName  string    `gorm:"column:flag_name;size:255;index"`
	Attribute string    `gorm:"column:attribute"`
	Operator  string    `gorm:"column:operator"`
	Value     string    `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime:false"`
}

func (ruleRecord) TableName() string { return "targeting_rules" }

func (r *Repository) CreateFlag(ctx context.Context, flag *domain.FeatureFlag) (*domain.FeatureFlag, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	rec := toFlagRecord(flag)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ports.ErrAlreadyExists
		}
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *Repository) SaveFlag(ctx context.Context, flag *domain.FeatureFlag) (*domain.FeatureFlag, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	res := r.db.WithContext(ctx).Model(&flagRecord{}).
		Where("name = ?", flag.Name).
		Updates(map[string]any{
			"description":        flag.Description,
			"enabled":            flag.Enabled,
			"rollout_percentage": flag.RolloutPercentage,
			"updated_at":         flag.UpdatedAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ports.ErrNotFound
	}
	saved := *flag
	return &saved, nil
}

func (r *Repository) GetFlag(ctx context.Context, name string) (*domain.FeatureFlag, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var rec flagRecord
	if err := r.db.WithContext(ctx).First(&rec, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *Repository) ListFlags(ctx context.Context) ([]*domain.FeatureFlag, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var recs []flagRecord
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	flags := make([]*domain.FeatureFlag, 0, len(recs))
	for i := range recs {
		flags = append(flags, recs[i].toDomain())
	}
	return flags, nil
}

func (r *Repository) AddRule(ctx context.Context, rule *domain.TargetingRule) (*domain.TargetingRule, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	rec := ruleRecord{
		ID:        rule.ID,
		FlagName:  rule.FlagName,
		Attribute: rule.Attribute,
		Operator:  string(rule.Operator),
		Value:     rule.Value,
		CreatedAt: rule.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	stored := rec.toDomain()
	return &stored, nil
}

func (r *Repository) ListRules(ctx context.Context, flagName string) ([]domain.TargetingRule, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var recs []ruleRecord
	if err := r.db.WithContext(ctx).
		Where("flag_name = ?", flagName).
		Order("created_at ASC, id ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	rules := make([]domain.TargetingRule, 0, len(recs))
	for _, rec := range recs {
		rules = append(rules, rec.toDomain())
	}
	return rules, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres flag repository not configured")
	}
	return nil
}

func toFlagRecord(flag *domain.FeatureFlag) flagRecord {
	return flagRecord{
		Name:              flag.Name,
		Description:       flag.Description,
		Enabled:           flag.Enabled,
		RolloutPercentage: flag.RolloutPercentage,
		CreatedAt:         flag.CreatedAt,
		UpdatedAt:         flag.UpdatedAt,
	}
}

func (rec flagRecord) toDomain() *domain.FeatureFlag {
	return &domain.FeatureFlag{
		Name:              rec.Name,
		Description:       rec.Description,
		Enabled:           rec.Enabled,
		RolloutPercentage: rec.RolloutPercentage,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}

func (rec ruleRecord) toDomain() domain.TargetingRule {
	return domain.TargetingRule{
		ID:        rec.ID,
		FlagName:  rec.FlagName,
		Attribute: rec.Attribute,
		Operator:  domain.Operator(rec.Operator),
		Value:     rec.Value,
		CreatedAt: rec.CreatedAt,
	}
}
