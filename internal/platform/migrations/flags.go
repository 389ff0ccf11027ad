package migrations

import (
	"context"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/targets"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
)

const flagsAuthor = "dev"

const createFlagsTableSQL = `CREATE TABLE IF NOT EXISTS feature_flags (
    name         VARCHAR(255) PRIMARY KEY,
    description  TEXT,
    enabled      BOOLEAN DEFAULT FALSE,
    created_at   TIMESTAMPTZ DEFAULT NOW(),
    updated_at   TIMESTAMPTZ DEFAULT NOW()
)`

const createTargetingRulesSQL = `CREATE TABLE IF NOT EXISTS targeting_rules (
    id         UUID DEFAULT gen_random_uuid() PRIMARY KEY,
    flag_name  VARCHAR(255) REFERENCES feature_flags(name),
    attribute  VARCHAR(255) NOT NULL,
    operator   VARCHAR(50) NOT NULL,
    value      TEXT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW()
)`

// FlagsStage builds the feature flag schema on the postgres-flags target.
func FlagsStage() (domain.Stage, error) {
	return domain.NewStage("flags",
		sqlChange("0001", "create-flags-table",
			[]string{createFlagsTableSQL},
			[]string{"DROP TABLE IF EXISTS feature_flags"}),
		sqlChange("0002", "add-rollout-percentage",
			[]string{"ALTER TABLE feature_flags ADD COLUMN IF NOT EXISTS rollout_percentage INT DEFAULT 100"},
			[]string{"ALTER TABLE feature_flags DROP COLUMN IF EXISTS rollout_percentage"}),
		sqlChange("0003", "create-targeting-rules",
			[]string{
				`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,
				createTargetingRulesSQL,
				"CREATE INDEX IF NOT EXISTS idx_targeting_rules_flag_name ON targeting_rules(flag_name)",
			},
			[]string{"DROP TABLE IF EXISTS targeting_rules"}),
	)
}

func sqlChange(order, id string, apply, rollback []string) domain.Change {
	return domain.Change{
		ID:            id,
		Order:         order,
		Author:        flagsAuthor,
		TargetSystem:  PostgresFlagsTarget,
		Transactional: true,
		Apply:         domain.Using(execAll(apply)),
		Rollback:      domain.Using(execAll(rollback)),
	}
}

func execAll(statements []string) func(ctx context.Context, target *targets.SQLTarget) error {
	return func(ctx context.Context, target *targets.SQLTarget) error {
		db := target.DB(ctx)
		for _, stmt := range statements {
			if err := db.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	}
}
