//go:build integration

package migrations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	changespostgres "github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/persistence/postgres"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/targets"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/application"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	flagspostgres "github.com/Apurer/inventory-orders-service/internal/domains/flags/adapters/persistence/postgres"
	flagsapp "github.com/Apurer/inventory-orders-service/internal/domains/flags/application"
	"github.com/Apurer/inventory-orders-service/internal/domains/flags/application/types"
)

func setupFlagsPostgres(t *testing.T) *gorm.DB {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("flags_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestFlagsStage_RunServeAndUndo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupFlagsPostgres(t)
	require.NoError(t, Run(db))

	flags, err := FlagsStage()
	require.NoError(t, err)
	pipeline, err := domain.NewPipeline(flags)
	require.NoError(t, err)
	sqlTarget, err := targets.NewSQLTarget(PostgresFlagsTarget, db)
	require.NoError(t, err)
	svc, err := application.NewService(pipeline, changespostgres.NewAuditStore(db), []domain.TargetSystem{sqlTarget})
	require.NoError(t, err)

	ctx := context.Background()
	report, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"create-flags-table", "add-rollout-percentage", "create-targeting-rules"}, report.Applied)

	flagService := flagsapp.NewService(flagspostgres.NewRepository(db))
	_, err = flagService.CreateFlag(ctx, types.CreateFlagInput{Name: "new-checkout", Description: "checkout v2"})
	require.NoError(t, err)
	enabled, rollout := true, 50
	_, err = flagService.UpdateFlag(ctx, "new-checkout", types.UpdateFlagInput{Enabled: &enabled, RolloutPercentage: &rollout})
	require.NoError(t, err)
	_, err = flagService.AddRule(ctx, "new-checkout", types.AddRuleInput{Attribute: "country", Operator: "in", Value: "PL, DE"})
	require.NoError(t, err)

	eval, err := flagService.Evaluate(ctx, "new-checkout", "user-1", map[string]string{"country": "DE"})
	require.NoError(t, err)
	assert.True(t, eval.Enabled)
	assert.Equal(t, "targeting rule matched: country in PL, DE", eval.Reason)

	eval, err = flagService.Evaluate(ctx, "new-checkout", "user-1", nil)
	require.NoError(t, err)
	assert.False(t, eval.Enabled)
	assert.Equal(t, "outside rollout bucket 87 >= 50%", eval.Reason)

	undo, err := svc.Undo(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"create-targeting-rules", "add-rollout-percentage", "create-flags-table"}, undo.RolledBack)
	assert.False(t, db.Migrator().HasTable("feature_flags"))

	history, err := svc.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 9)
}
