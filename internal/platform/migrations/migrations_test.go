package migrations

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/targets"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	"github.com/Apurer/inventory-orders-service/internal/platform/kafka"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSchemaAdmin struct {
	topics     map[string][2]int
	registered map[string][]string
	latest     int
	err        error
}

func newFakeSchemaAdmin() *fakeSchemaAdmin {
	return &fakeSchemaAdmin{topics: map[string][2]int{}, registered: map[string][]string{}}
}

func (f *fakeSchemaAdmin) CreateTopicIfNotExists(_ context.Context, topic string, partitions, replication int) error {
	f.topics[topic] = [2]int{partitions, replication}
	return nil
}

func (f *fakeSchemaAdmin) RegisterSchema(_ context.Context, subject, schema string) (int, error) {
	f.registered[subject] = append(f.registered[subject], schema)
	return len(f.registered[subject]), nil
}

func (f *fakeSchemaAdmin) LatestSchemaVersion(context.Context, string) (int, error) {
	return f.latest, f.err
}

type fakeFlagAdmin struct {
	created  []string
	deleted  []string
	archived []string
	values   map[string][]string
}

func (f *fakeFlagAdmin) CreateBooleanFlag(_ context.Context, key, _, _ string) error {
	f.created = append(f.created, key)
	return nil
}

func (f *fakeFlagAdmin) CreateStringFlag(_ context.Context, key, _, _ string, values []string) error {
	f.created = append(f.created, key)
	if f.values == nil {
		f.values = map[string][]string{}
	}
	f.values[key] = values
	return nil
}

func (f *fakeFlagAdmin) DeleteFlag(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeFlagAdmin) ArchiveFlag(_ context.Context, key string) error {
	f.archived = append(f.archived, key)
	return nil
}

func inventoryChange(t *testing.T, id string) domain.Change {
	t.Helper()
	stage, err := InventoryStage(discardLogger)
	require.NoError(t, err)
	for _, change := range stage.Changes {
		if change.ID == id {
			return change
		}
	}
	t.Fatalf("change %s not registered", id)
	return domain.Change{}
}

func TestInventoryStage_Order(t *testing.T) {
	stage, err := InventoryStage(discardLogger)
	require.NoError(t, err)

	var ids []string
	for _, change := range stage.Changes {
		ids = append(ids, change.ID)
		assert.Equal(t, "flamingock-team", change.Author)
	}
	assert.Equal(t, []string{
		"add-discount-code-field-to-orders",
		"update-order-created-schema",
		"add-feature-flag-discounts",
		"backfill-discounts-for-existing-orders",
		"add-index-on-discount-code",
		"cleanup-feature-flag-discounts",
		"cleanup-old-schema-version",
	}, ids)
	assert.True(t, stage.Changes[0].Transactional)
	assert.True(t, stage.Changes[3].Transactional)
	assert.False(t, stage.Changes[4].Transactional)
}

func TestPipeline_FlagsStageOptional(t *testing.T) {
	withoutFlags, err := Pipeline(discardLogger, false)
	require.NoError(t, err)
	assert.Len(t, withoutFlags.Changes(), 7)
	assert.Equal(t, []string{"inventory"}, withoutFlags.Stages())

	withFlags, err := Pipeline(discardLogger, true)
	require.NoError(t, err)
	assert.Len(t, withFlags.Changes(), 10)
	assert.Equal(t, []string{"inventory", "flags"}, withFlags.Stages())

	planned, ok := withFlags.Lookup("create-targeting-rules")
	require.True(t, ok)
	assert.Equal(t, PostgresFlagsTarget, planned.Change.TargetSystem)
	assert.Equal(t, "dev", planned.Change.Author)
}

func TestUpdateOrderCreatedSchema(t *testing.T) {
	admin := newFakeSchemaAdmin()
	target := targets.NewNonTransactional[SchemaAdmin](KafkaInventoryTarget, admin)

	require.NoError(t, inventoryChange(t, "update-order-created-schema").Apply(context.Background(), target))
	assert.Equal(t, [2]int{3, 1}, admin.topics[kafka.OrderCreatedTopic])
	assert.Equal(t, []string{kafka.OrderCreatedSchemaV2}, admin.registered[kafka.OrderCreatedSubject])

	require.NoError(t, inventoryChange(t, "update-order-created-schema").Rollback(context.Background(), target))
}

func TestCleanupOldSchemaVersion(t *testing.T) {
	admin := newFakeSchemaAdmin()
	target := targets.NewNonTransactional[SchemaAdmin](KafkaInventoryTarget, admin)
	change := inventoryChange(t, "cleanup-old-schema-version")

	admin.latest = 1
	require.NoError(t, change.Apply(context.Background(), target))
	admin.latest = 2
	require.NoError(t, change.Apply(context.Background(), target))

	admin.err = errors.New("registry unavailable")
	require.Error(t, change.Apply(context.Background(), target))
}

func TestDiscountFlagLifecycle(t *testing.T) {
	admin := &fakeFlagAdmin{}
	target := targets.NewNonTransactional[FlagAdmin](ToggleInventoryTarget, admin)
	ctx := context.Background()

	require.NoError(t, inventoryChange(t, "add-feature-flag-discounts").Apply(ctx, target))
	assert.Equal(t, []string{"enable-discounts", "discount-codes", "max-discount-percent"}, admin.created)
	assert.Equal(t, []string{"NONE", "SUMMER10", "WELCOME15", "LOYAL20"}, admin.values["discount-codes"])
	assert.Equal(t, []string{"10", "15", "20", "25"}, admin.values["max-discount-percent"])

	require.NoError(t, inventoryChange(t, "cleanup-feature-flag-discounts").Apply(ctx, target))
	assert.Equal(t, discountFlags, admin.archived)

	require.NoError(t, inventoryChange(t, "add-feature-flag-discounts").Rollback(ctx, target))
	assert.Equal(t, discountFlags, admin.deleted)
}

func TestInventoryChange_WrongTarget(t *testing.T) {
	target := targets.NewNonTransactional[FlagAdmin](ToggleInventoryTarget, &fakeFlagAdmin{})
	err := inventoryChange(t, "update-order-created-schema").Apply(context.Background(), target)
	require.ErrorIs(t, err, domain.ErrTargetTypeMismatch)
}

func TestFlagsStage_ExecutesDDL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	target, err := targets.NewSQLTarget(PostgresFlagsTarget, db)
	require.NoError(t, err)

	stage, err := FlagsStage()
	require.NoError(t, err)
	require.Len(t, stage.Changes, 3)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS feature_flags`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE feature_flags ADD COLUMN IF NOT EXISTS rollout_percentage INT DEFAULT 100`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS targeting_rules`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX IF NOT EXISTS idx_targeting_rules_flag_name`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS targeting_rules`)).WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	for _, change := range stage.Changes {
		require.True(t, change.Transactional)
		require.NoError(t, change.Apply(ctx, target))
	}
	require.NoError(t, stage.Changes[2].Rollback(ctx, target))
	require.NoError(t, mock.ExpectationsWereMet())
}
