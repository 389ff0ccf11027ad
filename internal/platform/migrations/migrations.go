// Package migrations holds the change sets the change runner applies and the
// schema of the runner's own audit table.
package migrations

import (
	"log/slog"

	"gorm.io/gorm"

	changespostgres "github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/persistence/postgres"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
)

// Target system ids referenced by the change sets.
const (
	MongoInventoryTarget  = "mongodb-inventory"
	KafkaInventoryTarget  = "kafka-inventory"
	ToggleInventoryTarget = "toggle-inventory"
	PostgresFlagsTarget   = "postgres-flags"
)

// InventoryDatabase is the MongoDB database the inventory changes work on.
const InventoryDatabase = "inventory"

// Run creates the audit table used when the audit log lives in PostgreSQL.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(&changespostgres.AuditRecord{})
}

// Pipeline assembles the registered stages: inventory always, flags only
// when a Postgres target is available.
func Pipeline(logger *slog.Logger, withFlags bool) (*domain.Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	inventory, err := InventoryStage(logger)
	if err != nil {
		return nil, err
	}
	stages := []domain.Stage{inventory}
	if withFlags {
		flags, err := FlagsStage()
		if err != nil {
			return nil, err
		}
		stages = append(stages, flags)
	}
	return domain.NewPipeline(stages...)
}
