package migrations

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/targets"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	"github.com/Apurer/inventory-orders-service/internal/platform/kafka"
)

const (
	inventoryAuthor         = "flamingock-team"
	ordersCollection        = "orders"
	discountCodeIndex       = "discountCode_1"
	orderCreatedPartitions  = 3
	orderCreatedReplication = 1
)

// SchemaAdmin is the part of the Kafka schema manager the inventory changes use.
type SchemaAdmin interface {
	CreateTopicIfNotExists(ctx context.Context, topic string, partitions, replication int) error
	RegisterSchema(ctx context.Context, subject, schema string) (int, error)
	LatestSchemaVersion(ctx context.Context, subject string) (int, error)
}

// FlagAdmin is the part of the flag management client the inventory changes use.
type FlagAdmin interface {
	CreateBooleanFlag(ctx context.Context, key, name, description string) error
	CreateStringFlag(ctx context.Context, key, name, description string, values []string) error
	DeleteFlag(ctx context.Context, key string) error
	ArchiveFlag(ctx context.Context, key string) error
}

type (
	KafkaTarget  = targets.NonTransactional[SchemaAdmin]
	ToggleTarget = targets.NonTransactional[FlagAdmin]
)

var discountFlags = []string{"enable-discounts", "discount-codes", "max-discount-percent"}

// InventoryStage introduces discount codes across MongoDB, Kafka and the flag service.
func InventoryStage(logger *slog.Logger) (domain.Stage, error) {
	c := inventoryChanges{logger: logger}
	return domain.NewStage("inventory",
		domain.Change{
			ID:            "add-discount-code-field-to-orders",
			Order:         "0001",
			Author:        inventoryAuthor,
			TargetSystem:  MongoInventoryTarget,
			Transactional: true,
			Apply:         domain.Using(c.seedOrders),
			Rollback:      domain.Using(c.dropOrders),
		},
		domain.Change{
			ID:           "update-order-created-schema",
			Order:        "0002",
			Author:       inventoryAuthor,
			TargetSystem: KafkaInventoryTarget,
			Apply:        domain.Using(c.registerSchemaV2),
			Rollback:     domain.Using(c.revertSchemaV2),
		},
		domain.Change{
			ID:           "add-feature-flag-discounts",
			Order:        "0003",
			Author:       inventoryAuthor,
			TargetSystem: ToggleInventoryTarget,
			Apply:        domain.Using(c.createDiscountFlags),
			Rollback:     domain.Using(c.deleteDiscountFlags),
		},
		domain.Change{
			ID:            "backfill-discounts-for-existing-orders",
			Order:         "0004",
			Author:        inventoryAuthor,
			TargetSystem:  MongoInventoryTarget,
			Transactional: true,
			Apply:         domain.Using(c.backfillDiscounts),
			Rollback:      domain.Using(c.unsetDiscounts),
		},
		domain.Change{
			ID:           "add-index-on-discount-code",
			Order:        "0005",
			Author:       inventoryAuthor,
			TargetSystem: MongoInventoryTarget,
			Apply:        domain.Using(c.createDiscountIndex),
			Rollback:     domain.Using(c.dropDiscountIndex),
		},
		domain.Change{
			ID:           "cleanup-feature-flag-discounts",
			Order:        "0006",
			Author:       inventoryAuthor,
			TargetSystem: ToggleInventoryTarget,
			Apply:        domain.Using(c.archiveDiscountFlags),
			Rollback:     domain.Using(c.createDiscountFlags),
		},
		domain.Change{
			ID:           "cleanup-old-schema-version",
			Order:        "0007",
			Author:       inventoryAuthor,
			TargetSystem: KafkaInventoryTarget,
			Apply:        domain.Using(c.deprecateSchemaV1),
			Rollback:     domain.Using(c.restoreSchemaV1),
		},
	)
}

type inventoryChanges struct {
	logger *slog.Logger
}

func (c inventoryChanges) seedOrders(ctx context.Context, target *targets.MongoTarget) error {
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := target.Database().Collection(ordersCollection).InsertMany(ctx, []any{
		bson.D{
			{Key: "orderId", Value: "ORD-001"},
			{Key: "customerId", Value: "CUST-101"},
			{Key: "items", Value: bson.A{
				bson.D{{Key: "productId", Value: "PROD-A"}, {Key: "quantity", Value: int32(2)}, {Key: "price", Value: 29.99}},
				bson.D{{Key: "productId", Value: "PROD-B"}, {Key: "quantity", Value: int32(1)}, {Key: "price", Value: 49.99}},
			}},
			{Key: "total", Value: 109.97},
			{Key: "status", Value: "PENDING"},
			{Key: "createdAt", Value: createdAt},
		},
		bson.D{
			{Key: "orderId", Value: "ORD-002"},
			{Key: "customerId", Value: "CUST-102"},
			{Key: "items", Value: bson.A{
				bson.D{{Key: "productId", Value: "PROD-C"}, {Key: "quantity", Value: int32(3)}, {Key: "price", Value: 15.99}},
			}},
			{Key: "total", Value: 47.97},
			{Key: "status", Value: "COMPLETED"},
			{Key: "createdAt", Value: createdAt},
		},
	})
	return err
}

func (c inventoryChanges) dropOrders(ctx context.Context, target *targets.MongoTarget) error {
	names, err := target.Database().ListCollectionNames(ctx, bson.D{{Key: "name", Value: ordersCollection}})
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	return target.Database().Collection(ordersCollection).Drop(ctx)
}

func (c inventoryChanges) registerSchemaV2(ctx context.Context, target *KafkaTarget) error {
	schemas := target.Dependency()
	if err := schemas.CreateTopicIfNotExists(ctx, kafka.OrderCreatedTopic, orderCreatedPartitions, orderCreatedReplication); err != nil {
		return err
	}
	version, err := schemas.RegisterSchema(ctx, kafka.OrderCreatedSubject, kafka.OrderCreatedSchemaV2)
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "registered OrderCreated schema with discountCode",
		slog.String("subject", kafka.OrderCreatedSubject), slog.Int("version", version))
	return nil
}

func (c inventoryChanges) revertSchemaV2(ctx context.Context, _ *KafkaTarget) error {
	c.logger.InfoContext(ctx, "rolling back schema evolution: producers revert to V1, both versions stay registered",
		slog.String("subject", kafka.OrderCreatedSubject))
	return nil
}

func (c inventoryChanges) createDiscountFlags(ctx context.Context, target *ToggleTarget) error {
	flags := target.Dependency()
	if err := flags.CreateBooleanFlag(ctx, "enable-discounts",
		"Enable Discount System",
		"Controls whether discount codes are enabled for orders"); err != nil {
		return err
	}
	if err := flags.CreateStringFlag(ctx, "discount-codes",
		"Available Discount Codes",
		"Available discount codes for the system",
		[]string{"NONE", "SUMMER10", "WELCOME15", "LOYAL20"}); err != nil {
		return err
	}
	return flags.CreateStringFlag(ctx, "max-discount-percent",
		"Maximum Discount Percentage",
		"Maximum allowed discount percentage",
		[]string{"10", "15", "20", "25"})
}

func (c inventoryChanges) deleteDiscountFlags(ctx context.Context, target *ToggleTarget) error {
	for _, key := range discountFlags {
		if err := target.Dependency().DeleteFlag(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (c inventoryChanges) archiveDiscountFlags(ctx context.Context, target *ToggleTarget) error {
	for _, key := range discountFlags {
		if err := target.Dependency().ArchiveFlag(ctx, key); err != nil {
			return err
		}
		c.logger.InfoContext(ctx, "archived feature flag", slog.String("flag", key))
	}
	return nil
}

func (c inventoryChanges) backfillDiscounts(ctx context.Context, target *targets.MongoTarget) error {
	orders := target.Database().Collection(ordersCollection)
	res, err := orders.UpdateMany(ctx,
		bson.D{{Key: "discountCode", Value: bson.D{{Key: "$exists", Value: false}}}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "discountCode", Value: "NONE"}}}})
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "backfilled default discountCode", slog.Int64("orders", res.ModifiedCount))
	_, err = orders.UpdateMany(ctx,
		bson.D{{Key: "discountApplied", Value: bson.D{{Key: "$exists", Value: false}}}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "discountApplied", Value: false}}}})
	return err
}

func (c inventoryChanges) unsetDiscounts(ctx context.Context, target *targets.MongoTarget) error {
	orders := target.Database().Collection(ordersCollection)
	for _, field := range []string{"discountCode", "discountApplied"} {
		if _, err := orders.UpdateMany(ctx,
			bson.D{{Key: field, Value: bson.D{{Key: "$exists", Value: true}}}},
			bson.D{{Key: "$unset", Value: bson.D{{Key: field, Value: ""}}}}); err != nil {
			return err
		}
	}
	return nil
}

func (c inventoryChanges) createDiscountIndex(ctx context.Context, target *targets.MongoTarget) error {
	orders := target.Database().Collection(ordersCollection)
	exists, err := indexExists(ctx, orders, discountCodeIndex)
	if err != nil {
		return err
	}
	if exists {
		c.logger.InfoContext(ctx, "index already exists, skipping", slog.String("index", discountCodeIndex))
		return nil
	}
	_, err = orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "discountCode", Value: 1}},
		Options: options.Index().SetName(discountCodeIndex),
	})
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "created index", slog.String("index", discountCodeIndex))
	return nil
}

// dropDiscountIndex only logs failures; the index is an optimisation.
func (c inventoryChanges) dropDiscountIndex(ctx context.Context, target *targets.MongoTarget) error {
	orders := target.Database().Collection(ordersCollection)
	exists, err := indexExists(ctx, orders, discountCodeIndex)
	if err == nil && !exists {
		c.logger.InfoContext(ctx, "index does not exist, nothing to roll back", slog.String("index", discountCodeIndex))
		return nil
	}
	if err == nil {
		_, err = orders.Indexes().DropOne(ctx, discountCodeIndex)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "failed to drop index", slog.String("index", discountCodeIndex), slog.String("error", err.Error()))
	}
	return nil
}

func (c inventoryChanges) deprecateSchemaV1(ctx context.Context, target *KafkaTarget) error {
	latest, err := target.Dependency().LatestSchemaVersion(ctx, kafka.OrderCreatedSubject)
	if err != nil {
		return err
	}
	if latest <= 1 {
		c.logger.WarnContext(ctx, "no newer schema version found, skipping deprecation",
			slog.String("subject", kafka.OrderCreatedSubject))
		return nil
	}
	c.logger.InfoContext(ctx, "schema V1 marked for deprecation",
		slog.String("subject", kafka.OrderCreatedSubject),
		slog.Int("latest_version", latest),
		slog.String("compatibility", "BACKWARD"))
	return nil
}

func (c inventoryChanges) restoreSchemaV1(ctx context.Context, _ *KafkaTarget) error {
	c.logger.InfoContext(ctx, "schema V1 deprecation marker removed", slog.String("subject", kafka.OrderCreatedSubject))
	return nil
}

func indexExists(ctx context.Context, coll *mongo.Collection, name string) (bool, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return false, err
	}
	var specs []bson.M
	if err := cur.All(ctx, &specs); err != nil {
		return false, err
	}
	for _, spec := range specs {
		if spec["name"] == name {
			return true, nil
		}
	}
	return false, nil
}
