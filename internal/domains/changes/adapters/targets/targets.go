// Package targets provides the systems changes are applied to.
package targets

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
)

var (
	_ domain.TransactionalTarget = (*MongoTarget)(nil)
	_ domain.TransactionalTarget = (*SQLTarget)(nil)
)

// MongoTarget runs changes against one database, inside a client session
// transaction when the change is transactional. Transactions need a replica
// set.
type MongoTarget struct {
	id     string
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoTarget(id string, client *mongo.Client, database string) (*MongoTarget, error) {
	if client == nil {
		return nil, errors.New("mongo client is nil")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	return &MongoTarget{id: id, client: client, db: client.Database(database)}, nil
}

func (t *MongoTarget) ID() string { return t.id }

// Database is the handle changes operate on. Pass the context received by
// the change so operations join the session.
func (t *MongoTarget) Database() *mongo.Database { return t.db }

func (t *MongoTarget) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

type txKey struct{}

// SQLTarget runs changes through gorm.
type SQLTarget struct {
	id string
	db *gorm.DB
}

func NewSQLTarget(id string, db *gorm.DB) (*SQLTarget, error) {
	if db == nil {
		return nil, errors.New("gorm db is nil")
	}
	return &SQLTarget{id: id, db: db}, nil
}

func (t *SQLTarget) ID() string { return t.id }

// DB returns the transaction bound to ctx, or the base handle outside one.
func (t *SQLTarget) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return t.db.WithContext(ctx)
}

func (t *SQLTarget) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// NonTransactional wraps a client for a system with no atomic writes.
// Failures there are compensated by the change rollback.
type NonTransactional[T any] struct {
	id  string
	dep T
}

func NewNonTransactional[T any](id string, dep T) *NonTransactional[T] {
	return &NonTransactional[T]{id: id, dep: dep}
}

func (t *NonTransactional[T]) ID() string { return t.id }

func (t *NonTransactional[T]) Dependency() T { return t.dep }
