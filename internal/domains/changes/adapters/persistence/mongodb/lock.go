package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
)

const LockCollection = "changeLock"

var _ ports.Lock = (*Lock)(nil)

// Lock stores one document per key. An expired document can be taken over;
// a live one makes the upsert collide on _id.
type Lock struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewLock(db *mongo.Database) (*Lock, error) {
	if db == nil {
		return nil, errors.New("mongo database is nil")
	}
	return &Lock{coll: db.Collection(LockCollection), now: time.Now}, nil
}

func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) (ports.ReleaseFunc, error) {
	owner := uuid.NewString()
	now := l.now().UTC()
	filter := bson.D{
		{Key: "_id", Value: key},
		{Key: "expiresAt", Value: bson.D{{Key: "$lt", Value: now}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "owner", Value: owner},
		{Key: "acquiredAt", Value: now},
		{Key: "expiresAt", Value: now.Add(ttl)},
	}}}
	_, err := l.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrLockHeld
		}
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		_, err := l.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}, {Key: "owner", Value: owner}})
		return err
	}, nil
}
