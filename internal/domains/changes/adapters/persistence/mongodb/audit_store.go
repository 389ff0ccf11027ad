package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
)

const AuditCollection = "changeAuditLog"

var _ ports.AuditStore = (*AuditStore)(nil)

type auditDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	ExecutionID     string             `bson:"executionId"`
	Stage           string             `bson:"stageId"`
	ChangeID        string             `bson:"changeId"`
	Author          string             `bson:"author"`
	State           string             `bson:"state"`
	TargetSystem    string             `bson:"targetSystemId"`
	Transactional   bool               `bson:"transactional"`
	CreatedAt       time.Time          `bson:"createdAt"`
	ExecutionMillis int64              `bson:"executionMillis"`
	ErrorTrace      string             `bson:"errorTrace,omitempty"`
	Hostname        string             `bson:"executionHostname,omitempty"`
}

// AuditStore persists the audit log in a MongoDB collection.
type AuditStore struct {
	coll *mongo.Collection
}

func NewAuditStore(db *mongo.Database) (*AuditStore, error) {
	if db == nil {
		return nil, errors.New("mongo database is nil")
	}
	return &AuditStore{coll: db.Collection(AuditCollection)}, nil
}

// EnsureIndexes creates the lookup index on changeId.
func (s *AuditStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "changeId", Value: 1}, {Key: "_id", Value: 1}},
	})
	return err
}

func (s *AuditStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	if _, err := s.coll.InsertOne(ctx, newAuditDocument(entry)); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// newAuditDocument assigns the _id up front; its counter keeps entries in
// append order even when createdAt comes from a skewed clock.
func newAuditDocument(entry domain.AuditEntry) auditDocument {
	doc := auditDocument{
		ID:              primitive.NewObjectID(),
		ExecutionID:     entry.ExecutionID,
		Stage:           entry.Stage,
		ChangeID:        entry.ChangeID,
		Author:          entry.Author,
		State:           string(entry.State),
		TargetSystem:    entry.TargetSystem,
		Transactional:   entry.Transactional,
		CreatedAt:       entry.CreatedAt,
		ExecutionMillis: entry.ExecutionMillis,
		ErrorTrace:      entry.ErrorTrace,
		Hostname:        entry.Hostname,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	return doc
}

func (s *AuditStore) History(ctx context.Context) ([]domain.AuditEntry, error) {
	docs, err := s.find(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AuditEntry, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDomain(doc))
	}
	return out, nil
}

func (s *AuditStore) LatestStates(ctx context.Context) (map[string]domain.State, error) {
	docs, err := s.find(ctx)
	if err != nil {
		return nil, err
	}
	states := make(map[string]domain.State, len(docs))
	for _, doc := range docs {
		states[doc.ChangeID] = domain.State(doc.State)
	}
	return states, nil
}

var appendOrder = bson.D{{Key: "_id", Value: 1}}

func (s *AuditStore) find(ctx context.Context) ([]auditDocument, error) {
	opts := options.Find().SetSort(appendOrder)
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit entries: %w", err)
	}
	var docs []auditDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode audit entries: %w", err)
	}
	return docs, nil
}

func toDomain(doc auditDocument) domain.AuditEntry {
	return domain.AuditEntry{
		ExecutionID:     doc.ExecutionID,
		Stage:           doc.Stage,
		ChangeID:        doc.ChangeID,
		Author:          doc.Author,
		State:           domain.State(doc.State),
		TargetSystem:    doc.TargetSystem,
		Transactional:   doc.Transactional,
		CreatedAt:       doc.CreatedAt,
		ExecutionMillis: doc.ExecutionMillis,
		ErrorTrace:      doc.ErrorTrace,
		Hostname:        doc.Hostname,
	}
}
