package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Apurer/inventory-orders-service/internal/domains/orders/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/orders/ports"
)

// Collection holds the orders inside the inventory database.
const Collection = "orders"

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders in MongoDB.
type Repository struct {
	coll *mongo.Collection
}

// NewRepository wires a MongoDB-backed repository. Caller manages client lifecycle.
func NewRepository(db *mongo.Database) *Repository {
	repo := &Repository{}
	if db != nil {
		repo.coll = db.Collection(Collection)
	}
	return repo
}

type itemDocument struct {
	ProductID string  `bson:"productId"`
	Quantity  int32   `bson:"quantity"`
	Price     float64 `bson:"price"`
}

// orderDocument mirrors the documents written by the inventory change set;
// older documents may lack the discount fields.
type orderDocument struct {
	OrderID         string         `bson:"orderId"`
	CustomerID      string         `bson:"customerId"`
	Items           []itemDocument `bson:"items"`
	Total           float64        `bson:"total"`
	Status          string         `bson:"status"`
	CreatedAt       string         `bson:"createdAt"`
	DiscountCode    string         `bson:"discountCode,omitempty"`
	DiscountApplied *bool          `bson:"discountApplied,omitempty"`
}

// EnsureIndexes makes orderId unique.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	if err := r.ensureColl(); err != nil {
		return err
	}
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "orderId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("orderId_1"),
	})
	return err
}

func (r *Repository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureColl(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	count, err := r.coll.CountDocuments(ctx, bson.D{{Key: "orderId", Value: order.ID}}, options.Count().SetLimit(1))
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ports.ErrAlreadyExists
	}
	if _, err := r.coll.InsertOne(ctx, toDocument(order)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ports.ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	return r.GetByID(ctx, order.ID)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := r.ensureColl(); err != nil {
		return nil, err
	}
	var doc orderDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "orderId", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *Repository) List(ctx context.Context) ([]*domain.Order, error) {
	if err := r.ensureColl(); err != nil {
		return nil, err
	}
	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	var docs []orderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(docs))
	for i := range docs {
		orders = append(orders, docs[i].toDomain())
	}
	return orders, nil
}

func (r *Repository) ensureColl() error {
	if r == nil || r.coll == nil {
		return errors.New("mongodb order repository not configured")
	}
	return nil
}

func toDocument(order *domain.Order) orderDocument {
	items := make([]itemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, itemDocument{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}
	applied := order.DiscountApplied
	return orderDocument{
		OrderID:         order.ID,
		CustomerID:      order.CustomerID,
		Items:           items,
		Total:           order.Total,
		Status:          order.Status,
		CreatedAt:       order.CreatedAt.UTC().Format(time.RFC3339Nano),
		DiscountCode:    string(order.DiscountCode),
		DiscountApplied: &applied,
	}
}

func (d orderDocument) toDomain() *domain.Order {
	items := make([]domain.Item, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.Item{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}
	order := &domain.Order{
		ID:           d.OrderID,
		CustomerID:   d.CustomerID,
		Items:        items,
		Total:        d.Total,
		Status:       d.Status,
		CreatedAt:    parseCreatedAt(d.CreatedAt),
		DiscountCode: domain.DiscountCode(d.DiscountCode),
	}
	if d.DiscountApplied != nil {
		order.DiscountApplied = *d.DiscountApplied
	}
	return order
}

// parseCreatedAt accepts RFC 3339 and zone-less ISO local timestamps.
func parseCreatedAt(raw string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
