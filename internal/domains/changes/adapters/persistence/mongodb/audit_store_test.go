package mongodb

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
)

func TestAuditStore_OrdersByIDOnly(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, appendOrder)
}

func TestNewAuditDocument_IDsFollowAppendOrder(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	first := newAuditDocument(domain.AuditEntry{ChangeID: "a", State: domain.StateStarted, CreatedAt: base})
	second := newAuditDocument(domain.AuditEntry{ChangeID: "a", State: domain.StateApplied, CreatedAt: base.Add(-time.Minute)})

	require.False(t, first.ID.IsZero())
	require.Negative(t, bytes.Compare(first.ID[:], second.ID[:]))
	assert.Equal(t, base.Add(-time.Minute), second.CreatedAt)
}

func TestNewAuditDocument_StampsMissingCreatedAt(t *testing.T) {
	doc := newAuditDocument(domain.AuditEntry{ChangeID: "a", State: domain.StateStarted})
	assert.False(t, doc.CreatedAt.IsZero())
	assert.Equal(t, "STARTED", doc.State)
}
