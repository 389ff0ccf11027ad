package ports

import (
	"context"
	"time"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
)

// AuditStore persists the append-only change audit log.
type AuditStore interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	History(ctx context.Context) ([]domain.AuditEntry, error)
	// LatestStates returns the most recent state recorded per change id.
	LatestStates(ctx context.Context) (map[string]domain.State, error)
}

// ReleaseFunc gives a held lock back.
type ReleaseFunc func(ctx context.Context) error

// Lock guarantees a single runner at a time. Acquire returns
// domain.ErrLockHeld when another owner holds an unexpired lock.
type Lock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}
