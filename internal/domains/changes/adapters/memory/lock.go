package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
)

var _ ports.Lock = (*Lock)(nil)

type lease struct {
	owner   string
	expires time.Time
}

// Lock is an expiring in-process lock.
type Lock struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

func NewLock() *Lock {
	return &Lock{leases: map[string]lease{}, now: time.Now}
}

// WithClock swaps the time source; used by tests to expire leases.
func (l *Lock) WithClock(now func() time.Time) *Lock {
	l.now = now
	return l
}

func (l *Lock) Acquire(_ context.Context, key string, ttl time.Duration) (ports.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if current, ok := l.leases[key]; ok && now.Before(current.expires) {
		return nil, domain.ErrLockHeld
	}
	owner := uuid.NewString()
	l.leases[key] = lease{owner: owner, expires: now.Add(ttl)}
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if current, ok := l.leases[key]; ok && current.owner == owner {
			delete(l.leases, key)
		}
		return nil
	}, nil
}
