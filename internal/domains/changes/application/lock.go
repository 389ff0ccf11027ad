package application

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
)

// localLock guards a single process; ttl is ignored.
type localLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func newLocalLock() *localLock {
	return &localLock{held: map[string]bool{}}
}

func (l *localLock) Acquire(_ context.Context, key string, _ time.Duration) (ports.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
