package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
)

var _ ports.Lock = (*Lock)(nil)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single-instance Redis lease (SET NX PX).
type Lock struct {
	client goredis.UniversalClient
	prefix string
}

func NewLock(client goredis.UniversalClient, prefix string) (*Lock, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	return &Lock{client: client, prefix: prefix}, nil
}

func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) (ports.ReleaseFunc, error) {
	name := l.prefix + key
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, name, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{name}, token).Err()
	}, nil
}
