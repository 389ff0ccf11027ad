package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
)

func TestLock_HeldUntilReleased(t *testing.T) {
	ctx := context.Background()
	lock := NewLock()

	release, err := lock.Acquire(ctx, "runner", time.Minute)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, "runner", time.Minute)
	require.ErrorIs(t, err, domain.ErrLockHeld)

	require.NoError(t, release(ctx))
	release, err = lock.Acquire(ctx, "runner", time.Minute)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestLock_ExpiredLeaseIsTakenOver(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lock := NewLock().WithClock(func() time.Time { return now })

	stale, err := lock.Acquire(ctx, "runner", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := lock.Acquire(ctx, "runner", time.Minute)
	require.NoError(t, err)

	// the stale owner must not release the new lease
	require.NoError(t, stale(ctx))
	_, err = lock.Acquire(ctx, "runner", time.Minute)
	require.ErrorIs(t, err, domain.ErrLockHeld)
	require.NoError(t, fresh(ctx))
}

func TestAuditStore_LatestStateWins(t *testing.T) {
	ctx := context.Background()
	store := NewAuditStore()
	require.NoError(t, store.Append(ctx, domain.AuditEntry{ChangeID: "a", State: domain.StateStarted}))
	require.NoError(t, store.Append(ctx, domain.AuditEntry{ChangeID: "a", State: domain.StateApplied}))
	require.NoError(t, store.Append(ctx, domain.AuditEntry{ChangeID: "b", State: domain.StateFailed}))
	require.Error(t, store.Append(ctx, domain.AuditEntry{ChangeID: "c", State: "BOGUS"}))

	states, err := store.LatestStates(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]domain.State{"a": domain.StateApplied, "b": domain.StateFailed}, states)

	history, err := store.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
}
