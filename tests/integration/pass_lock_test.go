//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/backend/internal/domain/reconciliation"
	"github.com/estatehub/backend/internal/infrastructure/cache"
)

func TestRedisPassLock(t *testing.T) {
	client := NewRedis(t)
	ctx := context.Background()

	// two processes sharing one Redis
	a := cache.NewRedisPassLock(client, time.Minute)
	b := cache.NewRedisPassLock(client, time.Minute)

	unlock, ok, err := a.TryLock(ctx, reconciliation.KindDaily)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.TryLock(ctx, reconciliation.KindDaily)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	_, ok, err = b.TryLock(ctx, reconciliation.KindMonthlyRevenue)
	require.NoError(t, err)
	assert.True(t, ok, "kinds lock independently")

	require.NoError(t, unlock(ctx))
	unlockB, ok, err := b.TryLock(ctx, reconciliation.KindDaily)
	require.NoError(t, err)
	assert.True(t, ok)

	// a stale release from the first holder leaves the new lock in place
	require.NoError(t, unlock(ctx))
	_, ok, err = a.TryLock(ctx, reconciliation.KindDaily)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, unlockB(ctx))
}

func TestRedisPassLock_Expires(t *testing.T) {
	client := NewRedis(t)
	ctx := context.Background()
	lock := cache.NewRedisPassLock(client, time.Second)

	_, ok, err := lock.TryLock(ctx, reconciliation.KindBacklog)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok, err := lock.TryLock(ctx, reconciliation.KindBacklog)
		return err == nil && ok
	}, 5*time.Second, 100*time.Millisecond)
}
