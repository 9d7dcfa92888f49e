package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/estatehub/backend/internal/domain/reconciliation"
	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormRunRepository(newTestDB(t))

	_, err := repo.Latest(ctx, reconciliation.KindDaily)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	run := reconciliation.NewRun(reconciliation.KindDaily, reconciliation.TriggerCron)
	now := time.Now()
	require.NoError(t, run.Start(now))
	require.NoError(t, repo.Create(ctx, run))

	errs := []reconciliation.ItemError{{Entity: "lease", ID: "L-0001", Error: "invalid date"}}
	require.NoError(t, run.Finish(4, errs, now.Add(time.Second)))
	require.NoError(t, repo.Update(ctx, run))

	latest, err := repo.Latest(ctx, reconciliation.KindDaily)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, reconciliation.StatePartiallyFailed, latest.State)
	assert.Equal(t, 4, latest.Succeeded)
	require.Len(t, latest.Errors, 1)
	assert.Equal(t, "L-0001", latest.Errors[0].ID)

	recent, err := repo.ListRecent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
