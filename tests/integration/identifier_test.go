//go:build integration

package integration

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	identifierapp "github.com/estatehub/backend/internal/application/identifier"
	"github.com/estatehub/backend/internal/domain/identifier"
	"github.com/estatehub/backend/internal/infrastructure/persistence"
	"github.com/estatehub/backend/internal/infrastructure/persistence/models"
)

func TestIdentifierRegistry_ConcurrentIssue(t *testing.T) {
	tdb := NewTestDB(t)
	svc := identifierapp.NewService(
		persistence.NewGormIdentifierRepository(tdb.DB),
		persistence.NewGormLegacyReader(tdb.DB),
		zap.NewNop(),
		identifierapp.ServiceConfig{MaxRetries: 50},
	)
	ctx := context.Background()

	const workers = 20
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		values = make(map[string]struct{}, workers)
		errs   []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := svc.Issue(ctx, identifier.EntityBooking, "BK")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			values[v] = struct{}{}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, values, workers, "every issued value is distinct")
	for v := range values {
		assert.True(t, strings.HasPrefix(v, "BK"), v)
	}
	assert.EqualValues(t, workers, tdb.Count(t, "identifier_records"))
}

func TestIdentifierRegistry_RegisterLegacyIsIdempotent(t *testing.T) {
	tdb := NewTestDB(t)
	svc := identifierapp.NewService(
		persistence.NewGormIdentifierRepository(tdb.DB),
		persistence.NewGormLegacyReader(tdb.DB),
		zap.NewNop(),
		identifierapp.DefaultServiceConfig(),
	)
	ctx := context.Background()

	landlord := &models.LandlordModel{Name: "Owner", Email: "owner@example.com", Active: true}
	landlord.ID = uuid.New()
	require.NoError(t, tdb.DB.Create(landlord).Error)
	for _, code := range []string{"LS0001", "LS0002"} {
		l := &models.ListingModel{Code: code, LandlordID: landlord.ID, Title: code, Status: "Vacant"}
		l.ID = uuid.New()
		require.NoError(t, tdb.DB.Create(l).Error)
	}
	sources := []identifier.LegacySource{{EntityType: identifier.EntityListing}}

	first, err := svc.RegisterLegacy(ctx, sources)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Registered)

	second, err := svc.RegisterLegacy(ctx, sources)
	require.NoError(t, err)
	assert.Zero(t, second.Registered)
	assert.Equal(t, 2, second.Skipped)

	// the registry continues after the highest legacy value
	next, err := svc.Issue(ctx, identifier.EntityListing, "LS")
	require.NoError(t, err)
	assert.Equal(t, "LS0003", next)
}
