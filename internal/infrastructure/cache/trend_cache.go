package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/estatehub/backend/internal/domain/revenue"
	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const trendKeyPrefix = "revenue:trend:"

type cachedTrend struct {
	End    shared.Period        `json:"end"`
	Points []revenue.TrendPoint `json:"points"`
}

func trendKey(adminID uuid.UUID) string {
	return trendKeyPrefix + adminID.String()
}

func encodeTrend(end shared.Period, points []revenue.TrendPoint) ([]byte, error) {
	return json.Marshal(cachedTrend{End: end, Points: points})
}

// decodeTrend returns ok=false when data was built for a different month.
func decodeTrend(data []byte, end shared.Period) ([]revenue.TrendPoint, bool, error) {
	var ct cachedTrend
	if err := json.Unmarshal(data, &ct); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal trend: %w", err)
	}
	if ct.End != end || len(ct.Points) != revenue.TrendMonths {
		return nil, false, nil
	}
	return ct.Points, true, nil
}

// RistrettoTrendCache is the in-process L1 trend cache
type RistrettoTrendCache struct {
	c   *ristretto.Cache[string, []byte]
	ttl time.Duration
}

// NewRistrettoTrendCache creates an L1 cache bounded to maxCostBytes of
// encoded trends.
func NewRistrettoTrendCache(maxCostBytes int64, ttl time.Duration) (*RistrettoTrendCache, error) {
	if maxCostBytes <= 0 {
		maxCostBytes = 1 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoTrendCache{c: c, ttl: ttl}, nil
}

// Get returns the cached trend for adminID ending at end
func (c *RistrettoTrendCache) Get(_ context.Context, adminID uuid.UUID, end shared.Period) ([]revenue.TrendPoint, bool, error) {
	data, found := c.c.Get(trendKey(adminID))
	if !found {
		return nil, false, nil
	}
	return decodeTrend(data, end)
}

// Set stores points for adminID
func (c *RistrettoTrendCache) Set(_ context.Context, adminID uuid.UUID, end shared.Period, points []revenue.TrendPoint) error {
	data, err := encodeTrend(end, points)
	if err != nil {
		return err
	}
	c.c.SetWithTTL(trendKey(adminID), data, int64(len(data)), c.ttl)
	c.c.Wait()
	return nil
}

// Invalidate drops the trend for adminID
func (c *RistrettoTrendCache) Invalidate(_ context.Context, adminID uuid.UUID) error {
	c.c.Del(trendKey(adminID))
	return nil
}

// Close releases the cache's goroutines
func (c *RistrettoTrendCache) Close() {
	c.c.Close()
}

// RedisTrendCache is the shared L2 trend cache
type RedisTrendCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisTrendCache creates an L2 cache on an existing client. The caller
// keeps ownership of client.
func NewRedisTrendCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisTrendCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisTrendCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached trend for adminID ending at end
func (c *RedisTrendCache) Get(ctx context.Context, adminID uuid.UUID, end shared.Period) ([]revenue.TrendPoint, bool, error) {
	key := trendKey(adminID)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get trend from cache: %w", err)
	}
	points, ok, err := decodeTrend(data, end)
	if err != nil {
		// corrupted entry
		_ = c.client.Del(ctx, key)
		return nil, false, err
	}
	return points, ok, nil
}

// Set stores points for adminID
func (c *RedisTrendCache) Set(ctx context.Context, adminID uuid.UUID, end shared.Period, points []revenue.TrendPoint) error {
	data, err := encodeTrend(end, points)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, trendKey(adminID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set trend in cache: %w", err)
	}
	return nil
}

// Invalidate drops the trend for adminID
func (c *RedisTrendCache) Invalidate(ctx context.Context, adminID uuid.UUID) error {
	if err := c.client.Del(ctx, trendKey(adminID)).Err(); err != nil {
		return fmt.Errorf("failed to delete trend from cache: %w", err)
	}
	return nil
}

// TieredTrendCache reads L1 then L2 and writes both. l2 may be nil.
type TieredTrendCache struct {
	l1     *RistrettoTrendCache
	l2     *RedisTrendCache
	logger *zap.Logger

	l1Hits int64
	l2Hits int64
	misses int64
}

// NewTieredTrendCache creates a two-level trend cache
func NewTieredTrendCache(l1 *RistrettoTrendCache, l2 *RedisTrendCache, logger *zap.Logger) *TieredTrendCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredTrendCache{l1: l1, l2: l2, logger: logger}
}

// Get tries L1, then L2, back-filling L1 on an L2 hit
func (c *TieredTrendCache) Get(ctx context.Context, adminID uuid.UUID, end shared.Period) ([]revenue.TrendPoint, bool, error) {
	points, ok, err := c.l1.Get(ctx, adminID, end)
	if err != nil {
		c.logger.Warn("L1 trend cache error", zap.String("admin_id", adminID.String()), zap.Error(err))
	}
	if ok {
		atomic.AddInt64(&c.l1Hits, 1)
		return points, true, nil
	}
	if c.l2 == nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, false, nil
	}

	points, ok, err = c.l2.Get(ctx, adminID, end)
	if err != nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, false, err
	}
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false, nil
	}
	atomic.AddInt64(&c.l2Hits, 1)
	if err := c.l1.Set(ctx, adminID, end, points); err != nil {
		c.logger.Warn("Failed to back-fill L1 trend cache", zap.Error(err))
	}
	return points, true, nil
}

// Set writes both levels
func (c *TieredTrendCache) Set(ctx context.Context, adminID uuid.UUID, end shared.Period, points []revenue.TrendPoint) error {
	if err := c.l1.Set(ctx, adminID, end, points); err != nil {
		return err
	}
	if c.l2 != nil {
		return c.l2.Set(ctx, adminID, end, points)
	}
	return nil
}

// Invalidate drops both levels
func (c *TieredTrendCache) Invalidate(ctx context.Context, adminID uuid.UUID) error {
	_ = c.l1.Invalidate(ctx, adminID)
	if c.l2 != nil {
		return c.l2.Invalidate(ctx, adminID)
	}
	return nil
}

// Stats returns hit and miss counters
func (c *TieredTrendCache) Stats() (l1Hits, l2Hits, misses int64) {
	return atomic.LoadInt64(&c.l1Hits), atomic.LoadInt64(&c.l2Hits), atomic.LoadInt64(&c.misses)
}
