package adapters

import (
	"context"
	"testing"

	"shipledger/internal/core/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatsRepo(t *testing.T) (*RedisStatsRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	adapter, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	return NewRedisStatsRepository(adapter), mr
}

// TestRedisStatsRepository_EmptyReadsZero verifies missing counters read as
// zero rather than erroring.
func TestRedisStatsRepository_EmptyReadsZero(t *testing.T) {
	repo, _ := newStatsRepo(t)

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.Shipments)
	assert.Equal(t, int64(0), stats.Delivered)
	assert.True(t, stats.TotalValue.Equal(decimal.Zero))
}

// TestRedisStatsRepository_RecordCreated verifies the shipment count and
// running value total accumulate.
func TestRedisStatsRepository_RecordCreated(t *testing.T) {
	repo, _ := newStatsRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.RecordCreated(ctx, decimal.NewFromFloat(0.5)))
	require.NoError(t, repo.RecordCreated(ctx, decimal.NewFromFloat(1.25)))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Shipments)
	assert.True(t, stats.TotalValue.Equal(decimal.NewFromFloat(1.75)), "got %s", stats.TotalValue)
}

// TestRedisStatsRepository_RecordDelivered verifies the delivered counter
// accumulates independently.
func TestRedisStatsRepository_RecordDelivered(t *testing.T) {
	repo, _ := newStatsRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.RecordDelivered(ctx))
	require.NoError(t, repo.RecordDelivered(ctx))
	require.NoError(t, repo.RecordDelivered(ctx))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Delivered)
	assert.Equal(t, int64(0), stats.Shipments)
}

// TestRedisStatsRepository_CorruptCounter verifies a non-numeric counter
// surfaces as an error instead of a silent zero.
func TestRedisStatsRepository_CorruptCounter(t *testing.T) {
	repo, mr := newStatsRepo(t)
	mr.Set(statsShipmentsKey, "not-a-number")

	_, err := repo.Stats(context.Background())
	assert.Error(t, err)
}
