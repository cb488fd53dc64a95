package adapters

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"shipledger/internal/core/cache"
	"shipledger/internal/features/shipments/ports"

	"github.com/shopspring/decimal"
)

const (
	statsShipmentsKey  = "stats:shipments"
	statsDeliveredKey  = "stats:delivered"
	statsTotalValueKey = "stats:total_value"
)

// RedisStatsRepository implements ports.StatsRepository on the cache port.
// The counters are display-only and may be wiped at any time; reconciliation
// rebuilds them as confirmations and events arrive.
type RedisStatsRepository struct {
	cache cache.Cache
}

// NewRedisStatsRepository creates a new RedisStatsRepository.
func NewRedisStatsRepository(c cache.Cache) *RedisStatsRepository {
	return &RedisStatsRepository{
		cache: c,
	}
}

// RecordCreated bumps the shipment count and adds the shipment value to the
// running total.
func (r *RedisStatsRepository) RecordCreated(ctx context.Context, value decimal.Decimal) error {
	if _, err := r.cache.IncrBy(ctx, statsShipmentsKey, 1); err != nil {
		return fmt.Errorf("failed to bump shipment count: %w", err)
	}

	v, _ := value.Float64()
	if _, err := r.cache.IncrByFloat(ctx, statsTotalValueKey, v); err != nil {
		return fmt.Errorf("failed to bump total value: %w", err)
	}

	return nil
}

// RecordDelivered bumps the delivered count.
func (r *RedisStatsRepository) RecordDelivered(ctx context.Context) error {
	if _, err := r.cache.IncrBy(ctx, statsDeliveredKey, 1); err != nil {
		return fmt.Errorf("failed to bump delivered count: %w", err)
	}
	return nil
}

// Stats returns the current counters. Missing keys read as zero.
func (r *RedisStatsRepository) Stats(ctx context.Context) (*ports.Stats, error) {
	shipments, err := r.readInt(ctx, statsShipmentsKey)
	if err != nil {
		return nil, err
	}

	delivered, err := r.readInt(ctx, statsDeliveredKey)
	if err != nil {
		return nil, err
	}

	totalValue, err := r.readDecimal(ctx, statsTotalValueKey)
	if err != nil {
		return nil, err
	}

	return &ports.Stats{
		Shipments:  shipments,
		Delivered:  delivered,
		TotalValue: totalValue,
	}, nil
}

func (r *RedisStatsRepository) readInt(ctx context.Context, key string) (int64, error) {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		if isNotFound(err, key) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s holds non-integer value: %w", key, err)
	}
	return n, nil
}

func (r *RedisStatsRepository) readDecimal(ctx context.Context, key string) (decimal.Decimal, error) {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		if isNotFound(err, key) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to read counter %s: %w", key, err)
	}

	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return decimal.Zero, fmt.Errorf("counter %s holds non-numeric value: %w", key, err)
	}
	return d, nil
}

// isNotFound matches the cache adapter's missing-key error.
func isNotFound(err error, key string) bool {
	return strings.Contains(err.Error(), fmt.Sprintf("key not found: %s", key))
}
