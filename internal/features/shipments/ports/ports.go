package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// Stats holds the aggregate display counters for the dashboard. The cache
// backing them is best effort and never authoritative.
type Stats struct {
	// Shipments is the number of shipments confirmed on the ledger.
	Shipments int64 `json:"shipments"`
	// Delivered is the number of shipments reconciled as DELIVERED.
	Delivered int64 `json:"delivered"`
	// TotalValue is the sum of confirmed shipment values in the ledger's
	// base currency unit.
	TotalValue decimal.Decimal `json:"total_value"`
}

// StatsRepository maintains the aggregate counters. Implementations may
// discard and rebuild the counters at any time without correctness impact.
type StatsRepository interface {
	// RecordCreated bumps the shipment count and total value.
	RecordCreated(ctx context.Context, value decimal.Decimal) error
	// RecordDelivered bumps the delivered count.
	RecordDelivered(ctx context.Context) error
	// Stats returns the current counters.
	Stats(ctx context.Context) (*Stats, error)
}
