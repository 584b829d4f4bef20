package repository

import (
	"context"
	"time"

	"AlphaWalk/internal/domain/models"
)

// PriceStore fetches historical daily bars for a universe. Implementations
// must return ErrDataInsufficiency-wrapped errors on empty results so the
// caller can classify the failure.
type PriceStore interface {
	Fetch(ctx context.Context, tickers []string, start, end time.Time) (*models.PricePanel, error)
	Health(ctx context.Context) error
	Close() error
}

// EventPublisher sinks rebalance audit records and run summaries. Optional;
// a nil publisher disables event emission.
type EventPublisher interface {
	PublishRebalance(ctx context.Context, runID string, rec models.RebalanceRecord) error
	PublishRunSummary(ctx context.Context, runID string, summary models.SummaryMetrics) error
	Close() error
}

// Metrics records operational counters for runs and rebalances.
type Metrics interface {
	RecordRunStarted(kind string)
	RecordRunCompleted(kind string, seconds float64)
	RecordRunFailed(kind string)
	RecordRebalance(kind string)
	RecordRebalanceSkipped(kind, reason string)
	RecordMeanIC(ic float64)
}
