package repository

import (
	"context"
	"time"

	"FundPilot/internal/domain/models"
)

// MarketData serves historical daily bars for a ticker.
type MarketData interface {
	DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error)
}

// FundamentalsSource serves fundamental metrics snapshots.
type FundamentalsSource interface {
	FinancialMetrics(ctx context.Context, ticker string, asOf time.Time) (*models.FinancialMetrics, error)
}

// InsiderSource serves reported insider transactions.
type InsiderSource interface {
	InsiderTrades(ctx context.Context, ticker string, start, end time.Time) ([]models.InsiderTrade, error)
}

// DecisionStore persists completed decision records for querying.
type DecisionStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, rec *models.DecisionRecord) error
	StoreBatch(ctx context.Context, recs []*models.DecisionRecord) error
	Query(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.DecisionRecord, error)
	Health(ctx context.Context) error
	Close() error
}

// DecisionPublisher emits decision records to a message broker.
type DecisionPublisher interface {
	Publish(ctx context.Context, rec *models.DecisionRecord) error
	PublishBatch(ctx context.Context, recs []*models.DecisionRecord) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordAnalystRun(analyst, outcome string)
	RecordDecision(action, ticker string)
	RecordError(kind string)
	RecordLastClose(ticker string, price float64)
	RecordLatency(op string, seconds float64)
}
