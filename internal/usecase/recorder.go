package usecase

import (
	"context"
	"fmt"
	"time"

	"FundPilot/internal/domain/models"
	drepo "FundPilot/internal/domain/repository"
)

// DecisionRecorder routes decision records to the configured audit backend.
// It implements middleware.Writer, so it normally sits behind the buffered
// audit sink rather than being called inline.
type DecisionRecorder struct {
	pub     drepo.DecisionPublisher
	store   drepo.DecisionStore
	metrics drepo.Metrics
	backend string
}

// NewDecisionRecorder creates a recorder for the given backend
// ("kafka" or "clickhouse").
func NewDecisionRecorder(pub drepo.DecisionPublisher, store drepo.DecisionStore, metrics drepo.Metrics, backend string) *DecisionRecorder {
	return &DecisionRecorder{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Write persists a single decision record to the configured backend.
func (r *DecisionRecorder) Write(ctx context.Context, rec *models.DecisionRecord) error {
	if rec == nil {
		return fmt.Errorf("decision record is nil")
	}

	start := time.Now()
	var err error
	switch r.backend {
	case "kafka":
		err = r.pub.Publish(ctx, rec)
	case "clickhouse":
		err = r.store.Store(ctx, rec)
	default:
		err = fmt.Errorf("unknown audit backend: %s", r.backend)
	}

	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("audit_write")
		}
		return fmt.Errorf("record decision: %w", err)
	}
	if r.metrics != nil {
		r.metrics.RecordLatency("audit_write", time.Since(start).Seconds())
	}
	return nil
}

// WriteBatch persists multiple decision records.
func (r *DecisionRecorder) WriteBatch(ctx context.Context, recs []*models.DecisionRecord) error {
	if len(recs) == 0 {
		return nil
	}

	var err error
	switch r.backend {
	case "kafka":
		err = r.pub.PublishBatch(ctx, recs)
	case "clickhouse":
		err = r.store.StoreBatch(ctx, recs)
	default:
		err = fmt.Errorf("unknown audit backend: %s", r.backend)
	}
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("audit_write_batch")
		}
		return fmt.Errorf("record decisions: %w", err)
	}
	return nil
}

// Close closes whichever backend resources exist.
func (r *DecisionRecorder) Close() error {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
	return nil
}
