package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FundPilot/internal/domain/models"
	drepo "FundPilot/internal/domain/repository"
	"FundPilot/pkg/logger"
)

// KafkaDecisionsHandler consumes decision records from the decisions topic
// and writes them to long-term storage. It pairs with the kafka audit
// backend so that the HTTP path stays fast while persistence happens here.
type KafkaDecisionsHandler struct {
	topic   string
	store   drepo.DecisionStore
	metrics drepo.Metrics
	logger  *logger.Logger
}

func NewKafkaDecisionsHandler(topic string, store drepo.DecisionStore, metrics drepo.Metrics, lgr *logger.Logger) *KafkaDecisionsHandler {
	return &KafkaDecisionsHandler{
		topic:   topic,
		store:   store,
		metrics: metrics,
		logger:  lgr,
	}
}

// Topic returns the topic this handler subscribes to.
func (h *KafkaDecisionsHandler) Topic() string {
	return h.topic
}

// Handle unmarshals a decision record and stores it.
func (h *KafkaDecisionsHandler) Handle(ctx context.Context, value []byte) error {
	var rec models.DecisionRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		if h.metrics != nil {
			h.metrics.RecordError("decisions_decode")
		}
		return fmt.Errorf("decode decision record: %w", err)
	}
	if rec.Ticker == "" {
		return fmt.Errorf("decision record missing ticker")
	}

	start := time.Now()
	if err := h.store.Store(ctx, &rec); err != nil {
		if h.metrics != nil {
			h.metrics.RecordError("decisions_store")
		}
		return fmt.Errorf("store decision record: %w", err)
	}
	if h.metrics != nil {
		h.metrics.RecordLatency("decisions_store", time.Since(start).Seconds())
	}

	h.logger.Debug("stored decision record",
		logger.String("ticker", rec.Ticker),
		logger.String("action", rec.Action),
	)
	return nil
}
