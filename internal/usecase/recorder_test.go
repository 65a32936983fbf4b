package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"FundPilot/internal/domain/models"
)

type fakePublisher struct {
	published []*models.DecisionRecord
	err       error
	closed    bool
}

func (f *fakePublisher) Publish(ctx context.Context, rec *models.DecisionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, rec)
	return nil
}

func (f *fakePublisher) PublishBatch(ctx context.Context, recs []*models.DecisionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, recs...)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

type fakeStore struct {
	stored []*models.DecisionRecord
	err    error
	closed bool
}

func (f *fakeStore) Init(ctx context.Context) error { return nil }

func (f *fakeStore) Store(ctx context.Context, rec *models.DecisionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, rec)
	return nil
}

func (f *fakeStore) StoreBatch(ctx context.Context, recs []*models.DecisionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, recs...)
	return nil
}

func (f *fakeStore) Query(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.DecisionRecord, error) {
	return f.stored, nil
}

func (f *fakeStore) Health(ctx context.Context) error { return nil }

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func sampleRecord() *models.DecisionRecord {
	return &models.DecisionRecord{
		RunID:      "run-1",
		Ticker:     "AAPL",
		Action:     models.ActionBuy,
		Quantity:   25,
		Confidence: 82.5,
		StartDate:  "2025-01-02",
		EndDate:    "2025-04-02",
		CreatedAt:  time.Now(),
	}
}

func TestDecisionRecorderKafkaBackend(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStore{}
	rec := NewDecisionRecorder(pub, store, nil, "kafka")

	if err := rec.Write(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected publish, got %d", len(pub.published))
	}
	if len(store.stored) != 0 {
		t.Fatalf("clickhouse store should be untouched")
	}
}

func TestDecisionRecorderClickHouseBackend(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStore{}
	rec := NewDecisionRecorder(pub, store, nil, "clickhouse")

	if err := rec.Write(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.stored) != 1 {
		t.Fatalf("expected store, got %d", len(store.stored))
	}
	if len(pub.published) != 0 {
		t.Fatalf("kafka publisher should be untouched")
	}
}

func TestDecisionRecorderUnknownBackend(t *testing.T) {
	rec := NewDecisionRecorder(&fakePublisher{}, &fakeStore{}, nil, "postgres")
	if err := rec.Write(context.Background(), sampleRecord()); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestDecisionRecorderPropagatesBackendError(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("connection refused")}
	rec := NewDecisionRecorder(&fakePublisher{}, store, nil, "clickhouse")
	if err := rec.Write(context.Background(), sampleRecord()); err == nil {
		t.Fatalf("expected backend error to surface")
	}
}

func TestDecisionRecorderClose(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStore{}
	rec := NewDecisionRecorder(pub, store, nil, "kafka")
	if err := rec.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pub.closed || !store.closed {
		t.Fatalf("expected both backends closed")
	}
}

func TestKafkaDecisionsHandlerStoresRecord(t *testing.T) {
	store := &fakeStore{}
	h := NewKafkaDecisionsHandler("fundpilot.decisions", store, nil, testLogger(t))

	if h.Topic() != "fundpilot.decisions" {
		t.Fatalf("unexpected topic %q", h.Topic())
	}

	payload, err := json.Marshal(sampleRecord())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.stored) != 1 || store.stored[0].Ticker != "AAPL" {
		t.Fatalf("record not stored: %+v", store.stored)
	}
}

func TestKafkaDecisionsHandlerRejectsGarbage(t *testing.T) {
	h := NewKafkaDecisionsHandler("fundpilot.decisions", &fakeStore{}, nil, testLogger(t))
	if err := h.Handle(context.Background(), []byte("not json")); err == nil {
		t.Fatalf("expected decode error")
	}
	if err := h.Handle(context.Background(), []byte("{}")); err == nil {
		t.Fatalf("expected missing ticker error")
	}
}
