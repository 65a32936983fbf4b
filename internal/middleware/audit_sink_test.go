package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"FundPilot/internal/domain/models"
	"FundPilot/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lgr
}

type captureWriter struct {
	mu      sync.Mutex
	recs    []*models.DecisionRecord
	failFor int
}

func (w *captureWriter) Write(ctx context.Context, rec *models.DecisionRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failFor > 0 {
		w.failFor--
		return fmt.Errorf("backend unavailable")
	}
	w.recs = append(w.recs, rec)
	return nil
}

func (w *captureWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.recs)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestAuditSinkFlushes(t *testing.T) {
	w := &captureWriter{}
	sink := NewAuditSink(w, nil, testLogger(t))
	sink.Start()
	defer sink.Stop()

	sink.Record(&models.DecisionRecord{RunID: "1", Ticker: "AAPL", Action: models.ActionBuy})
	sink.Record(&models.DecisionRecord{RunID: "2", Ticker: "MSFT", Action: models.ActionHold})

	waitFor(t, func() bool { return w.count() == 2 })
}

func TestAuditSinkRetriesAfterFailure(t *testing.T) {
	w := &captureWriter{failFor: 2}
	sink := NewAuditSink(w, nil, testLogger(t), WithWriteTimeout(time.Second))
	sink.Start()
	defer sink.Stop()

	sink.Record(&models.DecisionRecord{RunID: "1", Ticker: "AAPL", Action: models.ActionBuy})

	waitFor(t, func() bool { return w.count() == 1 })
}

func TestAuditSinkDropsWhenFull(t *testing.T) {
	w := &captureWriter{}
	// sink never started, so the buffer is never drained
	sink := NewAuditSink(w, nil, testLogger(t), WithBufferSize(1))

	sink.Record(&models.DecisionRecord{RunID: "1", Ticker: "AAPL"})
	sink.Record(&models.DecisionRecord{RunID: "2", Ticker: "MSFT"}) // dropped, must not block

	if got := w.count(); got != 0 {
		t.Fatalf("nothing should be flushed yet, got %d", got)
	}
}

type failingWriter struct {
	mu       sync.Mutex
	attempts int
}

func (w *failingWriter) Write(ctx context.Context, rec *models.DecisionRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts++
	return fmt.Errorf("backend unavailable")
}

func (w *failingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts
}

func TestAuditSinkStopDuringBackoff(t *testing.T) {
	w := &failingWriter{}
	sink := NewAuditSink(w, nil, testLogger(t))
	sink.Start()

	sink.Record(&models.DecisionRecord{RunID: "1", Ticker: "AAPL", Action: models.ActionBuy})

	// the third failure puts the flusher into a several-hundred-ms backoff
	waitFor(t, func() bool { return w.count() >= 3 })

	start := time.Now()
	sink.Stop()
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("stop took %v, must not wait out the retry backoff", elapsed)
	}
}

func TestAuditSinkIgnoresNil(t *testing.T) {
	sink := NewAuditSink(&captureWriter{}, nil, testLogger(t))
	sink.Record(nil)
	sink.Start()
	sink.Stop()
	sink.Stop() // idempotent
}
