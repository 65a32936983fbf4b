package middleware

import (
	"context"
	"sync"
	"time"

	"FundPilot/internal/domain/models"
	domrepo "FundPilot/internal/domain/repository"
	"FundPilot/pkg/logger"
)

// Writer is the downstream a sink flushes decision records to.
type Writer interface {
	Write(ctx context.Context, rec *models.DecisionRecord) error
}

// AuditSink buffers decision records and flushes them asynchronously so the
// analysis request never waits on the audit backend. On flush errors the
// record is requeued with backoff; when the buffer is full, records are
// dropped and counted rather than blocking the pipeline.
type AuditSink struct {
	writer  Writer
	metrics domrepo.Metrics
	logger  *logger.Logger
	bufCh   chan *models.DecisionRecord
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.Mutex
	timeout time.Duration
}

// SinkOption configures AuditSink.
type SinkOption func(*AuditSink)

// WithBufferSize sets the buffer capacity.
func WithBufferSize(n int) SinkOption {
	return func(s *AuditSink) {
		if n > 0 {
			s.bufCh = make(chan *models.DecisionRecord, n)
		}
	}
}

// WithWriteTimeout bounds each downstream write.
func WithWriteTimeout(d time.Duration) SinkOption {
	return func(s *AuditSink) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewAuditSink creates a sink in front of writer.
func NewAuditSink(writer Writer, metrics domrepo.Metrics, lgr *logger.Logger, opts ...SinkOption) *AuditSink {
	s := &AuditSink{
		writer:  writer,
		metrics: metrics,
		logger:  lgr,
		bufCh:   make(chan *models.DecisionRecord, 1000),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the background flusher.
func (s *AuditSink) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.flushLoop()
}

// Stop stops the background flusher and waits for it to exit. Buffered
// records not yet flushed are abandoned.
func (s *AuditSink) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()
	close(s.stopCh)
	<-s.doneCh
}

// Record enqueues a decision record without blocking. Implements
// usecase.DecisionSink.
func (s *AuditSink) Record(rec *models.DecisionRecord) {
	if rec == nil {
		return
	}
	select {
	case s.bufCh <- rec:
	default:
		if s.metrics != nil {
			s.metrics.RecordError("audit_buffer_drop")
		}
		if s.logger != nil {
			s.logger.Warn("audit buffer full, dropping record",
				logger.String("ticker", rec.Ticker))
		}
	}
}

func (s *AuditSink) flushLoop() {
	defer close(s.doneCh)

	backoff := 50 * time.Millisecond
	for {
		select {
		case <-s.stopCh:
			return
		case rec := <-s.bufCh:
			if rec == nil {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			err := s.writer.Write(ctx, rec)
			cancel()

			if err == nil {
				backoff = 50 * time.Millisecond
				continue
			}

			if s.metrics != nil {
				s.metrics.RecordError("audit_flush")
			}
			if s.logger != nil {
				s.logger.Warn("audit flush failed",
					logger.String("ticker", rec.Ticker),
					logger.Error(err))
			}
			if backoff < 2*time.Second {
				backoff *= 2
			}
			select {
			case <-time.After(backoff):
			case <-s.stopCh:
				return
			}

			// requeue if space, drop otherwise
			select {
			case s.bufCh <- rec:
			default:
				if s.metrics != nil {
					s.metrics.RecordError("audit_buffer_drop")
				}
			}
		}
	}
}
