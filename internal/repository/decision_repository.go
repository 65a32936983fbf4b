package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FundPilot/internal/domain/models"
	"FundPilot/internal/domain/repository"
	pkgkafka "FundPilot/pkg/kafka"
)

// DecisionsSchema is the idempotent DDL for the decisions audit table.
var DecisionsSchema = []string{
	`CREATE TABLE IF NOT EXISTS trade_decisions (
		run_id String,
		ticker LowCardinality(String),
		action LowCardinality(String),
		quantity Float64,
		confidence Float64,
		reasoning String,
		start_date Date,
		end_date Date,
		analyst_errors UInt8,
		created_at DateTime64(3)
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(created_at)
	ORDER BY (ticker, created_at)`,
}

// ClickHouseDecisionStore implements DecisionStore for ClickHouse.
type ClickHouseDecisionStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseDecisionStore creates a ClickHouse-backed decision store.
func NewClickHouseDecisionStore(db *sql.DB, table string) repository.DecisionStore {
	if table == "" {
		table = "trade_decisions"
	}
	return &ClickHouseDecisionStore{db: db, table: table}
}

func (s *ClickHouseDecisionStore) Init(ctx context.Context) error {
	for _, stmt := range DecisionsSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("decisions schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseDecisionStore) Store(ctx context.Context, rec *models.DecisionRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (run_id, ticker, action, quantity, confidence, reasoning, start_date, end_date, analyst_errors, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		rec.RunID,
		rec.Ticker,
		rec.Action,
		rec.Quantity,
		rec.Confidence,
		rec.Reasoning,
		rec.StartDate,
		rec.EndDate,
		uint8(rec.AnalystErrs),
		rec.CreatedAt,
	)
	return err
}

func (s *ClickHouseDecisionStore) StoreBatch(ctx context.Context, recs []*models.DecisionRecord) error {
	if len(recs) == 0 {
		return nil
	}

	const chunkSize = 1000
	for start := 0; start < len(recs); start += chunkSize {
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*10)
		for _, rec := range recs[start:end] {
			if rec == nil || rec.Ticker == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				rec.RunID, rec.Ticker, rec.Action, rec.Quantity, rec.Confidence,
				rec.Reasoning, rec.StartDate, rec.EndDate, uint8(rec.AnalystErrs), rec.CreatedAt)
		}
		if len(values) == 0 {
			continue
		}

		q := fmt.Sprintf("INSERT INTO %s (run_id, ticker, action, quantity, confidence, reasoning, start_date, end_date, analyst_errors, created_at) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseDecisionStore) Query(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.DecisionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	// DateTime64 cannot represent the Go zero time
	if from.IsZero() {
		from = time.Unix(0, 0)
	}
	if to.IsZero() {
		to = time.Now()
	}

	var (
		rows *sql.Rows
		err  error
	)
	if ticker != "" {
		q := fmt.Sprintf("SELECT run_id, ticker, action, quantity, confidence, reasoning, toString(start_date), toString(end_date), analyst_errors, created_at FROM %s WHERE ticker = ? AND created_at >= ? AND created_at <= ? ORDER BY created_at DESC LIMIT ?", s.table)
		rows, err = s.db.QueryContext(ctx, q, ticker, from, to, limit)
	} else {
		q := fmt.Sprintf("SELECT run_id, ticker, action, quantity, confidence, reasoning, toString(start_date), toString(end_date), analyst_errors, created_at FROM %s WHERE created_at >= ? AND created_at <= ? ORDER BY created_at DESC LIMIT ?", s.table)
		rows, err = s.db.QueryContext(ctx, q, from, to, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.DecisionRecord
	for rows.Next() {
		var rec models.DecisionRecord
		var errCount uint8
		if err := rows.Scan(&rec.RunID, &rec.Ticker, &rec.Action, &rec.Quantity, &rec.Confidence,
			&rec.Reasoning, &rec.StartDate, &rec.EndDate, &errCount, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.AnalystErrs = int(errCount)
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

func (s *ClickHouseDecisionStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseDecisionStore) Close() error {
	return nil // pool managed by pkg/clickhouse
}

// KafkaDecisionPublisher implements DecisionPublisher for Kafka. Records are
// keyed by ticker so per-ticker ordering is preserved.
type KafkaDecisionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaDecisionPublisher creates a Kafka decision publisher.
func NewKafkaDecisionPublisher(producer *pkgkafka.Producer, topic string) repository.DecisionPublisher {
	return &KafkaDecisionPublisher{producer: producer, topic: topic}
}

func (p *KafkaDecisionPublisher) Publish(ctx context.Context, rec *models.DecisionRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.Ticker), rec)
}

func (p *KafkaDecisionPublisher) PublishBatch(ctx context.Context, recs []*models.DecisionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(recs))
	for i, rec := range recs {
		msgs[i] = pkgkafka.Message{Key: []byte(rec.Ticker), Value: rec}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaDecisionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
