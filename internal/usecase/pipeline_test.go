package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"FundPilot/internal/domain/models"
	domservice "FundPilot/internal/domain/service"
	"FundPilot/internal/services/analysts"
	xhttp "FundPilot/pkg/http"
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

type stubAnalyst struct {
	name string
	sig  models.AnalystSignal
	err  error
}

func (s *stubAnalyst) Name() string { return s.name }

func (s *stubAnalyst) Analyze(ctx context.Context, ac *domservice.AnalystContext) (models.AnalystSignal, error) {
	if s.err != nil {
		return models.AnalystSignal{}, s.err
	}
	return s.sig, nil
}

type fakeMarket struct {
	bars []models.PriceBar
	err  error
}

func (f *fakeMarket) DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	return f.bars, f.err
}

type fakeFundamentals struct {
	metrics *models.FinancialMetrics
	err     error
}

func (f *fakeFundamentals) FinancialMetrics(ctx context.Context, ticker string, asOf time.Time) (*models.FinancialMetrics, error) {
	return f.metrics, f.err
}

type fakeInsider struct {
	trades []models.InsiderTrade
	err    error
}

func (f *fakeInsider) InsiderTrades(ctx context.Context, ticker string, start, end time.Time) ([]models.InsiderTrade, error) {
	return f.trades, f.err
}

type fakeRisk struct {
	limits *models.RiskLimits
	err    error
}

func (f *fakeRisk) Assess(ctx context.Context, ac *domservice.AnalystContext) (*models.RiskLimits, error) {
	return f.limits, f.err
}

type fakeDecider struct {
	decision *models.TradeDecision
	err      error
}

func (f *fakeDecider) Decide(ctx context.Context, ticker string, signals map[string]models.AnalystSignal, limits *models.RiskLimits, portfolio *models.Portfolio) (*models.TradeDecision, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.decision, nil
}

type captureDecider struct {
	portfolio *models.Portfolio
}

func (c *captureDecider) Decide(ctx context.Context, ticker string, signals map[string]models.AnalystSignal, limits *models.RiskLimits, portfolio *models.Portfolio) (*models.TradeDecision, error) {
	c.portfolio = portfolio
	return &models.TradeDecision{Ticker: ticker, Action: models.ActionHold}, nil
}

type memorySink struct {
	recs []*models.DecisionRecord
}

func (m *memorySink) Record(rec *models.DecisionRecord) {
	m.recs = append(m.recs, rec)
}

func flatBars(n int) []models.PriceBar {
	bars := make([]models.PriceBar, n)
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = models.PriceBar{Date: day.AddDate(0, 0, i), Close: 100, Volume: 1e6}
	}
	return bars
}

func testRegistry(t *testing.T, extra ...domservice.Analyst) *analysts.Registry {
	t.Helper()
	r := analysts.NewRegistry(testLogger(t))
	for _, a := range extra {
		r.Register(a)
	}
	return r
}

func TestPipelinePartialFailure(t *testing.T) {
	lgr := testLogger(t)
	bull := &stubAnalyst{name: "stub_bull", sig: models.AnalystSignal{Signal: models.SignalBullish, Confidence: 80}}
	broken := &stubAnalyst{name: "stub_broken", err: fmt.Errorf("feed unavailable")}

	sink := &memorySink{}
	pipe := NewPipelineUseCase(
		testRegistry(t, bull, broken),
		&fakeMarket{bars: flatBars(90)},
		&fakeFundamentals{metrics: &models.FinancialMetrics{Ticker: "AAPL"}},
		&fakeInsider{},
		&fakeRisk{limits: &models.RiskLimits{Ticker: "AAPL", CurrentPrice: 100, MaxShares: 50}},
		&fakeDecider{decision: &models.TradeDecision{Ticker: "AAPL", Action: models.ActionBuy, Quantity: 50, Confidence: 80}},
		lgr,
		WithSink(sink),
	)

	results, err := pipe.Run(context.Background(), &models.AnalysisRequest{
		Tickers:  []string{"aapl"},
		Cash:     100000,
		Analysts: []string{"stub_bull", "stub_broken"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	res := results[0]
	if res.Ticker != "AAPL" {
		t.Fatalf("ticker not normalized: %s", res.Ticker)
	}
	if _, ok := res.AnalystSignals["stub_bull"]; !ok {
		t.Fatalf("missing bull signal, have %v", res.AnalystSignals)
	}
	if res.Errors["stub_broken"] != "feed unavailable" {
		t.Fatalf("broken analyst error not recorded: %v", res.Errors)
	}
	if res.Decision == nil || res.Decision.Action != models.ActionBuy {
		t.Fatalf("unexpected decision: %+v", res.Decision)
	}
	if len(sink.recs) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(sink.recs))
	}
	if sink.recs[0].AnalystErrs != 1 {
		t.Fatalf("expected 1 analyst error in record, got %d", sink.recs[0].AnalystErrs)
	}
}

func TestPipelineHoldWhenAllAnalystsFail(t *testing.T) {
	broken := &stubAnalyst{name: "stub_broken", err: fmt.Errorf("boom")}

	pipe := NewPipelineUseCase(
		testRegistry(t, broken),
		&fakeMarket{bars: flatBars(90)},
		&fakeFundamentals{},
		&fakeInsider{},
		&fakeRisk{limits: &models.RiskLimits{MaxShares: 10}},
		&fakeDecider{decision: &models.TradeDecision{Action: models.ActionBuy}},
		testLogger(t),
	)

	results, err := pipe.Run(context.Background(), &models.AnalysisRequest{
		Tickers:  []string{"MSFT"},
		Analysts: []string{"stub_broken"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := results[0]
	if res.Decision.Action != models.ActionHold {
		t.Fatalf("expected hold fallback, got %s", res.Decision.Action)
	}
	if res.Errors["portfolio_management"] != "no analyst signals available" {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
}

func TestPipelineHoldWhenRiskFails(t *testing.T) {
	bull := &stubAnalyst{name: "stub_bull", sig: models.AnalystSignal{Signal: models.SignalBullish, Confidence: 70}}

	pipe := NewPipelineUseCase(
		testRegistry(t, bull),
		&fakeMarket{bars: flatBars(90)},
		&fakeFundamentals{},
		&fakeInsider{},
		&fakeRisk{err: fmt.Errorf("no price data")},
		&fakeDecider{decision: &models.TradeDecision{Action: models.ActionBuy}},
		testLogger(t),
	)

	results, err := pipe.Run(context.Background(), &models.AnalysisRequest{
		Tickers:  []string{"MSFT"},
		Analysts: []string{"stub_bull"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := results[0]
	if res.Decision.Action != models.ActionHold {
		t.Fatalf("expected hold, got %s", res.Decision.Action)
	}
	if res.Errors["risk_management"] != "no price data" {
		t.Fatalf("risk error not recorded: %v", res.Errors)
	}
	if res.RiskLimits != nil {
		t.Fatalf("expected nil risk limits")
	}
}

func TestPipelineRecordsSourceFailures(t *testing.T) {
	bull := &stubAnalyst{name: "stub_bull", sig: models.AnalystSignal{Signal: models.SignalBullish, Confidence: 70}}

	pipe := NewPipelineUseCase(
		testRegistry(t, bull),
		&fakeMarket{err: fmt.Errorf("market feed down")},
		&fakeFundamentals{err: fmt.Errorf("fundamentals down")},
		&fakeInsider{err: fmt.Errorf("insider feed down")},
		&fakeRisk{err: fmt.Errorf("no bars")},
		&fakeDecider{decision: &models.TradeDecision{Action: models.ActionHold}},
		testLogger(t),
	)

	results, err := pipe.Run(context.Background(), &models.AnalysisRequest{
		Tickers:  []string{"NVDA"},
		Analysts: []string{"stub_bull"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := results[0]
	for _, key := range []string{"market_data", "fundamental_data", "insider_data"} {
		if res.Errors[key] == "" {
			t.Fatalf("expected %s error, got %v", key, res.Errors)
		}
	}
}

func TestPipelineProgressEvents(t *testing.T) {
	bull := &stubAnalyst{name: "stub_bull", sig: models.AnalystSignal{Signal: models.SignalBullish, Confidence: 70}}

	pipe := NewPipelineUseCase(
		testRegistry(t, bull),
		&fakeMarket{bars: flatBars(90)},
		&fakeFundamentals{},
		&fakeInsider{},
		&fakeRisk{limits: &models.RiskLimits{MaxShares: 10}},
		&fakeDecider{decision: &models.TradeDecision{Action: models.ActionBuy}},
		testLogger(t),
	)

	var events []ProgressEvent
	_, err := pipe.RunWithProgress(context.Background(), &models.AnalysisRequest{
		Tickers:  []string{"AAPL"},
		Analysts: []string{"stub_bull"},
	}, func(ev ProgressEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stages := make(map[string]bool)
	for _, ev := range events {
		if ev.Ticker != "AAPL" {
			t.Fatalf("unexpected ticker in event: %+v", ev)
		}
		stages[ev.Stage] = true
	}
	for _, want := range []string{"data", "analysts", "risk_management", "portfolio_management"} {
		if !stages[want] {
			t.Fatalf("missing stage %q in events %v", want, events)
		}
	}
}

func TestPipelineSeedsPortfolioPositions(t *testing.T) {
	bull := &stubAnalyst{name: "stub_bull", sig: models.AnalystSignal{Signal: models.SignalBullish, Confidence: 70}}
	decider := &captureDecider{}

	pipe := NewPipelineUseCase(
		testRegistry(t, bull),
		&fakeMarket{bars: flatBars(90)},
		&fakeFundamentals{},
		&fakeInsider{},
		&fakeRisk{limits: &models.RiskLimits{MaxShares: 10}},
		decider,
		testLogger(t),
	)

	_, err := pipe.Run(context.Background(), &models.AnalysisRequest{
		Tickers:   []string{"AAPL"},
		Cash:      50000,
		Positions: map[string]float64{"aapl": 25},
		Analysts:  []string{"stub_bull"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decider.portfolio == nil {
		t.Fatalf("decider never saw the portfolio")
	}
	if got := decider.portfolio.SharesOf("AAPL"); got != 25 {
		t.Fatalf("expected seeded position 25, got %v", got)
	}
	if decider.portfolio.Cash != 50000 {
		t.Fatalf("expected cash 50000, got %v", decider.portfolio.Cash)
	}
}

func TestPipelineRejectsUnknownAnalyst(t *testing.T) {
	pipe := NewPipelineUseCase(
		testRegistry(t),
		&fakeMarket{bars: flatBars(90)},
		&fakeFundamentals{},
		&fakeInsider{},
		&fakeRisk{},
		&fakeDecider{},
		testLogger(t),
	)

	_, err := pipe.Run(context.Background(), &models.AnalysisRequest{
		Tickers:  []string{"AAPL"},
		Analysts: []string{"astrology_analyst"},
	})
	if err == nil {
		t.Fatalf("expected error for unknown analyst")
	}
}

func TestPipelineRejectsInvertedDateRange(t *testing.T) {
	pipe := NewPipelineUseCase(
		testRegistry(t),
		&fakeMarket{bars: flatBars(90)},
		&fakeFundamentals{},
		&fakeInsider{},
		&fakeRisk{},
		&fakeDecider{},
		testLogger(t),
	)

	_, err := pipe.Run(context.Background(), &models.AnalysisRequest{
		Tickers:   []string{"AAPL"},
		StartDate: "2025-06-01",
		EndDate:   "2025-01-01",
	})
	var appErr *xhttp.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected application error, got %v", err)
	}
	if appErr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", appErr.Status, http.StatusBadRequest)
	}
}

func TestPipelineRequiresTickers(t *testing.T) {
	pipe := NewPipelineUseCase(
		testRegistry(t),
		&fakeMarket{},
		&fakeFundamentals{},
		&fakeInsider{},
		&fakeRisk{},
		&fakeDecider{},
		testLogger(t),
	)

	if _, err := pipe.Run(context.Background(), &models.AnalysisRequest{}); err == nil {
		t.Fatalf("expected error for empty ticker list")
	}
}
