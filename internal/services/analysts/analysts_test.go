package analysts

import (
	"context"
	"math"
	"testing"
	"time"

	"FundPilot/internal/domain/models"
	"FundPilot/internal/domain/service"
)

// trendingBars builds n daily bars whose close moves by drift per session.
func trendingBars(ticker string, n int, start, drift float64) []models.PriceBar {
	bars := make([]models.PriceBar, n)
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	price := start
	for i := 0; i < n; i++ {
		// small deterministic wiggle so volatility is non-zero
		wiggle := 0.3 * math.Sin(float64(i))
		close := price + wiggle
		bars[i] = models.PriceBar{
			Date:   day,
			Ticker: ticker,
			Open:   close - 0.1,
			High:   close + 0.5,
			Low:    close - 0.5,
			Close:  close,
			Volume: 1_000_000 + float64(i)*1000,
		}
		price += drift
		day = day.AddDate(0, 0, 1)
	}
	return bars
}

func TestTechnicalAnalystUptrend(t *testing.T) {
	a := NewTechnicalAnalyst(nil)
	ac := &service.AnalystContext{
		Ticker: "AAPL",
		Bars:   trendingBars("AAPL", 120, 100, 0.5),
	}

	sig, err := a.Analyze(context.Background(), ac)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if sig.Signal == models.SignalBearish {
		t.Fatalf("steady uptrend should not be bearish, got %s", sig.Signal)
	}
	if sig.Confidence < 0 || sig.Confidence > 100 {
		t.Fatalf("confidence out of range: %f", sig.Confidence)
	}
	if len(sig.Reasoning) != 4 {
		t.Fatalf("expected 4 strategy reasons, got %d", len(sig.Reasoning))
	}
}

func TestTechnicalAnalystInsufficientData(t *testing.T) {
	a := NewTechnicalAnalyst(nil)
	ac := &service.AnalystContext{
		Ticker: "AAPL",
		Bars:   trendingBars("AAPL", 30, 100, 0.5),
	}

	if _, err := a.Analyze(context.Background(), ac); err == nil {
		t.Fatal("expected error for short price history")
	}
}

func strongMetrics() *models.FinancialMetrics {
	return &models.FinancialMetrics{
		Ticker:               "AAPL",
		MarketCap:            1e12,
		ReturnOnEquity:       0.30,
		NetMargin:            0.25,
		OperatingMargin:      0.28,
		RevenueGrowth:        0.15,
		EarningsGrowth:       0.18,
		BookValueGrowth:      0.12,
		CurrentRatio:         2.0,
		DebtToEquity:         0.3,
		EarningsPerShare:     6.0,
		FreeCashFlowPerShare: 6.5,
		PriceToEarningsRatio: 18,
		PriceToBookRatio:     2.5,
		PriceToSalesRatio:    4,
	}
}

func TestFundamentalsAnalystStrongCompany(t *testing.T) {
	a := NewFundamentalsAnalyst(nil)
	ac := &service.AnalystContext{Ticker: "AAPL", Metrics: strongMetrics()}

	sig, err := a.Analyze(context.Background(), ac)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if sig.Signal != models.SignalBullish {
		t.Fatalf("expected bullish, got %s", sig.Signal)
	}
	if sig.Confidence != 100 {
		t.Fatalf("all four checks bullish should give confidence 100, got %f", sig.Confidence)
	}
}

func TestFundamentalsAnalystWeakCompany(t *testing.T) {
	a := NewFundamentalsAnalyst(nil)
	ac := &service.AnalystContext{
		Ticker: "XYZ",
		Metrics: &models.FinancialMetrics{
			Ticker:               "XYZ",
			MarketCap:            1e9,
			ReturnOnEquity:       -0.05,
			NetMargin:            0.01,
			OperatingMargin:      0.02,
			RevenueGrowth:        -0.10,
			EarningsGrowth:       -0.20,
			BookValueGrowth:      -0.05,
			CurrentRatio:         0.8,
			DebtToEquity:         3.5,
			EarningsPerShare:     -1.0,
			FreeCashFlowPerShare: -0.5,
			PriceToEarningsRatio: 80,
			PriceToBookRatio:     12,
			PriceToSalesRatio:    9,
		},
	}

	sig, err := a.Analyze(context.Background(), ac)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if sig.Signal != models.SignalBearish {
		t.Fatalf("expected bearish, got %s", sig.Signal)
	}
}

func TestFundamentalsAnalystMissingMetrics(t *testing.T) {
	a := NewFundamentalsAnalyst(nil)
	if _, err := a.Analyze(context.Background(), &service.AnalystContext{Ticker: "AAPL"}); err == nil {
		t.Fatal("expected error when metrics are missing")
	}
}

func TestSentimentAnalystInsiderBuying(t *testing.T) {
	a := NewSentimentAnalyst(nil)
	ac := &service.AnalystContext{
		Ticker: "AAPL",
		Insider: []models.InsiderTrade{
			{Shares: 10000},
			{Shares: 5000},
			{Shares: -2000},
		},
	}

	sig, err := a.Analyze(context.Background(), ac)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if sig.Signal != models.SignalBullish {
		t.Fatalf("expected bullish, got %s", sig.Signal)
	}
	want := float64(2) / 3 * 100
	if math.Abs(sig.Confidence-want) > 0.01 {
		t.Fatalf("confidence = %f, want %f", sig.Confidence, want)
	}
}

func TestSentimentAnalystNoTrades(t *testing.T) {
	a := NewSentimentAnalyst(nil)
	if _, err := a.Analyze(context.Background(), &service.AnalystContext{Ticker: "AAPL"}); err == nil {
		t.Fatal("expected error when no insider trades exist")
	}
}

func TestValuationAnalystUndervalued(t *testing.T) {
	a := NewValuationAnalyst(nil)
	ac := &service.AnalystContext{
		Ticker: "AAPL",
		Metrics: &models.FinancialMetrics{
			Ticker:               "AAPL",
			MarketCap:            100e9,
			NetIncome:            20e9,
			Depreciation:         3e9,
			CapitalExpenditure:   2e9,
			WorkingCapitalChange: 0.5e9,
			FreeCashFlowPerShare: 5,
			OutstandingShares:    4e9,
		},
	}

	sig, err := a.Analyze(context.Background(), ac)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if sig.Signal != models.SignalBullish {
		t.Fatalf("expected bullish for deep discount, got %s", sig.Signal)
	}
	if sig.Metrics["valuation_gap"] <= valuationGapBand {
		t.Fatalf("valuation gap should exceed band, got %f", sig.Metrics["valuation_gap"])
	}
}

func TestValuationAnalystNoCashFlows(t *testing.T) {
	a := NewValuationAnalyst(nil)
	ac := &service.AnalystContext{
		Ticker: "XYZ",
		Metrics: &models.FinancialMetrics{
			Ticker:    "XYZ",
			MarketCap: 1e9,
			NetIncome: -5e8,
		},
	}
	if _, err := a.Analyze(context.Background(), ac); err == nil {
		t.Fatal("expected error when no positive cash flows")
	}
}

func TestRegistrySelect(t *testing.T) {
	r := NewRegistry(nil)

	all, err := r.Select(nil)
	if err != nil {
		t.Fatalf("select all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 default analysts, got %d", len(all))
	}

	empty, err := r.Select([]string{})
	if err != nil {
		t.Fatalf("select empty: %v", err)
	}
	if len(empty) != 4 {
		t.Fatalf("empty selection should run the full lineup, got %d", len(empty))
	}

	some, err := r.Select([]string{"technical_analyst", "valuation_analyst"})
	if err != nil {
		t.Fatalf("select subset: %v", err)
	}
	if len(some) != 2 {
		t.Fatalf("expected 2 analysts, got %d", len(some))
	}

	if _, err := r.Select([]string{"astrology_analyst"}); err == nil {
		t.Fatal("expected error for unknown analyst")
	}
}

func TestRiskManagerLimits(t *testing.T) {
	rm := NewRiskManager(nil, 0.20)
	bars := trendingBars("AAPL", 5, 100, 0)
	bars[len(bars)-1].Close = 100

	ac := &service.AnalystContext{
		Ticker:    "AAPL",
		Bars:      bars,
		Portfolio: &models.Portfolio{Cash: 100000, Shares: map[string]float64{}},
	}

	limits, err := rm.Assess(context.Background(), ac)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if limits.PositionLimit != 20000 {
		t.Fatalf("position limit = %f, want 20000", limits.PositionLimit)
	}
	if limits.MaxShares != 200 {
		t.Fatalf("max shares = %f, want 200", limits.MaxShares)
	}
}

func TestRiskManagerExistingPositionReducesHeadroom(t *testing.T) {
	rm := NewRiskManager(nil, 0.20)
	bars := trendingBars("AAPL", 5, 100, 0)
	bars[len(bars)-1].Close = 100

	ac := &service.AnalystContext{
		Ticker:    "AAPL",
		Bars:      bars,
		Portfolio: &models.Portfolio{Cash: 80000, Shares: map[string]float64{"AAPL": 200}},
	}

	limits, err := rm.Assess(context.Background(), ac)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	// total value 100000, limit 20000, position already 20000
	if limits.RemainingLimit != 0 {
		t.Fatalf("remaining limit = %f, want 0", limits.RemainingLimit)
	}
	if limits.MaxShares != 0 {
		t.Fatalf("max shares = %f, want 0", limits.MaxShares)
	}
}

func TestPortfolioManagerBuysOnBullishConsensus(t *testing.T) {
	pm := NewPortfolioManager(nil)
	signals := map[string]models.AnalystSignal{
		"technical_analyst":    {Signal: models.SignalBullish, Confidence: 80},
		"fundamentals_analyst": {Signal: models.SignalBullish, Confidence: 75},
		"valuation_analyst":    {Signal: models.SignalNeutral, Confidence: 20},
	}
	limits := &models.RiskLimits{Ticker: "AAPL", MaxShares: 150}
	portfolio := &models.Portfolio{Cash: 100000}

	d, err := pm.Decide(context.Background(), "AAPL", signals, limits, portfolio)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Action != models.ActionBuy {
		t.Fatalf("expected buy, got %s", d.Action)
	}
	if d.Quantity != 150 {
		t.Fatalf("quantity = %f, want 150", d.Quantity)
	}
}

func TestPortfolioManagerSellsOnBearishConsensus(t *testing.T) {
	pm := NewPortfolioManager(nil)
	signals := map[string]models.AnalystSignal{
		"technical_analyst": {Signal: models.SignalBearish, Confidence: 90},
		"valuation_analyst": {Signal: models.SignalBearish, Confidence: 70},
		"sentiment_analyst": {Signal: models.SignalBullish, Confidence: 30},
	}
	limits := &models.RiskLimits{Ticker: "AAPL", MaxShares: 0}
	portfolio := &models.Portfolio{Cash: 1000, Shares: map[string]float64{"AAPL": 42}}

	d, err := pm.Decide(context.Background(), "AAPL", signals, limits, portfolio)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Action != models.ActionSell {
		t.Fatalf("expected sell, got %s", d.Action)
	}
	if d.Quantity != 42 {
		t.Fatalf("quantity = %f, want full position of 42", d.Quantity)
	}
}

func TestPortfolioManagerHoldsWithoutConsensus(t *testing.T) {
	pm := NewPortfolioManager(nil)
	signals := map[string]models.AnalystSignal{
		"technical_analyst": {Signal: models.SignalBullish, Confidence: 50},
		"valuation_analyst": {Signal: models.SignalBearish, Confidence: 50},
	}
	limits := &models.RiskLimits{Ticker: "AAPL", MaxShares: 100}

	d, err := pm.Decide(context.Background(), "AAPL", signals, limits, &models.Portfolio{Cash: 100000})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Action != models.ActionHold {
		t.Fatalf("expected hold, got %s", d.Action)
	}
	if d.Quantity != 0 {
		t.Fatalf("quantity = %f, want 0", d.Quantity)
	}
}

func TestIndicatorRSIBounds(t *testing.T) {
	up := make([]float64, 30)
	for i := range up {
		up[i] = 100 + float64(i)
	}
	v, err := rsi(up, 14)
	if err != nil {
		t.Fatalf("rsi: %v", err)
	}
	if v != 100 {
		t.Fatalf("monotonic gains should give RSI 100, got %f", v)
	}

	down := make([]float64, 30)
	for i := range down {
		down[i] = 100 - float64(i)
	}
	v, err = rsi(down, 14)
	if err != nil {
		t.Fatalf("rsi: %v", err)
	}
	if v != 0 {
		t.Fatalf("monotonic losses should give RSI 0, got %f", v)
	}
}

func TestIndicatorEMAConvergesToConstant(t *testing.T) {
	flat := make([]float64, 50)
	for i := range flat {
		flat[i] = 42
	}
	v, err := ema(flat, 8)
	if err != nil {
		t.Fatalf("ema: %v", err)
	}
	if math.Abs(v-42) > 1e-9 {
		t.Fatalf("ema of constant series = %f, want 42", v)
	}
}
