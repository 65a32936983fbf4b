package analysts

import (
	"context"
	"fmt"
	"math"

	"FundPilot/internal/domain/models"
	"FundPilot/internal/domain/service"
	"FundPilot/pkg/logger"
)

// FundamentalsAnalyst votes across four dimensions of a company's latest
// reported metrics: profitability, growth, financial health, and price ratios.
type FundamentalsAnalyst struct {
	logger *logger.Logger
}

func NewFundamentalsAnalyst(lgr *logger.Logger) *FundamentalsAnalyst {
	return &FundamentalsAnalyst{logger: lgr}
}

func (a *FundamentalsAnalyst) Name() string { return "fundamentals_analyst" }

func (a *FundamentalsAnalyst) Analyze(_ context.Context, ac *service.AnalystContext) (models.AnalystSignal, error) {
	m := ac.Metrics
	if m == nil {
		return models.AnalystSignal{}, fmt.Errorf("fundamentals: no financial metrics for %s", ac.Ticker)
	}

	checks := []struct {
		name   string
		signal string
	}{
		{"profitability", profitabilitySignal(m)},
		{"growth", growthSignal(m)},
		{"financial_health", healthSignal(m)},
		{"price_ratios", priceRatiosSignal(m)},
	}

	bullish, bearish := 0, 0
	reasoning := make(map[string]string, len(checks))
	for _, c := range checks {
		reasoning[c.name] = c.signal
		switch c.signal {
		case models.SignalBullish:
			bullish++
		case models.SignalBearish:
			bearish++
		}
	}

	signal := models.SignalNeutral
	switch {
	case bullish > bearish:
		signal = models.SignalBullish
	case bearish > bullish:
		signal = models.SignalBearish
	}

	confidence := clampConfidence(math.Max(float64(bullish), float64(bearish)) / float64(len(checks)) * 100)

	if a.logger != nil {
		a.logger.Debug("fundamental analysis complete",
			logger.String("ticker", ac.Ticker),
			logger.String("signal", signal),
			logger.Int("bullish_checks", bullish),
			logger.Int("bearish_checks", bearish))
	}

	return models.AnalystSignal{
		Signal:     signal,
		Confidence: confidence,
		Reasoning:  reasoning,
		Metrics: map[string]float64{
			"return_on_equity": m.ReturnOnEquity,
			"net_margin":       m.NetMargin,
			"revenue_growth":   m.RevenueGrowth,
			"current_ratio":    m.CurrentRatio,
			"debt_to_equity":   m.DebtToEquity,
			"pe_ratio":         m.PriceToEarningsRatio,
		},
	}, nil
}

// profitabilitySignal scores return on equity and margins against quality
// thresholds.
func profitabilitySignal(m *models.FinancialMetrics) string {
	score := 0
	if m.ReturnOnEquity > 0.15 {
		score++
	}
	if m.NetMargin > 0.20 {
		score++
	}
	if m.OperatingMargin > 0.15 {
		score++
	}
	return voteOf(score, 3)
}

func growthSignal(m *models.FinancialMetrics) string {
	score := 0
	if m.RevenueGrowth > 0.10 {
		score++
	}
	if m.EarningsGrowth > 0.10 {
		score++
	}
	if m.BookValueGrowth > 0.10 {
		score++
	}
	return voteOf(score, 3)
}

func healthSignal(m *models.FinancialMetrics) string {
	score := 0
	if m.CurrentRatio > 1.5 {
		score++
	}
	if m.DebtToEquity > 0 && m.DebtToEquity < 0.5 {
		score++
	}
	if m.EarningsPerShare > 0 && m.FreeCashFlowPerShare > m.EarningsPerShare*0.8 {
		score++
	}
	return voteOf(score, 3)
}

// priceRatiosSignal is inverted: rich valuations are bearish.
func priceRatiosSignal(m *models.FinancialMetrics) string {
	score := 0
	if m.PriceToEarningsRatio > 0 && m.PriceToEarningsRatio < 25 {
		score++
	}
	if m.PriceToBookRatio > 0 && m.PriceToBookRatio < 3 {
		score++
	}
	if m.PriceToSalesRatio > 0 && m.PriceToSalesRatio < 5 {
		score++
	}
	return voteOf(score, 3)
}

// voteOf maps a check count onto a signal: majority pass is bullish, zero
// passes is bearish.
func voteOf(score, total int) string {
	switch {
	case score*2 > total:
		return models.SignalBullish
	case score == 0:
		return models.SignalBearish
	default:
		return models.SignalNeutral
	}
}
