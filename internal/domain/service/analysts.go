package service

import (
	"context"

	"FundPilot/internal/domain/models"
)

// AnalystContext carries everything an analyst may consult for one ticker.
// Data sources populate only the fields their analysts need; an analyst must
// return an error when a field it depends on is missing.
type AnalystContext struct {
	Ticker    string
	StartDate string
	EndDate   string
	Bars      []models.PriceBar
	Metrics   *models.FinancialMetrics
	Insider   []models.InsiderTrade
	Portfolio *models.Portfolio
}

// Analyst produces a trading signal for a single ticker.
type Analyst interface {
	Name() string
	Analyze(ctx context.Context, ac *AnalystContext) (models.AnalystSignal, error)
}

// RiskAssessor derives position sizing limits from market data and the
// current portfolio.
type RiskAssessor interface {
	Assess(ctx context.Context, ac *AnalystContext) (*models.RiskLimits, error)
}

// DecisionMaker turns analyst signals and risk limits into a final decision.
type DecisionMaker interface {
	Decide(ctx context.Context, ticker string, signals map[string]models.AnalystSignal, limits *models.RiskLimits, portfolio *models.Portfolio) (*models.TradeDecision, error)
}
