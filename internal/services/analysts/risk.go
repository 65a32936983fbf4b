package analysts

import (
	"context"
	"fmt"
	"math"

	"FundPilot/internal/domain/models"
	"FundPilot/internal/domain/service"
	"FundPilot/pkg/logger"
)

// RiskManager caps any single position at a fixed share of total portfolio
// value and converts the remaining headroom into a maximum share count.
type RiskManager struct {
	logger           *logger.Logger
	positionLimitPct float64
}

// NewRiskManager creates a risk manager. limitPct of zero falls back to the
// default 20% single-position cap.
func NewRiskManager(lgr *logger.Logger, limitPct float64) *RiskManager {
	if limitPct <= 0 || limitPct > 1 {
		limitPct = 0.20
	}
	return &RiskManager{logger: lgr, positionLimitPct: limitPct}
}

func (r *RiskManager) Assess(_ context.Context, ac *service.AnalystContext) (*models.RiskLimits, error) {
	if len(ac.Bars) == 0 {
		return nil, fmt.Errorf("risk: no price data for %s", ac.Ticker)
	}
	if ac.Portfolio == nil {
		return nil, fmt.Errorf("risk: no portfolio state")
	}

	currentPrice := ac.Bars[len(ac.Bars)-1].Close
	if currentPrice <= 0 {
		return nil, fmt.Errorf("risk: non-positive close for %s", ac.Ticker)
	}

	// Total value marks the assessed ticker's position at its latest close;
	// other holdings are not repriced here.
	position := ac.Portfolio.SharesOf(ac.Ticker) * currentPrice
	totalValue := ac.Portfolio.Cash + position

	limit := totalValue * r.positionLimitPct
	remaining := limit - position
	if remaining < 0 {
		remaining = 0
	}
	// Never size beyond available cash.
	spendable := math.Min(remaining, ac.Portfolio.Cash)
	maxShares := math.Floor(spendable / currentPrice)

	limits := &models.RiskLimits{
		Ticker:          ac.Ticker,
		CurrentPrice:    currentPrice,
		PortfolioValue:  totalValue,
		PositionLimit:   limit,
		RemainingLimit:  remaining,
		MaxShares:       maxShares,
		CurrentPosition: position,
		AvailableCash:   ac.Portfolio.Cash,
	}

	if r.logger != nil {
		r.logger.Debug("risk limits computed",
			logger.String("ticker", ac.Ticker),
			logger.Float64("current_price", currentPrice),
			logger.Float64("max_shares", maxShares))
	}
	return limits, nil
}
