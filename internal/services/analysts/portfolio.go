package analysts

import (
	"context"
	"fmt"
	"math"
	"strings"

	"FundPilot/internal/domain/models"
	"FundPilot/pkg/logger"
)

// PortfolioManager aggregates analyst signals into one decision by weighing
// each signal with its confidence, then sizes the trade inside the risk
// manager's limits.
type PortfolioManager struct {
	logger *logger.Logger
}

func NewPortfolioManager(lgr *logger.Logger) *PortfolioManager {
	return &PortfolioManager{logger: lgr}
}

func (pm *PortfolioManager) Decide(_ context.Context, ticker string, signals map[string]models.AnalystSignal, limits *models.RiskLimits, portfolio *models.Portfolio) (*models.TradeDecision, error) {
	if len(signals) == 0 {
		return nil, fmt.Errorf("portfolio: no analyst signals for %s", ticker)
	}
	if limits == nil {
		return nil, fmt.Errorf("portfolio: no risk limits for %s", ticker)
	}

	var bullWeight, bearWeight, totalWeight float64
	var bullish, bearish []string
	for name, s := range signals {
		conf := clampConfidence(s.Confidence)
		totalWeight += conf
		switch s.Signal {
		case models.SignalBullish:
			bullWeight += conf
			bullish = append(bullish, name)
		case models.SignalBearish:
			bearWeight += conf
			bearish = append(bearish, name)
		}
	}
	if totalWeight == 0 {
		totalWeight = 1
	}

	held := 0.0
	if portfolio != nil {
		held = portfolio.SharesOf(ticker)
	}

	action := models.ActionHold
	quantity := 0.0
	confidence := 0.0
	var reason string

	switch {
	case bullWeight > bearWeight && bullWeight > totalWeight/2:
		confidence = bullWeight / totalWeight * 100
		if limits.MaxShares > 0 {
			action = models.ActionBuy
			quantity = limits.MaxShares
			reason = fmt.Sprintf("bullish consensus from %s", strings.Join(bullish, ", "))
		} else {
			reason = "bullish consensus but position limit reached"
		}
	case bearWeight > bullWeight && bearWeight > totalWeight/2:
		confidence = bearWeight / totalWeight * 100
		if held > 0 {
			action = models.ActionSell
			quantity = held
			reason = fmt.Sprintf("bearish consensus from %s", strings.Join(bearish, ", "))
		} else {
			reason = "bearish consensus with no position to sell"
		}
	default:
		confidence = math.Abs(bullWeight-bearWeight) / totalWeight * 100
		reason = "no clear consensus among analysts"
	}

	decision := &models.TradeDecision{
		Ticker:     ticker,
		Action:     action,
		Quantity:   quantity,
		Confidence: clampConfidence(confidence),
		Reasoning:  reason,
	}

	if pm.logger != nil {
		pm.logger.Info("decision made",
			logger.String("ticker", ticker),
			logger.String("action", decision.Action),
			logger.Float64("quantity", decision.Quantity),
			logger.Float64("confidence", decision.Confidence))
	}
	return decision, nil
}
