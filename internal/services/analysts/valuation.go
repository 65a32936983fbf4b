package analysts

import (
	"context"
	"fmt"
	"math"

	"FundPilot/internal/domain/models"
	"FundPilot/internal/domain/service"
	"FundPilot/pkg/logger"
)

// Valuation model parameters.
const (
	dcfGrowthRate     = 0.05
	dcfDiscountRate   = 0.10
	dcfTerminalGrowth = 0.03
	dcfYears          = 5
	ownerEarningsMoS  = 0.25 // margin of safety applied to owner earnings value
	valuationGapBand  = 0.15 // gap beyond +/-15% moves the signal off neutral
)

// ValuationAnalyst estimates intrinsic value two ways, owner earnings with a
// margin of safety and a five year DCF, then compares the blend against the
// market cap.
type ValuationAnalyst struct {
	logger *logger.Logger
}

func NewValuationAnalyst(lgr *logger.Logger) *ValuationAnalyst {
	return &ValuationAnalyst{logger: lgr}
}

func (a *ValuationAnalyst) Name() string { return "valuation_analyst" }

func (a *ValuationAnalyst) Analyze(_ context.Context, ac *service.AnalystContext) (models.AnalystSignal, error) {
	m := ac.Metrics
	if m == nil {
		return models.AnalystSignal{}, fmt.Errorf("valuation: no financial metrics for %s", ac.Ticker)
	}
	if m.MarketCap <= 0 {
		return models.AnalystSignal{}, fmt.Errorf("valuation: missing market cap for %s", ac.Ticker)
	}

	ownerEarnings := m.NetIncome + m.Depreciation - m.CapitalExpenditure - m.WorkingCapitalChange
	ownerValue := ownerEarningsValue(ownerEarnings)
	fcf := m.FreeCashFlowPerShare * m.OutstandingShares
	dcfValue := discountedCashFlowValue(fcf)

	if ownerValue <= 0 && dcfValue <= 0 {
		return models.AnalystSignal{}, fmt.Errorf("valuation: no positive cash flows to value %s", ac.Ticker)
	}

	// Equal-weight blend of whichever models produced a value.
	var intrinsic float64
	n := 0
	if ownerValue > 0 {
		intrinsic += ownerValue
		n++
	}
	if dcfValue > 0 {
		intrinsic += dcfValue
		n++
	}
	intrinsic /= float64(n)

	gap := (intrinsic - m.MarketCap) / m.MarketCap

	signal := models.SignalNeutral
	switch {
	case gap > valuationGapBand:
		signal = models.SignalBullish
	case gap < -valuationGapBand:
		signal = models.SignalBearish
	}

	if a.logger != nil {
		a.logger.Debug("valuation analysis complete",
			logger.String("ticker", ac.Ticker),
			logger.String("signal", signal),
			logger.Float64("valuation_gap", gap))
	}

	return models.AnalystSignal{
		Signal:     signal,
		Confidence: clampConfidence(math.Abs(gap) * 100),
		Reasoning: map[string]string{
			"owner_earnings": fmt.Sprintf("intrinsic value %.0f with %.0f%% margin of safety", ownerValue, ownerEarningsMoS*100),
			"dcf":            fmt.Sprintf("five year DCF value %.0f", dcfValue),
			"valuation_gap":  fmt.Sprintf("intrinsic vs market cap gap %.1f%%", gap*100),
		},
		Metrics: map[string]float64{
			"owner_earnings":  ownerEarnings,
			"intrinsic_value": intrinsic,
			"market_cap":      m.MarketCap,
			"valuation_gap":   gap,
		},
	}, nil
}

// ownerEarningsValue grows owner earnings at a conservative rate, discounts
// each year back, and applies a margin of safety.
func ownerEarningsValue(ownerEarnings float64) float64 {
	if ownerEarnings <= 0 {
		return 0
	}

	var value float64
	for year := 1; year <= dcfYears; year++ {
		future := ownerEarnings * math.Pow(1+dcfGrowthRate, float64(year))
		value += future / math.Pow(1+dcfDiscountRate, float64(year))
	}

	terminal := ownerEarnings * math.Pow(1+dcfGrowthRate, float64(dcfYears)) * (1 + dcfTerminalGrowth) /
		(dcfDiscountRate - dcfTerminalGrowth)
	value += terminal / math.Pow(1+dcfDiscountRate, float64(dcfYears))

	return value * (1 - ownerEarningsMoS)
}

// discountedCashFlowValue projects free cash flow over five years plus a
// terminal value.
func discountedCashFlowValue(freeCashFlow float64) float64 {
	if freeCashFlow <= 0 {
		return 0
	}

	var value float64
	for year := 1; year <= dcfYears; year++ {
		future := freeCashFlow * math.Pow(1+dcfGrowthRate, float64(year))
		value += future / math.Pow(1+dcfDiscountRate, float64(year))
	}

	terminal := freeCashFlow * math.Pow(1+dcfGrowthRate, float64(dcfYears)) * (1 + dcfTerminalGrowth) /
		(dcfDiscountRate - dcfTerminalGrowth)
	value += terminal / math.Pow(1+dcfDiscountRate, float64(dcfYears))

	return value
}
