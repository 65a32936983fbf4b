package analysts

import (
	"context"
	"fmt"
	"math"

	"FundPilot/internal/domain/models"
	"FundPilot/internal/domain/service"
	"FundPilot/pkg/logger"
)

// Strategy weights for the combined technical score.
const (
	weightTrend         = 0.30
	weightMeanReversion = 0.20
	weightMomentum      = 0.30
	weightVolatility    = 0.20
)

// minTechnicalBars covers the longest lookback (EMA 55) plus warmup.
const minTechnicalBars = 60

type subSignal struct {
	signal     string
	confidence float64 // [0, 1]
}

func (s subSignal) direction() float64 {
	switch s.signal {
	case models.SignalBullish:
		return 1
	case models.SignalBearish:
		return -1
	default:
		return 0
	}
}

// TechnicalAnalyst scores a ticker as a weighted composite of trend
// following, mean reversion, momentum, and volatility regime strategies.
type TechnicalAnalyst struct {
	logger *logger.Logger
}

func NewTechnicalAnalyst(lgr *logger.Logger) *TechnicalAnalyst {
	return &TechnicalAnalyst{logger: lgr}
}

func (a *TechnicalAnalyst) Name() string { return "technical_analyst" }

func (a *TechnicalAnalyst) Analyze(_ context.Context, ac *service.AnalystContext) (models.AnalystSignal, error) {
	if len(ac.Bars) < minTechnicalBars {
		return models.AnalystSignal{}, fmt.Errorf("technical: need at least %d daily bars for %s, have %d",
			minTechnicalBars, ac.Ticker, len(ac.Bars))
	}

	prices := closes(ac.Bars)

	trend, err := trendSignal(prices)
	if err != nil {
		return models.AnalystSignal{}, fmt.Errorf("technical: trend: %w", err)
	}
	meanRev, err := meanReversionSignal(prices)
	if err != nil {
		return models.AnalystSignal{}, fmt.Errorf("technical: mean reversion: %w", err)
	}
	momentum, err := momentumSignal(ac.Bars)
	if err != nil {
		return models.AnalystSignal{}, fmt.Errorf("technical: momentum: %w", err)
	}
	vol, err := volatilitySignal(prices)
	if err != nil {
		return models.AnalystSignal{}, fmt.Errorf("technical: volatility: %w", err)
	}

	score := weightTrend*trend.direction()*trend.confidence +
		weightMeanReversion*meanRev.direction()*meanRev.confidence +
		weightMomentum*momentum.direction()*momentum.confidence +
		weightVolatility*vol.direction()*vol.confidence

	signal := models.SignalNeutral
	switch {
	case score > 0.15:
		signal = models.SignalBullish
	case score < -0.15:
		signal = models.SignalBearish
	}

	out := models.AnalystSignal{
		Signal:     signal,
		Confidence: clampConfidence(math.Abs(score) * 100 / 0.6),
		Reasoning: map[string]string{
			"trend_following": describe(trend),
			"mean_reversion":  describe(meanRev),
			"momentum":        describe(momentum),
			"volatility":      describe(vol),
		},
		Metrics: map[string]float64{
			"composite_score": score,
		},
	}

	if a.logger != nil {
		a.logger.Debug("technical analysis complete",
			logger.String("ticker", ac.Ticker),
			logger.String("signal", out.Signal),
			logger.Float64("score", score))
	}
	return out, nil
}

func describe(s subSignal) string {
	return fmt.Sprintf("%s (confidence %.0f%%)", s.signal, s.confidence*100)
}

// trendSignal compares short, medium, and long EMAs. Confidence grows with
// the spread between the short and long averages.
func trendSignal(prices []float64) (subSignal, error) {
	emaShort, err := ema(prices, 8)
	if err != nil {
		return subSignal{}, err
	}
	emaMid, err := ema(prices, 21)
	if err != nil {
		return subSignal{}, err
	}
	emaLong, err := ema(prices, 55)
	if err != nil {
		return subSignal{}, err
	}

	strength := math.Min(1, math.Abs(emaShort-emaLong)/emaLong*10)
	switch {
	case emaShort > emaMid && emaMid > emaLong:
		return subSignal{models.SignalBullish, strength}, nil
	case emaShort < emaMid && emaMid < emaLong:
		return subSignal{models.SignalBearish, strength}, nil
	default:
		return subSignal{models.SignalNeutral, 0.5}, nil
	}
}

// meanReversionSignal combines the 50-session z-score with Bollinger band
// position and RSI extremes.
func meanReversionSignal(prices []float64) (subSignal, error) {
	z, err := zscore(prices, 50)
	if err != nil {
		return subSignal{}, err
	}
	upper, lower, err := bollinger(prices, 20, 2)
	if err != nil {
		return subSignal{}, err
	}
	rsi14, err := rsi(prices, 14)
	if err != nil {
		return subSignal{}, err
	}

	last := prices[len(prices)-1]
	bandWidth := upper - lower
	bandPos := 0.5
	if bandWidth > 0 {
		bandPos = (last - lower) / bandWidth
	}

	switch {
	case z < -2 && bandPos < 0.2 || rsi14 < 30:
		return subSignal{models.SignalBullish, math.Min(1, math.Abs(z)/4)}, nil
	case z > 2 && bandPos > 0.8 || rsi14 > 70:
		return subSignal{models.SignalBearish, math.Min(1, math.Abs(z)/4)}, nil
	default:
		return subSignal{models.SignalNeutral, 0.5}, nil
	}
}

// momentumSignal looks at one and three month price momentum confirmed by
// volume expansion.
func momentumSignal(bars []models.PriceBar) (subSignal, error) {
	prices := closes(bars)

	r1m, err := returnOver(prices, 21)
	if err != nil {
		return subSignal{}, err
	}
	r3m := 0.0
	if len(prices) > 63 {
		r3m, _ = returnOver(prices, 63)
	}

	momentum := 0.6*r1m + 0.4*r3m

	volumes := make([]float64, len(bars))
	for i, b := range bars {
		volumes[i] = b.Volume
	}
	avgVolume, err := sma(volumes, 21)
	if err != nil {
		return subSignal{}, err
	}
	volumeConfirms := avgVolume > 0 && volumes[len(volumes)-1] > avgVolume

	strength := math.Min(1, math.Abs(momentum)*10)
	if !volumeConfirms {
		strength *= 0.7
	}

	switch {
	case momentum > 0.05:
		return subSignal{models.SignalBullish, strength}, nil
	case momentum < -0.05:
		return subSignal{models.SignalBearish, strength}, nil
	default:
		return subSignal{models.SignalNeutral, 0.5}, nil
	}
}

// volatilitySignal reads the volatility regime: compressed volatility after
// a pullback favors entries, expanding volatility at highs favors exits.
func volatilitySignal(prices []float64) (subSignal, error) {
	current, err := annualizedVolatility(prices, 21)
	if err != nil {
		return subSignal{}, err
	}

	rets := dailyReturns(prices)
	baseline, err := stddev(rets, len(rets))
	if err != nil {
		return subSignal{}, err
	}
	baseline *= math.Sqrt(252)
	if baseline == 0 {
		return subSignal{models.SignalNeutral, 0.5}, nil
	}

	ratio := current / baseline
	z, err := zscore(prices, 21)
	if err != nil {
		return subSignal{}, err
	}

	switch {
	case ratio < 0.8 && z < -1:
		return subSignal{models.SignalBullish, math.Min(1, math.Abs(ratio-1))}, nil
	case ratio > 1.2 && z > 1:
		return subSignal{models.SignalBearish, math.Min(1, math.Abs(ratio-1))}, nil
	default:
		return subSignal{models.SignalNeutral, 0.5}, nil
	}
}
