package analysts

import (
	"context"
	"fmt"
	"math"

	"FundPilot/internal/domain/models"
	"FundPilot/internal/domain/service"
	"FundPilot/pkg/logger"
)

// SentimentAnalyst reads insider transaction flow. Insiders buying their
// own stock is bullish, net selling is bearish.
type SentimentAnalyst struct {
	logger *logger.Logger
}

func NewSentimentAnalyst(lgr *logger.Logger) *SentimentAnalyst {
	return &SentimentAnalyst{logger: lgr}
}

func (a *SentimentAnalyst) Name() string { return "sentiment_analyst" }

func (a *SentimentAnalyst) Analyze(_ context.Context, ac *service.AnalystContext) (models.AnalystSignal, error) {
	if len(ac.Insider) == 0 {
		return models.AnalystSignal{}, fmt.Errorf("sentiment: no insider trades for %s between %s and %s",
			ac.Ticker, ac.StartDate, ac.EndDate)
	}

	buys, sells := 0, 0
	var netShares float64
	for _, t := range ac.Insider {
		if t.Shares >= 0 {
			buys++
		} else {
			sells++
		}
		netShares += t.Shares
	}

	total := buys + sells
	signal := models.SignalNeutral
	dominant := 0
	switch {
	case buys > sells:
		signal = models.SignalBullish
		dominant = buys
	case sells > buys:
		signal = models.SignalBearish
		dominant = sells
	default:
		dominant = buys
	}

	confidence := clampConfidence(float64(dominant) / float64(total) * 100)

	if a.logger != nil {
		a.logger.Debug("sentiment analysis complete",
			logger.String("ticker", ac.Ticker),
			logger.String("signal", signal),
			logger.Int("insider_buys", buys),
			logger.Int("insider_sells", sells))
	}

	return models.AnalystSignal{
		Signal:     signal,
		Confidence: confidence,
		Reasoning: map[string]string{
			"insider_flow": fmt.Sprintf("%d buys vs %d sells, net %s shares",
				buys, sells, formatShares(netShares)),
		},
		Metrics: map[string]float64{
			"insider_buys":  float64(buys),
			"insider_sells": float64(sells),
			"net_shares":    netShares,
		},
	}, nil
}

func formatShares(n float64) string {
	if n >= 0 {
		return fmt.Sprintf("+%.0f", n)
	}
	return fmt.Sprintf("-%.0f", math.Abs(n))
}
