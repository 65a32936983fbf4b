package models

import "time"

// Signal values emitted by analysts.
const (
	SignalBullish = "bullish"
	SignalBearish = "bearish"
	SignalNeutral = "neutral"
)

// Trade actions produced by the portfolio manager.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

// Portfolio is the account state an analysis run trades against.
type Portfolio struct {
	Cash   float64            `json:"cash"`
	Shares map[string]float64 `json:"shares"`
}

// SharesOf returns the current position for a ticker.
func (p *Portfolio) SharesOf(ticker string) float64 {
	if p.Shares == nil {
		return 0
	}
	return p.Shares[ticker]
}

// AnalystSignal is a single analyst's verdict on a ticker.
// Confidence is a percentage in [0, 100].
type AnalystSignal struct {
	Signal     string             `json:"signal"`
	Confidence float64            `json:"confidence"`
	Reasoning  map[string]string  `json:"reasoning,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// RiskLimits is the risk manager's sizing constraint for a ticker.
type RiskLimits struct {
	Ticker            string  `json:"ticker"`
	CurrentPrice      float64 `json:"current_price"`
	PortfolioValue    float64 `json:"portfolio_value"`
	PositionLimit     float64 `json:"position_limit"`
	RemainingLimit    float64 `json:"remaining_position_limit"`
	MaxShares         float64 `json:"max_shares"`
	CurrentPosition   float64 `json:"current_position_value"`
	AvailableCash     float64 `json:"available_cash"`
	ReasonedByAnalyst string  `json:"-"`
}

// TradeDecision is the final output of an analysis run for one ticker.
type TradeDecision struct {
	Ticker     string  `json:"ticker"`
	Action     string  `json:"action"`
	Quantity   float64 `json:"quantity"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// AnalysisResult aggregates everything a run produced: the decision,
// every analyst's signal, and per-analyst errors for partial failures.
type AnalysisResult struct {
	Ticker         string                   `json:"ticker"`
	StartDate      string                   `json:"start_date"`
	EndDate        string                   `json:"end_date"`
	Decision       *TradeDecision           `json:"decision"`
	AnalystSignals map[string]AnalystSignal `json:"analyst_signals,omitempty"`
	RiskLimits     *RiskLimits              `json:"risk_limits,omitempty"`
	Errors         map[string]string        `json:"errors,omitempty"`
	CompletedAt    time.Time                `json:"completed_at"`
}

// DecisionRecord is the audit trail row persisted for each completed run.
type DecisionRecord struct {
	RunID       string    `json:"run_id"`
	Ticker      string    `json:"ticker"`
	Action      string    `json:"action"`
	Quantity    float64   `json:"quantity"`
	Confidence  float64   `json:"confidence"`
	Reasoning   string    `json:"reasoning"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	AnalystErrs int       `json:"analyst_errors"`
	CreatedAt   time.Time `json:"created_at"`
}
