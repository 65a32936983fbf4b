package models

// Requests for the hedge analysis HTTP endpoints. Defined in domain for
// consistency and reuse.

type AnalysisRequest struct {
	Tickers       []string           `json:"tickers" validate:"required,min=1,max=20,dive,required"`
	StartDate     string             `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate       string             `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Cash          float64            `json:"initial_cash" default:"100000" validate:"gte=0"`
	Positions     map[string]float64 `json:"positions" validate:"omitempty,dive,gte=0"`
	Analysts      []string           `json:"analysts" validate:"omitempty,dive,oneof=technical_analyst fundamentals_analyst sentiment_analyst valuation_analyst"`
	ShowReasoning bool               `json:"show_reasoning"`
	Async         bool               `json:"async"`
}

type DecisionsQuery struct {
	Ticker string `query:"ticker" json:"ticker" validate:"omitempty,max=10"`
	From   string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// StreamRequest is the first frame a websocket client sends to start a
// streamed analysis run.
type StreamRequest struct {
	Tickers       []string           `json:"tickers" validate:"required,min=1,max=20,dive,required"`
	StartDate     string             `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate       string             `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Cash          float64            `json:"initial_cash" default:"100000" validate:"gte=0"`
	Positions     map[string]float64 `json:"positions" validate:"omitempty,dive,gte=0"`
	Analysts      []string           `json:"analysts" validate:"omitempty,dive,oneof=technical_analyst fundamentals_analyst sentiment_analyst valuation_analyst"`
	ShowReasoning bool               `json:"show_reasoning"`
}
