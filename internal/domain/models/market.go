package models

import "time"

// PriceBar represents a daily OHLCV record for a ticker.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Ticker string    `json:"ticker"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// FinancialMetrics is a snapshot of a company's fundamental ratios
// as of a reporting period.
type FinancialMetrics struct {
	Ticker                string  `json:"ticker"`
	ReportPeriod          string  `json:"report_period"`
	MarketCap             float64 `json:"market_cap"`
	NetIncome             float64 `json:"net_income"`
	Depreciation          float64 `json:"depreciation_and_amortization"`
	CapitalExpenditure    float64 `json:"capital_expenditure"`
	ReturnOnEquity        float64 `json:"return_on_equity"`
	NetMargin             float64 `json:"net_margin"`
	OperatingMargin       float64 `json:"operating_margin"`
	RevenueGrowth         float64 `json:"revenue_growth"`
	EarningsGrowth        float64 `json:"earnings_growth"`
	BookValueGrowth       float64 `json:"book_value_growth"`
	CurrentRatio          float64 `json:"current_ratio"`
	DebtToEquity          float64 `json:"debt_to_equity"`
	FreeCashFlowPerShare  float64 `json:"free_cash_flow_per_share"`
	EarningsPerShare      float64 `json:"earnings_per_share"`
	PriceToEarningsRatio  float64 `json:"price_to_earnings_ratio"`
	PriceToBookRatio      float64 `json:"price_to_book_ratio"`
	PriceToSalesRatio     float64 `json:"price_to_sales_ratio"`
	OutstandingShares     float64 `json:"outstanding_shares"`
	OwnerEarningsPerShare float64 `json:"owner_earnings_per_share"`
	WorkingCapitalChange  float64 `json:"working_capital_change"`
}

// InsiderTrade is a single reported insider transaction. Negative shares
// indicate a sale.
type InsiderTrade struct {
	Ticker          string    `json:"ticker"`
	Insider         string    `json:"insider"`
	Title           string    `json:"title"`
	TransactionDate time.Time `json:"transaction_date"`
	Shares          float64   `json:"transaction_shares"`
	PricePerShare   float64   `json:"price_per_share"`
	Value           float64   `json:"value"`
}
