package funddata

import (
	"context"
	"fmt"
	"time"

	"FundPilot/internal/domain/models"
	"FundPilot/pkg/cache"
	"FundPilot/pkg/config"
	xhttp "FundPilot/pkg/http"
	"FundPilot/pkg/logger"
	"FundPilot/pkg/util"
)

// Client talks to the financial datasets API for fundamentals and insider
// trade data. It implements repository.FundamentalsSource and
// repository.InsiderSource.
type Client struct {
	baseURL  string
	apiKey   string
	http     *xhttp.Client
	logger   *logger.Logger
	cache    cache.Service
	cacheTTL time.Duration
}

// Option configures Client.
type Option func(*Client)

// WithCache enables caching of upstream responses.
func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// New creates a fund data client from config.
func New(cfg *config.Config, lgr *logger.Logger, opts ...Option) *Client {
	timeout := cfg.FundData.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:  cfg.FundData.BaseURL,
		apiKey:   cfg.FundData.APIKey,
		http:     xhttp.NewClient(xhttp.WithTimeout(timeout)),
		logger:   lgr,
		cacheTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type metricsResponse struct {
	FinancialMetrics []models.FinancialMetrics `json:"financial_metrics"`
}

type insiderResponse struct {
	InsiderTrades []models.InsiderTrade `json:"insider_trades"`
}

// FinancialMetrics returns the most recent metrics snapshot reported on or
// before asOf.
func (c *Client) FinancialMetrics(ctx context.Context, ticker string, asOf time.Time) (*models.FinancialMetrics, error) {
	ticker = util.NormalizeTicker(ticker)
	asOfStr := util.FormatTradingDate(asOf)
	key := cache.MetricsKey(ticker, asOfStr)

	if c.cache != nil {
		if m, err := cache.GetTyped[models.FinancialMetrics](ctx, c.cache, key); err == nil {
			return &m, nil
		}
	}

	var resp metricsResponse
	err := c.getJSON(ctx, "/financial-metrics", map[string][]string{
		"ticker":        {ticker},
		"report_period": {asOfStr},
		"limit":         {"1"},
		"period":        {"ttm"},
	}, &resp)
	if err != nil {
		return nil, xhttp.UpstreamErrorf("financial metrics unavailable for %s", ticker).WithError(err)
	}
	if len(resp.FinancialMetrics) == 0 {
		return nil, xhttp.NotFoundErrorf("no financial metrics for %s as of %s", ticker, asOfStr)
	}

	m := resp.FinancialMetrics[0]
	if c.cache != nil {
		if err := cache.SetTyped(ctx, c.cache, key, m, c.cacheTTL); err != nil && c.logger != nil {
			c.logger.Warn("metrics cache write failed",
				logger.String("ticker", ticker),
				logger.Error(err))
		}
	}
	return &m, nil
}

// InsiderTrades returns insider transactions for ticker in [start, end].
func (c *Client) InsiderTrades(ctx context.Context, ticker string, start, end time.Time) ([]models.InsiderTrade, error) {
	ticker = util.NormalizeTicker(ticker)
	startStr := util.FormatTradingDate(start)
	endStr := util.FormatTradingDate(end)
	key := cache.InsiderKey(ticker, startStr, endStr)

	if c.cache != nil {
		if trades, err := cache.GetTyped[[]models.InsiderTrade](ctx, c.cache, key); err == nil {
			return trades, nil
		}
	}

	var resp insiderResponse
	err := c.getJSON(ctx, "/insider-trades", map[string][]string{
		"ticker":     {ticker},
		"start_date": {startStr},
		"end_date":   {endStr},
		"limit":      {"1000"},
	}, &resp)
	if err != nil {
		return nil, xhttp.UpstreamErrorf("insider trades unavailable for %s", ticker).WithError(err)
	}

	if c.cache != nil {
		if err := cache.SetTyped(ctx, c.cache, key, resp.InsiderTrades, c.cacheTTL); err != nil && c.logger != nil {
			c.logger.Warn("insider cache write failed",
				logger.String("ticker", ticker),
				logger.Error(err))
		}
	}
	return resp.InsiderTrades, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("fund data base URL not configured")
	}

	headers := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		headers["X-API-KEY"] = c.apiKey
	}

	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		Headers:     headers,
		QueryParams: query,
	}, dest)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}
