package yahoo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"FundPilot/internal/domain/models"
	"FundPilot/internal/domain/repository"
	"FundPilot/pkg/cache"
	"FundPilot/pkg/http"
	"FundPilot/pkg/logger"
	"FundPilot/pkg/util"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
)

// MarketData fetches daily bars from Yahoo Finance, with an optional
// read-through cache in front of the upstream call.
type MarketData struct {
	logger   *logger.Logger
	cache    cache.Service
	cacheTTL time.Duration
	metrics  repository.Metrics
}

// Option configures MarketData.
type Option func(*MarketData)

// WithCache enables caching of fetched bar series.
func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(m *MarketData) {
		m.cache = c
		m.cacheTTL = ttl
	}
}

// WithMetrics wires a metrics recorder.
func WithMetrics(rec repository.Metrics) Option {
	return func(m *MarketData) {
		m.metrics = rec
	}
}

// New creates a Yahoo Finance market data source.
func New(lgr *logger.Logger, opts ...Option) *MarketData {
	m := &MarketData{
		logger:   lgr,
		cacheTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DailyBars returns daily OHLCV bars for ticker over [start, end], sorted by
// date ascending.
func (m *MarketData) DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	ticker = util.NormalizeTicker(ticker)
	key := cache.BarsKey(ticker, util.FormatTradingDate(start), util.FormatTradingDate(end))

	if m.cache != nil {
		if bars, err := cache.GetTyped[[]models.PriceBar](ctx, m.cache, key); err == nil {
			return bars, nil
		}
	}

	bars, err := m.fetch(ctx, ticker, start, end)
	if err != nil {
		if m.metrics != nil {
			m.metrics.RecordError("yahoo_fetch")
		}
		return nil, http.UpstreamErrorf("market data unavailable for %s", ticker).WithError(err)
	}

	if len(bars) > 0 && m.metrics != nil {
		m.metrics.RecordLastClose(ticker, bars[len(bars)-1].Close)
	}

	if m.cache != nil {
		if err := cache.SetTyped(ctx, m.cache, key, bars, m.cacheTTL); err != nil && m.logger != nil {
			m.logger.Warn("bars cache write failed",
				logger.String("ticker", ticker),
				logger.Error(err))
		}
	}
	return bars, nil
}

func (m *MarketData) fetch(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	params := &chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	params.Context = &ctx

	iter := chart.Get(params)

	var bars []models.PriceBar
	for iter.Next() {
		bar := iter.Bar()
		bars = append(bars, models.PriceBar{
			Date:   time.Unix(int64(bar.Timestamp), 0).UTC(),
			Ticker: ticker,
			Open:   bar.Open.InexactFloat64(),
			High:   bar.High.InexactFloat64(),
			Low:    bar.Low.InexactFloat64(),
			Close:  bar.Close.InexactFloat64(),
			Volume: float64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("chart fetch %s: %w", ticker, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars returned for %s between %s and %s",
			ticker, util.FormatTradingDate(start), util.FormatTradingDate(end))
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	if m.logger != nil {
		m.logger.Debug("daily bars fetched",
			logger.String("ticker", ticker),
			logger.Int("count", len(bars)))
	}
	return bars, nil
}
