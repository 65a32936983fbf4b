package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FundPilot/internal/domain/models"
	domrepo "FundPilot/internal/domain/repository"
	domservice "FundPilot/internal/domain/service"
	"FundPilot/internal/services/analysts"
	xhttp "FundPilot/pkg/http"
	"FundPilot/pkg/logger"
	"FundPilot/pkg/util"
)

// DecisionSink receives completed decision records for the audit trail.
// Implementations must never block the caller.
type DecisionSink interface {
	Record(rec *models.DecisionRecord)
}

// ProgressEvent reports pipeline progress for streaming clients.
type ProgressEvent struct {
	Ticker  string `json:"ticker"`
	Stage   string `json:"stage"`
	Analyst string `json:"analyst,omitempty"`
	Status  string `json:"status"`
}

// ProgressFunc consumes progress events. Nil is allowed.
type ProgressFunc func(ProgressEvent)

// PipelineUseCase runs the full analysis pipeline for a set of tickers:
// analysts fan out concurrently per ticker, the risk manager caps sizing,
// and the portfolio manager produces the final decision. An analyst failure
// is recorded per ticker and never aborts the run.
type PipelineUseCase struct {
	registry     *analysts.Registry
	market       domrepo.MarketData
	fundamentals domrepo.FundamentalsSource
	insider      domrepo.InsiderSource
	risk         domservice.RiskAssessor
	decider      domservice.DecisionMaker
	metrics      domrepo.Metrics
	sink         DecisionSink
	logger       *logger.Logger
	timeout      time.Duration
	lookbackDays int
}

// PipelineOption configures PipelineUseCase.
type PipelineOption func(*PipelineUseCase)

// WithTimeout bounds a whole run.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *PipelineUseCase) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLookbackDays sets how many extra calendar days of bars are fetched
// before the requested start date so indicators have warmup history.
func WithLookbackDays(days int) PipelineOption {
	return func(p *PipelineUseCase) {
		if days > 0 {
			p.lookbackDays = days
		}
	}
}

// WithSink wires the decision audit sink.
func WithSink(s DecisionSink) PipelineOption {
	return func(p *PipelineUseCase) {
		p.sink = s
	}
}

// WithMetrics wires the metrics recorder.
func WithMetrics(m domrepo.Metrics) PipelineOption {
	return func(p *PipelineUseCase) {
		p.metrics = m
	}
}

// NewPipelineUseCase creates the analysis pipeline.
func NewPipelineUseCase(
	registry *analysts.Registry,
	market domrepo.MarketData,
	fundamentals domrepo.FundamentalsSource,
	insider domrepo.InsiderSource,
	risk domservice.RiskAssessor,
	decider domservice.DecisionMaker,
	lgr *logger.Logger,
	opts ...PipelineOption,
) *PipelineUseCase {
	p := &PipelineUseCase{
		registry:     registry,
		market:       market,
		fundamentals: fundamentals,
		insider:      insider,
		risk:         risk,
		decider:      decider,
		logger:       lgr,
		timeout:      60 * time.Second,
		lookbackDays: 120,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analysts returns the identifiers of the available analysts.
func (p *PipelineUseCase) Analysts() []string {
	return p.registry.Names()
}

// Run executes the pipeline for every requested ticker.
func (p *PipelineUseCase) Run(ctx context.Context, req *models.AnalysisRequest) ([]*models.AnalysisResult, error) {
	return p.RunWithProgress(ctx, req, nil)
}

// RunWithProgress executes the pipeline, reporting stage transitions to
// progress when it is non-nil.
func (p *PipelineUseCase) RunWithProgress(ctx context.Context, req *models.AnalysisRequest, progress ProgressFunc) ([]*models.AnalysisResult, error) {
	if len(req.Tickers) == 0 {
		return nil, xhttp.BadRequestError("at least one ticker required")
	}

	selected, err := p.registry.Select(req.Analysts)
	if err != nil {
		return nil, xhttp.BadRequestError(err.Error())
	}

	start, end, err := util.ResolveDateRange(req.StartDate, req.EndDate, time.Now())
	if err != nil {
		return nil, xhttp.BadRequestError(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	portfolio := &models.Portfolio{
		Cash:   req.Cash,
		Shares: make(map[string]float64, len(req.Tickers)),
	}
	for ticker, shares := range req.Positions {
		if shares > 0 {
			portfolio.Shares[util.NormalizeTicker(ticker)] = shares
		}
	}

	runStart := time.Now()
	results := make([]*models.AnalysisResult, 0, len(req.Tickers))
	for _, ticker := range req.Tickers {
		ticker = util.NormalizeTicker(ticker)
		results = append(results, p.runTicker(ctx, ticker, start, end, selected, portfolio, progress))
	}

	if p.metrics != nil {
		p.metrics.RecordLatency("pipeline_run", time.Since(runStart).Seconds())
	}
	return results, nil
}

func (p *PipelineUseCase) runTicker(
	ctx context.Context,
	ticker string,
	start, end time.Time,
	selected []domservice.Analyst,
	portfolio *models.Portfolio,
	progress ProgressFunc,
) *models.AnalysisResult {
	res := &models.AnalysisResult{
		Ticker:         ticker,
		StartDate:      util.FormatTradingDate(start),
		EndDate:        util.FormatTradingDate(end),
		AnalystSignals: make(map[string]models.AnalystSignal, len(selected)),
		Errors:         make(map[string]string),
	}

	emit := func(stage, analyst, status string) {
		if progress != nil {
			progress(ProgressEvent{Ticker: ticker, Stage: stage, Analyst: analyst, Status: status})
		}
	}

	emit("data", "", "fetching")
	ac := p.gatherData(ctx, ticker, start, end, portfolio, res.Errors)
	emit("data", "", "done")

	// Analysts fan out; each failure lands in the errors map.
	type item struct {
		name string
		sig  models.AnalystSignal
		err  error
	}
	ch := make(chan item, len(selected))
	var wg sync.WaitGroup

	for _, a := range selected {
		wg.Add(1)
		go func(a domservice.Analyst) {
			defer wg.Done()
			emit("analysts", a.Name(), "running")
			sig, err := a.Analyze(ctx, ac)
			ch <- item{a.Name(), sig, err}
		}(a)
	}
	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.name] = it.err.Error()
			if p.metrics != nil {
				p.metrics.RecordAnalystRun(it.name, "error")
			}
			emit("analysts", it.name, "error")
			continue
		}
		res.AnalystSignals[it.name] = it.sig
		if p.metrics != nil {
			p.metrics.RecordAnalystRun(it.name, "ok")
		}
		emit("analysts", it.name, "done")
	}

	emit("risk_management", "", "running")
	limits, err := p.risk.Assess(ctx, ac)
	if err != nil {
		res.Errors["risk_management"] = err.Error()
		emit("risk_management", "", "error")
	} else {
		res.RiskLimits = limits
		emit("risk_management", "", "done")
	}

	emit("portfolio_management", "", "running")
	res.Decision = p.decide(ctx, ticker, res, limits, portfolio)
	res.CompletedAt = time.Now()
	emit("portfolio_management", "", "done")

	if p.metrics != nil {
		p.metrics.RecordDecision(res.Decision.Action, ticker)
	}
	p.record(res)

	if p.logger != nil {
		p.logger.Info("ticker analysis complete",
			logger.String("ticker", ticker),
			logger.String("action", res.Decision.Action),
			logger.Int("analyst_errors", len(res.Errors)))
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res
}

// gatherData assembles the analyst context. A failed source is reported in
// errors and leaves its field empty; analysts that need it will fail
// individually.
func (p *PipelineUseCase) gatherData(
	ctx context.Context,
	ticker string,
	start, end time.Time,
	portfolio *models.Portfolio,
	errs map[string]string,
) *domservice.AnalystContext {
	ac := &domservice.AnalystContext{
		Ticker:    ticker,
		StartDate: util.FormatTradingDate(start),
		EndDate:   util.FormatTradingDate(end),
		Portfolio: portfolio,
	}

	barsStart := start.AddDate(0, 0, -p.lookbackDays)

	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		bars, err := p.market.DailyBars(ctx, ticker, barsStart, end)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs["market_data"] = err.Error()
			return
		}
		ac.Bars = bars
	}()

	if p.fundamentals != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := p.fundamentals.FinancialMetrics(ctx, ticker, end)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs["fundamental_data"] = err.Error()
				return
			}
			ac.Metrics = m
		}()
	}

	if p.insider != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trades, err := p.insider.InsiderTrades(ctx, ticker, start, end)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs["insider_data"] = err.Error()
				return
			}
			ac.Insider = trades
		}()
	}

	wg.Wait()
	return ac
}

// decide produces the final decision, falling back to a zero-quantity hold
// when the portfolio manager cannot run.
func (p *PipelineUseCase) decide(
	ctx context.Context,
	ticker string,
	res *models.AnalysisResult,
	limits *models.RiskLimits,
	portfolio *models.Portfolio,
) *models.TradeDecision {
	hold := func(reason string) *models.TradeDecision {
		return &models.TradeDecision{
			Ticker:    ticker,
			Action:    models.ActionHold,
			Reasoning: reason,
		}
	}

	if len(res.AnalystSignals) == 0 {
		res.Errors["portfolio_management"] = "no analyst signals available"
		return hold("no analyst signals available")
	}
	if limits == nil {
		return hold("risk limits unavailable")
	}

	decision, err := p.decider.Decide(ctx, ticker, res.AnalystSignals, limits, portfolio)
	if err != nil {
		res.Errors["portfolio_management"] = err.Error()
		return hold("portfolio manager failed: " + err.Error())
	}
	return decision
}

func (p *PipelineUseCase) record(res *models.AnalysisResult) {
	if p.sink == nil || res.Decision == nil {
		return
	}
	p.sink.Record(&models.DecisionRecord{
		RunID:       fmt.Sprintf("%d", time.Now().UnixNano()),
		Ticker:      res.Ticker,
		Action:      res.Decision.Action,
		Quantity:    res.Decision.Quantity,
		Confidence:  res.Decision.Confidence,
		Reasoning:   res.Decision.Reasoning,
		StartDate:   res.StartDate,
		EndDate:     res.EndDate,
		AnalystErrs: len(res.Errors),
		CreatedAt:   time.Now(),
	})
}
