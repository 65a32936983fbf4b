package api

import (
	"time"

	models "FundPilot/internal/domain/models"
	domrepo "FundPilot/internal/domain/repository"
	"FundPilot/internal/service/ratelimit"
	"FundPilot/internal/usecase"
	xhttp "FundPilot/pkg/http"
	xlogger "FundPilot/pkg/logger"
	"FundPilot/pkg/queue"
	"FundPilot/pkg/util"

	"github.com/labstack/echo/v4"
)

// HedgeEchoHandler exposes the analysis pipeline over HTTP.
type HedgeEchoHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.PipelineUseCase
	store    domrepo.DecisionStore
	queue    queue.Service
	rl       *ratelimit.Limiter
	rlCap    float64
	rlRefill float64
}

func NewHedgeEchoHandler(logger *xlogger.Logger, pipeline *usecase.PipelineUseCase) *HedgeEchoHandler {
	return &HedgeEchoHandler{
		logger:   logger,
		pipeline: pipeline,
		rl:       ratelimit.New(),
		rlCap:    5,
		rlRefill: 2,
	}
}

// SetDecisionStore enables the decisions history endpoint.
func (h *HedgeEchoHandler) SetDecisionStore(store domrepo.DecisionStore) { h.store = store }

// SetQueue enables asynchronous runs.
func (h *HedgeEchoHandler) SetQueue(q queue.Service) { h.queue = q }

// SetRateLimit overrides the default per-client token bucket.
func (h *HedgeEchoHandler) SetRateLimit(capacity, refillPerSec float64) {
	if capacity > 0 && refillPerSec > 0 {
		h.rlCap = capacity
		h.rlRefill = refillPerSec
	}
}

func (h *HedgeEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/hedge")
	g.POST("/run", h.Run)
	g.GET("/analysts", h.Analysts)
	g.GET("/decisions", h.Decisions)
	g.GET("/stream", h.Stream)
	e.GET("/healthz", h.Health)
}

// Run executes the analysis pipeline synchronously, or enqueues it when
// the request asks for an async run.
func (h *HedgeEchoHandler) Run(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.rl.Allow(c.RealIP()+":run", h.rlCap, h.rlRefill) {
		h.logger.Warn("analysis rate limited", xlogger.String("remote", c.RealIP()))
		return xhttp.TooManyRequestsResponse(c, "rate limited")
	}

	if req.Async {
		if h.queue == nil {
			return xhttp.BadRequestResponse(c, "async runs are not enabled")
		}
		if err := h.queue.PublishMessage(c.Request().Context(), usecase.AnalysisJobType, req); err != nil {
			h.logger.Error("enqueue analysis", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.AcceptedResponse(c, map[string]interface{}{
			"queued":  true,
			"tickers": req.Tickers,
		})
	}

	results, err := h.pipeline.Run(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("analysis run error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if !req.ShowReasoning {
		stripSignals(results)
	}
	return xhttp.SuccessResponse(c, results)
}

// stripSignals drops the per-analyst breakdown when the client did not ask
// for reasoning; the decision and error map are kept.
func stripSignals(results []*models.AnalysisResult) {
	for _, res := range results {
		res.AnalystSignals = nil
	}
}

// Analysts lists the available analysts.
func (h *HedgeEchoHandler) Analysts(c echo.Context) error {
	type analystInfo struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	}

	names := h.pipeline.Analysts()
	out := make([]analystInfo, 0, len(names))
	for _, name := range names {
		out = append(out, analystInfo{ID: name, DisplayName: util.TitleWords(name)})
	}
	return xhttp.SuccessResponse(c, out)
}

// Decisions returns the persisted decision history.
func (h *HedgeEchoHandler) Decisions(c echo.Context) error {
	if h.store == nil {
		return xhttp.NotFoundResponse(c, "decision history is not enabled")
	}

	req := &models.DecisionsQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from := util.ParseTradingDateDefault(req.From, time.Time{})
	to := util.ParseTradingDateDefault(req.To, time.Time{})
	ticker := util.NormalizeTicker(req.Ticker)

	recs, err := h.store.Query(c.Request().Context(), ticker, from, to, req.Limit)
	if err != nil {
		h.logger.Error("decisions query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

// Health reports service liveness, including the decision store when wired.
func (h *HedgeEchoHandler) Health(c echo.Context) error {
	status := map[string]string{"status": "ok"}
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			status["status"] = "degraded"
			status["decision_store"] = err.Error()
		} else {
			status["decision_store"] = "ok"
		}
	}
	return xhttp.SuccessResponse(c, status)
}
