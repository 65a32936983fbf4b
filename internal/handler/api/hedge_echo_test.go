package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	models "FundPilot/internal/domain/models"
	domservice "FundPilot/internal/domain/service"
	"FundPilot/internal/services/analysts"
	"FundPilot/internal/usecase"
	xlogger "FundPilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	lgr, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lgr
}

type stubAnalyst struct {
	name string
	sig  models.AnalystSignal
}

func (s *stubAnalyst) Name() string { return s.name }

func (s *stubAnalyst) Analyze(ctx context.Context, ac *domservice.AnalystContext) (models.AnalystSignal, error) {
	return s.sig, nil
}

type fakeMarket struct{}

func (fakeMarket) DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	bars := make([]models.PriceBar, 90)
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = models.PriceBar{Date: day.AddDate(0, 0, i), Close: 100, Volume: 1e6}
	}
	return bars, nil
}

type fakeRisk struct{}

func (fakeRisk) Assess(ctx context.Context, ac *domservice.AnalystContext) (*models.RiskLimits, error) {
	return &models.RiskLimits{Ticker: ac.Ticker, CurrentPrice: 100, MaxShares: 20}, nil
}

type fakeDecider struct{}

func (fakeDecider) Decide(ctx context.Context, ticker string, signals map[string]models.AnalystSignal, limits *models.RiskLimits, portfolio *models.Portfolio) (*models.TradeDecision, error) {
	return &models.TradeDecision{Ticker: ticker, Action: models.ActionBuy, Quantity: limits.MaxShares, Confidence: 75}, nil
}

type fakeQueue struct {
	published []string
	err       error
}

func (q *fakeQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, msgType)
	return nil
}

type fakeDecisionStore struct {
	recs      []*models.DecisionRecord
	healthErr error
}

func (f *fakeDecisionStore) Init(ctx context.Context) error { return nil }

func (f *fakeDecisionStore) Store(ctx context.Context, rec *models.DecisionRecord) error {
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeDecisionStore) StoreBatch(ctx context.Context, recs []*models.DecisionRecord) error {
	f.recs = append(f.recs, recs...)
	return nil
}

func (f *fakeDecisionStore) Query(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.DecisionRecord, error) {
	return f.recs, nil
}

func (f *fakeDecisionStore) Health(ctx context.Context) error { return f.healthErr }

func (f *fakeDecisionStore) Close() error { return nil }

// testPipeline builds a pipeline whose analysts are deterministic stubs.
// Stubs override the real lineup by name so request validation still accepts
// the analyst identifiers.
func testPipeline(t *testing.T) *usecase.PipelineUseCase {
	t.Helper()
	lgr := testLogger(t)

	reg := analysts.NewRegistry(lgr)
	for _, name := range reg.Names() {
		reg.Register(&stubAnalyst{
			name: name,
			sig:  models.AnalystSignal{Signal: models.SignalBullish, Confidence: 80},
		})
	}

	return usecase.NewPipelineUseCase(reg, fakeMarket{}, nil, nil, fakeRisk{}, fakeDecider{}, lgr)
}

func newTestHandler(t *testing.T) (*HedgeEchoHandler, *echo.Echo) {
	t.Helper()
	h := NewHedgeEchoHandler(testLogger(t), testPipeline(t))
	h.SetRateLimit(100, 100)
	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRunEndpoint(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/hedge/run", `{"tickers":["aapl"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected http code %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"ticker":"AAPL"`) {
		t.Fatalf("result missing normalized ticker: %s", body)
	}
	if !strings.Contains(body, `"action":"buy"`) {
		t.Fatalf("result missing decision: %s", body)
	}
}

func TestRunEndpointReasoningToggle(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/hedge/run", `{"tickers":["AAPL"]}`)
	if strings.Contains(rec.Body.String(), "analyst_signals") {
		t.Fatalf("signals should be omitted by default: %s", rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, "/api/hedge/run", `{"tickers":["AAPL"],"show_reasoning":true}`)
	if !strings.Contains(rec.Body.String(), "analyst_signals") {
		t.Fatalf("signals missing with show_reasoning: %s", rec.Body.String())
	}
}

func TestRunEndpointRejectsEmptyTickers(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/hedge/run", `{"tickers":[]}`)
	if !strings.Contains(rec.Body.String(), `"status":400`) {
		t.Fatalf("expected validation failure, got: %s", rec.Body.String())
	}
}

func TestRunEndpointRejectsUnknownAnalyst(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/hedge/run",
		`{"tickers":["AAPL"],"analysts":["astrology_analyst"]}`)
	if !strings.Contains(rec.Body.String(), `"status":400`) {
		t.Fatalf("expected validation failure, got: %s", rec.Body.String())
	}
}

func TestRunEndpointEmptyAnalystsRunsAll(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/hedge/run",
		`{"tickers":["AAPL"],"analysts":[],"show_reasoning":true}`)
	body := rec.Body.String()
	if !strings.Contains(body, `"status":200`) {
		t.Fatalf("empty selection should run the full lineup, got: %s", body)
	}
	for _, id := range []string{"technical_analyst", "fundamentals_analyst", "sentiment_analyst", "valuation_analyst"} {
		if !strings.Contains(body, id) {
			t.Fatalf("missing analyst %s in %s", id, body)
		}
	}
}

func TestRunEndpointRejectsInvertedDateRange(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/hedge/run",
		`{"tickers":["AAPL"],"start_date":"2025-06-01","end_date":"2025-01-01"}`)
	body := rec.Body.String()
	if !strings.Contains(body, `"status":400`) {
		t.Fatalf("expected bad request for inverted range, got: %s", body)
	}
	if !strings.Contains(body, "start date") {
		t.Fatalf("expected range message, got: %s", body)
	}
}

func TestRunEndpointAsyncWithoutQueue(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/hedge/run", `{"tickers":["AAPL"],"async":true}`)
	if !strings.Contains(rec.Body.String(), `"status":400`) {
		t.Fatalf("expected async rejection, got: %s", rec.Body.String())
	}
}

func TestRunEndpointAsyncEnqueues(t *testing.T) {
	h, e := newTestHandler(t)
	q := &fakeQueue{}
	h.SetQueue(q)

	rec := doJSON(e, http.MethodPost, "/api/hedge/run", `{"tickers":["AAPL"],"async":true}`)
	if !strings.Contains(rec.Body.String(), `"status":202`) {
		t.Fatalf("expected accepted, got: %s", rec.Body.String())
	}
	if len(q.published) != 1 || q.published[0] != usecase.AnalysisJobType {
		t.Fatalf("expected analysis job enqueued, got %v", q.published)
	}
}

func TestRunEndpointRateLimited(t *testing.T) {
	h, e := newTestHandler(t)
	h.SetRateLimit(1, 0.001)

	first := doJSON(e, http.MethodPost, "/api/hedge/run", `{"tickers":["AAPL"]}`)
	if !strings.Contains(first.Body.String(), `"status":200`) {
		t.Fatalf("first request should pass: %s", first.Body.String())
	}
	second := doJSON(e, http.MethodPost, "/api/hedge/run", `{"tickers":["AAPL"]}`)
	if !strings.Contains(second.Body.String(), `"status":429`) {
		t.Fatalf("expected rate limit, got: %s", second.Body.String())
	}
}

func TestAnalystsEndpoint(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doJSON(e, http.MethodGet, "/api/hedge/analysts", "")
	body := rec.Body.String()
	for _, id := range []string{"technical_analyst", "fundamentals_analyst", "sentiment_analyst", "valuation_analyst"} {
		if !strings.Contains(body, id) {
			t.Fatalf("missing analyst %s in %s", id, body)
		}
	}
	if !strings.Contains(body, "Technical Analyst") {
		t.Fatalf("missing display name in %s", body)
	}
}

func TestDecisionsEndpointWithoutStore(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doJSON(e, http.MethodGet, "/api/hedge/decisions", "")
	if !strings.Contains(rec.Body.String(), `"status":404`) {
		t.Fatalf("expected not found, got: %s", rec.Body.String())
	}
}

func TestDecisionsEndpoint(t *testing.T) {
	h, e := newTestHandler(t)
	store := &fakeDecisionStore{recs: []*models.DecisionRecord{
		{RunID: "1", Ticker: "AAPL", Action: models.ActionBuy, Quantity: 10},
	}}
	h.SetDecisionStore(store)

	rec := doJSON(e, http.MethodGet, "/api/hedge/decisions?ticker=AAPL", "")
	body := rec.Body.String()
	if !strings.Contains(body, `"total":1`) {
		t.Fatalf("expected one row, got: %s", body)
	}
	if !strings.Contains(body, `"ticker":"AAPL"`) {
		t.Fatalf("row missing ticker: %s", body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, e := newTestHandler(t)
	h.SetDecisionStore(&fakeDecisionStore{})

	rec := doJSON(e, http.MethodGet, "/healthz", "")
	body := rec.Body.String()
	if !strings.Contains(body, `"status":"ok"`) {
		t.Fatalf("expected ok health, got: %s", body)
	}
	if !strings.Contains(body, `"decision_store":"ok"`) {
		t.Fatalf("expected decision store health, got: %s", body)
	}
}
