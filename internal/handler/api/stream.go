package api

import (
	"net/http"
	"sync"

	models "FundPilot/internal/domain/models"
	"FundPilot/internal/usecase"
	xhttp "FundPilot/pkg/http"
	xlogger "FundPilot/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamFrame is a single websocket message sent to the client.
type streamFrame struct {
	Type     string                   `json:"type"` // progress, result, error
	Progress *usecase.ProgressEvent   `json:"progress,omitempty"`
	Results  []*models.AnalysisResult `json:"results,omitempty"`
	Errors   interface{}              `json:"errors,omitempty"`
}

// Stream runs an analysis while pushing per-stage progress frames over a
// websocket. The client sends one StreamRequest frame, receives progress
// frames as analysts complete, and a final result frame.
func (h *HedgeEchoHandler) Stream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	var req models.StreamRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(streamFrame{Type: "error", Errors: "invalid request frame"})
		return nil
	}
	if verr := xhttp.ValidateStruct(&req); verr != nil {
		_ = conn.WriteJSON(streamFrame{Type: "error", Errors: verr})
		return nil
	}

	if !h.rl.Allow(c.RealIP()+":stream", h.rlCap, h.rlRefill) {
		_ = conn.WriteJSON(streamFrame{Type: "error", Errors: "rate limited"})
		return nil
	}

	// Progress events arrive from analyst goroutines, so writes are serialized.
	var mu sync.Mutex
	write := func(f streamFrame) {
		mu.Lock()
		defer mu.Unlock()
		if err := conn.WriteJSON(f); err != nil {
			h.logger.Warn("stream write failed", xlogger.Error(err))
		}
	}

	runReq := &models.AnalysisRequest{
		Tickers:       req.Tickers,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Cash:          req.Cash,
		Positions:     req.Positions,
		Analysts:      req.Analysts,
		ShowReasoning: req.ShowReasoning,
	}

	results, err := h.pipeline.RunWithProgress(c.Request().Context(), runReq, func(ev usecase.ProgressEvent) {
		write(streamFrame{Type: "progress", Progress: &ev})
	})
	if err != nil {
		write(streamFrame{Type: "error", Errors: err.Error()})
		return nil
	}

	if !req.ShowReasoning {
		stripSignals(results)
	}
	write(streamFrame{Type: "result", Results: results})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	return nil
}
