package api

import (
	"net/http"

	"AlphaWalk/internal/domain/models"
	"AlphaWalk/internal/usecase"
	xlogger "AlphaWalk/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsRunRequest is the first client message on the progress socket.
type wsRunRequest struct {
	Predictive bool                                 `json:"predictive"`
	Historical *models.WalkForwardRequest           `json:"request,omitempty"`
	Pred       *models.PredictiveWalkForwardRequest `json:"predictive_request,omitempty"`
}

// wsMessage is the server-to-client envelope on the progress socket.
type wsMessage struct {
	Type     string                 `json:"type"`
	Progress *usecase.ProgressEvent `json:"progress,omitempty"`
	Result   *models.RunResult      `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// WalkForwardWS runs a simulation over a websocket, streaming a progress
// event at every rebalance boundary and the full result on completion.
// Events pass through a buffered channel so a slow client never stalls
// the simulation; overflow events are dropped.
func (h *SimulationHandler) WalkForwardWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	var req wsRunRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(wsMessage{Type: "error", Error: "bad request payload"})
		return nil
	}
	if (req.Predictive && req.Pred == nil) || (!req.Predictive && req.Historical == nil) {
		_ = conn.WriteJSON(wsMessage{Type: "error", Error: "missing run request"})
		return nil
	}

	ctx, cancel := h.runContext(c.Request().Context())
	defer cancel()

	runID := uuid.NewString()
	events := make(chan usecase.ProgressEvent, h.progressBuf)
	progress := func(ev usecase.ProgressEvent) {
		select {
		case events <- ev:
		default:
		}
	}

	var result *models.RunResult
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		if req.Predictive {
			result, runErr = h.runner.RunPredictive(ctx, runID, *req.Pred, progress)
		} else {
			result, runErr = h.runner.RunHistorical(ctx, runID, *req.Historical, progress)
		}
	}()

	for running := true; running; {
		select {
		case ev := <-events:
			if !h.writeProgress(conn, runID, ev) {
				cancel()
			}
		case <-done:
			running = false
		}
	}

	// drain events buffered before completion
	for drained := false; !drained; {
		select {
		case ev := <-events:
			h.writeProgress(conn, runID, ev)
		default:
			drained = true
		}
	}

	if runErr != nil {
		h.logger.Error("websocket run failed", xlogger.String("run_id", runID), xlogger.Error(runErr))
		_ = conn.WriteJSON(wsMessage{Type: "error", Error: runErr.Error()})
		return nil
	}
	return conn.WriteJSON(wsMessage{Type: "result", Result: result})
}

func (h *SimulationHandler) writeProgress(conn *websocket.Conn, runID string, ev usecase.ProgressEvent) bool {
	if err := conn.WriteJSON(wsMessage{Type: "progress", Progress: &ev}); err != nil {
		h.logger.Warn("progress write failed", xlogger.String("run_id", runID), xlogger.Error(err))
		return false
	}
	return true
}
