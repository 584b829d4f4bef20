package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"AlphaWalk/internal/domain/models"
	domrepo "AlphaWalk/internal/domain/repository"
	"AlphaWalk/internal/usecase"
	xhttp "AlphaWalk/pkg/http"
	xlogger "AlphaWalk/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SimulationHandler exposes the optimization and walk-forward operations
// over HTTP.
type SimulationHandler struct {
	logger      *xlogger.Logger
	runner      *usecase.Runner
	store       domrepo.PriceStore
	maxRunTime  time.Duration
	progressBuf int
}

type HandlerOption func(*SimulationHandler)

// WithMaxRunDuration bounds how long a single simulation may run.
func WithMaxRunDuration(d time.Duration) HandlerOption {
	return func(h *SimulationHandler) {
		if d > 0 {
			h.maxRunTime = d
		}
	}
}

// WithProgressBuffer sets the websocket progress event buffer size.
func WithProgressBuffer(n int) HandlerOption {
	return func(h *SimulationHandler) {
		if n > 0 {
			h.progressBuf = n
		}
	}
}

func NewSimulationHandler(logger *xlogger.Logger, runner *usecase.Runner, store domrepo.PriceStore, opts ...HandlerOption) *SimulationHandler {
	h := &SimulationHandler{
		logger:      logger,
		runner:      runner,
		store:       store,
		maxRunTime:  10 * time.Minute,
		progressBuf: 64,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// runContext bounds a simulation by the configured max run duration.
func (h *SimulationHandler) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.maxRunTime > 0 {
		return context.WithTimeout(parent, h.maxRunTime)
	}
	return context.WithCancel(parent)
}

func (h *SimulationHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/tickers/:index", h.IndexTickers)
	g.POST("/optimize", h.Optimize)
	g.POST("/walkforward", h.WalkForward)
	g.POST("/walkforward/predictive", h.WalkForwardPredictive)
	g.GET("/walkforward/ws", h.WalkForwardWS)
}

func (h *SimulationHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		h.logger.Error("price store unhealthy", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("price store unavailable"))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *SimulationHandler) IndexTickers(c echo.Context) error {
	index := strings.ToUpper(c.Param("index"))
	tickers, ok := models.IndexTickers[index]
	if !ok {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("unknown index: %s", index))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"index": index, "tickers": tickers})
}

func (h *SimulationHandler) Optimize(c echo.Context) error {
	req := &models.OptimizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx, cancel := h.runContext(c.Request().Context())
	defer cancel()

	res, err := h.runner.Optimize(ctx, *req)
	if err != nil {
		h.logger.Error("optimize failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SimulationHandler) WalkForward(c echo.Context) error {
	req := &models.WalkForwardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx, cancel := h.runContext(c.Request().Context())
	defer cancel()

	runID := uuid.NewString()
	res, err := h.runner.RunHistorical(ctx, runID, *req, nil)
	if err != nil {
		h.logger.Error("walk-forward failed", xlogger.String("run_id", runID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"run_id": runID, "result": res})
}

func (h *SimulationHandler) WalkForwardPredictive(c echo.Context) error {
	req := &models.PredictiveWalkForwardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx, cancel := h.runContext(c.Request().Context())
	defer cancel()

	runID := uuid.NewString()
	res, err := h.runner.RunPredictive(ctx, runID, *req, nil)
	if err != nil {
		h.logger.Error("predictive walk-forward failed", xlogger.String("run_id", runID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"run_id": runID, "result": res})
}

// mapDomainError translates the domain error taxonomy into the API error
// envelope.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, models.ErrConfiguration):
		return xhttp.ConfigurationError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrDataInsufficiency),
		errors.Is(err, models.ErrOptimizationInfeasible),
		errors.Is(err, models.ErrModelFit):
		return xhttp.DataInsufficiencyError(err.Error()).WithError(err)
	default:
		return err
	}
}
