package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"AlphaWalk/internal/domain/models"
	xhttp "AlphaWalk/pkg/http"
	xlogger "AlphaWalk/pkg/logger"

	"github.com/labstack/echo/v4"
)

func testHandler(t *testing.T) *SimulationHandler {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewSimulationHandler(l, nil, nil)
}

func TestIndexTickersKnown(t *testing.T) {
	h := testHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/tickers/nifty50", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("index")
	c.SetParamValues("nifty50")

	if err := h.IndexTickers(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Data struct {
			Index   string   `json:"index"`
			Tickers []string `json:"tickers"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Index != "NIFTY50" {
		t.Fatalf("index = %q", body.Data.Index)
	}
	if len(body.Data.Tickers) != 20 {
		t.Fatalf("tickers = %d, want 20", len(body.Data.Tickers))
	}
}

func TestIndexTickersUnknown(t *testing.T) {
	h := testHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/tickers/SENSEX", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("index")
	c.SetParamValues("SENSEX")

	if err := h.IndexTickers(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMapDomainError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("bad knob: %w", models.ErrConfiguration), http.StatusBadRequest},
		{fmt.Errorf("thin panel: %w", models.ErrDataInsufficiency), http.StatusUnprocessableEntity},
		{fmt.Errorf("no feasible point: %w", models.ErrOptimizationInfeasible), http.StatusUnprocessableEntity},
		{fmt.Errorf("singular fit: %w", models.ErrModelFit), http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		var appErr *xhttp.AppError
		if !errors.As(mapDomainError(tc.err), &appErr) {
			t.Fatalf("no AppError for %v", tc.err)
		}
		if appErr.Status != tc.status {
			t.Fatalf("status for %v = %d, want %d", tc.err, appErr.Status, tc.status)
		}
	}

	plain := errors.New("disk on fire")
	if _, ok := mapDomainError(plain).(*xhttp.AppError); ok {
		t.Fatalf("unexpected AppError for unclassified error")
	}
}
