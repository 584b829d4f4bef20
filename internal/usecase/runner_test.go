package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"AlphaWalk/internal/domain/models"
	"AlphaWalk/internal/services/cluster"
	"AlphaWalk/internal/services/features"
	"AlphaWalk/internal/services/optimizer"
	"AlphaWalk/pkg/util"
)

type fakeStore struct {
	panel *models.PricePanel
}

func (f *fakeStore) Fetch(_ context.Context, tickers []string, start, end time.Time) (*models.PricePanel, error) {
	keep := make(map[string]bool, len(tickers))
	for _, tk := range tickers {
		keep[tk] = true
	}
	var bars []models.Bar
	for _, b := range f.panel.Bars() {
		if keep[b.Ticker] && !b.Date.Before(start) && !b.Date.After(end) {
			bars = append(bars, b)
		}
	}
	if len(bars) == 0 {
		return nil, models.ErrDataInsufficiency
	}
	return models.NewPricePanel(bars), nil
}

func (f *fakeStore) Health(context.Context) error { return nil }
func (f *fakeStore) Close() error                 { return nil }

func tenTickers() []string {
	return []string{"ALPHA", "BRAVO", "CHARLIE", "DELTA", "ECHO", "FOX", "GOLF", "HOTEL", "INDIA", "JULIET"}
}

func newRunner(panel *models.PricePanel) (*Runner, *fakeMetrics) {
	met := &fakeMetrics{}
	sim := NewSimulator(nil, met)
	r := NewRunner(&fakeStore{panel: panel}, sim, features.NewExtractor(), cluster.NewService(), optimizer.NewEstimator(), met)
	return r, met
}

func TestRunnerHistoricalEndToEnd(t *testing.T) {
	start := time.Date(2015, 1, 2, 0, 0, 0, 0, time.UTC)
	panel := weekdayPanel(tenTickers(), start, 60, driftingPrice)
	runner, met := newRunner(panel)

	req := models.WalkForwardRequest{
		PanelRequest: models.PanelRequest{
			Tickers:   tenTickers(),
			StartDate: "2015-01-02",
			EndDate:   "2019-12-31",
		},
	}
	if err := req.Config.ApplyDefaults(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	req.Config.RiskFreeRate = 0
	req.Config.TransactionCostBps = 15

	result, err := runner.RunHistorical(context.Background(), "e2e-hist", req, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Summary.FinalValue <= 0 {
		t.Fatalf("final value = %v", result.Summary.FinalValue)
	}
	firstTarget := util.AddMonths(panel.Start(), req.Config.LookbackMonths)
	if result.Rebalances[0].Date.Before(firstTarget) {
		t.Fatalf("first rebalance %v precedes the lookback horizon %v", result.Rebalances[0].Date, firstTarget)
	}
	// monthly cadence over the remaining ~36 months
	if n := len(result.Rebalances); n < 30 || n > 40 {
		t.Fatalf("rebalance count = %d, want about 36", n)
	}
	for _, rec := range result.Rebalances {
		if rec.Skipped {
			continue
		}
		var sum float64
		for _, w := range rec.Weights {
			if w > req.Config.MaxWeight+1e-9 {
				t.Fatalf("weight %v above cap at %v", w, rec.Date)
			}
			sum += w
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Fatalf("weights sum %v at %v", sum, rec.Date)
		}
		if rec.Turnover < 0 || rec.Turnover > 2+1e-9 {
			t.Fatalf("turnover %v at %v", rec.Turnover, rec.Date)
		}
	}
	if met.started != 1 || met.completed != 1 {
		t.Fatalf("run metrics started/completed = %d/%d", met.started, met.completed)
	}
}

func TestRunnerPredictiveAttachesDiagnostics(t *testing.T) {
	start := time.Date(2016, 1, 4, 0, 0, 0, 0, time.UTC)
	panel := weekdayPanel(testUniverse(), start, 40, driftingPrice)
	runner, _ := newRunner(panel)

	req := models.PredictiveWalkForwardRequest{
		PanelRequest: models.PanelRequest{
			Tickers:   testUniverse(),
			StartDate: "2016-01-04",
			EndDate:   "2019-05-01",
		},
	}
	if err := req.Config.ApplyDefaults(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	req.Config.RiskFreeRate = 0

	result, err := runner.RunPredictive(context.Background(), "e2e-pred", req, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.ICHistory) == 0 {
		t.Fatalf("no IC history on predictive run")
	}
	if result.ForecastQuality == nil {
		t.Fatalf("no forecast quality summary")
	}
	if result.ForecastQuality.NumPeriods != len(result.ICHistory) {
		t.Fatalf("quality periods %d != IC history %d", result.ForecastQuality.NumPeriods, len(result.ICHistory))
	}
	if result.Recommendation == nil {
		t.Fatalf("no recommendation")
	}
	if !result.Recommendation.AsOf.Equal(panel.End()) {
		t.Fatalf("recommendation as-of %v, want %v", result.Recommendation.AsOf, panel.End())
	}
}

func TestRunnerPredictiveRejectsBadWindows(t *testing.T) {
	start := time.Date(2016, 1, 4, 0, 0, 0, 0, time.UTC)
	panel := weekdayPanel(testUniverse(), start, 40, driftingPrice)
	runner, _ := newRunner(panel)

	req := models.PredictiveWalkForwardRequest{
		PanelRequest: models.PanelRequest{
			Tickers:   testUniverse(),
			StartDate: "2016-01-04",
			EndDate:   "2019-05-01",
		},
	}
	if err := req.Config.ApplyDefaults(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	req.Config.AlphaLookbackMonths = 48
	req.Config.RiskLookbackMonths = 24

	if _, err := runner.RunPredictive(context.Background(), "bad-windows", req, nil); !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestRunnerOptimizeOneShot(t *testing.T) {
	start := time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC)
	panel := weekdayPanel(testUniverse(), start, 24, driftingPrice)
	runner, _ := newRunner(panel)

	req := models.OptimizeRequest{
		PanelRequest: models.PanelRequest{
			Tickers:   testUniverse(),
			StartDate: "2018-01-02",
			EndDate:   "2019-12-31",
		},
		NClusters:      3,
		RiskFreeRate:   0,
		MaxWeight:      1,
		InitialCapital: 100000,
	}

	result, err := runner.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	var sum float64
	for _, w := range result.Allocation.Weights {
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("weights sum %v", sum)
	}
	if result.Allocation.Clusters == nil {
		t.Fatalf("no clustering diagnostics")
	}
	if result.Backtest == nil || result.Backtest.InitialCapital != 100000 {
		t.Fatalf("backtest missing or wrong capital: %+v", result.Backtest)
	}
	if result.Backtest.NPeriods < 2 {
		t.Fatalf("backtest curve too short: %d", result.Backtest.NPeriods)
	}
}

func TestRunnerRejectsBadDates(t *testing.T) {
	start := time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC)
	panel := weekdayPanel(testUniverse(), start, 24, driftingPrice)
	runner, _ := newRunner(panel)

	req := models.WalkForwardRequest{
		PanelRequest: models.PanelRequest{
			Tickers:   testUniverse(),
			StartDate: "2019-12-31",
			EndDate:   "2018-01-02",
		},
	}
	if err := req.Config.ApplyDefaults(); err != nil {
		t.Fatalf("defaults: %v", err)
	}

	if _, err := runner.RunHistorical(context.Background(), "bad-dates", req, nil); !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
