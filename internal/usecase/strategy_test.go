package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"AlphaWalk/internal/domain/models"
	drepo "AlphaWalk/internal/domain/repository"
	"AlphaWalk/internal/services/cluster"
	"AlphaWalk/internal/services/features"
	"AlphaWalk/internal/services/optimizer"
	"AlphaWalk/pkg/util"
)

func driftingPrice(tk string, i int) float64 {
	drift := 0.0002 * float64(len(tk)%5+1)
	base := 80.0 + 15*float64(tk[0]%5)
	return base * (1 + drift*float64(i) + 0.015*math.Sin(float64(i)/11+float64(tk[0])))
}

func testUniverse() []string {
	return []string{"ALPHA", "BRAVO", "CHARLIE", "DELTA", "ECHO", "FOX"}
}

func newHistorical(cfg models.SimulationConfig) *HistoricalStrategy {
	return NewHistoricalStrategy(cfg, features.NewExtractor(), cluster.NewService(), optimizer.NewEstimator())
}

func TestHistoricalDecideWeights(t *testing.T) {
	start := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	panel := weekdayPanel(testUniverse(), start, 36, driftingPrice)
	cfg := simConfig()
	cfg.RiskFreeRate = 0

	date := panel.Dates()[len(panel.Dates())-1]
	alloc, err := newHistorical(cfg).Decide(context.Background(), panel, date)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}

	var sum float64
	for tk, w := range alloc.Weights {
		if w < cfg.MinWeight-1e-9 || w > cfg.MaxWeight+1e-9 {
			t.Fatalf("weight %v for %s outside [%v, %v]", w, tk, cfg.MinWeight, cfg.MaxWeight)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("weights sum to %v", sum)
	}
}

func TestHistoricalDecideIgnoresFutureData(t *testing.T) {
	start := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	panel := weekdayPanel(testUniverse(), start, 36, driftingPrice)
	cfg := simConfig()
	cfg.RiskFreeRate = 0

	dates := panel.Dates()
	date := dates[len(dates)-30]

	baseline, err := newHistorical(cfg).Decide(context.Background(), panel, date)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}

	// inject a massive shock on and after the decision date
	shocked := panel.Bars()
	for i := range shocked {
		if !shocked[i].Date.Before(date) {
			shocked[i].AdjClose *= 50
			shocked[i].Close *= 50
		}
	}
	withShock, err := newHistorical(cfg).Decide(context.Background(), models.NewPricePanel(shocked), date)
	if err != nil {
		t.Fatalf("decide on shocked panel: %v", err)
	}

	if len(baseline.Weights) != len(withShock.Weights) {
		t.Fatalf("future shock changed the universe: %d vs %d", len(baseline.Weights), len(withShock.Weights))
	}
	for tk, w := range baseline.Weights {
		if math.Abs(withShock.Weights[tk]-w) > 1e-9 {
			t.Fatalf("future shock changed weight for %s: %v vs %v", tk, w, withShock.Weights[tk])
		}
	}
}

func TestHistoricalDecideEmptyWindow(t *testing.T) {
	start := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	panel := weekdayPanel(testUniverse(), start, 36, driftingPrice)
	cfg := simConfig()

	// a date before the panel leaves an empty lookback window
	if _, err := newHistorical(cfg).Decide(context.Background(), panel, start.AddDate(-1, 0, 0)); err == nil {
		t.Fatalf("expected error for empty window")
	}
}

func predictiveConfig() models.PredictiveConfig {
	cfg := models.PredictiveConfig{}
	if err := cfg.ApplyDefaults(); err != nil {
		panic(err)
	}
	return cfg
}

func newPredictive(cfg models.PredictiveConfig, met *fakeMetrics) *PredictiveStrategy {
	extractor := features.NewExtractor()
	estimator := optimizer.NewEstimator()
	historical := NewHistoricalStrategy(cfg.SimulationConfig, extractor, cluster.NewService(), estimator)
	var m drepo.Metrics
	if met != nil {
		m = met
	}
	return NewPredictiveStrategy(cfg, extractor, historical, estimator, m)
}

func TestPredictiveDecideAccumulatesDiagnostics(t *testing.T) {
	start := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	panel := weekdayPanel(testUniverse(), start, 60, driftingPrice)
	cfg := predictiveConfig()
	cfg.RiskFreeRate = 0

	met := &fakeMetrics{}
	strategy := newPredictive(cfg, met)
	date := panel.Dates()[len(panel.Dates())-1]

	alloc, err := strategy.Decide(context.Background(), panel, date)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	var sum float64
	for _, w := range alloc.Weights {
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("weights sum to %v", sum)
	}
	if len(alloc.Forecasts) == 0 {
		t.Fatalf("no forecasts on predictive allocation")
	}

	ics, forecasts, _ := strategy.Histories()
	if len(ics) != 1 || len(forecasts) != 1 {
		t.Fatalf("histories = %d ICs, %d forecasts, want 1 each", len(ics), len(forecasts))
	}
	if met.lastIC != ics[0].MeanIC {
		t.Fatalf("IC metric %v does not match history %v", met.lastIC, ics[0].MeanIC)
	}
}

func TestPredictiveFallsBackOnThinData(t *testing.T) {
	// 8 months of history leaves too few realizable training samples once
	// the 3-month forward horizon is subtracted
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	panel := weekdayPanel(testUniverse(), start, 8, driftingPrice)
	cfg := predictiveConfig()
	cfg.RiskFreeRate = 0

	strategy := newPredictive(cfg, nil)
	date := panel.Dates()[len(panel.Dates())-1]

	alloc, err := strategy.Decide(context.Background(), panel, date)
	if err != nil {
		t.Fatalf("fallback decide: %v", err)
	}
	if len(alloc.Forecasts) != 0 {
		t.Fatalf("fallback allocation should carry no forecasts")
	}
	if ics, _, _ := strategy.Histories(); len(ics) != 0 {
		t.Fatalf("fallback should not record an IC, got %d", len(ics))
	}
}

func TestPredictiveRecommendAnchoredAtPanelEnd(t *testing.T) {
	start := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	panel := weekdayPanel(testUniverse(), start, 60, driftingPrice)
	cfg := predictiveConfig()
	cfg.RiskFreeRate = 0

	strategy := newPredictive(cfg, nil)
	rec, err := strategy.Recommend(context.Background(), panel)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !rec.AsOf.Equal(panel.End()) {
		t.Fatalf("recommendation as-of %v, want panel end %v", rec.AsOf, panel.End())
	}
	want := util.AddMonths(panel.End(), cfg.ForecastHorizonMonths)
	if !rec.TargetDate.Equal(want) {
		t.Fatalf("target date %v, want %v", rec.TargetDate, want)
	}
	if len(rec.Weights) == 0 {
		t.Fatalf("recommendation has no weights")
	}
}

func TestForecastQualitySummary(t *testing.T) {
	strategy := &PredictiveStrategy{}
	strategy.icHistory = []models.ICRecord{
		{MeanIC: 0.1}, {MeanIC: -0.05}, {MeanIC: 0.3}, {MeanIC: 0.05},
	}
	q := strategy.ForecastQuality()
	if q == nil {
		t.Fatalf("nil quality for non-empty history")
	}
	if q.NumPeriods != 4 {
		t.Fatalf("periods = %d", q.NumPeriods)
	}
	if math.Abs(q.MeanIC-0.1) > 1e-12 {
		t.Fatalf("mean IC = %v, want 0.1", q.MeanIC)
	}
	if math.Abs(q.MedianIC-0.075) > 1e-12 {
		t.Fatalf("median IC = %v, want 0.075", q.MedianIC)
	}
	if q.MinIC != -0.05 || q.MaxIC != 0.3 {
		t.Fatalf("min/max = %v/%v", q.MinIC, q.MaxIC)
	}
	if math.Abs(q.PositiveICRatio-0.75) > 1e-12 {
		t.Fatalf("positive ratio = %v, want 0.75", q.PositiveICRatio)
	}
}

func TestForecastQualityEmpty(t *testing.T) {
	strategy := &PredictiveStrategy{}
	if q := strategy.ForecastQuality(); q != nil {
		t.Fatalf("expected nil quality for empty history, got %+v", q)
	}
}

func TestTrainingDatesExcludeLatestMonth(t *testing.T) {
	names := []string{"rsi"}
	table := &models.FeatureTable{Names: names}
	for m := 1; m <= 6; m++ {
		table.Rows = append(table.Rows, models.FeatureRow{
			Date:   time.Date(2024, time.Month(m), 28, 0, 0, 0, 0, time.UTC),
			Ticker: "AAA",
			Values: []float64{50},
		})
	}
	dates := trainingDates(table)
	if len(dates) != 5 {
		t.Fatalf("training dates = %d, want 5", len(dates))
	}
	for _, d := range dates {
		if d.Month() == time.June {
			t.Fatalf("latest month leaked into training dates: %v", d)
		}
	}
}
