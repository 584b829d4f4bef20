package alpha

import (
	"math"
	"testing"
	"time"

	"AlphaWalk/internal/domain/models"
)

func panelWithTrend(tickers []string, days int, perBarReturn map[string]float64) *models.PricePanel {
	var bars []models.Bar
	for _, tk := range tickers {
		price := 100.0
		d := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
		for i := 0; i < days; i++ {
			for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
				d = d.AddDate(0, 0, 1)
			}
			price *= 1 + perBarReturn[tk]
			bars = append(bars, models.Bar{
				Date: d, Ticker: tk,
				Open: price, High: price * 1.01, Low: price * 0.99,
				Close: price, AdjClose: price, Volume: 1e6,
			})
			d = d.AddDate(0, 0, 1)
		}
	}
	return models.NewPricePanel(bars)
}

func trendFeatureTable(panel *models.PricePanel, signal map[string]float64) *models.FeatureTable {
	table := &models.FeatureTable{Names: []string{"signal", "noise"}}
	for _, tk := range panel.Tickers() {
		bars := panel.Series(tk)
		for i, b := range bars {
			if (i+1)%21 != 0 {
				continue
			}
			table.Rows = append(table.Rows, models.FeatureRow{
				Date:   b.Date,
				Ticker: tk,
				Values: []float64{signal[tk], float64(i % 7)},
			})
		}
	}
	return table
}

func TestPrepareTrainingDataDropsUnrealizedLabels(t *testing.T) {
	perBar := map[string]float64{"UP": 0.001, "DN": -0.001}
	panel := panelWithTrend([]string{"UP", "DN"}, 300, perBar)
	table := trendFeatureTable(panel, map[string]float64{"UP": 1, "DN": -1})

	m, err := NewPredictiveModel(models.ModelRidge, 3, 1.0)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	set, err := m.PrepareTrainingData(table, panel, table.Dates())
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	// horizon is 63 bars; rows within 63 bars of the end have no label
	dates := panel.Dates()
	cutoff := dates[len(dates)-63]
	for _, d := range set.Dates {
		if !d.Before(cutoff) {
			t.Fatalf("sample at %s has an unrealizable forward return", d)
		}
	}
	if set.Len() == 0 {
		t.Fatalf("expected realized samples")
	}
}

func TestForwardReturnClipped(t *testing.T) {
	// 1% per bar over 63 bars is ~87%, must clip at 50%
	panel := panelWithTrend([]string{"HOT"}, 200, map[string]float64{"HOT": 0.01})
	bars := panel.Series("HOT")

	r, ok := forwardReturn(bars, bars[10].Date, 3)
	if !ok {
		t.Fatalf("expected realized return")
	}
	if r != forwardReturnClip {
		t.Fatalf("expected clip at %v, got %v", forwardReturnClip, r)
	}
}

func TestPrepareTrainingDataImputesNaN(t *testing.T) {
	panel := panelWithTrend([]string{"A", "B", "C"}, 300, map[string]float64{"A": 0.001, "B": 0.0, "C": -0.001})
	table := trendFeatureTable(panel, map[string]float64{"A": 1, "B": 0, "C": -1})
	table.Rows[0].Values[0] = math.NaN()

	m, err := NewPredictiveModel(models.ModelRidge, 1, 1.0)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	set, err := m.PrepareTrainingData(table, panel, table.Dates())
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	for _, row := range set.X {
		for _, v := range row {
			if math.IsNaN(v) {
				t.Fatalf("NaN survived imputation")
			}
		}
	}
}

func TestTrainPredictRecoverySignal(t *testing.T) {
	perBar := map[string]float64{"UP": 0.002, "FLAT": 0.0, "DN": -0.002}
	panel := panelWithTrend([]string{"UP", "FLAT", "DN"}, 400, perBar)
	signal := map[string]float64{"UP": 1, "FLAT": 0, "DN": -1}
	table := trendFeatureTable(panel, signal)

	m, err := NewPredictiveModel(models.ModelRidge, 1, 1.0)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	set, err := m.PrepareTrainingData(table, panel, table.Dates())
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	ic, err := m.Train(set.X, set.Y)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if ic < 0.9 {
		t.Fatalf("expected near-perfect in-sample IC on clean signal, got %v", ic)
	}

	pred, err := m.Predict([][]float64{{1, 0}, {-1, 0}})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred[0] <= pred[1] {
		t.Fatalf("positive signal should forecast higher return: %v vs %v", pred[0], pred[1])
	}
}

func TestUnknownModelTypeFailsFast(t *testing.T) {
	if _, err := NewPredictiveModel("quantum_leap", 3, 1.0); err == nil {
		t.Fatalf("expected error on unknown model type")
	}
}

func TestFeatureImportanceTopN(t *testing.T) {
	X, y := makeLinearData(300, []float64{3.0, 0.1, 1.0}, 0, 0.01, 7)

	m, err := NewPredictiveModel(models.ModelRidge, 3, 0.01)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if _, err := m.Train(X, y); err != nil {
		t.Fatalf("train: %v", err)
	}

	top := m.FeatureImportance([]string{"a", "b", "c"}, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 ranked features, got %d", len(top))
	}
	if top[0].Feature != "a" {
		t.Fatalf("strongest feature should rank first, got %s", top[0].Feature)
	}
}
