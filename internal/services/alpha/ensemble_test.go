package alpha

import (
	"math"
	"testing"
	"time"

	"AlphaWalk/internal/domain/models"
)

func TestEnsemblePredictMeanOfMembers(t *testing.T) {
	X, y := makeLinearData(400, []float64{2.0, -1.0}, 0, 0.05, 10)

	e, err := NewEnsembleModel(3, EnsembleMean)
	if err != nil {
		t.Fatalf("new ensemble: %v", err)
	}
	if _, err := e.Train(X, y); err != nil {
		t.Fatalf("train: %v", err)
	}

	probe := [][]float64{{1, 0}, {0, 1}}
	got, err := e.Predict(probe)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}

	var want [2]float64
	for _, m := range e.members {
		p, err := m.Predict(probe)
		if err != nil {
			t.Fatalf("member predict: %v", err)
		}
		want[0] += p[0] / float64(len(e.members))
		want[1] += p[1] / float64(len(e.members))
	}
	if math.Abs(got[0]-want[0]) > 1e-9 || math.Abs(got[1]-want[1]) > 1e-9 {
		t.Fatalf("mean combination mismatch: got %v, want %v", got, want)
	}
}

func TestEnsembleWeightedFallsBackToEqual(t *testing.T) {
	// all ICs clipped at zero leaves equal weights
	w := icWeights([]float64{-0.5, -0.1, -0.2})
	for _, v := range w {
		if math.Abs(v-1.0/3) > 1e-12 {
			t.Fatalf("expected equal weights, got %v", w)
		}
	}
}

func TestEnsembleICWeightsNormalize(t *testing.T) {
	w := icWeights([]float64{0.2, -0.1, 0.3})
	if w[1] != 0 {
		t.Fatalf("negative IC should get zero weight, got %v", w[1])
	}
	var total float64
	for _, v := range w {
		total += v
	}
	if math.Abs(total-1) > 1e-12 {
		t.Fatalf("weights should sum to 1, got %v", total)
	}
	if math.Abs(w[0]-0.4) > 1e-12 || math.Abs(w[2]-0.6) > 1e-12 {
		t.Fatalf("weights should be IC-proportional, got %v", w)
	}
}

func TestEnsembleMedianCombination(t *testing.T) {
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("odd median: want 2, got %v", got)
	}
	if got := median([]float64{4, 1, 2, 3}); got != 2.5 {
		t.Fatalf("even median: want 2.5, got %v", got)
	}
}

func TestEnsembleUnknownMethod(t *testing.T) {
	if _, err := NewEnsembleModel(3, "vote"); err == nil {
		t.Fatalf("expected error on unknown ensemble method")
	}
}

func TestEnsembleSatisfiesModelContract(t *testing.T) {
	X, y := makeLinearData(400, []float64{1.5}, 0, 0.05, 11)

	e, err := NewEnsembleModel(3, EnsembleWeighted)
	if err != nil {
		t.Fatalf("new ensemble: %v", err)
	}

	set := &models.TrainingSet{X: X, Y: y, Names: []string{"f0"}}
	d := time.Date(2022, 1, 31, 0, 0, 0, 0, time.UTC)
	for i := range y {
		set.Dates = append(set.Dates, d.AddDate(0, i/50, 0))
	}

	res, err := e.TrainWithCrossValidation(set, 3)
	if err != nil {
		t.Fatalf("cv: %v", err)
	}
	if math.IsNaN(res.MeanIC) {
		t.Fatalf("mean IC should be finite")
	}
	if _, err := e.Train(X, y); err != nil {
		t.Fatalf("train: %v", err)
	}
	if e.weights == nil {
		t.Fatalf("weighted ensemble should fix weights during CV")
	}
}
