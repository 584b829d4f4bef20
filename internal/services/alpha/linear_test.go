package alpha

import (
	"math"
	"math/rand"
	"testing"
)

func makeLinearData(n int, coef []float64, intercept, noise float64, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(coef))
		s := intercept
		for j := range coef {
			row[j] = rng.NormFloat64()
			s += coef[j] * row[j]
		}
		X[i] = row
		y[i] = s + noise*rng.NormFloat64()
	}
	return X, y
}

func TestRidgeRecoversCoefficients(t *testing.T) {
	want := []float64{2.0, -1.5, 0.5}
	X, y := makeLinearData(500, want, 0.3, 0.01, 1)

	r := &ridgeRegressor{alpha: 0.01}
	if err := r.fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	for j, w := range want {
		if math.Abs(r.coef[j]-w) > 0.05 {
			t.Fatalf("coef %d: want %v, got %v", j, w, r.coef[j])
		}
	}
	if math.Abs(r.intercept-0.3) > 0.05 {
		t.Fatalf("intercept: want 0.3, got %v", r.intercept)
	}
}

func TestRidgeShrinksWithAlpha(t *testing.T) {
	X, y := makeLinearData(200, []float64{1.0}, 0, 0.01, 2)

	small := &ridgeRegressor{alpha: 0.01}
	large := &ridgeRegressor{alpha: 1000}
	if err := small.fit(X, y); err != nil {
		t.Fatalf("fit small: %v", err)
	}
	if err := large.fit(X, y); err != nil {
		t.Fatalf("fit large: %v", err)
	}
	if math.Abs(large.coef[0]) >= math.Abs(small.coef[0]) {
		t.Fatalf("stronger penalty should shrink: %v vs %v", large.coef[0], small.coef[0])
	}
}

func TestLassoZerosIrrelevantFeature(t *testing.T) {
	// second feature carries no signal
	X, y := makeLinearData(400, []float64{1.0, 0.0}, 0, 0.01, 3)

	l := &coordinateDescentRegressor{alpha: 0.05, l1Ratio: 1.0, maxIter: 10000, tol: 1e-6}
	if err := l.fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if l.coef[1] != 0 {
		t.Fatalf("lasso should zero the dead feature, got %v", l.coef[1])
	}
	if l.coef[0] == 0 {
		t.Fatalf("lasso killed the live feature")
	}
}

func TestElasticNetBetweenRidgeAndLasso(t *testing.T) {
	X, y := makeLinearData(300, []float64{2.0}, 0, 0.05, 4)

	en := &coordinateDescentRegressor{alpha: 0.1, l1Ratio: 0.5, maxIter: 10000, tol: 1e-6}
	if err := en.fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if en.coef[0] <= 0 || en.coef[0] >= 2.0 {
		t.Fatalf("elastic net coef should be shrunk but positive, got %v", en.coef[0])
	}
}

func TestLinearImportanceIsAbsCoef(t *testing.T) {
	X, y := makeLinearData(300, []float64{-3.0, 1.0}, 0, 0.01, 5)

	r := &ridgeRegressor{alpha: 0.01}
	if err := r.fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	imp := r.importance()
	if imp[0] <= imp[1] {
		t.Fatalf("larger magnitude coef should rank higher: %v vs %v", imp[0], imp[1])
	}
	if imp[0] < 0 || imp[1] < 0 {
		t.Fatalf("importance must be non-negative")
	}
}
