package alpha

import (
	"math"
	"math/rand"
	"testing"
)

func makeStepData(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x0 := rng.Float64()*2 - 1
		x1 := rng.NormFloat64()
		X[i] = []float64{x0, x1}
		if x0 > 0 {
			y[i] = 1.0
		} else {
			y[i] = -1.0
		}
		y[i] += 0.05 * rng.NormFloat64()
	}
	return X, y
}

func TestForestLearnsStepFunction(t *testing.T) {
	X, y := makeStepData(400, 1)

	f := &forestRegressor{nTrees: 50, maxDepth: 5, minSplit: 20, minLeaf: 10, sqrtFeature: true, seed: 42}
	if err := f.fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}

	pred := f.predict([][]float64{{0.8, 0}, {-0.8, 0}})
	if pred[0] < 0.5 {
		t.Fatalf("positive region should predict near 1, got %v", pred[0])
	}
	if pred[1] > -0.5 {
		t.Fatalf("negative region should predict near -1, got %v", pred[1])
	}
}

func TestForestDeterministicBySeed(t *testing.T) {
	X, y := makeStepData(300, 2)

	run := func() []float64 {
		f := &forestRegressor{nTrees: 20, maxDepth: 5, minSplit: 20, minLeaf: 10, sqrtFeature: true, seed: 42}
		if err := f.fit(X, y); err != nil {
			t.Fatalf("fit: %v", err)
		}
		return f.predict(X[:10])
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed should reproduce predictions: %v vs %v", a[i], b[i])
		}
	}
}

func TestForestImportanceFindsSignalFeature(t *testing.T) {
	X, y := makeStepData(400, 3)

	f := &forestRegressor{nTrees: 50, maxDepth: 5, minSplit: 20, minLeaf: 10, sqrtFeature: false, seed: 42}
	if err := f.fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	imp := f.importance()
	if imp[0] <= imp[1] {
		t.Fatalf("signal feature should dominate importance: %v vs %v", imp[0], imp[1])
	}
	var total float64
	for _, v := range imp {
		total += v
	}
	if math.Abs(total-1) > 1e-9 {
		t.Fatalf("importance should normalize to 1, got %v", total)
	}
}

func TestBoostingReducesTrainingError(t *testing.T) {
	X, y := makeStepData(400, 4)

	few := &boostingRegressor{nTrees: 2, learningRate: 0.05, maxDepth: 3, minSplit: 20, minLeaf: 10, subsample: 0.8, seed: 42}
	many := &boostingRegressor{nTrees: 100, learningRate: 0.05, maxDepth: 3, minSplit: 20, minLeaf: 10, subsample: 0.8, seed: 42}
	if err := few.fit(X, y); err != nil {
		t.Fatalf("fit few: %v", err)
	}
	if err := many.fit(X, y); err != nil {
		t.Fatalf("fit many: %v", err)
	}

	if rmse(many.predict(X), y) >= rmse(few.predict(X), y) {
		t.Fatalf("more boosting rounds should fit training data tighter")
	}
}

func TestBoostingDeterministicBySeed(t *testing.T) {
	X, y := makeStepData(300, 5)

	run := func() []float64 {
		b := &boostingRegressor{nTrees: 30, learningRate: 0.05, maxDepth: 3, minSplit: 20, minLeaf: 10, subsample: 0.8, seed: 42}
		if err := b.fit(X, y); err != nil {
			t.Fatalf("fit: %v", err)
		}
		return b.predict(X[:10])
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed should reproduce predictions: %v vs %v", a[i], b[i])
		}
	}
}
